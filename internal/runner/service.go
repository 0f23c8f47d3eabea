package runner

import (
	"context"

	"github.com/ppiankov/notterun/internal/logging"
	"github.com/ppiankov/notterun/internal/task"
)

// Persister writes the durable representations of a result.
type Persister interface {
	Persist(res *task.Result) ([]string, error)
}

// Recorder keeps an index of executed results.
type Recorder interface {
	Record(ctx context.Context, res *task.Result, artifacts []string) error
}

// Outcome is the result of running one request through the pipeline.
type Outcome struct {
	Result     *task.Result
	Artifacts  []string
	PersistErr error // set when the result exists but some artifacts could not be written
	Invalid    error // set when the request was rejected before execution
}

// Degraded reports whether the result was produced but persistence failed.
func (o Outcome) Degraded() bool { return o.Result != nil && o.PersistErr != nil }

// Service chains validation, execution, persistence and history.
type Service struct {
	exec    *Executor
	persist Persister
	history Recorder
}

// NewService creates a pipeline. history may be nil.
func NewService(exec *Executor, persist Persister, history Recorder) *Service {
	return &Service{exec: exec, persist: persist, history: history}
}

// Executor returns the underlying executor.
func (s *Service) Executor() *Executor { return s.exec }

// Run validates req, executes it once and persists the result. An invalid
// request has no side effects.
func (s *Service) Run(ctx context.Context, req task.Request) Outcome {
	log := logging.Component("service")

	if err := req.Validate(); err != nil {
		return Outcome{Invalid: err}
	}

	res := s.exec.Execute(ctx, req)
	out := Outcome{Result: res}

	if s.persist != nil {
		paths, err := s.persist.Persist(res)
		out.Artifacts = paths
		if err != nil {
			out.PersistErr = err
			log.Warn().Err(err).Int("written", len(paths)).Msg("result produced, artifacts unavailable")
		}
	}

	if s.history != nil {
		if err := s.history.Record(ctx, res, out.Artifacts); err != nil {
			log.Warn().Err(err).Msg("record history")
		}
	}

	log.Info().
		Str("provider", res.Provider).
		Str("model", res.Model).
		Bool("success", res.Success).
		Str("failure", string(res.Failure)).
		Float64("duration_s", res.DurationSeconds).
		Msg("task finished")
	return out
}
