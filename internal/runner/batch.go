package runner

import (
	"context"
	"fmt"

	"github.com/ppiankov/notterun/internal/logging"
	"github.com/ppiankov/notterun/internal/task"
)

// BatchOptions are shared by every task of a batch.
type BatchOptions struct {
	Model    string
	Provider string
	UserKey  string
	MaxSteps int

	// OnStart is called before task i (1-based) begins.
	OnStart func(i, total int, text string)
	// OnUpdate is called after task i finished, failed or was skipped.
	OnUpdate func(i int, s task.Section)
}

// Validate checks the shared options against a placeholder task.
func (o BatchOptions) Validate() error {
	return task.Request{Text: "-", Model: o.Model, MaxSteps: o.MaxSteps}.Validate()
}

// BatchRunner runs a list of tasks strictly one after another.
type BatchRunner struct {
	svc *Service
}

// NewBatchRunner creates a batch runner over a service.
func NewBatchRunner(svc *Service) *BatchRunner {
	return &BatchRunner{svc: svc}
}

// RunAll runs every non-blank task in order and reports one section per
// task. A batch with no tasks is rejected without side effects. Once ctx
// is done no further task starts; the remaining ones are reported skipped.
func (b *BatchRunner) RunAll(ctx context.Context, texts []string, opts BatchOptions) (*task.BatchReport, error) {
	tasks := task.CleanTasks(texts)
	if len(tasks) == 0 {
		return &task.BatchReport{Rejected: true}, nil
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	log := logging.Component("batch")
	total := len(tasks)
	report := &task.BatchReport{Sections: make([]task.Section, 0, total)}

	for i, text := range tasks {
		idx := i + 1
		sec := task.Section{Index: idx, Total: total, Task: text}

		if err := ctx.Err(); err != nil {
			sec.Skipped = true
			sec.Error = "cancelled before start"
		} else {
			if opts.OnStart != nil {
				opts.OnStart(idx, total, text)
			}
			log.Debug().Int("index", idx).Int("total", total).Msg("batch task started")
			b.runOne(ctx, &sec, task.Request{
				Text:     text,
				Model:    opts.Model,
				MaxSteps: opts.MaxSteps,
				Provider: opts.Provider,
				UserKey:  opts.UserKey,
			})
		}

		report.Sections = append(report.Sections, sec)
		report.Artifacts = append(report.Artifacts, sec.Artifacts...)
		if opts.OnUpdate != nil {
			opts.OnUpdate(idx, sec)
		}
	}

	log.Info().Int("total", total).Int("succeeded", report.Succeeded()).Msg("batch finished")
	return report, nil
}

// runOne fills sec from one pipeline run. A panic anywhere in the
// pipeline only affects this section.
func (b *BatchRunner) runOne(ctx context.Context, sec *task.Section, req task.Request) {
	defer func() {
		if r := recover(); r != nil {
			log := logging.Component("batch")
			log.Error().Interface("panic", r).Int("index", sec.Index).Msg("batch task panicked")
			sec.Result = nil
			sec.Artifacts = nil
			sec.Error = fmt.Sprintf("%v", r)
		}
	}()

	out := b.svc.Run(ctx, req)
	switch {
	case out.Invalid != nil:
		sec.Error = out.Invalid.Error()
	default:
		sec.Result = out.Result
		sec.Artifacts = out.Artifacts
		if out.PersistErr != nil {
			sec.Error = fmt.Sprintf("result produced, artifacts unavailable: %v", out.PersistErr)
		}
	}
}
