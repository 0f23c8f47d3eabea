package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ppiankov/notterun/internal/agent"
	"github.com/ppiankov/notterun/internal/credential"
	"github.com/ppiankov/notterun/internal/logging"
	"github.com/ppiankov/notterun/internal/provider"
	"github.com/ppiankov/notterun/internal/task"
)

// Executor runs one task request through the agent capability and always
// produces exactly one result.
type Executor struct {
	registry   *provider.Registry
	resolver   *credential.Resolver
	factory    agent.Factory
	limiter    *ProviderLimiter
	timeout    time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeout bounds each agent run. Zero means no bound.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithLimiter replaces the default one-at-a-time provider limiter.
func WithLimiter(pl *ProviderLimiter) ExecutorOption {
	return func(e *Executor) { e.limiter = pl }
}

// WithClock sets the source of result timestamps.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

// WithHTTPClient is passed to agents that talk to provider endpoints.
func WithHTTPClient(c *http.Client) ExecutorOption {
	return func(e *Executor) { e.httpClient = c }
}

// NewExecutor creates an executor. A nil factory uses agent.NewChat.
func NewExecutor(reg *provider.Registry, res *credential.Resolver, factory agent.Factory, opts ...ExecutorOption) *Executor {
	if factory == nil {
		factory = agent.NewChat
	}
	if res == nil {
		res = credential.NewResolver(nil)
	}
	e := &Executor{
		registry: reg,
		resolver: res,
		factory:  factory,
		limiter:  NewProviderLimiter(1, nil),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the provider registry the executor resolves against.
func (e *Executor) Registry() *provider.Registry { return e.registry }

// Execute resolves the provider that owns req.Model, prepares its
// credential and invokes the agent once. Failures of any kind, including
// agent panics, come back as a failed result rather than an error.
func (e *Executor) Execute(ctx context.Context, req task.Request) *task.Result {
	log := logging.Component("executor")

	desc, err := e.registry.Resolve(req.Model, req.Provider)
	if err != nil {
		return e.failedResult(req, req.Provider, err)
	}
	if req.Provider != "" && req.Provider != desc.Name {
		log.Info().Str("claimed", req.Provider).Str("provider", desc.Name).Str("model", req.Model).Msg("provider corrected from model")
	}

	if err := e.limiter.Acquire(ctx, desc.Name); err != nil {
		return e.failedResult(req, desc.Name, fmt.Errorf("wait for provider slot: %w", err))
	}
	defer e.limiter.Release(desc.Name)

	cred, err := e.resolver.Prepare(desc, req.UserKey)
	if err != nil {
		return e.failedResult(req, desc.Name, err)
	}
	log.Debug().Str("provider", desc.Name).Str("variable", cred.Variable).Str("source", string(cred.Source)).Msg("credential prepared")

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	out, err := e.invoke(ctx, agent.Options{
		Model:      req.Model,
		APIModel:   provider.APIModel(req.Model),
		MaxSteps:   req.MaxSteps,
		Credential: cred,
		BaseURL:    desc.BaseURL,
		HTTPClient: e.httpClient,
	}, req.Text)
	if err != nil {
		return e.failedResult(req, desc.Name, err, cred.Key)
	}

	dur := out.Duration.Seconds()
	if dur < 0 {
		dur = 0
	}
	answer, _ := RedactLiteral(out.Answer, cred.Key)
	return &task.Result{
		Success:         out.Success,
		DurationSeconds: dur,
		Answer:          answer,
		Model:           req.Model,
		Provider:        desc.Name,
		Task:            req.Text,
		Timestamp:       e.now(),
		Steps:           out.Steps,
	}
}

// invoke builds the agent and runs it once, converting panics to errors.
func (e *Executor) invoke(ctx context.Context, opts agent.Options, text string) (out *agent.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &panicError{value: r}
		}
	}()

	a, err := e.factory(opts)
	if err != nil {
		return nil, err
	}
	out, err = a.Run(ctx, text)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("agent returned no outcome")
	}
	return out, nil
}

// failedResult builds the result of a failed execution. Credential values
// are scrubbed from the error text.
func (e *Executor) failedResult(req task.Request, providerName string, err error, secrets ...string) *task.Result {
	kind := Classify(err)
	msg, n := Redact(err.Error(), secrets...)
	log := logging.Component("executor")
	log.Info().Str("failure", string(kind)).Str("provider", providerName).Str("model", req.Model).Str("error", msg).Msg("task failed")
	if n > 0 {
		log.Debug().Int("count", n).Msg("redacted credentials from error")
	}
	return &task.Result{
		Success:   false,
		Answer:    fmt.Sprintf("%s: %s", kind.Description(), msg),
		Model:     req.Model,
		Provider:  providerName,
		Task:      req.Text,
		Timestamp: e.now(),
		Failure:   kind,
	}
}
