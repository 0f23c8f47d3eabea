// Package agent defines the capability that carries out one task
// description with a model, and a default implementation backed by
// OpenAI-compatible chat completion endpoints.
package agent

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ppiankov/notterun/internal/credential"
)

var (
	ErrMissingCredential = errors.New("no credential available for provider")
	ErrUnsupportedModel  = errors.New("model has no supported endpoint")
)

// Options configures one agent instance.
type Options struct {
	Model      string // full identifier, e.g. "groq/llama-3.3-70b-versatile"
	APIModel   string // name sent to the endpoint; derived from Model when empty
	MaxSteps   int
	Credential credential.Context
	BaseURL    string
	HTTPClient *http.Client
}

// Outcome is what an agent reports after a run.
type Outcome struct {
	Success  bool
	Duration time.Duration
	Answer   string
	Steps    int
}

// Agent runs a single task to completion or until its step budget runs out.
type Agent interface {
	Run(ctx context.Context, task string) (*Outcome, error)
}

// Factory builds an agent for one execution.
type Factory func(Options) (Agent, error)

// Func adapts a plain function to Agent.
type Func func(ctx context.Context, task string) (*Outcome, error)

func (f Func) Run(ctx context.Context, task string) (*Outcome, error) { return f(ctx, task) }
