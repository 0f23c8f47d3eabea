package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Step budget bounds accepted by the agent capability.
const (
	MinSteps     = 3
	MaxSteps     = 25
	DefaultSteps = 10
)

// TimestampLayout is the wall-clock format used in persisted results.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	ErrEmptyTask  = errors.New("task description is empty")
	ErrEmptyBatch = errors.New("no tasks given")
	ErrStepBudget = fmt.Errorf("step budget must be between %d and %d", MinSteps, MaxSteps)
	ErrNoModel    = errors.New("model identifier is empty")
)

// FailureKind classifies why a task did not produce an agent outcome.
type FailureKind string

const (
	FailureNone                  FailureKind = ""
	FailureCredentialMissing     FailureKind = "credential_missing"
	FailureCapabilityUnavailable FailureKind = "capability_unavailable"
	FailureExecutionTimeout      FailureKind = "execution_timeout"
	FailureProviderMismatch      FailureKind = "provider_mismatch"
	FailureUnknown               FailureKind = "unknown"
)

// Description returns a short human-readable label for the kind.
func (k FailureKind) Description() string {
	switch k {
	case FailureNone:
		return ""
	case FailureCredentialMissing:
		return "credential missing or rejected"
	case FailureCapabilityUnavailable:
		return "agent capability unavailable"
	case FailureExecutionTimeout:
		return "execution timed out"
	case FailureProviderMismatch:
		return "model not offered by any provider"
	default:
		return "agent execution failed"
	}
}

// Request is one task submitted for execution.
type Request struct {
	Text     string `json:"task"`
	Model    string `json:"model"`
	MaxSteps int    `json:"max_steps"`
	Provider string `json:"provider"`
	UserKey  string `json:"-"`
}

// Validate checks the request before it reaches the executor.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyTask
	}
	if strings.TrimSpace(r.Model) == "" {
		return ErrNoModel
	}
	if r.MaxSteps < MinSteps || r.MaxSteps > MaxSteps {
		return ErrStepBudget
	}
	return nil
}

// Result is the normalized outcome of one executed task.
type Result struct {
	Success         bool
	DurationSeconds float64
	Answer          string
	Model           string
	Provider        string
	Task            string
	Timestamp       time.Time
	Failure         FailureKind
	Steps           int
}

// Failed reports whether the result was synthesized from a failure.
func (r *Result) Failed() bool {
	return r.Failure != FailureNone
}

// resultRecord is the stable on-disk field set of a Result.
type resultRecord struct {
	Task            string      `json:"task"`
	Success         bool        `json:"success"`
	DurationSeconds float64     `json:"duration_seconds"`
	Model           string      `json:"model"`
	Provider        string      `json:"provider"`
	Answer          string      `json:"answer"`
	Timestamp       string      `json:"timestamp"`
	Failure         FailureKind `json:"failure,omitempty"`
}

// MarshalJSON writes the result with stable field names and a local
// wall-clock timestamp. Answers are written without HTML escaping.
func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(resultRecord{
		Task:            r.Task,
		Success:         r.Success,
		DurationSeconds: r.DurationSeconds,
		Model:           r.Model,
		Provider:        r.Provider,
		Answer:          r.Answer,
		Timestamp:       r.Timestamp.Format(TimestampLayout),
		Failure:         r.Failure,
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads a result written by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var rec resultRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	ts, err := time.ParseInLocation(TimestampLayout, rec.Timestamp, time.Local)
	if err != nil && rec.Timestamp != "" {
		return fmt.Errorf("parse timestamp %q: %w", rec.Timestamp, err)
	}
	*r = Result{
		Task:            rec.Task,
		Success:         rec.Success,
		DurationSeconds: rec.DurationSeconds,
		Model:           rec.Model,
		Provider:        rec.Provider,
		Answer:          rec.Answer,
		Timestamp:       ts,
		Failure:         rec.Failure,
	}
	return nil
}
