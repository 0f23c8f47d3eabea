package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/notterun/internal/agent"
	"github.com/ppiankov/notterun/internal/provider"
	"github.com/ppiankov/notterun/internal/task"
)

// connectivityPattern maps an error text pattern to a human-readable reason.
type connectivityPattern struct {
	pattern string
	reason  string
}

var connectivityPatterns = []connectivityPattern{
	{"ssl certificate problem", "TLS certificate expired"},
	{"certificate has expired", "TLS certificate expired"},
	{"x509:", "TLS certificate invalid"},
	{"connection refused", "connection refused"},
	{"connection reset", "connection reset"},
	{"no such host", "DNS resolution failed"},
	{"dns resolution failed", "DNS resolution failed"},
	{"could not resolve host", "DNS resolution failed"},
	{"tls handshake timeout", "TLS handshake timeout"},
	{"usage_limit_reached", "rate limited"},
	{"rate limit", "rate limited"},
}

// panicError carries a value recovered from a panicking agent.
type panicError struct {
	value any
}

func (p *panicError) Error() string { return fmt.Sprintf("agent panic: %v", p.value) }

// Classify maps an execution error to a failure kind.
func Classify(err error) task.FailureKind {
	if err == nil {
		return task.FailureNone
	}

	var pe *panicError
	switch {
	case errors.As(err, &pe):
		return task.FailureUnknown
	case errors.Is(err, provider.ErrProviderMismatch), errors.Is(err, provider.ErrUnknownProvider):
		return task.FailureProviderMismatch
	case errors.Is(err, agent.ErrMissingCredential):
		return task.FailureCredentialMissing
	case errors.Is(err, agent.ErrUnsupportedModel):
		return task.FailureCapabilityUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return task.FailureExecutionTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if k := classifyStatus(apiErr.HTTPStatusCode); k != task.FailureNone {
			return k
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if k := classifyStatus(reqErr.HTTPStatusCode); k != task.FailureNone {
			return k
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return task.FailureExecutionTimeout
	}

	if ConnectivityReason(err.Error()) != "" {
		return task.FailureCapabilityUnavailable
	}
	return task.FailureUnknown
}

func classifyStatus(code int) task.FailureKind {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return task.FailureCredentialMissing
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return task.FailureExecutionTimeout
	case code == http.StatusNotFound, code == http.StatusTooManyRequests, code >= 500:
		return task.FailureCapabilityUnavailable
	default:
		return task.FailureNone
	}
}

// ConnectivityReason returns a short reason when text matches a known
// connectivity failure, or "" otherwise.
func ConnectivityReason(text string) string {
	lower := strings.ToLower(text)
	for _, cp := range connectivityPatterns {
		if strings.Contains(lower, cp.pattern) {
			return cp.reason
		}
	}
	return ""
}
