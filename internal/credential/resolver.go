// Package credential decides which secret governs an execution and makes it
// available to the agent capability.
package credential

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ppiankov/notterun/internal/provider"
)

// Source records where an effective credential came from.
type Source string

const (
	SourceUser        Source = "user"
	SourceFallback    Source = "fallback"
	SourceEnvironment Source = "environment"
	SourceNone        Source = "none"
)

// Resolve applies the precedence rule: a trimmed non-blank user key wins,
// then the provider's fallback key, otherwise nothing.
func Resolve(desc provider.Descriptor, userKey string) (string, Source) {
	if k := strings.TrimSpace(userKey); k != "" {
		return k, SourceUser
	}
	if desc.FallbackKey != "" {
		return desc.FallbackKey, SourceFallback
	}
	return "", SourceNone
}

// Slots is the named credential store read by the agent capability.
type Slots interface {
	Get(name string) string
	Set(name, value string) error
}

// EnvSlots stores credentials in the process environment.
type EnvSlots struct{}

func (EnvSlots) Get(name string) string { return os.Getenv(name) }

func (EnvSlots) Set(name, value string) error { return os.Setenv(name, value) }

// MapSlots is an isolated in-memory store.
type MapSlots struct {
	mu   sync.RWMutex
	vals map[string]string
}

// NewMapSlots returns a store seeded with initial values.
func NewMapSlots(initial map[string]string) *MapSlots {
	m := &MapSlots{vals: make(map[string]string, len(initial))}
	for k, v := range initial {
		m.vals[k] = v
	}
	return m
}

func (m *MapSlots) Get(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vals[name]
}

func (m *MapSlots) Set(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vals == nil {
		m.vals = make(map[string]string)
	}
	m.vals[name] = value
	return nil
}

// Snapshot returns a copy of the stored values.
func (m *MapSlots) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.vals))
	for k, v := range m.vals {
		out[k] = v
	}
	return out
}

// Context is the credential handed to the agent for one execution.
type Context struct {
	Provider string
	Variable string
	Key      string
	Source   Source
}

// String never includes the key itself.
func (c Context) String() string {
	return fmt.Sprintf("%s=%s (%s)", c.Variable, Mask(c.Key), c.Source)
}

// Empty reports whether no credential is available.
func (c Context) Empty() bool { return c.Key == "" }

// Resolver writes effective credentials into a slot store.
type Resolver struct {
	slots Slots
}

// NewResolver returns a resolver over slots. A nil store means the process
// environment.
func NewResolver(slots Slots) *Resolver {
	if slots == nil {
		slots = EnvSlots{}
	}
	return &Resolver{slots: slots}
}

// Slots returns the underlying store.
func (r *Resolver) Slots() Slots { return r.slots }

// Apply writes key into the provider's slot. An empty key is a no-op and
// leaves any existing value untouched.
func (r *Resolver) Apply(desc provider.Descriptor, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	if err := r.slots.Set(desc.CredentialVar, key); err != nil {
		return false, fmt.Errorf("set %s: %w", desc.CredentialVar, err)
	}
	return true, nil
}

// Prepare resolves the credential for desc, applies it to the slot store
// and returns it explicitly. With no user or fallback key, whatever the
// slot already holds is reported as an environment credential.
func (r *Resolver) Prepare(desc provider.Descriptor, userKey string) (Context, error) {
	ctx := Context{Provider: desc.Name, Variable: desc.CredentialVar}

	key, src := Resolve(desc, userKey)
	if _, err := r.Apply(desc, key); err != nil {
		return ctx, err
	}
	if key != "" {
		ctx.Key, ctx.Source = key, src
		return ctx, nil
	}

	if existing := r.slots.Get(desc.CredentialVar); existing != "" {
		ctx.Key, ctx.Source = existing, SourceEnvironment
		return ctx, nil
	}
	ctx.Source = SourceNone
	return ctx, nil
}

// Mask shortens a secret for display: first 3 and last 4 characters.
func Mask(key string) string {
	switch {
	case key == "":
		return "<unset>"
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	default:
		return key[:3] + "…" + key[len(key)-4:]
	}
}
