// Package provider holds the catalog of model providers: which models each
// one offers, which credential variable it reads, and its fallback key.
package provider

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrProviderMismatch = errors.New("model is not offered by any provider")
)

// Descriptor describes one provider.
type Descriptor struct {
	Name          string
	Models        []string // ordered, non-empty
	CredentialVar string   // environment slot read by the agent capability
	FallbackKey   string   // default secret; empty means none configured
	BaseURL       string   // OpenAI-compatible endpoint; empty if the provider has none
}

// HasModel reports whether the provider offers the given model.
func (d Descriptor) HasModel(model string) bool {
	for _, m := range d.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Label returns the credential variable without its _API_KEY suffix,
// e.g. "GEMINI" for GEMINI_API_KEY.
func (d Descriptor) Label() string {
	return strings.TrimSuffix(d.CredentialVar, "_API_KEY")
}

func (d Descriptor) clone() Descriptor {
	d.Models = append([]string(nil), d.Models...)
	return d
}

// DefaultCatalog returns the built-in providers in display order.
func DefaultCatalog() []Descriptor {
	return []Descriptor{
		{
			Name:          "Google Gemini",
			Models:        []string{"gemini/gemini-2.0-flash", "vertex_ai/gemini-2.0-flash"},
			CredentialVar: "GEMINI_API_KEY",
			BaseURL:       "https://generativelanguage.googleapis.com/v1beta/openai/",
		},
		{
			Name:          "OpenAI",
			Models:        []string{"openai/gpt-4o"},
			CredentialVar: "OPENAI_API_KEY",
			BaseURL:       "https://api.openai.com/v1",
		},
		{
			Name:          "OpenRouter",
			Models:        []string{"openrouter/google/gemma-3-27b-it"},
			CredentialVar: "OPENROUTER_API_KEY",
			BaseURL:       "https://openrouter.ai/api/v1",
		},
		{
			Name:          "Cerebras",
			Models:        []string{"cerebras/llama-3.3-70b"},
			CredentialVar: "CEREBRAS_API_KEY",
			BaseURL:       "https://api.cerebras.ai/v1",
		},
		{
			Name:          "Groq",
			Models:        []string{"groq/llama-3.3-70b-versatile"},
			CredentialVar: "GROQ_API_KEY",
			BaseURL:       "https://api.groq.com/openai/v1",
		},
	}
}

// DefaultProvider and DefaultModel are preselected when nothing else is configured.
const (
	DefaultProvider = "Google Gemini"
	DefaultModel    = "gemini/gemini-2.0-flash"
)

// Registry is the provider catalog. The only mutable field is each
// provider's fallback key. Safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	order         []string
	byName        map[string]*Descriptor
	allowUnlisted bool
}

// Option configures a Registry.
type Option func(*Registry)

// AllowUnlisted makes Resolve fall back to the caller's provider when a
// model is not listed under any provider, instead of failing.
func AllowUnlisted(allow bool) Option {
	return func(r *Registry) { r.allowUnlisted = allow }
}

// NewRegistry builds a registry from descriptors. Names must be unique and
// every provider must offer at least one model.
func NewRegistry(descs []Descriptor, opts ...Option) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Descriptor, len(descs))}
	for _, opt := range opts {
		opt(r)
	}
	for _, d := range descs {
		if d.Name == "" {
			return nil, errors.New("provider name is required")
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate provider %q", d.Name)
		}
		if len(d.Models) == 0 {
			return nil, fmt.Errorf("provider %q has no models", d.Name)
		}
		if d.CredentialVar == "" {
			return nil, fmt.Errorf("provider %q has no credential variable", d.Name)
		}
		c := d.clone()
		r.byName[d.Name] = &c
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// MustDefault returns a registry over DefaultCatalog.
func MustDefault(opts ...Option) *Registry {
	r, err := NewRegistry(DefaultCatalog(), opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// List returns all providers in catalog order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].clone())
	}
	return out
}

// Get returns the provider with the given name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return d.clone(), true
}

// ModelsFor returns the models offered by a provider.
func (r *Registry) ModelsFor(name string) ([]string, error) {
	d, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return d.Models, nil
}

// ResolveForModel finds the provider that offers model, scanning in
// catalog order.
func (r *Registry) ResolveForModel(model string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if d := r.byName[name]; d.HasModel(model) {
			return d.clone(), true
		}
	}
	return Descriptor{}, false
}

// Resolve returns the provider that actually owns model. The claimed
// provider is only consulted when the model is unlisted and the registry
// allows unlisted models.
func (r *Registry) Resolve(model, claimed string) (Descriptor, error) {
	if d, ok := r.ResolveForModel(model); ok {
		return d, nil
	}
	if r.allowUnlisted {
		if d, ok := r.Get(claimed); ok {
			return d, nil
		}
		return Descriptor{}, fmt.Errorf("%w: %q (claimed provider %q)", ErrUnknownProvider, model, claimed)
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrProviderMismatch, model)
}

// UpdateFallback replaces a provider's fallback key. Blank keys are
// ignored so an empty form submission never clears a configured key.
func (r *Registry) UpdateFallback(name, key string) error {
	key = strings.TrimSpace(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if key != "" {
		d.FallbackKey = key
	}
	return nil
}

// AddModels appends extra models to a provider, skipping ones it already has.
func (r *Registry) AddModels(name string, models ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	for _, m := range models {
		if m != "" && !d.HasModel(m) {
			d.Models = append(d.Models, m)
		}
	}
	return nil
}

// SetBaseURL overrides a provider's endpoint.
func (r *Registry) SetBaseURL(name, baseURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	d.BaseURL = baseURL
	return nil
}

// Names returns provider names in catalog order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// APIModel strips the routing prefix from a model identifier:
// "openrouter/google/gemma-3-27b-it" becomes "google/gemma-3-27b-it".
func APIModel(model string) string {
	if _, rest, ok := strings.Cut(model, "/"); ok && rest != "" {
		return rest
	}
	return model
}
