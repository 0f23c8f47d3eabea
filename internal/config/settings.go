package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/notterun/internal/provider"
	"github.com/ppiankov/notterun/internal/task"
)

// Settings holds persistent CLI defaults loaded from a config file.
type Settings struct {
	DefaultProvider     string        `yaml:"default_provider"`
	DefaultModel        string        `yaml:"default_model"`
	MaxSteps            int           `yaml:"max_steps"`
	OutputDir           string        `yaml:"output_dir"`
	Locale              string        `yaml:"locale"`
	TaskTimeout         time.Duration `yaml:"task_timeout"`
	AllowUnlistedModels bool          `yaml:"allow_unlisted_models"`
	HistoryDB           string        `yaml:"history_db,omitempty"` // "off" disables the index
	Keystore            string        `yaml:"keystore,omitempty"`

	// Per-provider overrides keyed by provider name
	Providers map[string]*ProviderConfig `yaml:"providers,omitempty"`

	// Responses API → Chat Completions proxy over the provider catalog
	Proxy *ProxyConfig `yaml:"proxy,omitempty"`

	Log *LogConfig `yaml:"log,omitempty"`
}

// ProviderConfig overrides catalog entries for one provider.
type ProviderConfig struct {
	FallbackKey string   `yaml:"fallback_key,omitempty"` // literal or "env:VAR_NAME"
	BaseURL     string   `yaml:"base_url,omitempty"`
	Models      []string `yaml:"models,omitempty"` // appended to the built-in list
}

// ProxyConfig controls the built-in proxy.
type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"` // default ":4000"
}

// LogConfig mirrors logging.Config for YAML config.
type LogConfig struct {
	Level         string `yaml:"level,omitempty"`
	Format        string `yaml:"format,omitempty"` // text or json
	Path          string `yaml:"path,omitempty"`
	RetentionDays int    `yaml:"retention_days,omitempty"`
}

// LoadSettings reads a YAML config file into Settings.
// If the file does not exist, it returns zero-value Settings and nil error.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &s, nil
}

// Validate checks values that would otherwise fail later at run time.
func (s *Settings) Validate() error {
	if s.MaxSteps != 0 && (s.MaxSteps < task.MinSteps || s.MaxSteps > task.MaxSteps) {
		return fmt.Errorf("max_steps %d: %w", s.MaxSteps, task.ErrStepBudget)
	}
	if s.TaskTimeout < 0 {
		return fmt.Errorf("task_timeout must not be negative")
	}
	switch s.Locale {
	case "", "en", "tr":
	default:
		return fmt.Errorf("unsupported locale %q", s.Locale)
	}
	return nil
}

// ApplyTo pushes provider overrides into the registry. Fallback keys that
// reference unset variables are reported but do not stop other providers
// from being configured.
func (s *Settings) ApplyTo(reg *provider.Registry) error {
	var errs []error
	for name, pc := range s.Providers {
		if pc == nil {
			continue
		}
		if _, ok := reg.Get(name); !ok {
			errs = append(errs, fmt.Errorf("providers.%s: %w", name, provider.ErrUnknownProvider))
			continue
		}
		if len(pc.Models) > 0 {
			if err := reg.AddModels(name, pc.Models...); err != nil {
				errs = append(errs, err)
			}
		}
		if pc.BaseURL != "" {
			if err := reg.SetBaseURL(name, pc.BaseURL); err != nil {
				errs = append(errs, err)
			}
		}
		if pc.FallbackKey != "" {
			key, err := ResolveKey(pc.FallbackKey)
			if err != nil {
				errs = append(errs, fmt.Errorf("providers.%s: %w", name, err))
				continue
			}
			if err := reg.UpdateFallback(name, key); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// ResolveKey returns a literal key as is and looks up "env:VAR_NAME"
// references in the process environment.
func ResolveKey(v string) (string, error) {
	if !strings.HasPrefix(v, "env:") {
		return v, nil
	}
	envKey := strings.TrimPrefix(v, "env:")
	envVal := os.Getenv(envKey)
	if envVal == "" {
		return "", fmt.Errorf("env var %q is not set", envKey)
	}
	return envVal, nil
}

// Steps returns the configured step budget or the default.
func (s *Settings) Steps() int {
	if s.MaxSteps == 0 {
		return task.DefaultSteps
	}
	return s.MaxSteps
}

// Model returns the configured default model or the catalog default.
func (s *Settings) Model() string {
	if s.DefaultModel == "" {
		return provider.DefaultModel
	}
	return s.DefaultModel
}

// ProviderName returns the configured default provider or the catalog default.
func (s *Settings) ProviderName() string {
	if s.DefaultProvider == "" {
		return provider.DefaultProvider
	}
	return s.DefaultProvider
}

// HistoryEnabled reports whether results should be indexed.
func (s *Settings) HistoryEnabled() bool {
	return s.HistoryDB != "off"
}
