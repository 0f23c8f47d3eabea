package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/notterun/internal/agent"
	"github.com/ppiankov/notterun/internal/config"
	"github.com/ppiankov/notterun/internal/credential"
	"github.com/ppiankov/notterun/internal/history"
	"github.com/ppiankov/notterun/internal/logging"
	"github.com/ppiankov/notterun/internal/provider"
	"github.com/ppiankov/notterun/internal/reporter"
	"github.com/ppiankov/notterun/internal/runner"
)

// agentFactory builds agents for every command. Replaced in tests.
var agentFactory agent.Factory = agent.NewChat

// appOptions carries per-command overrides of the settings.
type appOptions struct {
	outputDir string
	timeout   time.Duration
	noHistory bool
	out       io.Writer
}

// app wires the components shared by the task commands.
type app struct {
	settings *config.Settings
	registry *provider.Registry
	resolver *credential.Resolver
	service  *runner.Service
	batch    *runner.BatchRunner
	history  *history.DB
	text     *reporter.TextReporter
	loc      reporter.Locale
	outDir   string
}

// DefaultKeystorePath returns the default encrypted keystore location.
func DefaultKeystorePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "notterun", "keys.age")
}

func currentSettings() *config.Settings {
	if settings == nil {
		return &config.Settings{}
	}
	return settings
}

func resolveLocale(s *config.Settings) (reporter.Locale, error) {
	code := s.Locale
	if localeCode != "" {
		code = localeCode
	}
	return reporter.LocaleFor(code)
}

// buildRegistry creates the provider catalog with config overrides and
// stored fallback keys applied. Problems with either source are logged;
// the catalog itself is always usable.
func buildRegistry(s *config.Settings) (*provider.Registry, error) {
	log := logging.Component("cli")

	reg, err := provider.NewRegistry(provider.DefaultCatalog(), provider.AllowUnlisted(s.AllowUnlistedModels))
	if err != nil {
		return nil, err
	}
	if err := s.ApplyTo(reg); err != nil {
		log.Warn().Err(err).Msg("provider overrides")
	}

	ks, err := openKeystore(s)
	if errors.Is(err, credential.ErrNoPassphrase) {
		log.Debug().Msg("keystore passphrase not set, stored keys skipped")
		return reg, nil
	}
	if err != nil {
		return nil, err
	}
	n, err := ks.ApplyTo(reg)
	if err != nil {
		log.Warn().Err(err).Str("path", ks.Path()).Msg("apply stored keys")
	}
	log.Debug().Int("keys", n).Str("path", ks.Path()).Msg("stored keys applied")
	return reg, nil
}

func openKeystore(s *config.Settings) (*credential.Keystore, error) {
	path := s.Keystore
	if path == "" {
		path = DefaultKeystorePath()
	}
	return credential.OpenKeystoreFromEnv(path)
}

func newApp(opts appOptions) (*app, error) {
	log := logging.Component("cli")
	s := currentSettings()

	if loaded, err := config.LoadEnv("."); err != nil {
		log.Warn().Err(err).Msg("load .env")
	} else if len(loaded) > 0 {
		log.Debug().Strs("files", loaded).Msg("loaded env files")
	}

	loc, err := resolveLocale(s)
	if err != nil {
		return nil, err
	}

	reg, err := buildRegistry(s)
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}
	resolver := credential.NewResolver(nil)

	timeout := s.TaskTimeout
	if opts.timeout > 0 {
		timeout = opts.timeout
	}
	exec := runner.NewExecutor(reg, resolver, agentFactory, runner.WithTimeout(timeout))

	outputDir := s.OutputDir
	if opts.outputDir != "" {
		outputDir = opts.outputDir
	}
	persister := reporter.NewPersister(expandHome(outputDir), loc)

	a := &app{
		settings: s,
		registry: reg,
		resolver: resolver,
		loc:      loc,
		outDir:   expandHome(outputDir),
	}

	var recorder runner.Recorder
	if s.HistoryEnabled() && !opts.noHistory {
		db, err := history.Open(s.HistoryDB)
		if err != nil {
			log.Warn().Err(err).Msg("history index unavailable")
		} else {
			a.history = db
			recorder = db
		}
	}

	a.service = runner.NewService(exec, persister, recorder)
	a.batch = runner.NewBatchRunner(a.service)

	out := opts.out
	if out == nil {
		out = os.Stdout
	}
	a.text = reporter.NewTextReporter(out, out == os.Stdout && isTerminal(), loc)
	return a, nil
}

func (a *app) Close() {
	if a.history != nil {
		_ = a.history.Close()
	}
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
