// Package watch runs task files dropped into an inbox directory as
// batches.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ppiankov/notterun/internal/logging"
	"github.com/ppiankov/notterun/internal/reporter"
)

// ErrOutputInInbox is returned when result artifacts would be written into
// the watched inbox.
var ErrOutputInInbox = errors.New("output directory must not be the watched inbox")

// debounceDefault is the debounce interval for file events.
const debounceDefault = 200 * time.Millisecond

// pollDefault is the polling interval when fsnotify is unavailable.
const pollDefault = 5 * time.Second

// Config holds watcher configuration.
type Config struct {
	Dir          string        // inbox directory
	PollMode     bool          // poll instead of using fsnotify
	PollInterval time.Duration // default 5s
	Debounce     time.Duration // default 200ms
	OutputDir    string        // where the batch writes artifacts; "" means the current dir
	RunFn        BatchFunc
}

// Watcher picks up task files and hands them to a Processor.
type Watcher struct {
	cfg       Config
	dirs      Dirs
	processor *Processor
	mu        sync.Mutex // serializes batches
}

// New creates a watcher with validated configuration.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("inbox directory is required")
	}
	if cfg.RunFn == nil {
		return nil, fmt.Errorf("batch function is required")
	}
	if sameDir(cfg.Dir, cfg.OutputDir) {
		return nil, fmt.Errorf("%w: %s", ErrOutputInInbox, cfg.Dir)
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = pollDefault
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = debounceDefault
	}
	dirs := NewDirs(cfg.Dir)
	return &Watcher{cfg: cfg, dirs: dirs, processor: NewProcessor(dirs, cfg.RunFn)}, nil
}

// Dirs returns the inbox layout.
func (w *Watcher) Dirs() Dirs { return w.dirs }

// Run watches the inbox. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := EnsureDirs(w.dirs); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	pidPath := filepath.Join(w.dirs.Processing, "watch.pid")
	if err := acquirePIDLock(pidPath); err != nil {
		return fmt.Errorf("acquire PID lock: %w", err)
	}
	defer func() { _ = os.Remove(pidPath) }()

	log := logging.Component("watch")
	log.Info().Str("dir", w.cfg.Dir).Bool("poll", w.cfg.PollMode).Msg("watch starting")

	if err := w.recoverOrphans(); err != nil {
		return fmt.Errorf("recover orphans: %w", err)
	}
	if err := w.ScanExisting(ctx); err != nil {
		return fmt.Errorf("scan existing: %w", err)
	}

	if w.cfg.PollMode {
		return w.runPollWatcher(ctx)
	}
	return w.runFSWatcher(ctx)
}

// ScanExisting processes task files already in the inbox, in name order.
func (w *Watcher) ScanExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dirs.Inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !isTaskFile(e.Name()) {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		w.process(ctx, filepath.Join(w.dirs.Inbox, e.Name()))
	}
	return nil
}

func (w *Watcher) process(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := os.Stat(path); err != nil {
		return // already handled
	}
	if err := w.processor.Process(ctx, path); err != nil {
		log := logging.Component("watch")
		log.Error().Str("file", filepath.Base(path)).Err(err).Msg("process task file")
	}
}

// runFSWatcher watches the inbox using fsnotify.
func (w *Watcher) runFSWatcher(ctx context.Context) error {
	log := logging.Component("watch")
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dirs.Inbox); err != nil {
		return fmt.Errorf("watch dir: %w", err)
	}

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
			log.Info().Msg("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isTaskFile(filepath.Base(event.Name)) {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, exists := pending[path]; exists {
				t.Stop()
			}
			pending[path] = time.AfterFunc(w.cfg.Debounce, func() {
				w.process(ctx, path)
				mu.Lock()
				delete(pending, path)
				mu.Unlock()
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("watcher error")
		}
	}
}

// runPollWatcher watches the inbox using polling.
func (w *Watcher) runPollWatcher(ctx context.Context) error {
	log := logging.Component("watch")
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("watch stopped")
			return nil
		case <-ticker.C:
			if err := w.ScanExisting(ctx); err != nil {
				log.Warn().Err(err).Msg("poll inbox")
			}
		}
	}
}

// recoverOrphans moves files left in processing/ to failed/.
func (w *Watcher) recoverOrphans() error {
	entries, err := os.ReadDir(w.dirs.Processing)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	log := logging.Component("watch")
	for _, e := range entries {
		if e.IsDir() || !isTaskFile(e.Name()) {
			continue
		}
		log.Warn().Str("file", e.Name()).Msg("recovering orphaned task file")
		now := time.Now()
		if err := moveFile(filepath.Join(w.dirs.Processing, e.Name()), filepath.Join(w.dirs.Failed, e.Name())); err != nil {
			return err
		}
		_ = w.processor.writeSummary(w.dirs.Failed, e.Name(), Summary{
			File:      e.Name(),
			Error:     "interrupted: file was processing when watch stopped",
			StartedAt: now,
			EndedAt:   now,
		})
	}
	return nil
}

// isTaskFile reports whether name is a task file (not a temp or result file).
func isTaskFile(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, reporter.BasePrefix) ||
		strings.HasSuffix(name, ".result.json") {
		return false
	}
	switch filepath.Ext(name) {
	case ".tasks", ".txt", ".json":
		return true
	}
	return false
}

func sameDir(a, b string) bool {
	if b == "" {
		b = "."
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// acquirePIDLock writes the current PID and checks for stale locks.
func acquirePIDLock(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if data, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err == nil && pid != os.Getpid() {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("another watcher is running (PID %d)", pid)
				}
			}
		}
		_ = os.Remove(path)
	}

	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}
