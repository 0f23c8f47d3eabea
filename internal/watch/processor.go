package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/notterun/internal/config"
	"github.com/ppiankov/notterun/internal/logging"
	"github.com/ppiankov/notterun/internal/task"
)

// Summary records what happened to one task file. It is written next to
// the moved file as <name>.result.json.
type Summary struct {
	File      string    `json:"file"`
	Tasks     int       `json:"tasks"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Artifacts []string  `json:"artifacts,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// BatchFunc runs the tasks of one file. Injected by the cli layer.
type BatchFunc func(ctx context.Context, tf *config.TaskFile) (*task.BatchReport, error)

// Processor handles the lifecycle of a single task file.
type Processor struct {
	dirs  Dirs
	runFn BatchFunc
}

// NewProcessor creates a task file processor.
func NewProcessor(dirs Dirs, runFn BatchFunc) *Processor {
	return &Processor{dirs: dirs, runFn: runFn}
}

// Process loads, runs, and files away a single task file.
func (p *Processor) Process(ctx context.Context, path string) error {
	log := logging.Component("watch")
	name := filepath.Base(path)
	start := time.Now()

	log.Info().Str("file", name).Msg("processing task file")

	tf, err := config.LoadTasks(path)
	if err != nil {
		log.Error().Str("file", name).Err(err).Msg("unreadable task file")
		if mvErr := moveFile(path, filepath.Join(p.dirs.Failed, name)); mvErr != nil {
			return fmt.Errorf("move to failed: %w", mvErr)
		}
		return p.writeSummary(p.dirs.Failed, name, Summary{
			File: name, Error: err.Error(), StartedAt: start, EndedAt: time.Now(),
		})
	}

	procPath := filepath.Join(p.dirs.Processing, name)
	if err := moveFile(path, procPath); err != nil {
		return fmt.Errorf("move to processing: %w", err)
	}

	sum := Summary{File: name, Tasks: len(tf.Tasks), StartedAt: start}
	report, err := p.runFn(ctx, tf)
	sum.EndedAt = time.Now()

	dest := p.dirs.Done
	if err != nil {
		sum.Error = err.Error()
		dest = p.dirs.Failed
		log.Warn().Str("file", name).Err(err).Msg("task file failed")
	} else if report != nil {
		sum.Succeeded = report.Succeeded()
		sum.Failed = report.Failed()
		sum.Artifacts = report.Artifacts
		log.Info().Str("file", name).Int("succeeded", sum.Succeeded).Int("failed", sum.Failed).
			Dur("duration", sum.EndedAt.Sub(start).Round(time.Millisecond)).Msg("task file completed")
	}

	if err := moveFile(procPath, filepath.Join(dest, name)); err != nil {
		return fmt.Errorf("move processed file: %w", err)
	}
	return p.writeSummary(dest, name, sum)
}

// writeSummary writes a Summary to the target directory.
func (p *Processor) writeSummary(dir, name string, sum Summary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	path := filepath.Join(dir, name+".result.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename summary: %w", err)
	}
	return nil
}

// moveFile moves a file from src to dst. Falls back to copy+remove
// when rename fails (cross-device, bind mounts).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return err
	}
	return os.Remove(src)
}
