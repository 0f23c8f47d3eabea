package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "WARNING", "error"} {
		if _, err := ParseLevel(lvl); err != nil {
			t.Errorf("%s: %v", lvl, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInit_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: "info", Format: "json", Console: &buf}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = Close() })

	log := Component("runner")
	log.Info().Str("provider", "Groq").Msg("task started")
	log.Debug().Msg("hidden")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if rec["component"] != "runner" || rec["provider"] != "Groq" || rec["message"] != "task started" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestInit_FileOutput(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := Init(Config{Level: "warn", Path: dir, Console: &buf}); err != nil {
		t.Fatal(err)
	}
	log := Get()
	log.Warn().Msg("disk full")
	if err := Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(LogPath(dir, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("disk full")) {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestCleanOldLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	old := LogPath(dir, now.AddDate(0, 0, -10))
	recent := LogPath(dir, now.AddDate(0, 0, -1))
	other := filepath.Join(dir, "keep.txt")
	for _, p := range []string{old, recent, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cleanOldLogs(dir, 7, now)

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old log should be removed")
	}
	for _, p := range []string{recent, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should remain: %v", p, err)
		}
	}

	files, err := LogFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != recent {
		t.Errorf("LogFiles: got %v", files)
	}
}
