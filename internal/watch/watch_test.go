package watch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/notterun/internal/config"
	"github.com/ppiankov/notterun/internal/reporter"
	"github.com/ppiankov/notterun/internal/task"
)

type recordingRun struct {
	mu    sync.Mutex
	files [][]string
	err   error
}

func (r *recordingRun) run(_ context.Context, tf *config.TaskFile) (*task.BatchReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, tf.Tasks)
	if r.err != nil {
		return nil, r.err
	}
	report := &task.BatchReport{}
	for i, text := range tf.Tasks {
		report.Sections = append(report.Sections, task.Section{
			Index: i + 1, Total: len(tf.Tasks), Task: text,
			Result: &task.Result{Task: text, Success: i == 0},
		})
	}
	report.Artifacts = []string{"notte_result_x.json"}
	return report, nil
}

func (r *recordingRun) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

func setupInbox(t *testing.T) Dirs {
	t.Helper()
	d := NewDirs(filepath.Join(t.TempDir(), "inbox"))
	if err := EnsureDirs(d); err != nil {
		t.Fatal(err)
	}
	return d
}

func writeTask(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readSummary(t *testing.T, dir, name string) Summary {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name+".result.json"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{RunFn: (&recordingRun{}).run}); err == nil {
		t.Error("expected error for missing dir")
	}
	if _, err := New(Config{Dir: t.TempDir()}); err == nil {
		t.Error("expected error for missing batch func")
	}
}

func TestProcess_Success(t *testing.T) {
	d := setupInbox(t)
	rec := &recordingRun{}
	path := writeTask(t, d.Inbox, "morning.tasks", "news about SpaceX\n\nweather in Istanbul\n")

	if err := NewProcessor(d, rec.run).Process(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(d.Done, "morning.tasks")); err != nil {
		t.Errorf("file not moved to done: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should be removed from inbox")
	}
	s := readSummary(t, d.Done, "morning.tasks")
	if s.Tasks != 2 || s.Succeeded != 1 || s.Failed != 1 || len(s.Artifacts) != 1 {
		t.Errorf("summary: %+v", s)
	}
	if len(rec.files) != 1 || rec.files[0][1] != "weather in Istanbul" {
		t.Errorf("tasks passed: %v", rec.files)
	}
}

func TestProcess_Unreadable(t *testing.T) {
	d := setupInbox(t)
	rec := &recordingRun{}
	path := writeTask(t, d.Inbox, "blank.txt", "\n   \n")

	if err := NewProcessor(d, rec.run).Process(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if rec.count() != 0 {
		t.Error("empty file should not run")
	}
	if _, err := os.Stat(filepath.Join(d.Failed, "blank.txt")); err != nil {
		t.Errorf("file not moved to failed: %v", err)
	}
	if s := readSummary(t, d.Failed, "blank.txt"); s.Error == "" {
		t.Error("summary should carry the error")
	}
}

func TestProcess_RunError(t *testing.T) {
	d := setupInbox(t)
	rec := &recordingRun{err: errors.New("bad options")}
	path := writeTask(t, d.Inbox, "x.tasks", "one\n")

	if err := NewProcessor(d, rec.run).Process(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if s := readSummary(t, d.Failed, "x.tasks"); s.Error != "bad options" {
		t.Errorf("summary: %+v", s)
	}
}

func TestRun_PollPicksUpFiles(t *testing.T) {
	inbox := filepath.Join(t.TempDir(), "inbox")
	rec := &recordingRun{}
	w, err := New(Config{Dir: inbox, PollMode: true, PollInterval: 20 * time.Millisecond, RunFn: rec.run})
	if err != nil {
		t.Fatal(err)
	}

	// existing file and an orphan from a previous run
	if err := EnsureDirs(w.Dirs()); err != nil {
		t.Fatal(err)
	}
	writeTask(t, inbox, "a.tasks", "first\n")
	writeTask(t, w.Dirs().Processing, "orphan.tasks", "lost\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	writeTask(t, inbox, "b.txt", "second\n")
	for rec.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if rec.count() != 2 {
		t.Fatalf("ran %d files, want 2", rec.count())
	}
	if _, err := os.Stat(filepath.Join(w.Dirs().Failed, "orphan.tasks")); err != nil {
		t.Errorf("orphan not recovered: %v", err)
	}
	for _, name := range []string{"a.tasks", "b.txt"} {
		if _, err := os.Stat(filepath.Join(w.Dirs().Done, name)); err != nil {
			t.Errorf("%s not in done: %v", name, err)
		}
	}
}

func TestIsTaskFile(t *testing.T) {
	cases := map[string]bool{
		"batch.tasks":             true,
		"batch.txt":               true,
		"batch.json":              true,
		"batch.tasks.result.json": false,
		".hidden.txt":             false,
		"notes.md":                false,
		"batch.tasks.tmp":         false,

		"notte_result_20260301_093000_1a2b3c4d.txt":  false,
		"notte_result_20260301_093000_1a2b3c4d.json": false,
	}
	for name, want := range cases {
		if got := isTaskFile(name); got != want {
			t.Errorf("isTaskFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNew_RejectsOutputInInbox(t *testing.T) {
	inbox := filepath.Join(t.TempDir(), "inbox")
	rec := &recordingRun{}
	for _, out := range []string{inbox, inbox + string(filepath.Separator), filepath.Join(inbox, "done", "..")} {
		if _, err := New(Config{Dir: inbox, OutputDir: out, RunFn: rec.run}); !errors.Is(err, ErrOutputInInbox) {
			t.Errorf("output %q: expected ErrOutputInInbox, got %v", out, err)
		}
	}
	if _, err := New(Config{Dir: inbox, OutputDir: filepath.Join(inbox, "results"), RunFn: rec.run}); err != nil {
		t.Errorf("separate output dir rejected: %v", err)
	}
}

func TestScanExisting_IgnoresResultArtifacts(t *testing.T) {
	inbox := filepath.Join(t.TempDir(), "inbox")
	rec := &recordingRun{}
	w, err := New(Config{Dir: inbox, OutputDir: t.TempDir(), RunFn: rec.run})
	if err != nil {
		t.Fatal(err)
	}
	if err := EnsureDirs(w.Dirs()); err != nil {
		t.Fatal(err)
	}

	// artifacts left in the inbox by an earlier run with output_dir pointing here
	persister := reporter.NewPersister(inbox, reporter.English())
	paths, err := persister.Persist(&task.Result{Task: "find weather", Answer: "a\nb", Success: true, Timestamp: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("persisted %d artifacts, want 3", len(paths))
	}
	writeTask(t, inbox, "morning.tasks", "find weather\n")

	for i := 0; i < 2; i++ {
		if err := w.ScanExisting(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if rec.count() != 1 {
		t.Fatalf("ran %d files, want 1: %q", rec.count(), rec.files)
	}
	if len(rec.files[0]) != 1 || rec.files[0][0] != "find weather" {
		t.Errorf("unexpected tasks: %q", rec.files[0])
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("artifact %s moved: %v", filepath.Base(p), err)
		}
	}
}
