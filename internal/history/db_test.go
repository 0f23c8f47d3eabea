package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/notterun/internal/task"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestOpenCreatesSchema(t *testing.T) {
	d := openTest(t)
	for _, table := range []string{"schema_version", "results", "artifacts"} {
		var name string
		err := d.SQL().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("expected table %q: %v", table, err)
		}
	}
	v, err := CurrentVersion(d.SQL())
	if err != nil {
		t.Fatal(err)
	}
	if v != len(migrations) {
		t.Errorf("version: got %d, want %d", v, len(migrations))
	}
}

func TestOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	d, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = d.Close() }()

	var count int
	if err := d.SQL().QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != len(migrations) {
		t.Errorf("schema_version rows: got %d, want %d", count, len(migrations))
	}
}

func TestRecordAndRecent(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)

	first := &task.Result{Task: "news", Model: "openai/gpt-4o", Provider: "OpenAI", Success: true,
		DurationSeconds: 3.5, Answer: "ok", Timestamp: base, Steps: 4}
	second := &task.Result{Task: "weather", Model: "groq/llama-3.3-70b-versatile", Provider: "Groq",
		Answer: "credential missing or rejected: 401", Timestamp: base.Add(time.Minute),
		Failure: task.FailureCredentialMissing}

	if err := d.Record(ctx, first, []string{"a.json", "a.md", "a.txt"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Record(ctx, second, nil); err != nil {
		t.Fatal(err)
	}

	entries, err := d.Recent(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Result.Task != "weather" {
		t.Errorf("newest first: got %q", entries[0].Result.Task)
	}
	if entries[0].Result.Failure != task.FailureCredentialMissing {
		t.Errorf("failure: got %q", entries[0].Result.Failure)
	}
	got := entries[1]
	if !got.Result.Timestamp.Equal(base) || got.Result.Steps != 4 || !got.Result.Success {
		t.Errorf("round trip mismatch: %+v", got.Result)
	}
	if len(got.Artifacts) != 3 || got.Artifacts[1] != "a.md" {
		t.Errorf("artifacts: %v", got.Artifacts)
	}

	failed, err := d.Recent(ctx, Filter{Failed: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].Result.Provider != "Groq" {
		t.Errorf("failed filter: %+v", failed)
	}

	byProvider, err := d.Recent(ctx, Filter{Provider: "OpenAI", Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(byProvider) != 1 || byProvider[0].Result.Task != "news" {
		t.Errorf("provider filter: %+v", byProvider)
	}
}

func TestGetByPrefix(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()
	if err := d.Record(ctx, &task.Result{Task: "x", Model: "m", Provider: "p", Timestamp: time.Now()}, []string{"x.json"}); err != nil {
		t.Fatal(err)
	}
	entries, err := d.Recent(ctx, Filter{Limit: 1})
	if err != nil || len(entries) != 1 {
		t.Fatalf("recent: %v %v", entries, err)
	}

	e, err := d.Get(ctx, entries[0].ID[:8])
	if err != nil {
		t.Fatal(err)
	}
	if e.ID != entries[0].ID || len(e.Artifacts) != 1 {
		t.Errorf("got %+v", e)
	}

	if _, err := d.Get(ctx, "zzzzzzzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_WildcardsAndBlankIDs(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()
	if err := d.Record(ctx, &task.Result{Task: "x", Model: "m", Provider: "p", Timestamp: time.Now()}, nil); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"", "   "} {
		if _, err := d.Get(ctx, id); !errors.Is(err, ErrEmptyID) {
			t.Errorf("Get(%q): expected ErrEmptyID, got %v", id, err)
		}
	}
	for _, id := range []string{"%", "_", "________", `\`, "%-%"} {
		if _, err := d.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestStats(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()
	now := time.Now()
	for _, r := range []*task.Result{
		{Task: "a", Model: "m", Provider: "Groq", Success: true, DurationSeconds: 2, Timestamp: now},
		{Task: "b", Model: "m", Provider: "Groq", DurationSeconds: 4, Timestamp: now, Failure: task.FailureUnknown},
		{Task: "c", Model: "m", Provider: "OpenAI", Success: true, DurationSeconds: 1, Timestamp: now},
	} {
		if err := d.Record(ctx, r, nil); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := d.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d groups", len(stats))
	}
	g := stats[0]
	if g.Provider != "Groq" || g.Total != 2 || g.Succeeded != 1 || g.AvgSecs != 3 {
		t.Errorf("groq stats: %+v", g)
	}
}

func TestRecordNil(t *testing.T) {
	d := openTest(t)
	if err := d.Record(context.Background(), nil, nil); err == nil {
		t.Error("expected error for nil result")
	}
}
