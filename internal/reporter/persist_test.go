package reporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/notterun/internal/task"
)

func fixedPersister(dir string, ids ...string) *Persister {
	n := 0
	return NewPersister(dir, English(),
		WithPersistClock(func() time.Time { return time.Date(2026, 4, 2, 15, 4, 5, 0, time.Local) }),
		WithIDSource(func() string {
			id := ids[n%len(ids)]
			n++
			return id
		}),
	)
}

func TestBaseName(t *testing.T) {
	got := BaseName(time.Date(2026, 4, 2, 15, 4, 5, 0, time.UTC), "3f2a9c1e-77aa-4bcd-9e00-123456789abc")
	if got != "notte_result_20260402_150405_3f2a9c1e" {
		t.Errorf("got %q", got)
	}
}

func TestPersist_WritesThreeFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	p := fixedPersister(dir, "aaaaaaaa-0000")

	paths, err := p.Persist(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 paths, got %v", paths)
	}
	for i, ext := range []string{".json", ".md", ".txt"} {
		if filepath.Ext(paths[i]) != ext {
			t.Errorf("path %d: got %s, want %s", i, paths[i], ext)
		}
		if !strings.HasPrefix(filepath.Base(paths[i]), "notte_result_20260402_150405_aaaaaaaa") {
			t.Errorf("unexpected name %s", paths[i])
		}
		info, err := os.Stat(paths[i])
		if err != nil {
			t.Fatal(err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", paths[i])
		}
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	var got task.Result
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Answer != sampleResult().Answer || got.Provider != "Google Gemini" {
		t.Errorf("json content: %+v", got)
	}
}

func TestPersist_UniqueNamesWithinSameSecond(t *testing.T) {
	dir := t.TempDir()
	p := fixedPersister(dir, "11111111", "22222222")

	first, err := p.Persist(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Persist(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	if first[0] == second[0] {
		t.Fatalf("same-second persists collided: %s", first[0])
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 6 {
		t.Errorf("expected 6 files, got %d", len(entries))
	}
}

func TestPersist_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	p := fixedPersister(dir, "bbbbbbbb")

	// a directory occupying the .md name makes that one write fail
	blocker := filepath.Join(dir, "notte_result_20260402_150405_bbbbbbbb.md")
	if err := os.Mkdir(blocker, 0o755); err != nil {
		t.Fatal(err)
	}

	paths, err := p.Persist(sampleResult())
	if err == nil {
		t.Fatal("expected error for blocked markdown write")
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 successful writes, got %v", paths)
	}
	if filepath.Ext(paths[0]) != ".json" || filepath.Ext(paths[1]) != ".txt" {
		t.Errorf("unexpected paths %v", paths)
	}
	if !strings.Contains(err.Error(), ".md") {
		t.Errorf("error should name the failed file: %v", err)
	}
}

func TestPersist_DefaultDirAndRealIDs(t *testing.T) {
	dir := t.TempDir()
	p := NewPersister(filepath.Join(dir, "out"), English())
	paths, err := p.Persist(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	base := strings.TrimSuffix(filepath.Base(paths[0]), ".json")
	// notte_result_YYYYMMDD_HHMMSS_xxxxxxxx
	if len(base) != len("notte_result_20260402_150405_")+8 {
		t.Errorf("unexpected base name %q", base)
	}

	if NewPersister("", English()).Dir() != "." {
		t.Error("empty dir should default to .")
	}
}
