package runner

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/ppiankov/notterun/internal/agent"
	"github.com/ppiankov/notterun/internal/credential"
	"github.com/ppiankov/notterun/internal/reporter"
	"github.com/ppiankov/notterun/internal/task"
)

type panickingPersister struct{ on string }

func (p panickingPersister) Persist(res *task.Result) ([]string, error) {
	if res.Task == p.on {
		panic("persister exploded")
	}
	return []string{res.Task + ".json", res.Task + ".md", res.Task + ".txt"}, nil
}

func batchOpts() BatchOptions {
	return BatchOptions{Model: "openai/gpt-4o", Provider: "OpenAI", MaxSteps: 10, UserKey: "k"}
}

func TestRunAll_EmptyBatchRejected(t *testing.T) {
	dir := t.TempDir()
	f := &recordingFactory{fn: succeed("x")}
	slots := credential.NewMapSlots(nil)
	b := NewBatchRunner(NewService(newTestExecutor(t, f, slots), reporter.NewPersister(dir, reporter.English()), nil))

	for _, in := range [][]string{nil, {}, {"", "  ", "\t"}} {
		report, err := b.RunAll(context.Background(), in, batchOpts())
		if err != nil {
			t.Fatal(err)
		}
		if !report.Rejected || len(report.Sections) != 0 || len(report.Artifacts) != 0 {
			t.Errorf("expected rejection for %q, got %+v", in, report)
		}
	}
	if len(f.Calls()) != 0 || len(slots.Snapshot()) != 0 {
		t.Error("empty batch must have no side effects")
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Error("empty batch must not write files")
	}
}

func TestRunAll_InvalidSharedOptions(t *testing.T) {
	f := &recordingFactory{fn: succeed("x")}
	b := NewBatchRunner(NewService(newTestExecutor(t, f, credential.NewMapSlots(nil)), nil, nil))
	opts := batchOpts()
	opts.MaxSteps = 1
	if _, err := b.RunAll(context.Background(), []string{"a"}, opts); !errors.Is(err, task.ErrStepBudget) {
		t.Errorf("expected ErrStepBudget, got %v", err)
	}
}

func TestRunAll_OrderAndArtifacts(t *testing.T) {
	dir := t.TempDir()
	var order []string
	f := &recordingFactory{fn: func(_ agent.Options, text string) (*agent.Outcome, error) {
		order = append(order, text)
		return &agent.Outcome{Success: true, Answer: "answer " + text}, nil
	}}
	b := NewBatchRunner(NewService(newTestExecutor(t, f, credential.NewMapSlots(nil)), reporter.NewPersister(dir, reporter.English()), nil))

	var updates []int
	opts := batchOpts()
	opts.OnUpdate = func(i int, _ task.Section) { updates = append(updates, i) }

	report, err := b.RunAll(context.Background(), []string{" one ", "", "two", "three"}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, ",") != "one,two,three" {
		t.Errorf("execution order: %v", order)
	}
	if len(report.Sections) != 3 {
		t.Fatalf("sections: %d", len(report.Sections))
	}
	for i, s := range report.Sections {
		if s.Index != i+1 || s.Total != 3 {
			t.Errorf("section %d numbering: %d/%d", i, s.Index, s.Total)
		}
	}
	if len(report.Artifacts) != 9 {
		t.Errorf("expected 9 artifacts, got %d", len(report.Artifacts))
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 9 {
		t.Errorf("expected 9 files on disk, got %d", len(entries))
	}
	if len(updates) != 3 || updates[2] != 3 {
		t.Errorf("updates: %v", updates)
	}

	out := reporter.FormatBatch(report, reporter.English())
	if strings.Count(out, reporter.SectionSeparator) != 2 {
		t.Errorf("expected 2 separators in:\n%s", out)
	}
}

func TestRunAll_MiddleTaskFailureIsIsolated(t *testing.T) {
	f := &recordingFactory{fn: func(_ agent.Options, text string) (*agent.Outcome, error) {
		if text == "two" {
			return nil, errors.New("agent crashed")
		}
		return &agent.Outcome{Success: true, Answer: "ok"}, nil
	}}
	b := NewBatchRunner(NewService(newTestExecutor(t, f, credential.NewMapSlots(nil)), panickingPersister{}, nil))

	report, err := b.RunAll(context.Background(), []string{"one", "two", "three"}, batchOpts())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Sections) != 3 {
		t.Fatalf("sections: %d", len(report.Sections))
	}
	if !report.Sections[0].Result.Success || !report.Sections[2].Result.Success {
		t.Error("tasks 1 and 3 should succeed")
	}
	mid := report.Sections[1]
	if mid.Result == nil || mid.Result.Failure != task.FailureUnknown || !strings.Contains(mid.Result.Answer, "agent crashed") {
		t.Errorf("task 2 should carry a classified failure, got %+v", mid.Result)
	}
	if report.Succeeded() != 2 || report.Failed() != 1 {
		t.Errorf("counts: %d/%d", report.Succeeded(), report.Failed())
	}
}

func TestRunAll_PanicOutsideAgentIsIsolated(t *testing.T) {
	f := &recordingFactory{fn: succeed("ok")}
	b := NewBatchRunner(NewService(newTestExecutor(t, f, credential.NewMapSlots(nil)), panickingPersister{on: "two"}, nil))

	report, err := b.RunAll(context.Background(), []string{"one", "two", "three"}, batchOpts())
	if err != nil {
		t.Fatal(err)
	}
	mid := report.Sections[1]
	if mid.Result != nil || !strings.Contains(mid.Error, "persister exploded") {
		t.Errorf("task 2 should be an inline error, got %+v", mid)
	}
	if len(report.Artifacts) != 6 {
		t.Errorf("expected artifacts of tasks 1 and 3 only, got %v", report.Artifacts)
	}
	if report.Sections[2].Result == nil {
		t.Error("task 3 must still run")
	}

	out := reporter.FormatBatch(report, reporter.English())
	if !strings.Contains(out, "## 🔄 Task 2/3: two\n\n❌ Error: persister exploded") {
		t.Errorf("inline error section missing:\n%s", out)
	}
}

func TestRunAll_CancelSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &recordingFactory{fn: func(_ agent.Options, text string) (*agent.Outcome, error) {
		if text == "one" {
			cancel()
		}
		return &agent.Outcome{Success: true, Answer: "ok"}, nil
	}}
	b := NewBatchRunner(NewService(newTestExecutor(t, f, credential.NewMapSlots(nil)), nil, nil))

	report, err := b.RunAll(ctx, []string{"one", "two", "three"}, batchOpts())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Sections) != 3 {
		t.Fatalf("all sections must be reported, got %d", len(report.Sections))
	}
	if report.Sections[0].Result == nil || !report.Sections[0].Result.Success {
		t.Error("first task should complete")
	}
	for _, s := range report.Sections[1:] {
		if !s.Skipped || s.Error != "cancelled before start" {
			t.Errorf("section %d should be skipped, got %+v", s.Index, s)
		}
	}
	if len(f.Calls()) != 1 {
		t.Errorf("agent ran %d times, want 1", len(f.Calls()))
	}
}
