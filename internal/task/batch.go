package task

import "strings"

// SplitTasks splits multi-line input into task descriptions, one per
// non-blank line, trimmed, in input order.
func SplitTasks(text string) []string {
	var tasks []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			tasks = append(tasks, line)
		}
	}
	return tasks
}

// CleanTasks trims every entry and drops blank ones.
func CleanTasks(texts []string) []string {
	var tasks []string
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// Section is the contribution of one task to a batch report.
type Section struct {
	Index     int      // 1-based position in the batch
	Total     int      // batch size
	Task      string   // task description
	Result    *Result  // nil when the task never produced a result
	Artifacts []string // persisted files for this task
	Error     string   // inline failure text when Result is nil or persistence degraded
	Skipped   bool     // batch was cancelled before this task started
}

// BatchReport aggregates the sections of a batch run in input order.
type BatchReport struct {
	Rejected  bool
	Sections  []Section
	Artifacts []string
}

// Succeeded counts sections whose agent run reported success.
func (b *BatchReport) Succeeded() int {
	n := 0
	for _, s := range b.Sections {
		if s.Result != nil && s.Result.Success {
			n++
		}
	}
	return n
}

// Failed counts sections that did not succeed, including skipped ones.
func (b *BatchReport) Failed() int {
	return len(b.Sections) - b.Succeeded()
}
