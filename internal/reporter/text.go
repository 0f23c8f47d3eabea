package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/notterun/internal/provider"
	"github.com/ppiankov/notterun/internal/task"
)

// TextReporter writes human-readable output to a writer.
type TextReporter struct {
	w     io.Writer
	color bool
	loc   Locale
}

// NewTextReporter creates a text reporter.
// If w is nil, defaults to os.Stdout.
func NewTextReporter(w io.Writer, color bool, loc Locale) *TextReporter {
	if w == nil {
		w = os.Stdout
	}
	return &TextReporter{w: w, color: color, loc: loc}
}

// Writer returns the output destination.
func (r *TextReporter) Writer() io.Writer { return r.w }

// Locale returns the reporter's labels.
func (r *TextReporter) Locale() Locale { return r.loc }

// PrintStart announces a task before it runs.
func (r *TextReporter) PrintStart(text string) {
	fmt.Fprintf(r.w, "\n%s\n", fmt.Sprintf(r.loc.Menu.Starting, text))
	fmt.Fprintln(r.w, r.style(dimStyle, r.loc.Menu.Waiting))
}

// PrintBatchStart announces task i of n.
func (r *TextReporter) PrintBatchStart(i, n int) {
	fmt.Fprintf(r.w, "\n%s\n", r.style(runStyle, fmt.Sprintf(r.loc.Menu.Running, i, n)))
}

// PrintResult writes the display block of a result and its artifacts.
func (r *TextReporter) PrintResult(res *task.Result, artifacts []string, persistErr error) {
	fmt.Fprintln(r.w, FormatResult(res, r.loc))
	if persistErr != nil {
		fmt.Fprintf(r.w, "\n%s\n", r.style(warnStyle, fmt.Sprintf("%s: %v", r.loc.Degraded, persistErr)))
	}
	r.printFiles(artifacts)
}

// PrintBatch writes the full batch display followed by a summary line.
func (r *TextReporter) PrintBatch(report *task.BatchReport) {
	fmt.Fprintln(r.w, FormatBatch(report, r.loc))
	if report.Rejected {
		return
	}
	r.printFiles(report.Artifacts)
	r.PrintSummary(report)
}

// PrintSection writes one finished batch section as soon as it is known.
func (r *TextReporter) PrintSection(sec task.Section) {
	if sec.Index > 1 {
		fmt.Fprint(r.w, SectionSeparator)
	} else {
		fmt.Fprintln(r.w)
	}
	fmt.Fprintln(r.w, FormatSection(sec, r.loc))
}

// PrintBatchFooter writes the artifacts and summary of a streamed batch.
func (r *TextReporter) PrintBatchFooter(report *task.BatchReport) {
	if report.Rejected {
		fmt.Fprintln(r.w, r.loc.EmptyBatch)
		return
	}
	r.printFiles(report.Artifacts)
	r.PrintSummary(report)
}

// PrintSummary writes the final summary line.
func (r *TextReporter) PrintSummary(report *task.BatchReport) {
	skipped := 0
	for _, s := range report.Sections {
		if s.Skipped {
			skipped++
		}
	}
	fmt.Fprintf(r.w, "\n%s\n", r.style(headerStyle, "--- Summary ---"))
	fmt.Fprintf(r.w, "Total: %d  ", len(report.Sections))
	fmt.Fprintf(r.w, "%s  ", r.style(doneStyle, fmt.Sprintf("Succeeded: %d", report.Succeeded())))
	fmt.Fprintf(r.w, "%s  ", r.style(failedStyle, fmt.Sprintf("Failed: %d", report.Failed()-skipped)))
	if skipped > 0 {
		fmt.Fprintf(r.w, "%s  ", r.style(warnStyle, fmt.Sprintf("Skipped: %d", skipped)))
	}
	fmt.Fprintf(r.w, "Files: %d\n", len(report.Artifacts))
}

// PrintProviders lists the catalog with credential availability.
func (r *TextReporter) PrintProviders(descs []provider.Descriptor, envSet func(string) bool) {
	for _, d := range descs {
		fallback := r.style(dimStyle, "no fallback")
		if d.FallbackKey != "" {
			fallback = r.style(doneStyle, "fallback set")
		}
		env := r.style(dimStyle, "env unset")
		if envSet != nil && envSet(d.CredentialVar) {
			env = r.style(doneStyle, "env set")
		}
		fmt.Fprintf(r.w, "%s  %s  %s, %s\n", r.style(headerStyle, d.Name), d.CredentialVar, fallback, env)
		for _, m := range d.Models {
			note := ""
			if d.BaseURL == "" {
				note = r.style(warnStyle, "  (no endpoint)")
			}
			fmt.Fprintf(r.w, "    %s%s\n", m, note)
		}
	}
}

func (r *TextReporter) printFiles(paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(r.w, "\n%s:\n", r.loc.Files)
	for _, p := range paths {
		fmt.Fprintf(r.w, "  %s\n", r.style(dimStyle, filepath.Clean(p)))
	}
}

func (r *TextReporter) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}
