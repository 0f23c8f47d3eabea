package reporter

import (
	"fmt"
	"strings"

	"github.com/ppiankov/notterun/internal/task"
)

// SectionSeparator joins the sections of a batch display.
const SectionSeparator = "\n\n---\n\n"

// FormatResult renders the markdown display block shown after a run.
func FormatResult(res *task.Result, loc Locale) string {
	status := loc.Failed
	if res.Success {
		status = loc.Succeeded
	}
	var b strings.Builder
	fmt.Fprintf(&b, "### %s:\n\n", loc.AgentResult)
	fmt.Fprintf(&b, "**%s:** %s  \n", loc.Status, status)
	fmt.Fprintf(&b, "**%s:** %s  \n", loc.Duration, loc.FormatSeconds(res.DurationSeconds))
	fmt.Fprintf(&b, "**%s:** %s  \n", loc.UsedModel, res.Model)
	fmt.Fprintf(&b, "**%s:** %s\n\n", loc.Provider, res.Provider)
	fmt.Fprintf(&b, "**%s:**  \n%s", loc.Answer, res.Answer)
	return b.String()
}

// SectionHeader renders the heading of batch section i of n.
func SectionHeader(i, n int, text string, loc Locale) string {
	return fmt.Sprintf("## 🔄 %s %d/%d: %s", loc.Task, i, n, text)
}

// FormatSection renders one batch section.
func FormatSection(sec task.Section, loc Locale) string {
	var b strings.Builder
	b.WriteString(SectionHeader(sec.Index, sec.Total, sec.Task, loc))
	b.WriteString("\n\n")
	switch {
	case sec.Skipped:
		fmt.Fprintf(&b, "%s: %s", loc.Skipped, sec.Error)
	case sec.Result == nil:
		fmt.Fprintf(&b, "%s: %s", loc.Error, sec.Error)
	default:
		b.WriteString(FormatResult(sec.Result, loc))
		if sec.Error != "" {
			fmt.Fprintf(&b, "\n\n%s: %s", loc.Degraded, strings.TrimPrefix(sec.Error, "result produced, artifacts unavailable: "))
		}
	}
	return b.String()
}

// FormatBatch renders a batch report, or the rejection message for an
// empty batch.
func FormatBatch(report *task.BatchReport, loc Locale) string {
	if report == nil || report.Rejected {
		return loc.EmptyBatch
	}
	parts := make([]string, 0, len(report.Sections))
	for _, sec := range report.Sections {
		parts = append(parts, FormatSection(sec, loc))
	}
	return strings.Join(parts, SectionSeparator)
}
