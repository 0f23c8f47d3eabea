package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/notterun/internal/task"
)

// RenderJSON encodes the result with two-space indentation, keeping
// non-ASCII text and HTML characters as-is.
func RenderJSON(res *task.Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// RenderMarkdown renders the result as a markdown document.
func RenderMarkdown(res *task.Result, loc Locale) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", loc.Title)
	fmt.Fprintf(&b, "- **%s:** %s\n", loc.Task, res.Task)
	fmt.Fprintf(&b, "- **%s:** %s\n", loc.Date, res.Timestamp.Format(task.TimestampLayout))
	fmt.Fprintf(&b, "- **%s:** %s\n", loc.Model, res.Model)
	fmt.Fprintf(&b, "- **%s:** %s\n", loc.Provider, res.Provider)
	fmt.Fprintf(&b, "- **%s:** %s\n", loc.Success, loc.YesNo(res.Success))
	fmt.Fprintf(&b, "- **%s:** %s\n", loc.Duration, loc.FormatSeconds(res.DurationSeconds))
	fmt.Fprintf(&b, "\n## %s:\n\n", loc.Result)
	b.WriteString(res.Answer)
	b.WriteString("\n")
	return b.String()
}

// RenderText renders the result as plain labeled lines.
func RenderText(res *task.Result, loc Locale) string {
	var b strings.Builder
	b.WriteString(loc.Title + "\n")
	b.WriteString(strings.Repeat("=", utf8.RuneCountInString(loc.Title)) + "\n\n")
	fmt.Fprintf(&b, "%s: %s\n", loc.Task, res.Task)
	fmt.Fprintf(&b, "%s: %s\n", loc.Date, res.Timestamp.Format(task.TimestampLayout))
	fmt.Fprintf(&b, "%s: %s\n", loc.Model, res.Model)
	fmt.Fprintf(&b, "%s: %s\n", loc.Provider, res.Provider)
	fmt.Fprintf(&b, "%s: %s\n", loc.Success, loc.YesNo(res.Success))
	fmt.Fprintf(&b, "%s: %s\n", loc.Duration, loc.FormatSeconds(res.DurationSeconds))
	fmt.Fprintf(&b, "\n%s:\n", loc.Result)
	b.WriteString(strings.Repeat("-", utf8.RuneCountInString(loc.Result)+1) + "\n")
	b.WriteString(res.Answer)
	b.WriteString("\n")
	return b.String()
}
