package reporter

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppiankov/notterun/internal/task"
)

var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg time.Time

// TaskStartedMsg tells the TUI that task Index (1-based) began.
type TaskStartedMsg struct {
	Index int
	At    time.Time
}

// SectionMsg delivers a finished, failed or skipped section.
type SectionMsg struct {
	Section task.Section
}

// BatchDoneMsg ends the live display.
type BatchDoneMsg struct{}

type rowState int

const (
	rowQueued rowState = iota
	rowRunning
	rowDone
	rowFailed
	rowSkipped
)

// TUIModel is the Bubbletea model for the live batch display.
type TUIModel struct {
	tasks     []string
	cancelRun func() // called on 'q' to cancel the batch context
	loc       Locale

	states       []rowState
	sections     []task.Section
	started      []time.Time
	scrollOffset int
	frame        int
	width        int
	height       int
	done         bool
}

// NewTUIModel creates a new TUI model for the given tasks.
func NewTUIModel(tasks []string, cancelRun func(), loc Locale) TUIModel {
	return TUIModel{
		tasks:     tasks,
		cancelRun: cancelRun,
		loc:       loc,
		states:    make([]rowState, len(tasks)),
		sections:  make([]task.Section, len(tasks)),
		started:   make([]time.Time, len(tasks)),
	}
}

// TUIHooks returns batch callbacks that forward progress to a running program.
func TUIHooks(p *tea.Program) (onStart func(i, total int, text string), onUpdate func(i int, s task.Section)) {
	onStart = func(i, _ int, _ string) { p.Send(TaskStartedMsg{Index: i, At: time.Now()}) }
	onUpdate = func(_ int, s task.Section) { p.Send(SectionMsg{Section: s}) }
	return onStart, onUpdate
}

// Init implements tea.Model.
func (m TUIModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancelRun != nil {
				m.cancelRun()
			}
			m.done = true
			return m, tea.Quit
		case "j", "down":
			m.scrollDown(1)
		case "k", "up":
			m.scrollUp(1)
		case "g", "home":
			m.scrollOffset = 0
		case "G", "end":
			m.scrollOffset = m.maxScroll()
		case "pgdown":
			m.scrollDown(m.visibleTasks())
		case "pgup":
			m.scrollUp(m.visibleTasks())
		}

	case TaskStartedMsg:
		if i := msg.Index - 1; i >= 0 && i < len(m.states) {
			m.states[i] = rowRunning
			m.started[i] = msg.At
		}

	case SectionMsg:
		if i := msg.Section.Index - 1; i >= 0 && i < len(m.states) {
			m.sections[i] = msg.Section
			m.states[i] = sectionState(msg.Section)
		}

	case BatchDoneMsg:
		m.done = true
		return m, tea.Quit

	case tickMsg:
		m.frame++
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

func sectionState(s task.Section) rowState {
	switch {
	case s.Skipped:
		return rowSkipped
	case s.Result != nil && s.Result.Success:
		return rowDone
	default:
		return rowFailed
	}
}

func (m *TUIModel) scrollDown(n int) {
	m.scrollOffset += n
	if max := m.maxScroll(); m.scrollOffset > max {
		m.scrollOffset = max
	}
}

func (m *TUIModel) scrollUp(n int) {
	m.scrollOffset -= n
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m TUIModel) visibleTasks() int {
	// header(1) + progress(1) + help(1) = 3 reserved lines
	avail := m.height - 3
	if avail < 3 {
		return 3
	}
	return avail
}

func (m TUIModel) maxScroll() int {
	vis := m.visibleTasks()
	if len(m.tasks) <= vis {
		return 0
	}
	return len(m.tasks) - vis
}

// Done reports whether the display has finished.
func (m TUIModel) Done() bool { return m.done }

// View implements tea.Model.
func (m TUIModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("notterun: %d tasks", len(m.tasks))))
	b.WriteString("\n")
	b.WriteString(m.progressLine())
	b.WriteString("\n")

	lines := m.buildTaskLines()
	vis := m.visibleTasks()
	start := m.scrollOffset
	if start > len(lines) {
		start = len(lines)
	}
	end := start + vis
	if end > len(lines) {
		end = len(lines)
	}

	if start > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ↑ %d more above", start)))
		b.WriteString("\n")
	}
	for i := start; i < end; i++ {
		b.WriteString(lines[i])
		b.WriteString("\n")
	}
	if end < len(lines) {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ↓ %d more below", len(lines)-end)))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("  ↑↓/jk: scroll  g/G: top/bottom  q: cancel"))
	return b.String()
}

// buildTaskLines keeps input order so section numbers stay aligned.
func (m TUIModel) buildTaskLines() []string {
	spinner := spinnerChars[m.frame%len(spinnerChars)]
	lines := make([]string, 0, len(m.tasks))
	for i, text := range m.tasks {
		label := fmt.Sprintf("%d/%d", i+1, len(m.tasks))
		title := truncate(text, 50)
		switch m.states[i] {
		case rowRunning:
			elapsed := time.Since(m.started[i]).Truncate(time.Second)
			lines = append(lines, runStyle.Render(fmt.Sprintf("  %s %-8s %-7s %-50s %s", spinner, "running", label, title, elapsed)))
		case rowDone:
			res := m.sections[i].Result
			lines = append(lines, doneStyle.Render(fmt.Sprintf("  ✓ %-8s %-7s %-50s %s", "done", label, title, m.loc.FormatSeconds(res.DurationSeconds))))
		case rowFailed:
			lines = append(lines, failedStyle.Render(fmt.Sprintf("  ✗ %-8s %-7s %-50s %s", "failed", label, title, truncate(failureText(m.sections[i]), 40))))
		case rowSkipped:
			lines = append(lines, warnStyle.Render(fmt.Sprintf("  ⊘ %-8s %-7s %-50s %s", "skipped", label, title, m.sections[i].Error)))
		default:
			lines = append(lines, dimStyle.Render(fmt.Sprintf("  ─ %-8s %-7s %s", "queued", label, title)))
		}
	}
	return lines
}

func failureText(s task.Section) string {
	if s.Result != nil {
		if s.Result.Failure != task.FailureNone {
			return string(s.Result.Failure)
		}
		return "not completed"
	}
	return s.Error
}

func (m TUIModel) progressLine() string {
	var done, running, failed, skipped, queued int
	for _, st := range m.states {
		switch st {
		case rowDone:
			done++
		case rowRunning:
			running++
		case rowFailed:
			failed++
		case rowSkipped:
			skipped++
		default:
			queued++
		}
	}
	var parts []string
	if done > 0 {
		parts = append(parts, doneStyle.Render(fmt.Sprintf("%d done", done)))
	}
	if running > 0 {
		parts = append(parts, runStyle.Render(fmt.Sprintf("%d running", running)))
	}
	if failed > 0 {
		parts = append(parts, failedStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	if skipped > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d skipped", skipped)))
	}
	if queued > 0 {
		parts = append(parts, dimStyle.Render(fmt.Sprintf("%d queued", queued)))
	}
	return "  " + strings.Join(parts, "  ")
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}
