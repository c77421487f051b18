package task

import "github.com/charmbracelet/lipgloss"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusRetry     Status = "retry"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusFailed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Icon returns the glyph shown next to the task in reports.
func (s Status) Icon() string {
	switch s {
	case StatusPending:
		return "⏳"
	case StatusRunning:
		return "⠿"
	case StatusRetry:
		return "↻"
	case StatusFailed:
		return "✗"
	case StatusCompleted:
		return "✓"
	case StatusCancelled:
		return "⊘"
	}
	return "?"
}

// styleSet holds the lipgloss styles used for report output, built against
// the renderer for the stream the styles will be printed to.
type styleSet struct {
	pending   lipgloss.Style
	running   lipgloss.Style
	retry     lipgloss.Style
	failed    lipgloss.Style
	completed lipgloss.Style
	cancelled lipgloss.Style
	muted     lipgloss.Style
	bold      lipgloss.Style
}

func newStyleSet(r *lipgloss.Renderer) styleSet {
	return styleSet{
		pending:   r.NewStyle().Foreground(lipgloss.Color("243")),
		running:   r.NewStyle().Foreground(lipgloss.Color("33")),
		retry:     r.NewStyle().Foreground(lipgloss.Color("214")),
		failed:    r.NewStyle().Foreground(lipgloss.Color("196")),
		completed: r.NewStyle().Foreground(lipgloss.Color("46")),
		cancelled: r.NewStyle().Foreground(lipgloss.Color("245")),
		muted:     r.NewStyle().Foreground(lipgloss.Color("240")),
		bold:      r.NewStyle().Bold(true),
	}
}

func (ss styleSet) forStatus(s Status) lipgloss.Style {
	switch s {
	case StatusRunning:
		return ss.running
	case StatusRetry:
		return ss.retry
	case StatusFailed:
		return ss.failed
	case StatusCompleted:
		return ss.completed
	case StatusCancelled:
		return ss.cancelled
	}
	return ss.pending
}
