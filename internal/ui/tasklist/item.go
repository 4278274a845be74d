package tasklist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/theme"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string {
	return i.Task.Title + " " + i.Task.Category
}

// Title returns the task title for the list.
func (i TaskItem) Title() string { return i.Task.Title }

// Description returns a short summary line for the list.
func (i TaskItem) Description() string {
	parts := []string{
		model.StatusLabel(i.Task.Status),
		i.Task.Category,
		relativeTime(i.Task.CreatedAt.Time),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering task rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	t := ti.Task
	isSelected := index == m.Index()

	// ✓ completed, ! overdue, ○ otherwise
	prefix := "○"
	switch t.Status {
	case model.StatusCompleted:
		prefix = "✓"
	case model.StatusOverdue:
		prefix = "!"
	}

	statusBadge := theme.StatusStyle(t.Status).
		Width(11).
		Render(model.StatusLabel(t.Status))
	priBadge := theme.PriorityStyle(t.Priority).
		Width(6).
		Render(model.PriorityLabel(t.Priority))

	category := ""
	if t.Category != "" {
		category = theme.CategoryStyle.Render(" #" + t.Category)
	}

	parent := ""
	if t.HasParent() {
		parent = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Render(" ↳ " + t.ParentLabel())
	}

	due := ""
	if !t.DueDate.IsZero() {
		due = theme.DimmedStyle.Render("  due " + t.DueDate.Format("Jan 02"))
	}

	created := theme.DimmedStyle.Render("  " + relativeTime(t.CreatedAt.Time))

	line := fmt.Sprintf(
		"%s %s %s %s%s%s%s%s",
		prefix, statusBadge, priBadge, t.Title, category, parent, due, created,
	)

	if t.Status == model.StatusCompleted {
		line = theme.DimmedStyle.Render(line)
	}

	if isSelected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
