package dashboard

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasys/internal/keys"
	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/theme"
	"github.com/nhle/tasys/internal/ui/tasklist"
)

// Counts holds the number of snapshot tasks per status.
type Counts struct {
	Pending    int
	InProgress int
	Completed  int
	Overdue    int
}

// CountStatuses tallies tasks by status. Unknown statuses are ignored.
func CountStatuses(tasks []model.Task) Counts {
	var c Counts
	for _, t := range tasks {
		switch t.Status {
		case model.StatusPending:
			c.Pending++
		case model.StatusInProgress:
			c.InProgress++
		case model.StatusCompleted:
			c.Completed++
		case model.StatusOverdue:
			c.Overdue++
		}
	}
	return c
}

// Recent returns the first n tasks of a newest-first snapshot.
func Recent(tasks []model.Task, n int) []model.Task {
	if n < 0 {
		n = 0
	}
	if len(tasks) < n {
		n = len(tasks)
	}
	return tasks[:n]
}

// Model is the dashboard view: status counters and the most recent tasks.
type Model struct {
	keys        *keys.KeyMap
	table       table.Model
	counts      Counts
	recent      []model.Task
	recentCount int
	loaded      bool
	width       int
	height      int
}

// New creates the dashboard showing recentCount recent tasks.
func New(k *keys.KeyMap, recentCount, width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(recentCount+1),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(theme.ColorWhite).
		Background(theme.ColorBlue)
	t.SetStyles(s)

	return Model{
		keys:        k,
		table:       t,
		recentCount: recentCount,
		width:       width,
		height:      height,
	}
}

func columns(width int) []table.Column {
	title := width - 4 - 6 - 12 - 8 - 14 - 12
	if title < 16 {
		title = 16
	}
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Title", Width: title},
		{Title: "Status", Width: 12},
		{Title: "Priority", Width: 8},
		{Title: "Category", Width: 14},
		{Title: "Due", Width: 12},
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetTasks recomputes the counters and the recent table from a
// newest-first snapshot.
func (m *Model) SetTasks(tasks []model.Task) {
	m.loaded = true
	m.counts = CountStatuses(tasks)
	m.recent = Recent(tasks, m.recentCount)

	rows := make([]table.Row, len(m.recent))
	for i, t := range m.recent {
		rows[i] = table.Row{
			fmt.Sprintf("%d", t.ID),
			t.Title,
			model.StatusLabel(t.Status),
			model.PriorityLabel(t.Priority),
			t.Category,
			t.DueDate.Display(),
		}
	}
	m.table.SetRows(rows)
}

// SetRecentCount changes how many recent tasks are listed.
func (m *Model) SetRecentCount(n int) {
	m.recentCount = n
	m.table.SetHeight(n + 1)
}

// Counts returns the current status counters.
func (m Model) Counts() Counts {
	return m.counts
}

// Update handles messages for the dashboard.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Select) {
		idx := m.table.Cursor()
		if idx < 0 || idx >= len(m.recent) {
			return m, nil
		}
		id := m.recent[idx].ID
		return m, func() tea.Msg { return tasklist.SelectedTaskMsg{TaskID: id} }
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the dashboard.
func (m Model) View() string {
	if !m.loaded {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Loading tasks...")
	}

	counters := lipgloss.JoinHorizontal(
		lipgloss.Top,
		counter("Pending", m.counts.Pending, model.StatusPending),
		counter("In progress", m.counts.InProgress, model.StatusInProgress),
		counter("Completed", m.counts.Completed, model.StatusCompleted),
		counter("Overdue", m.counts.Overdue, model.StatusOverdue),
	)

	recentTitle := theme.TitleStyle.MarginTop(1).Render(
		fmt.Sprintf("Recent tasks (%d)", len(m.recent)),
	)

	var recent string
	if len(m.recent) == 0 {
		recent = theme.DimmedStyle.Italic(true).Render("No tasks yet. Press n to create one.")
	} else {
		recent = m.table.View()
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, counters, recentTitle, recent),
	)
}

func counter(label string, n int, status string) string {
	value := theme.StatusStyle(status).Render(fmt.Sprintf("%d", n))
	return theme.CounterStyle.Render(
		lipgloss.JoinVertical(lipgloss.Center, value, theme.DimmedStyle.Render(label)),
	)
}

// SetSize updates the dashboard dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
}
