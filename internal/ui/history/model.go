package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasys/internal/keys"
	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/theme"
)

// CloseMsg signals the parent to close the history view.
type CloseMsg struct{}

// RequestMsg asks the parent to load the change history of TaskID.
type RequestMsg struct {
	TaskID int64
}

type focus int

const (
	focusPicker focus = iota
	focusTable
)

// Model shows a task picker and the change history of the chosen task.
type Model struct {
	keys        *keys.KeyMap
	tasks       []model.Task
	selectedIdx int
	focus       focus

	taskID  int64
	entries []model.HistoryEntry
	err     error
	loading bool
	table   table.Model

	width  int
	height int
}

// New creates the history view.
func New(k *keys.KeyMap, width, height int) Model {
	t := table.New(table.WithColumns(columns(width)))
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.Foreground(theme.ColorWhite).Background(theme.ColorBlue)
	t.SetStyles(s)

	m := Model{keys: k, table: t, width: width, height: height}
	m.SetSize(width, height)
	return m
}

func columns(width int) []table.Column {
	rest := width - 4 - 14 - 18 - 12
	if rest < 20 {
		rest = 20
	}
	return []table.Column{
		{Title: "Field", Width: 14},
		{Title: "Old value", Width: rest / 2},
		{Title: "New value", Width: rest - rest/2},
		{Title: "Changed at", Width: 18},
		{Title: "By", Width: 12},
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetTasks replaces the tasks offered by the picker.
func (m *Model) SetTasks(tasks []model.Task) {
	var keep int64
	if t, ok := m.selected(); ok {
		keep = t.ID
	}
	m.tasks = tasks
	m.selectedIdx = 0
	for i, t := range tasks {
		if t.ID == keep {
			m.selectedIdx = i
			break
		}
	}
}

// Open selects the task with id and requests its history.
func (m *Model) Open(id int64) tea.Cmd {
	for i, t := range m.tasks {
		if t.ID == id {
			m.selectedIdx = i
			break
		}
	}
	return m.request(id)
}

// TaskID returns the task whose history is displayed, 0 for none.
func (m Model) TaskID() int64 {
	return m.taskID
}

// Entries returns the loaded history entries.
func (m Model) Entries() []model.HistoryEntry {
	return m.entries
}

// SetEntries records the history loaded for taskID. Results for another
// task are ignored.
func (m *Model) SetEntries(taskID int64, entries []model.HistoryEntry, err error) {
	if taskID != m.taskID {
		return
	}
	m.loading = false
	m.entries = entries
	m.err = err

	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		changed := ""
		if !e.ChangedAt.IsZero() {
			changed = e.ChangedAt.Local().Format("2006-01-02 15:04")
		}
		rows[i] = table.Row{e.Field, e.OldValue, e.NewValue, changed, e.ChangedByLabel()}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

func (m Model) selected() (model.Task, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.tasks) {
		return model.Task{}, false
	}
	return m.tasks[m.selectedIdx], true
}

func (m *Model) request(id int64) tea.Cmd {
	m.taskID = id
	m.entries = nil
	m.err = nil
	m.loading = true
	m.focus = focusTable
	m.table.SetRows(nil)
	m.table.Focus()
	return func() tea.Msg { return RequestMsg{TaskID: id} }
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.focus == focusTable {
		if key.Matches(km, m.keys.Back) {
			m.focus = focusPicker
			m.table.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(km)
		return m, cmd
	}

	switch {
	case key.Matches(km, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(km, m.keys.Down):
		if len(m.tasks) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.tasks)
		}

	case key.Matches(km, m.keys.Up):
		if len(m.tasks) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.tasks) - 1
			}
		}

	case key.Matches(km, m.keys.Select):
		if t, ok := m.selected(); ok {
			cmd := m.request(t.ID)
			return m, cmd
		}
	}
	return m, nil
}

// View renders the history view.
func (m Model) View() string {
	pickerWidth := m.width / 3
	if pickerWidth < 24 {
		pickerWidth = 24
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("Tasks"))
	b.WriteString("\n")
	if len(m.tasks) == 0 {
		b.WriteString(theme.DimmedStyle.Italic(true).Render("No tasks yet."))
	}
	for i, t := range m.tasks {
		label := fmt.Sprintf("#%d %s", t.ID, t.Title)
		if i == m.selectedIdx && m.focus == focusPicker {
			b.WriteString(theme.SelectedItemStyle.Render(label))
		} else {
			b.WriteString(theme.ListItemStyle.Render(label))
		}
		b.WriteString("\n")
	}
	left := lipgloss.NewStyle().Width(pickerWidth).Render(b.String())
	right := lipgloss.NewStyle().PaddingLeft(2).Render(m.viewEntries())

	hints := theme.HelpStyle.Render("enter show history | j/k move | esc back")
	return lipgloss.NewStyle().Padding(1, 2).Render(
		lipgloss.JoinVertical(
			lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Top, left, right),
			"",
			hints,
		),
	)
}

func (m Model) viewEntries() string {
	if m.taskID == 0 {
		return theme.DimmedStyle.Render("Select a task to see its changes.")
	}

	title := theme.TitleStyle.Render(fmt.Sprintf("History of #%d", m.taskID))
	switch {
	case m.loading:
		return title + "\n" + theme.DimmedStyle.Render("Loading history...")
	case m.err != nil:
		return title + "\n" + theme.ErrorBannerStyle.Render(m.err.Error())
	case len(m.entries) == 0:
		return title + "\n" + theme.DimmedStyle.Italic(true).Render("No changes recorded.")
	}
	return title + "\n" + m.table.View()
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	tableWidth := width - width/3 - 6
	if tableWidth < 40 {
		tableWidth = 40
	}
	m.table.SetColumns(columns(tableWidth))
	m.table.SetWidth(tableWidth)
	h := height - 6
	if h < 3 {
		h = 3
	}
	m.table.SetHeight(h)
}
