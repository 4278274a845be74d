package tasklist

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasys/internal/keys"
	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/theme"
)

// SelectedTaskMsg is sent when a user selects a task to view details.
type SelectedTaskMsg struct {
	TaskID int64
}

// DeleteRequestedMsg is sent when the user asks to delete the focused task.
type DeleteRequestedMsg struct {
	Task model.Task
}

// statusFilters is cycled by Tab. The empty string shows every status.
var statusFilters = append([]string{""}, model.Statuses...)

// Model is a task list. The all-tasks view and both alert panels use it.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	tasks       []model.Task
	readOnly    bool
	statusIndex int
	query       string
	searchMode  bool
	searchInput textinput.Model
	emptyText   string
	width       int
	height      int
}

// New creates a new task list model titled title.
func New(title string, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search title or category..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		keys:        k,
		searchInput: si,
		emptyText:   "No tasks found.\n\nPress n to create one.",
		width:       width,
		height:      height,
	}
}

// NewReadOnly creates a list that only supports navigation and opening
// the detail view, as used by the alert panels.
func NewReadOnly(title, emptyText string, k *keys.KeyMap, width, height int) Model {
	m := New(title, k, width, height)
	m.readOnly = true
	m.emptyText = emptyText
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetTasks replaces the listed tasks, keeping the active filters.
func (m *Model) SetTasks(tasks []model.Task) tea.Cmd {
	m.tasks = tasks
	return m.apply()
}

// SetTitle changes the list heading.
func (m *Model) SetTitle(title string) {
	m.list.Title = title
}

// SetLoading toggles the list spinner.
func (m *Model) SetLoading(loading bool) tea.Cmd {
	if loading {
		return m.list.StartSpinner()
	}
	m.list.StopSpinner()
	return nil
}

// Selected returns the focused task.
func (m Model) Selected() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return item.Task, true
}

// StatusFilter returns the active status filter, "" for all.
func (m Model) StatusFilter() string {
	return statusFilters[m.statusIndex]
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Visible returns the tasks that pass the current filters.
func (m Model) Visible() []model.Task {
	status := m.StatusFilter()
	q := strings.ToLower(m.query)

	out := make([]model.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if status != "" && t.Status != status {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Category), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (m *Model) apply() tea.Cmd {
	visible := m.Visible()
	items := make([]list.Item, len(visible))
	for i, t := range visible {
		items[i] = TaskItem{Task: t}
	}
	return m.list.SetItems(items)
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = strings.TrimSpace(m.searchInput.Value())
		m.searchInput.Blur()
		cmd := m.apply()
		return m, cmd

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.searchInput.Blur()
		m.query = ""
		cmd := m.apply()
		return m, cmd
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		task, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedTaskMsg{TaskID: task.ID}
		}

	case !m.readOnly && key.Matches(msg, m.keys.Delete):
		task, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return DeleteRequestedMsg{Task: task}
		}

	case !m.readOnly && key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		cmd := m.searchInput.Focus()
		return m, cmd

	case !m.readOnly && key.Matches(msg, m.keys.CycleStatus):
		m.statusIndex = (m.statusIndex + 1) % len(statusFilters)
		cmd := m.apply()
		return m, cmd
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the task list view.
func (m Model) View() string {
	var header string
	if m.searchMode {
		header = lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
	} else if filters := m.filterSummary(); filters != "" {
		header = theme.HelpStyle.Padding(0, 1).Render(filters)
	}

	body := m.list.View()
	if len(m.list.Items()) == 0 {
		body = m.renderEmptyState()
	}

	if header == "" {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (m Model) filterSummary() string {
	var parts []string
	if s := m.StatusFilter(); s != "" {
		parts = append(parts, "status: "+model.StatusLabel(s))
	}
	if m.query != "" {
		parts = append(parts, "search: "+m.query)
	}
	return strings.Join(parts, "  ")
}

// renderEmptyState shows guidance text when no tasks are available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height - 2).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if len(m.tasks) > 0 {
		return style.Render("No matching tasks.\nPress tab or / to adjust the filters.")
	}
	return style.Render(m.emptyText)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
