package alerts

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasys/internal/keys"
	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/theme"
	"github.com/nhle/tasys/internal/ui/tasklist"
)

// CloseMsg signals the parent to close the alert panel.
type CloseMsg struct{}

// Model is an alert panel listing the tasks of one notification category.
type Model struct {
	category model.Category
	list     tasklist.Model
	keys     *keys.KeyMap
	loading  bool
	err      error
	width    int
	height   int
}

// New creates an alert panel for category.
func New(category model.Category, k *keys.KeyMap, width, height int) Model {
	return Model{
		category: category,
		list:     tasklist.NewReadOnly(category.Title(), emptyText(category), k, width, height-1),
		keys:     k,
		width:    width,
		height:   height,
	}
}

func emptyText(c model.Category) string {
	if c == model.CategoryOverdue {
		return "No overdue tasks."
	}
	return "No tasks created in the last 24 hours."
}

// Category returns the category shown by the panel.
func (m Model) Category() model.Category {
	return m.category
}

// Loading reports whether the panel waits for its task list.
func (m Model) Loading() bool {
	return m.loading
}

// Start marks the panel as waiting for content.
func (m *Model) Start() tea.Cmd {
	m.loading = true
	m.err = nil
	return m.list.SetLoading(true)
}

// SetTasks fills the panel. A non-nil err replaces the list with a message.
func (m *Model) SetTasks(tasks []model.Task, err error) tea.Cmd {
	m.loading = false
	m.err = err
	m.list.SetLoading(false)
	return m.list.SetTasks(tasks)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, m.keys.Back) {
		return m, func() tea.Msg { return CloseMsg{} }
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the panel.
func (m Model) View() string {
	if m.err != nil {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			theme.TitleStyle.Render(m.category.Title()),
			theme.ErrorBannerStyle.Render("Could not load tasks: "+m.err.Error()),
		)
	}
	if m.loading {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			theme.TitleStyle.Render(m.category.Title()),
			theme.DimmedStyle.Render("Loading..."),
		)
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.list.View(),
		theme.HelpStyle.Render("enter open · esc close"),
	)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-1)
}
