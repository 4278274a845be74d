package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasys/internal/keys"
	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/theme"
)

// BackMsg signals the parent to navigate back to the previous view.
type BackMsg struct{}

// Action names carried by ActionMsg.
const (
	ActionEdit         = "edit"
	ActionDelete       = "delete"
	ActionHistory      = "history"
	ActionDependencies = "dependencies"
)

// ActionMsg signals the parent to execute an action on the current task.
type ActionMsg struct {
	Action string
	Task   model.Task
}

// Model is the task detail view component.
type Model struct {
	task     *model.Task
	children []model.Task
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.Edit):
			return m, m.action(ActionEdit)

		case key.Matches(msg, m.keys.Delete):
			return m, m.action(ActionDelete)

		case key.Matches(msg, m.keys.TaskHistory):
			return m, m.action(ActionHistory)

		case key.Matches(msg, m.keys.TaskDeps):
			return m, m.action(ActionDependencies)
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(name string) tea.Cmd {
	if m.task == nil {
		return nil
	}
	task := *m.task
	return func() tea.Msg {
		return ActionMsg{Action: name, Task: task}
	}
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No task selected")
	}

	hints := theme.HelpStyle.Render("e edit · d delete · h history · p dependencies · esc back")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), hints)
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(fmt.Sprintf("#%d  %s", task.ID, task.Title)))

	statusBadge := theme.StatusStyle(task.Status).Render(model.StatusLabel(task.Status))
	priBadge := theme.PriorityStyle(task.Priority).Render(model.PriorityLabel(task.Priority) + " priority")
	catBadge := theme.CategoryStyle.Render("#" + task.Category)

	badgeLine := lipgloss.JoinHorizontal(
		lipgloss.Top, statusBadge, "  ", priBadge, "  ", catBadge,
	)
	sections = append(sections, badgeLine, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(12)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	field := func(label, value string) string {
		return metaStyle.Render(label) + valStyle.Render(value)
	}

	sections = append(sections, field("Due:", task.DueDate.Display()))
	if !task.CreatedAt.IsZero() {
		sections = append(sections, field("Created:", task.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	if !task.UpdatedAt.IsZero() {
		sections = append(sections, field("Updated:", task.UpdatedAt.Local().Format("2006-01-02 15:04")))
	}
	sections = append(sections, field("Depends on:", task.ParentLabel()))

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections = append(sections, headerStyle.Render("Description"))

	body := task.Description
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body)

	if len(m.children) > 0 {
		sections = append(sections, "", separator, "")
		sections = append(sections, headerStyle.Render(
			fmt.Sprintf("Subtasks (%d)", len(m.children)),
		))
		for _, c := range m.children {
			sections = append(sections, fmt.Sprintf(
				"  #%-4d %s  %s",
				c.ID,
				theme.StatusStyle(c.Status).Render(model.StatusLabel(c.Status)),
				c.Title,
			))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetTask updates the task being displayed. Subtasks are taken from
// snapshot.
func (m *Model) SetTask(task model.Task, snapshot []model.Task) {
	m.task = &task
	m.children = nil
	for _, t := range snapshot {
		if t.ParentID != nil && *t.ParentID == task.ID {
			m.children = append(m.children, t)
		}
	}
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Task returns the displayed task.
func (m Model) Task() (model.Task, bool) {
	if m.task == nil {
		return model.Task{}, false
	}
	return *m.task, true
}

// Clear removes the displayed task.
func (m *Model) Clear() {
	m.task = nil
	m.children = nil
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.task != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
