package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasys/internal/theme"
)

// CommandMsg is emitted when the user executes a command.
type CommandMsg string

// Commands understood by the root model.
const (
	Dashboard    = "dashboard"
	Tasks        = "tasks"
	NewTask      = "new"
	Dependencies = "deps"
	History      = "history"
	Overdue      = "overdue"
	NewTasks     = "new-tasks"
	Settings     = "settings"
	Refresh      = "refresh"
	Help         = "help"
	Quit         = "quit"
)

// Names lists every command, in the order suggestions are offered.
var Names = []string{
	Dashboard, Tasks, NewTask, Dependencies, History,
	Overdue, NewTasks, Settings, Refresh, Help, Quit,
}

// aliases maps short forms to their command.
var aliases = map[string]string{
	"d": Dashboard,
	"t": Tasks,
	"n": NewTask,
	"q": Quit,
}

// Normalize resolves an alias and lower-cases the command.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if full, ok := aliases[s]; ok {
		return full
	}
	return s
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(Names)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			cmd := Normalize(m.input.Value())
			m.input.Reset()
			if cmd != "" {
				return m, func() tea.Msg {
					return CommandMsg(cmd)
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Command Palette")
	input := m.input.View()
	hint := theme.HelpStyle.Render(strings.Join(Names, " · "))

	content := lipgloss.JoinVertical(lipgloss.Left, title, input, "", hint)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
