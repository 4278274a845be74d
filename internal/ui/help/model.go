package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasys/internal/keys"
	"github.com/nhle/tasys/internal/theme"
	"github.com/nhle/tasys/internal/ui/command"
)

const badgeNote = "Header badges count overdue and newly created tasks changed " +
	"since you last opened their panel. Opening a panel clears its badge."

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	title := theme.TitleStyle.Render("Keyboard Shortcuts")

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	commands := theme.TitleStyle.MarginTop(1).Render("Commands")
	commandList := theme.HelpStyle.Render(":" + strings.Join(command.Names, "  :"))

	note := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Width(m.width - 8).
		MarginTop(1).
		Render(badgeNote)

	content := lipgloss.JoinVertical(lipgloss.Left, title, helpText, commands, commandList, note)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
