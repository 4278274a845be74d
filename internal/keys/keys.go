package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Search
	Search key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Status filter
	CycleStatus key.Binding

	// Views
	Dashboard    key.Binding
	Tasks        key.Binding
	Dependencies key.Binding
	History      key.Binding
	Settings     key.Binding

	// Notification panels
	OverdueAlert key.Binding
	NewAlert     key.Binding

	// Task actions
	New         key.Binding
	Edit        key.Binding
	Delete      key.Binding
	TaskHistory key.Binding
	TaskDeps    key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open detail"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		CycleStatus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle status filter"),
		),
		Dashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "dashboard"),
		),
		Tasks: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "all tasks"),
		),
		Dependencies: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "dependencies"),
		),
		History: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "history"),
		),
		Settings: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "settings"),
		),
		OverdueAlert: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "overdue alerts"),
		),
		NewAlert: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "new-task alerts"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new task"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		TaskHistory: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "task history"),
		),
		TaskDeps: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "task dependencies"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.New, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.Dashboard, k.Tasks, k.Dependencies, k.History, k.Settings},
		{k.OverdueAlert, k.NewAlert, k.Refresh, k.Command, k.Help},
		{k.New, k.Edit, k.Delete, k.TaskHistory, k.TaskDeps, k.Search, k.CycleStatus},
	}
}
