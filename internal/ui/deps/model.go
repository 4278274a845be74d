package deps

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasys/internal/keys"
	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/theme"
)

// CloseMsg signals the parent to close the dependency view.
type CloseMsg struct{}

// SetParentMsg asks the parent to link ChildID to ParentID.
type SetParentMsg struct {
	ChildID  int64
	ParentID int64
}

// RemoveParentMsg asks the parent to clear ChildID's dependency.
type RemoveParentMsg struct {
	ChildID int64
}

// ChildrenRequestMsg asks the parent to load the children of ParentID.
type ChildrenRequestMsg struct {
	ParentID int64
}

type depsMode int

const (
	modeList depsMode = iota
	modeForm
	modeConfirmRemove
)

type formBindings struct {
	childID  int64
	parentID int64
	confirm  bool
}

// Model is the Bubble Tea model for managing task dependencies.
type Model struct {
	mode        depsMode
	keys        *keys.KeyMap
	tasks       []model.Task
	selectedIdx int

	childrenOf  int64
	children    []model.Task
	childrenErr error
	loading     bool

	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings

	width  int
	height int
}

// New creates a new dependency manager model.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:   modeList,
		keys:   k,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetTasks replaces the task snapshot, keeping the selection when the
// selected task still exists.
func (m *Model) SetTasks(tasks []model.Task) {
	var keep int64
	if t, ok := m.Selected(); ok {
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

// Focus selects the task with id.
func (m *Model) Focus(id int64) tea.Cmd {
	for i, t := range m.tasks {
		if t.ID == id {
			m.selectedIdx = i
			return m.requestChildren()
		}
	}
	return nil
}

// Selected returns the highlighted task.
func (m Model) Selected() (model.Task, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.tasks) {
		return model.Task{}, false
	}
	return m.tasks[m.selectedIdx], true
}

// Editing reports whether keyboard input belongs to a form.
func (m Model) Editing() bool {
	return m.mode != modeList
}

// SetChildren records the children loaded for parentID. Results for a
// task that is no longer selected are ignored.
func (m *Model) SetChildren(parentID int64, children []model.Task, err error) {
	if parentID != m.childrenOf {
		return
	}
	m.loading = false
	m.children = children
	m.childrenErr = err
}

// Reset returns to the list after a mutation completed.
func (m *Model) Reset() {
	m.mode = modeList
}

// Refresh asks for the selected task's children again.
func (m *Model) Refresh() tea.Cmd {
	return m.requestChildren()
}

func (m *Model) requestChildren() tea.Cmd {
	t, ok := m.Selected()
	if !ok {
		return nil
	}
	m.childrenOf = t.ID
	m.children = nil
	m.childrenErr = nil
	m.loading = true
	id := t.ID
	return func() tea.Msg { return ChildrenRequestMsg{ParentID: id} }
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch m.mode {
		case modeList:
			return m.handleListKey(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirmRemove:
			return m.updateConfirm(msg)
		}
	}

	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmRemove:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.tasks) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.tasks)
			cmd := m.requestChildren()
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.tasks) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.tasks) - 1
			}
			cmd := m.requestChildren()
			return m, cmd
		}
		return m, nil

	case msg.String() == "a":
		t, ok := m.Selected()
		if !ok {
			return m, nil
		}
		m.fb.childID = t.ID
		m.fb.parentID = 0
		if t.ParentID != nil {
			m.fb.parentID = *t.ParentID
		}
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case msg.String() == "x":
		t, ok := m.Selected()
		if !ok || !t.HasParent() {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm(t)
		m.mode = modeConfirmRemove
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) taskOptions(none string) []huh.Option[int64] {
	opts := make([]huh.Option[int64], 0, len(m.tasks)+1)
	if none != "" {
		opts = append(opts, huh.NewOption(none, int64(0)))
	}
	for _, t := range m.tasks {
		opts = append(opts, huh.NewOption(fmt.Sprintf("#%d %s", t.ID, t.Title), t.ID))
	}
	return opts
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int64]().
				Title("Task (child)").
				Options(m.taskOptions("")...).
				Value(&m.fb.childID),
			huh.NewSelect[int64]().
				Title("Depends on (parent)").
				Options(m.taskOptions("Select a parent task")...).
				Value(&m.fb.parentID),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildConfirmForm(t model.Task) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Remove the dependency of %q?", t.Title)).
				Description(fmt.Sprintf("It currently depends on %q.", t.ParentLabel())).
				Affirmative("Yes, remove").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		m.mode = modeList
		child, parent := m.fb.childID, m.fb.parentID
		return m, func() tea.Msg { return SetParentMsg{ChildID: child, ParentID: parent} }
	}
	if m.form.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	if m.confirmForm.State == huh.StateCompleted {
		m.mode = modeList
		if m.fb.confirm {
			t, ok := m.Selected()
			if ok {
				return m, func() tea.Msg { return RemoveParentMsg{ChildID: t.ID} }
			}
		}
		return m, nil
	}
	if m.confirmForm.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// View renders the dependency manager.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm("Set dependency", m.form)
	case modeConfirmRemove:
		return m.viewForm("Remove dependency", m.confirmForm)
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	listWidth := m.width / 2
	if listWidth < 30 {
		listWidth = 30
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("Dependencies"))
	b.WriteString("\n")

	if len(m.tasks) == 0 {
		b.WriteString(theme.DimmedStyle.Italic(true).Render("No tasks yet."))
	} else {
		for i, t := range m.tasks {
			label := fmt.Sprintf("#%d %s", t.ID, t.Title)
			if t.HasParent() {
				label += theme.DimmedStyle.Render(" ↳ " + t.ParentLabel())
			}
			if i == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(theme.ListItemStyle.Render(label))
			}
			b.WriteString("\n")
		}
	}

	left := lipgloss.NewStyle().Width(listWidth).Render(b.String())
	right := lipgloss.NewStyle().
		Width(m.width - listWidth - 6).
		PaddingLeft(2).
		Render(m.viewChildren())

	hints := lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"a set parent | x remove parent | j/k select | esc back",
	)

	return lipgloss.NewStyle().Padding(1, 2).Render(
		lipgloss.JoinVertical(
			lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Top, left, right),
			"",
			hints,
		),
	)
}

func (m Model) viewChildren() string {
	t, ok := m.Selected()
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render(fmt.Sprintf("Tasks depending on #%d", t.ID)))
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(theme.DimmedStyle.Render("Loading..."))
	case m.childrenErr != nil:
		b.WriteString(theme.ErrorBannerStyle.Render(m.childrenErr.Error()))
	case len(m.children) == 0:
		b.WriteString(theme.DimmedStyle.Italic(true).Render("None"))
	default:
		for _, c := range m.children {
			b.WriteString(fmt.Sprintf(
				"#%-4d %s  %s\n",
				c.ID,
				theme.StatusStyle(c.Status).Render(model.StatusLabel(c.Status)),
				c.Title,
			))
		}
	}
	return b.String()
}

func (m Model) viewForm(title string, f *huh.Form) string {
	if f == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(
		theme.TitleStyle.Render(title) + "\n" + f.View(),
	)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}
