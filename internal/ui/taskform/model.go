package taskform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/theme"
)

// SubmitMsg is dispatched when the form is completed. Original is the zero
// Task when creating.
type SubmitMsg struct {
	Input    model.TaskInput
	Original model.Task
}

// Editing reports whether the submission updates an existing task.
func (m SubmitMsg) Editing() bool {
	return m.Original.ID != 0
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	dueDate     string
	priority    string
	status      string
	category    string
	parentID    int64
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	original model.Task
	tasks    []model.Task
	width    int
	height   int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// SetOptions sets the tasks offered as parent candidates.
func (m *Model) SetOptions(tasks []model.Task) {
	m.tasks = tasks
}

// StartCreate initializes the form for creating a new task.
func (m *Model) StartCreate() tea.Cmd {
	m.original = model.Task{}
	m.load(model.NewTaskInput())
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing an existing task.
func (m *Model) StartEdit(task model.Task) tea.Cmd {
	m.original = task
	m.load(task.Input())
	m.form = m.buildForm()
	return m.form.Init()
}

func (m *Model) load(in model.TaskInput) {
	*m.fb = formBindings{
		title:       in.Title,
		description: in.Description,
		dueDate:     in.DueDate.String(),
		priority:    in.Priority,
		status:      in.Status,
		category:    in.Category,
	}
	if in.ParentID != nil {
		m.fb.parentID = *in.ParentID
	}
}

// Editing reports whether the form edits an existing task.
func (m Model) Editing() bool {
	return m.original.ID != 0
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.Editing() {
		titleText = fmt.Sprintf("Edit Task #%d", m.original.ID)
	}

	content := theme.TitleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	priorities := make([]huh.Option[string], len(model.Priorities))
	for i, p := range model.Priorities {
		priorities[i] = huh.NewOption(model.PriorityLabel(p), p)
	}
	statuses := make([]huh.Option[string], len(model.Statuses))
	for i, s := range model.Statuses {
		statuses[i] = huh.NewOption(model.StatusLabel(s), s)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&m.fb.description),
			huh.NewInput().
				Title("Due Date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fb.dueDate).
				Validate(validateDate),
			huh.NewInput().
				Title("Category").
				Placeholder("e.g. work, home").
				Value(&m.fb.category).
				Validate(validateRequired("Category")),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Priority").
				Options(priorities...).
				Value(&m.fb.priority),
			huh.NewSelect[string]().
				Title("Status").
				Options(statuses...).
				Value(&m.fb.status),
			m.parentField(),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) parentField() huh.Field {
	opts := []huh.Option[int64]{
		huh.NewOption("None", int64(0)),
	}
	for _, t := range m.tasks {
		if t.ID == m.original.ID {
			continue
		}
		opts = append(opts, huh.NewOption(fmt.Sprintf("#%d %s", t.ID, t.Title), t.ID))
	}
	return huh.NewSelect[int64]().
		Title("Depends on").
		Options(opts...).
		Value(&m.fb.parentID)
}

// Input returns the current field values as a TaskInput.
func (m Model) Input() model.TaskInput {
	in := model.TaskInput{
		Title:       strings.TrimSpace(m.fb.title),
		Description: m.fb.description,
		Priority:    m.fb.priority,
		Status:      m.fb.status,
		Category:    strings.TrimSpace(m.fb.category),
	}
	if d, err := model.ParseDate(strings.TrimSpace(m.fb.dueDate)); err == nil {
		in.DueDate = d
	}
	if m.fb.parentID != 0 {
		id := m.fb.parentID
		in.ParentID = &id
	}
	return in
}

func (m Model) handleSubmit() tea.Cmd {
	msg := SubmitMsg{Input: m.Input(), Original: m.original}
	return func() tea.Msg { return msg }
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

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("Due Date is required")
	}
	if _, err := model.ParseDate(s); err != nil {
		return err
	}
	return nil
}
