package app

import (
	"context"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/tasys/internal/api"
	"github.com/nhle/tasys/internal/keys"
	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/notify"
	appsync "github.com/nhle/tasys/internal/sync"
	"github.com/nhle/tasys/internal/ui"
	"github.com/nhle/tasys/internal/ui/alerts"
	"github.com/nhle/tasys/internal/ui/command"
	"github.com/nhle/tasys/internal/ui/dashboard"
	"github.com/nhle/tasys/internal/ui/deps"
	"github.com/nhle/tasys/internal/ui/detail"
	helpview "github.com/nhle/tasys/internal/ui/help"
	historyview "github.com/nhle/tasys/internal/ui/history"
	"github.com/nhle/tasys/internal/ui/settings"
	"github.com/nhle/tasys/internal/ui/tasklist"
	"github.com/nhle/tasys/internal/ui/taskform"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewDashboard ViewState = iota
	ViewTasks
	ViewDetail
	ViewTaskCreate
	ViewTaskEdit
	ViewConfirmDelete
	ViewDependencies
	ViewHistory
	ViewAlert
	ViewSettings
	ViewHelp
	ViewCommand
)

// Options carries the collaborators of the root model.
type Options struct {
	Config     *model.AppConfig
	ConfigPath string
	Token      string
	API        api.TaskService
	Watermarks *notify.WatermarkStore
	Refresher  *appsync.Refresher
}

// banner is the inline result line of the last mutation.
type banner struct {
	text    string
	isError bool
}

// Model is the root Bubble Tea model. It routes between views, owns the
// application state and performs every API call.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	cfg          *model.AppConfig
	api          api.TaskService
	refresher    *appsync.Refresher
	state        *State
	banner       banner

	dashboard    dashboard.Model
	taskList     tasklist.Model
	detail       detail.Model
	taskForm     taskform.Model
	depsView     deps.Model
	historyView  historyview.Model
	alertView    alerts.Model
	alertOpen    bool
	alertReturn  ViewState
	settingsView settings.Model
	helpView     helpview.Model
	commandView  command.Model

	confirm       *huh.Form
	confirmDelete *bool
	pendingDelete model.Task

	ready bool
}

// New creates the root application model.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	cfg := opts.Config
	if cfg == nil {
		cfg = model.DefaultAppConfig()
	}

	return Model{
		currentView:  ViewDashboard,
		keys:         k,
		cfg:          cfg,
		api:          opts.API,
		refresher:    opts.Refresher,
		state:        NewState(opts.Watermarks),
		dashboard:    dashboard.New(k, cfg.Display.RecentCount, 80, 24),
		taskList:     tasklist.New("Tasks", k, 80, 24),
		detail:       detail.New(k, 80, 24),
		taskForm:     taskform.New(80, 24),
		depsView:     deps.New(k, 80, 24),
		historyView:  historyview.New(k, 80, 24),
		alertView:    alerts.New(model.CategoryOverdue, k, 80, 24),
		settingsView: settings.New(cfg, opts.Token, opts.ConfigPath, k, 80, 24),
		helpView:     helpview.New(k, 80, 24),
		commandView:  command.New(80, 24),

		confirmDelete: new(bool),
	}
}

// NewClient builds the task API client described by cfg.
func NewClient(cfg *model.AppConfig, token string) *api.Client {
	return api.NewClient(
		cfg.API.BaseURL,
		api.WithToken(token),
		api.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		api.WithMaxRetries(cfg.API.MaxRetries),
	)
}

// Init starts the refresher, which performs the startup refresh.
func (m Model) Init() tea.Cmd {
	if m.refresher == nil {
		return nil
	}
	return m.refresher.Start()
}

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState {
	return m.currentView
}

// State returns the application state.
func (m Model) State() *State {
	return m.state
}

// Banner returns the current banner text and whether it reports an error.
func (m Model) Banner() (string, bool) {
	return m.banner.text, m.banner.isError
}

func (m *Model) setBanner(text string, isError bool) {
	m.banner = banner{text: text, isError: isError}
}

// navigate switches to v. Navigation clears the banner and closes an
// open alert panel.
func (m *Model) navigate(v ViewState) {
	if m.currentView != ViewHelp && m.currentView != ViewCommand {
		m.previousView = m.currentView
	}
	m.currentView = v
	m.banner = banner{}
	m.alertOpen = false
}

// back returns to the list the user came from. An alert panel is shown
// again with the content it had, and esc from it then leaves to wherever
// it was opened from.
func (m *Model) back() {
	switch m.previousView {
	case ViewDashboard, ViewTasks, ViewDependencies, ViewHistory:
		m.currentView = m.previousView
	case ViewAlert:
		m.currentView = ViewAlert
		m.previousView = m.alertReturn
		m.alertOpen = true
	default:
		m.currentView = ViewTasks
	}
}

// inputFocused reports whether keys belong to a form or text input, in
// which case global shortcuts are not applied.
func (m Model) inputFocused() bool {
	switch m.currentView {
	case ViewTaskCreate, ViewTaskEdit, ViewConfirmDelete, ViewCommand:
		return true
	case ViewTasks:
		return m.taskList.Searching()
	case ViewSettings:
		return m.settingsView.Editing()
	case ViewDependencies:
		return m.depsView.Editing()
	}
	return false
}

func (m *Model) trigger(reason string) {
	if m.refresher != nil {
		m.refresher.Trigger(reason)
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.dashboard.SetSize(w, h)
		m.taskList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.depsView.SetSize(w, h)
		m.historyView.SetSize(w, h)
		m.alertView.SetSize(w, h)
		m.settingsView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.RefreshResultMsg:
		cmd := m.applyRefresh(msg)
		return m, tea.Batch(cmd, m.waitForRefresh())

	case tasklist.SelectedTaskMsg:
		task, ok := m.state.Task(msg.TaskID)
		if !ok {
			m.setBanner(fmt.Sprintf("Task #%d not found", msg.TaskID), true)
			return m, nil
		}
		m.navigate(ViewDetail)
		m.detail.SetTask(task, m.state.Tasks)
		return m, nil

	case tasklist.DeleteRequestedMsg:
		cmd := m.askDelete(msg.Task)
		return m, cmd

	case detail.BackMsg:
		m.back()
		return m, nil

	case detail.ActionMsg:
		return m.handleDetailAction(msg)

	case taskform.SubmitMsg:
		cmd := m.submitTask(msg)
		return m, cmd

	case taskform.CancelMsg:
		if m.currentView == ViewTaskEdit {
			m.currentView = ViewDetail
			return m, nil
		}
		m.back()
		return m, nil

	case taskCreatedMsg:
		if msg.err != nil {
			m.setBanner(errorText("Creating task failed", msg.err), true)
			return m, nil
		}
		m.setBanner(fmt.Sprintf("Task %q created", msg.task.Title), false)
		m.trigger(appsync.ReasonMutation)
		return m, nil

	case taskUpdatedMsg:
		if msg.err != nil {
			m.setBanner(errorText("Updating task failed", msg.err), true)
			if api.IsNotFound(msg.err) {
				m.trigger(appsync.ReasonMutation)
			}
			return m, nil
		}
		m.setBanner(fmt.Sprintf("Task %q updated", msg.task.Title), false)
		if m.currentView == ViewDetail {
			m.detail.SetTask(msg.task, m.state.Tasks)
		}
		m.trigger(appsync.ReasonMutation)
		return m, nil

	case taskDeletedMsg:
		if msg.err != nil {
			m.setBanner(errorText("Deleting task failed", msg.err), true)
			if api.IsNotFound(msg.err) {
				m.trigger(appsync.ReasonMutation)
			}
			return m, nil
		}
		m.setBanner(fmt.Sprintf("Task %q deleted", msg.task.Title), false)
		if t, ok := m.detail.Task(); ok && t.ID == msg.task.ID {
			m.detail.Clear()
			if m.currentView == ViewDetail {
				m.back()
			}
		}
		m.trigger(appsync.ReasonMutation)
		return m, nil

	case deps.SetParentMsg:
		if err := model.ValidateDependency(msg.ChildID, msg.ParentID, m.state.Tasks); err != nil {
			m.setBanner(err.Error(), true)
			return m, nil
		}
		return m, m.setParent(msg.ChildID, msg.ParentID)

	case deps.RemoveParentMsg:
		return m, m.removeParent(msg.ChildID)

	case deps.ChildrenRequestMsg:
		return m, m.loadChildren(msg.ParentID)

	case deps.CloseMsg:
		m.navigate(ViewDashboard)
		return m, nil

	case parentSetMsg:
		if msg.err != nil {
			m.setBanner(errorText("Setting dependency failed", msg.err), true)
			return m, nil
		}
		m.setBanner(serverMessage(msg.message, "Dependency set"), false)
		m.trigger(appsync.ReasonMutation)
		cmd := m.depsView.Refresh()
		return m, cmd

	case parentRemovedMsg:
		if msg.err != nil {
			m.setBanner(errorText("Removing dependency failed", msg.err), true)
			return m, nil
		}
		m.setBanner(serverMessage(msg.message, "Dependency removed"), false)
		m.trigger(appsync.ReasonMutation)
		cmd := m.depsView.Refresh()
		return m, cmd

	case childrenLoadedMsg:
		m.depsView.SetChildren(msg.parentID, msg.children, msg.err)
		return m, nil

	case historyview.RequestMsg:
		return m, m.loadHistory(msg.TaskID)

	case historyview.CloseMsg:
		m.navigate(ViewDashboard)
		return m, nil

	case historyLoadedMsg:
		m.historyView.SetEntries(msg.taskID, msg.entries, msg.err)
		return m, nil

	case alerts.CloseMsg:
		m.alertOpen = false
		m.back()
		return m, nil

	case alertLoadedMsg:
		if !m.alertOpen || m.alertView.Category() != msg.category {
			return m, nil
		}
		cmd := m.alertView.SetTasks(msg.tasks, msg.err)
		return m, cmd

	case settings.DoneMsg:
		m.navigate(ViewDashboard)
		return m, nil

	case settings.SavedMsg:
		cmd := m.applySettings(msg)
		return m, cmd

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(string(msg))
		return m, cmd

	case tea.KeyMsg:
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
	}

	if m.currentView == ViewConfirmDelete {
		return m.updateConfirm(msg)
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey applies keys that work regardless of the current view.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.stop()
		return m, tea.Quit, true
	}
	if m.inputFocused() {
		return m, nil, false
	}

	switch msg.String() {
	case "q":
		if m.currentView == ViewDashboard || m.currentView == ViewTasks {
			m.stop()
			return m, tea.Quit, true
		}

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.navigate(ViewHelp)
		return m, nil, true

	case ":":
		m.navigate(ViewCommand)
		cmd := m.commandView.Focus()
		return m, cmd, true

	case "esc":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}

	case "1":
		m.navigate(ViewDashboard)
		return m, nil, true

	case "2":
		m.navigate(ViewTasks)
		return m, nil, true

	case "3":
		m.navigate(ViewDependencies)
		cmd := m.depsView.Refresh()
		return m, cmd, true

	case "4":
		m.navigate(ViewHistory)
		return m, nil, true

	case "s":
		if m.currentView != ViewSettings {
			m.navigate(ViewSettings)
			return m, m.settingsView.Init(), true
		}

	case "o":
		cmd := m.openAlert(model.CategoryOverdue)
		return m, cmd, true

	case "w":
		cmd := m.openAlert(model.CategoryNew)
		return m, cmd, true

	case "r":
		m.trigger(appsync.ReasonManual)
		return m, nil, true

	case "n":
		if m.currentView == ViewDashboard || m.currentView == ViewTasks {
			cmd := m.startCreate()
			return m, cmd, true
		}
	}
	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ViewTasks:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewTaskCreate, ViewTaskEdit:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewDependencies:
		m.depsView, cmd = m.depsView.Update(msg)
	case ViewHistory:
		m.historyView, cmd = m.historyView.Update(msg)
	case ViewAlert:
		m.alertView, cmd = m.alertView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

func (m *Model) stop() {
	if m.refresher != nil {
		m.refresher.Stop()
	}
}

func (m *Model) waitForRefresh() tea.Cmd {
	if m.refresher == nil {
		return nil
	}
	return m.refresher.WaitForNextResult()
}

// applyRefresh stores a refresh result and pushes the snapshot to every
// view that shows it.
func (m *Model) applyRefresh(msg appsync.RefreshResultMsg) tea.Cmd {
	m.state.ApplyRefresh(msg)
	if msg.Error != nil {
		log.Printf("refresh %v failed: %v", msg.Reasons, msg.Error)
		return nil
	}

	tasks := m.state.Tasks
	m.dashboard.SetTasks(tasks)
	m.depsView.SetTasks(tasks)
	m.historyView.SetTasks(tasks)
	m.taskForm.SetOptions(tasks)
	if t, ok := m.detail.Task(); ok {
		if fresh, ok := model.FindTask(tasks, t.ID); ok {
			m.detail.SetTask(fresh, tasks)
		}
	}
	return m.taskList.SetTasks(tasks)
}

// openAlert marks the category viewed before its content is requested, so
// the badge is already zero on the next render.
func (m *Model) openAlert(c model.Category) tea.Cmd {
	m.navigate(ViewAlert)
	if m.previousView != ViewAlert {
		m.alertReturn = m.previousView
	}
	if _, err := m.state.MarkViewed(context.Background(), c); err != nil {
		log.Printf("persist %s watermark: %v", c, err)
	}

	w, h := m.contentSize()
	m.alertView = alerts.New(c, m.keys, w, h)
	m.alertOpen = true
	return tea.Batch(m.alertView.Start(), m.loadAlert(c))
}

// contentSize is the size of the content area, with a default before the
// first WindowSizeMsg.
func (m Model) contentSize() (int, int) {
	if !m.ready {
		return 80, 24
	}
	return m.layout.ContentWidth(), m.layout.ContentHeight()
}

func (m *Model) startCreate() tea.Cmd {
	m.navigate(ViewTaskCreate)
	m.taskForm.SetOptions(m.state.Tasks)
	return m.taskForm.StartCreate()
}

func (m *Model) startEdit(task model.Task) tea.Cmd {
	m.navigate(ViewTaskEdit)
	m.taskForm.SetOptions(m.state.Tasks)
	return m.taskForm.StartEdit(task)
}

// submitTask validates the form input and sends it. Invalid input never
// reaches the API.
func (m *Model) submitTask(msg taskform.SubmitMsg) tea.Cmd {
	if msg.Editing() {
		m.currentView = ViewDetail
	} else {
		m.back()
	}

	if err := validateSubmit(msg, m.state.Tasks); err != nil {
		if model.IsValidationError(err) {
			m.setBanner("Invalid task: "+err.Error(), true)
		} else {
			m.setBanner(err.Error(), true)
		}
		return nil
	}

	if msg.Editing() {
		return m.updateTask(msg.Original.Apply(msg.Input))
	}
	return m.createTask(msg.Input)
}

// validateSubmit runs the local checks for a submitted form.
func validateSubmit(msg taskform.SubmitMsg, snapshot []model.Task) error {
	if err := msg.Input.Validate(); err != nil {
		return err
	}
	if msg.Input.ParentID != nil && msg.Editing() {
		return model.ValidateDependency(msg.Original.ID, *msg.Input.ParentID, snapshot)
	}
	return nil
}

func (m Model) handleDetailAction(msg detail.ActionMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case detail.ActionEdit:
		cmd := m.startEdit(msg.Task)
		return m, cmd
	case detail.ActionDelete:
		cmd := m.askDelete(msg.Task)
		return m, cmd
	case detail.ActionHistory:
		m.navigate(ViewHistory)
		cmd := m.historyView.Open(msg.Task.ID)
		return m, cmd
	case detail.ActionDependencies:
		m.navigate(ViewDependencies)
		cmd := m.depsView.Focus(msg.Task.ID)
		return m, cmd
	}
	return m, nil
}

// askDelete opens the delete confirmation for task.
func (m *Model) askDelete(task model.Task) tea.Cmd {
	m.pendingDelete = task
	*m.confirmDelete = false
	m.confirm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete task %q?", task.Title)).
				Description("This cannot be undone.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(m.confirmDelete),
		),
	).WithWidth(60)
	if m.currentView != ViewConfirmDelete {
		m.previousView = m.currentView
	}
	m.currentView = ViewConfirmDelete
	return m.confirm.Init()
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.confirm == nil {
		m.currentView = m.previousView
		return m, nil
	}
	mdl, cmd := m.confirm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirm = f
	}

	switch m.confirm.State {
	case huh.StateCompleted:
		m.currentView = m.previousView
		m.confirm = nil
		if *m.confirmDelete {
			return m, m.deleteTask(m.pendingDelete)
		}
		return m, nil
	case huh.StateAborted:
		m.currentView = m.previousView
		m.confirm = nil
		return m, nil
	}
	return m, cmd
}

// applySettings rebuilds the API client from saved settings and refreshes.
func (m *Model) applySettings(msg settings.SavedMsg) tea.Cmd {
	if msg.Config != nil {
		m.cfg = msg.Config
	}
	client := NewClient(m.cfg, msg.Token)
	m.api = client
	if m.refresher != nil {
		m.refresher.SetSource(client)
	}
	m.dashboard.SetRecentCount(m.cfg.Display.RecentCount)
	m.dashboard.SetTasks(m.state.Tasks)
	m.trigger(appsync.ReasonSettings)
	return nil
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case command.Dashboard:
		m.navigate(ViewDashboard)
	case command.Tasks:
		m.navigate(ViewTasks)
	case command.NewTask:
		return m.startCreate()
	case command.Dependencies:
		m.navigate(ViewDependencies)
		return m.depsView.Refresh()
	case command.History:
		m.navigate(ViewHistory)
	case command.Overdue:
		return m.openAlert(model.CategoryOverdue)
	case command.NewTasks:
		return m.openAlert(model.CategoryNew)
	case command.Settings:
		m.navigate(ViewSettings)
		return m.settingsView.Init()
	case command.Refresh:
		m.trigger(appsync.ReasonManual)
	case command.Help:
		m.navigate(ViewHelp)
	case command.Quit:
		m.stop()
		return tea.Quit
	default:
		m.setBanner(fmt.Sprintf("Unknown command %q", cmd), true)
	}
	return nil
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	unread := m.state.Unread()
	header := m.layout.RenderHeader(
		"Task Dashboard",
		ui.RenderBadges(unread.Overdue, unread.New),
		m.syncStatus(),
	)
	bannerLine := m.layout.RenderBanner(m.banner.text, m.banner.isError)
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, bannerLine, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewDashboard:
		return m.dashboard.View()
	case ViewTasks:
		return m.taskList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewTaskCreate, ViewTaskEdit:
		return m.taskForm.View()
	case ViewConfirmDelete:
		if m.confirm == nil {
			return ""
		}
		return m.confirm.View()
	case ViewDependencies:
		return m.depsView.View()
	case ViewHistory:
		return m.historyView.View()
	case ViewAlert:
		return m.alertView.View()
	case ViewSettings:
		return m.settingsView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// syncStatus returns a short string describing the refresh state.
func (m Model) syncStatus() string {
	if m.refresher == nil {
		return ""
	}
	st := m.refresher.Status()
	switch st.State {
	case appsync.RefreshRunning:
		return "syncing"
	case appsync.RefreshError:
		if api.IsAuthError(st.Error) {
			return "⚠ unauthorized"
		}
		return "⚠ API unreachable"
	}
	if st.LastSync.IsZero() {
		return "idle"
	}
	return "synced " + st.LastSync.Format("15:04:05")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewDetail:
		return "esc back | e edit | d delete | h history | p dependencies | j/k scroll"
	case ViewTaskCreate, ViewTaskEdit:
		return "enter next | esc cancel"
	case ViewConfirmDelete:
		return "←/→ choose | enter confirm"
	case ViewDependencies:
		return "a set parent | x remove parent | esc back"
	case ViewHistory:
		return "enter show | esc back"
	case ViewAlert:
		return "enter open | esc close"
	case ViewSettings:
		return "e edit | t test connection | esc back"
	case ViewTasks:
		return "q quit | n new | d delete | / search | tab status | o overdue | w new | ? help"
	default:
		return "q quit | 2 tasks | 3 deps | 4 history | n new | o overdue | w new | r refresh | ? help"
	}
}
