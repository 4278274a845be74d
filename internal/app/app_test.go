package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/notify"
	"github.com/nhle/tasys/internal/store"
	appsync "github.com/nhle/tasys/internal/sync"
	"github.com/nhle/tasys/internal/ui/alerts"
	"github.com/nhle/tasys/internal/ui/command"
	"github.com/nhle/tasys/internal/ui/deps"
	"github.com/nhle/tasys/internal/ui/detail"
	"github.com/nhle/tasys/internal/ui/taskform"
	"github.com/nhle/tasys/internal/ui/tasklist"
	"github.com/nhle/tasys/tests/testutil"
)

func newTestModel(t *testing.T, fake *testutil.FakeAPI) (Model, *store.MemoryStore) {
	t.Helper()

	cfg := model.DefaultAppConfig()
	cfg.API.BaseURL = fake.URL
	cfg.API.MaxRetries = 0
	client := NewClient(cfg, "")

	kv := store.NewMemoryStore()
	marks := notify.LoadWatermarks(context.Background(), kv)

	m := New(Options{
		Config:     cfg,
		ConfigPath: t.TempDir() + "/config.yaml",
		API:        client,
		Watermarks: marks,
		Refresher:  appsync.New(client),
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), kv
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func validInput() model.TaskInput {
	in := model.NewTaskInput()
	in.Title = "Write report"
	in.Category = "work"
	in.DueDate, _ = model.ParseDate("2030-01-01")
	return in
}

func TestCreateWithoutTitleSendsNothing(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	m, _ := newTestModel(t, fake)

	in := validInput()
	in.Title = "  "
	m, cmd := update(t, m, taskform.SubmitMsg{Input: in})

	if cmd != nil {
		t.Error("invalid input produced a command")
	}
	text, isErr := m.Banner()
	if !isErr || !strings.HasPrefix(text, "Invalid task: ") || !strings.Contains(text, "titulo") {
		t.Errorf("banner = %q (error %v)", text, isErr)
	}
	if n := len(fake.Requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestCreateSuccessShowsBanner(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	m, _ := newTestModel(t, fake)

	m, cmd := update(t, m, taskform.SubmitMsg{Input: validInput()})
	if cmd == nil {
		t.Fatal("valid input produced no command")
	}
	m, _ = update(t, m, cmd())

	text, isErr := m.Banner()
	if isErr || !strings.Contains(text, "Write report") {
		t.Errorf("banner = %q (error %v)", text, isErr)
	}
	if _, ok := fake.Task(1); !ok {
		t.Error("task not created on the server")
	}
}

func TestSelfDependencyRejectedLocally(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	m, _ := newTestModel(t, fake)

	m, cmd := update(t, m, deps.SetParentMsg{ChildID: 3, ParentID: 3})
	if cmd != nil {
		t.Error("self dependency produced a command")
	}
	text, isErr := m.Banner()
	if !isErr || text != model.ErrSelfDependency.Error() {
		t.Errorf("banner = %q (error %v)", text, isErr)
	}
	if n := len(fake.Requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestSetParentCallsAPI(t *testing.T) {
	fake := testutil.NewFakeAPI(t,
		model.Task{ID: 1, Title: "Design"},
		model.Task{ID: 2, Title: "Build"},
	)
	m, _ := newTestModel(t, fake)

	m, cmd := update(t, m, deps.SetParentMsg{ChildID: 2, ParentID: 1})
	if cmd == nil {
		t.Fatal("no command")
	}
	m, _ = update(t, m, cmd())

	if _, isErr := m.Banner(); isErr {
		t.Errorf("unexpected error banner")
	}
	child, _ := fake.Task(2)
	if child.ParentID == nil || *child.ParentID != 1 {
		t.Errorf("parent = %v", child.ParentID)
	}
}

func TestOpeningAlertZeroesBadgeImmediately(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	m, kv := newTestModel(t, fake)

	due, _ := model.ParseDate("2024-01-01")
	overdue := []model.Task{{ID: 1, Title: "Late", Status: model.StatusOverdue, DueDate: due}}
	m, _ = update(t, m, appsync.RefreshResultMsg{Overdue: overdue})

	if got := m.State().OverdueUnread(); got != 1 {
		t.Fatalf("OverdueUnread before = %d, want 1", got)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})

	if m.CurrentView() != ViewAlert {
		t.Errorf("view = %v, want alert", m.CurrentView())
	}
	if got := m.State().OverdueUnread(); got != 0 {
		t.Errorf("OverdueUnread after = %d, want 0", got)
	}
	if v, ok, _ := kv.Get(context.Background(), model.CategoryOverdue.StorageKey()); !ok || v == "" {
		t.Error("watermark not persisted")
	}
	if got := m.State().Watermarks().New; got != 0 {
		t.Errorf("new watermark changed to %d", got)
	}
}

func TestRefreshFeedsViews(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	m, _ := newTestModel(t, fake)

	now := time.Now()
	tasks := []model.Task{
		{ID: 3, Title: "c", Status: model.StatusPending, CreatedAt: model.NewTimestamp(now)},
		{ID: 2, Title: "b", Status: model.StatusCompleted, CreatedAt: model.NewTimestamp(now.Add(-time.Hour))},
		{ID: 1, Title: "a", Status: model.StatusPending, CreatedAt: model.NewTimestamp(now.Add(-2 * time.Hour))},
	}
	m, _ = update(t, m, appsync.RefreshResultMsg{Tasks: tasks})

	c := m.dashboard.Counts()
	if c.Pending != 2 || c.Completed != 1 {
		t.Errorf("counts = %+v", c)
	}
	if len(m.taskList.Visible()) != 3 {
		t.Errorf("task list = %d", len(m.taskList.Visible()))
	}

	// A failed refresh keeps the last snapshot.
	m, _ = update(t, m, appsync.RefreshResultMsg{Error: errors.New("down")})
	if len(m.State().Tasks) != 3 {
		t.Errorf("snapshot dropped after failed refresh")
	}
	if m.State().RefreshErr == nil {
		t.Error("refresh error not recorded")
	}
}

func TestNavigationClearsBanner(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	m, _ := newTestModel(t, fake)

	m, _ = update(t, m, deps.SetParentMsg{ChildID: 1, ParentID: 1})
	if text, _ := m.Banner(); text == "" {
		t.Fatal("expected a banner")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	if m.CurrentView() != ViewTasks {
		t.Errorf("view = %v", m.CurrentView())
	}
	if text, _ := m.Banner(); text != "" {
		t.Errorf("banner after navigation = %q", text)
	}
}

func TestUpdateFailureSurfacesServerMessage(t *testing.T) {
	task := model.Task{ID: 5, Title: "Old", Category: "c", Priority: model.PriorityLow, Status: model.StatusPending}
	task.DueDate, _ = model.ParseDate("2030-01-01")
	fake := testutil.NewFakeAPI(t, task)
	fake.Fail("PUT", "/api/tasks/5", 500, "Error al actualizar la tarea")
	m, _ := newTestModel(t, fake)

	in := task.Input()
	in.Title = "New"
	m, cmd := update(t, m, taskform.SubmitMsg{Input: in, Original: task})
	if cmd == nil {
		t.Fatal("no command")
	}
	m, _ = update(t, m, cmd())

	text, isErr := m.Banner()
	if !isErr || !strings.Contains(text, "Error al actualizar la tarea") {
		t.Errorf("banner = %q (error %v)", text, isErr)
	}
}

func TestEditSelfParentRejectedWithoutPrefix(t *testing.T) {
	task := model.Task{ID: 4, Title: "Loop", Category: "c", Priority: model.PriorityLow, Status: model.StatusPending}
	task.DueDate, _ = model.ParseDate("2030-01-01")
	fake := testutil.NewFakeAPI(t, task)
	m, _ := newTestModel(t, fake)

	in := task.Input()
	self := task.ID
	in.ParentID = &self
	m, cmd := update(t, m, taskform.SubmitMsg{Input: in, Original: task})

	if cmd != nil {
		t.Error("self parent produced a command")
	}
	text, isErr := m.Banner()
	if !isErr || text != model.ErrSelfDependency.Error() {
		t.Errorf("banner = %q (error %v)", text, isErr)
	}
	if n := len(fake.Requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestUpdateOfMissingTaskSaysItIsGone(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	m, _ := newTestModel(t, fake)

	gone := model.Task{ID: 9, Title: "Gone"}
	m, cmd := update(t, m, taskform.SubmitMsg{Input: validInput(), Original: gone})
	if cmd == nil {
		t.Fatal("no command")
	}
	m, _ = update(t, m, cmd())

	text, isErr := m.Banner()
	if !isErr || !strings.Contains(text, "no longer exists") {
		t.Errorf("banner = %q (error %v)", text, isErr)
	}
}

func TestNewCommandOpensCreateForm(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	m, _ := newTestModel(t, fake)

	m, _ = update(t, m, command.CommandMsg(command.NewTask))
	if m.CurrentView() != ViewTaskCreate {
		t.Errorf("view = %v, want task create", m.CurrentView())
	}
}

func TestBackFromAlertDetailReopensPanel(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	m, _ := newTestModel(t, fake)

	due, _ := model.ParseDate("2024-01-01")
	late := model.Task{ID: 1, Title: "Late", Status: model.StatusOverdue, DueDate: due}
	m, _ = update(t, m, appsync.RefreshResultMsg{Tasks: []model.Task{late}, Overdue: []model.Task{late}})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	m, _ = update(t, m, alertLoadedMsg{category: model.CategoryOverdue, tasks: []model.Task{late}})
	m, _ = update(t, m, tasklist.SelectedTaskMsg{TaskID: late.ID})
	if m.CurrentView() != ViewDetail {
		t.Fatalf("view = %v, want detail", m.CurrentView())
	}

	m, _ = update(t, m, detail.BackMsg{})
	if m.CurrentView() != ViewAlert {
		t.Fatalf("view after back = %v, want alert", m.CurrentView())
	}
	if m.alertView.Category() != model.CategoryOverdue {
		t.Errorf("alert category = %v", m.alertView.Category())
	}

	m, _ = update(t, m, alerts.CloseMsg{})
	if m.CurrentView() != ViewDashboard {
		t.Errorf("view after closing alert = %v, want dashboard", m.CurrentView())
	}
}
