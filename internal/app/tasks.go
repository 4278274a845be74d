package app

import (
	"context"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tasys/internal/api"
	"github.com/nhle/tasys/internal/model"
)

// taskCreatedMsg is sent after a create request finished.
type taskCreatedMsg struct {
	task model.Task
	err  error
}

// taskUpdatedMsg is sent after an update request finished.
type taskUpdatedMsg struct {
	task model.Task
	err  error
}

// taskDeletedMsg is sent after a delete request finished.
type taskDeletedMsg struct {
	task model.Task
	err  error
}

// parentSetMsg is sent after a set-parent request finished.
type parentSetMsg struct {
	childID int64
	message string
	err     error
}

// parentRemovedMsg is sent after a remove-parent request finished.
type parentRemovedMsg struct {
	childID int64
	message string
	err     error
}

// childrenLoadedMsg carries the children of parentID.
type childrenLoadedMsg struct {
	parentID int64
	children []model.Task
	err      error
}

// historyLoadedMsg carries the change history of taskID.
type historyLoadedMsg struct {
	taskID  int64
	entries []model.HistoryEntry
	err     error
}

// alertLoadedMsg carries the content of an alert panel.
type alertLoadedMsg struct {
	category model.Category
	tasks    []model.Task
	err      error
}

func (m *Model) createTask(in model.TaskInput) tea.Cmd {
	svc := m.api
	return func() tea.Msg {
		task, err := svc.CreateTask(context.Background(), in)
		if err != nil {
			log.Printf("create task %q: %v", in.Title, err)
		}
		return taskCreatedMsg{task: task, err: err}
	}
}

func (m *Model) updateTask(task model.Task) tea.Cmd {
	svc := m.api
	return func() tea.Msg {
		updated, err := svc.UpdateTask(context.Background(), task)
		if err != nil {
			log.Printf("update task %d: %v", task.ID, err)
			return taskUpdatedMsg{task: task, err: err}
		}
		return taskUpdatedMsg{task: updated}
	}
}

func (m *Model) deleteTask(task model.Task) tea.Cmd {
	svc := m.api
	return func() tea.Msg {
		err := svc.DeleteTask(context.Background(), task.ID)
		if err != nil {
			log.Printf("delete task %d: %v", task.ID, err)
		}
		return taskDeletedMsg{task: task, err: err}
	}
}

func (m *Model) setParent(childID, parentID int64) tea.Cmd {
	svc := m.api
	return func() tea.Msg {
		msg, err := svc.SetParent(context.Background(), childID, parentID)
		if err != nil {
			log.Printf("set parent of %d to %d: %v", childID, parentID, err)
		}
		return parentSetMsg{childID: childID, message: msg, err: err}
	}
}

func (m *Model) removeParent(childID int64) tea.Cmd {
	svc := m.api
	return func() tea.Msg {
		msg, err := svc.RemoveParent(context.Background(), childID)
		if err != nil {
			log.Printf("remove parent of %d: %v", childID, err)
		}
		return parentRemovedMsg{childID: childID, message: msg, err: err}
	}
}

func (m *Model) loadChildren(parentID int64) tea.Cmd {
	svc := m.api
	return func() tea.Msg {
		children, err := svc.ListChildren(context.Background(), parentID)
		if err != nil {
			log.Printf("list children of %d: %v", parentID, err)
		}
		return childrenLoadedMsg{parentID: parentID, children: children, err: err}
	}
}

func (m *Model) loadHistory(taskID int64) tea.Cmd {
	svc := m.api
	return func() tea.Msg {
		entries, err := svc.History(context.Background(), taskID)
		if err != nil {
			log.Printf("history of %d: %v", taskID, err)
		}
		return historyLoadedMsg{taskID: taskID, entries: entries, err: err}
	}
}

func (m *Model) loadAlert(c model.Category) tea.Cmd {
	svc := m.api
	return func() tea.Msg {
		ctx := context.Background()
		var (
			tasks []model.Task
			err   error
		)
		switch c {
		case model.CategoryOverdue:
			tasks, err = svc.ListOverdue(ctx)
		case model.CategoryNew:
			tasks, err = svc.ListNewlyCreated(ctx)
		default:
			err = fmt.Errorf("unknown notification category %q", c)
		}
		if err != nil {
			log.Printf("load %s alert: %v", c, err)
		}
		return alertLoadedMsg{category: c, tasks: tasks, err: err}
	}
}

// errorText is the banner text for a failed request.
func errorText(action string, err error) string {
	if api.IsAuthError(err) {
		return fmt.Sprintf("%s: not authorized, check the API token in settings (s)", action)
	}
	if api.IsNotFound(err) {
		return fmt.Sprintf("%s: the task no longer exists", action)
	}
	return fmt.Sprintf("%s: %v", action, err)
}

// serverMessage returns msg, or fallback when the server sent none.
func serverMessage(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
