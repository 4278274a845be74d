package api

import (
	"context"
	"fmt"
	"sort"

	"github.com/nhle/tasys/internal/model"
)

// TaskService is the consumed surface of the task API.
type TaskService interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	ListOverdue(ctx context.Context) ([]model.Task, error)
	ListNewlyCreated(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, in model.TaskInput) (model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ListChildren(ctx context.Context, id int64) ([]model.Task, error)
	SetParent(ctx context.Context, childID, parentID int64) (string, error)
	RemoveParent(ctx context.Context, childID int64) (string, error)
	History(ctx context.Context, id int64) ([]model.HistoryEntry, error)
}

var _ TaskService = (*Client)(nil)

// createResponse wraps the created task.
type createResponse struct {
	Task model.Task `json:"task"`
}

// messageResponse is returned by the dependency endpoints.
type messageResponse struct {
	Message string `json:"message"`
}

// setParentRequest is the body of PUT /api/tasks/{id}/set-parent.
type setParentRequest struct {
	ParentTaskID int64 `json:"parent_task_id"`
}

// ListTasks returns every task, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.get(ctx, "/api/tasks", &tasks); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	SortNewestFirst(tasks)
	return tasks, nil
}

// ListOverdue returns the tasks the server considers overdue.
func (c *Client) ListOverdue(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.get(ctx, "/api/tasks/overdue", &tasks); err != nil {
		return nil, fmt.Errorf("listing overdue tasks: %w", err)
	}
	return tasks, nil
}

// ListNewlyCreated returns the tasks created in the last 24 hours.
func (c *Client) ListNewlyCreated(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.get(ctx, "/api/tasks/newly-created", &tasks); err != nil {
		return nil, fmt.Errorf("listing newly created tasks: %w", err)
	}
	return tasks, nil
}

// CreateTask posts a new task and returns it as stored by the server.
func (c *Client) CreateTask(ctx context.Context, in model.TaskInput) (model.Task, error) {
	var resp createResponse
	if err := c.post(ctx, "/api/tasks", in, &resp); err != nil {
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}
	return resp.Task, nil
}

// UpdateTask replaces a task and returns the server's copy.
func (c *Client) UpdateTask(ctx context.Context, task model.Task) (model.Task, error) {
	var updated model.Task
	path := fmt.Sprintf("/api/tasks/%d", task.ID)
	if err := c.put(ctx, path, task, &updated); err != nil {
		return model.Task{}, fmt.Errorf("updating task %d: %w", task.ID, err)
	}
	if updated.ID == 0 {
		updated = task
	}
	return updated, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	if err := c.delete(ctx, fmt.Sprintf("/api/tasks/%d", id), nil); err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	return nil
}

// ListChildren returns the tasks whose parent is id.
func (c *Client) ListChildren(ctx context.Context, id int64) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.get(ctx, fmt.Sprintf("/api/tasks/%d/children", id), &tasks); err != nil {
		return nil, fmt.Errorf("listing children of task %d: %w", id, err)
	}
	return tasks, nil
}

// SetParent makes childID depend on parentID and returns the server message.
func (c *Client) SetParent(ctx context.Context, childID, parentID int64) (string, error) {
	var resp messageResponse
	path := fmt.Sprintf("/api/tasks/%d/set-parent", childID)
	if err := c.put(ctx, path, setParentRequest{ParentTaskID: parentID}, &resp); err != nil {
		return "", fmt.Errorf("setting parent of task %d: %w", childID, err)
	}
	return resp.Message, nil
}

// RemoveParent clears childID's dependency and returns the server message.
func (c *Client) RemoveParent(ctx context.Context, childID int64) (string, error) {
	var resp messageResponse
	path := fmt.Sprintf("/api/tasks/%d/remove-parent", childID)
	if err := c.delete(ctx, path, &resp); err != nil {
		return "", fmt.Errorf("removing parent of task %d: %w", childID, err)
	}
	return resp.Message, nil
}

// History returns the change log of a task.
func (c *Client) History(ctx context.Context, id int64) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	if err := c.get(ctx, fmt.Sprintf("/api/tasks/%d/history", id), &entries); err != nil {
		return nil, fmt.Errorf("loading history of task %d: %w", id, err)
	}
	return entries, nil
}

// SortNewestFirst orders tasks by creation time, most recent first.
func SortNewestFirst(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt.Time)
	})
}
