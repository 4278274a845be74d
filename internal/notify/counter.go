package notify

import (
	"context"
	"log"

	"github.com/nhle/tasys/internal/model"
)

// TaskLister fetches the candidate sets the badges are counted from.
type TaskLister interface {
	ListOverdue(ctx context.Context) ([]model.Task, error)
	ListNewlyCreated(ctx context.Context) ([]model.Task, error)
}

// Counter fetches candidate sets and fails open: a failed fetch yields an
// empty set, so the badge shows 0 rather than a stale or error value.
type Counter struct {
	tasks TaskLister
}

// NewCounter creates a Counter backed by tasks.
func NewCounter(tasks TaskLister) *Counter {
	return &Counter{tasks: tasks}
}

// Overdue returns the server's overdue set, or nil on failure.
func (c *Counter) Overdue(ctx context.Context) []model.Task {
	tasks, err := c.tasks.ListOverdue(ctx)
	if err != nil {
		log.Printf("overdue badge reset to 0: %v", err)
		return nil
	}
	return tasks
}

// NewlyCreated returns the tasks created in the last 24 hours, or nil on
// failure.
func (c *Counter) NewlyCreated(ctx context.Context) []model.Task {
	tasks, err := c.tasks.ListNewlyCreated(ctx)
	if err != nil {
		log.Printf("new-tasks badge reset to 0: %v", err)
		return nil
	}
	return tasks
}

// ComputeOverdueUnread fetches the overdue set and counts the entries
// newer than watermark.
func (c *Counter) ComputeOverdueUnread(ctx context.Context, watermark int64) int {
	return CountOverdueUnread(c.Overdue(ctx), watermark)
}

// ComputeNewUnread fetches the newly created set and counts the entries
// newer than watermark.
func (c *Counter) ComputeNewUnread(ctx context.Context, watermark int64) int {
	return CountNewUnread(c.NewlyCreated(ctx), watermark)
}
