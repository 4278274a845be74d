package app

import (
	"context"

	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/notify"
	appsync "github.com/nhle/tasys/internal/sync"
)

// State is the application state owned by the root model. It is only
// touched from Update, so it needs no locking.
type State struct {
	// Tasks is the last successfully fetched snapshot, newest first.
	Tasks []model.Task

	// Overdue and NewlyCreated are the latest notification candidate sets.
	// A failed fetch leaves them nil, which counts as zero unread.
	Overdue      []model.Task
	NewlyCreated []model.Task

	// Loaded is set after the first successful snapshot.
	Loaded bool

	// RefreshErr is the error of the last refresh, nil when it succeeded.
	RefreshErr error

	marks *notify.WatermarkStore
}

// NewState creates the state around the loaded watermarks.
func NewState(marks *notify.WatermarkStore) *State {
	return &State{marks: marks}
}

// ApplyRefresh stores the result of a refresh. A failed snapshot keeps the
// previous tasks; the candidate sets are always replaced.
func (s *State) ApplyRefresh(msg appsync.RefreshResultMsg) {
	s.RefreshErr = msg.Error
	if msg.Error == nil {
		s.Tasks = msg.Tasks
		s.Loaded = true
	}
	s.Overdue = msg.Overdue
	s.NewlyCreated = msg.NewlyCreated
}

// MarkViewed advances the watermark of c to now.
func (s *State) MarkViewed(ctx context.Context, c model.Category) (int64, error) {
	return s.marks.MarkViewed(ctx, c)
}

// Watermarks returns the current watermarks.
func (s *State) Watermarks() model.Watermarks {
	return s.marks.Current()
}

// Unread computes both badge counts.
func (s *State) Unread() notify.Counts {
	return notify.Unread(s.Overdue, s.NewlyCreated, s.marks.Current())
}

// OverdueUnread is the overdue badge count.
func (s *State) OverdueUnread() int {
	return notify.CountOverdueUnread(s.Overdue, s.marks.Get(model.CategoryOverdue))
}

// NewUnread is the new-tasks badge count.
func (s *State) NewUnread() int {
	return notify.CountNewUnread(s.NewlyCreated, s.marks.Get(model.CategoryNew))
}

// Task looks a task up in the snapshot.
func (s *State) Task(id int64) (model.Task, bool) {
	return model.FindTask(s.Tasks, id)
}
