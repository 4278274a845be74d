// Package notify derives the unread badge counts shown in the header from
// the server's candidate task sets and the locally persisted last-viewed
// watermarks.
package notify

import "github.com/nhle/tasys/internal/model"

// RelevanceTime returns the instant an overdue task counts from, in Unix
// milliseconds: its last update when present, else its due date. A task
// whose update time could not be parsed has no relevance time and is
// never unread.
//
// The server does not report when a task became overdue, so the update
// time is only an approximation of that moment.
func RelevanceTime(t model.Task) int64 {
	if t.UpdatedAt.Malformed() {
		return 0
	}
	if !t.UpdatedAt.IsZero() {
		return t.UpdatedAt.Millis()
	}
	return t.DueDate.Millis()
}

// CountOverdueUnread counts overdue tasks whose relevance time is strictly
// after watermark.
func CountOverdueUnread(tasks []model.Task, watermark int64) int {
	n := 0
	for _, t := range tasks {
		if RelevanceTime(t) > watermark {
			n++
		}
	}
	return n
}

// CountNewUnread counts tasks created strictly after watermark.
func CountNewUnread(tasks []model.Task, watermark int64) int {
	n := 0
	for _, t := range tasks {
		if t.CreatedAt.Millis() > watermark {
			n++
		}
	}
	return n
}

// Counts is a pair of badge values.
type Counts struct {
	Overdue int
	New     int
}

// Unread computes both badges from the candidate sets and watermarks.
func Unread(overdue, created []model.Task, w model.Watermarks) Counts {
	return Counts{
		Overdue: CountOverdueUnread(overdue, w.Overdue),
		New:     CountNewUnread(created, w.New),
	}
}

// Get returns the count for c.
func (c Counts) Get(cat model.Category) int {
	switch cat {
	case model.CategoryOverdue:
		return c.Overdue
	case model.CategoryNew:
		return c.New
	default:
		return 0
	}
}
