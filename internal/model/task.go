package model

import "strings"

// Priority values accepted by the task API.
const (
	PriorityLow    = "Baja"
	PriorityMedium = "Media"
	PriorityHigh   = "Alta"
)

// Status values accepted by the task API. StatusOverdue is assigned by the
// server once a task's due date has passed.
const (
	StatusPending    = "Pendiente"
	StatusInProgress = "En Proceso"
	StatusCompleted  = "Completada"
	StatusOverdue    = "Vencida"
)

// Priorities lists the priority values in ascending order.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

// Statuses lists the status values in workflow order.
var Statuses = []string{StatusPending, StatusInProgress, StatusCompleted, StatusOverdue}

// Task is a work item owned by the external task API.
type Task struct {
	// ID is the server-assigned identifier.
	ID int64 `json:"id_tarea"`

	// Title is the short human-readable summary.
	Title string `json:"titulo"`

	// Description is the optional body text.
	Description string `json:"descripcion"`

	// DueDate is the deadline. The server marks the task overdue after it.
	DueDate Date `json:"fecha_limite"`

	// Priority is one of the Priority* constants.
	Priority string `json:"prioridad"`

	// Status is one of the Status* constants.
	Status string `json:"estado"`

	// Category is a free-form grouping label.
	Category string `json:"categoria"`

	// ParentID references the task this one depends on.
	ParentID *int64 `json:"id_tarea_padre"`

	// ParentTitle is joined in by the server for display.
	ParentTitle string `json:"tarea_padre_titulo,omitempty"`

	// CreatedAt is when the server created the task.
	CreatedAt Timestamp `json:"fecha_creacion"`

	// UpdatedAt is the last modification time, absent for untouched tasks.
	UpdatedAt Timestamp `json:"fecha_actualizacion"`
}

// TaskInput is the request body for creating a task.
type TaskInput struct {
	Title       string `json:"titulo"`
	Description string `json:"descripcion"`
	DueDate     Date   `json:"fecha_limite"`
	Priority    string `json:"prioridad"`
	Status      string `json:"estado"`
	Category    string `json:"categoria"`
	ParentID    *int64 `json:"tarea_padre_id"`
}

// NewTaskInput returns a TaskInput carrying the form defaults.
func NewTaskInput() TaskInput {
	return TaskInput{
		Priority: PriorityMedium,
		Status:   StatusPending,
	}
}

// Input converts an existing task into an editable input.
func (t Task) Input() TaskInput {
	return TaskInput{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Status:      t.Status,
		Category:    t.Category,
		ParentID:    t.ParentID,
	}
}

// Apply copies the editable fields of in onto t.
func (t Task) Apply(in TaskInput) Task {
	t.Title = strings.TrimSpace(in.Title)
	t.Description = in.Description
	t.DueDate = in.DueDate
	t.Priority = in.Priority
	t.Status = in.Status
	t.Category = strings.TrimSpace(in.Category)
	t.ParentID = in.ParentID
	return t
}

// HasParent reports whether the task depends on another task.
func (t Task) HasParent() bool {
	return t.ParentID != nil
}

// ParentLabel returns the display text for the parent column.
func (t Task) ParentLabel() string {
	if t.ParentTitle != "" {
		return t.ParentTitle
	}
	return "N/A"
}

// StatusLabel returns an English label for a status value.
func StatusLabel(status string) string {
	switch status {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In progress"
	case StatusCompleted:
		return "Completed"
	case StatusOverdue:
		return "Overdue"
	default:
		return status
	}
}

// PriorityLabel returns an English label for a priority value.
func PriorityLabel(priority string) string {
	switch priority {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	default:
		return priority
	}
}

// FindTask returns the task with the given id from a snapshot.
func FindTask(tasks []Task, id int64) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}
