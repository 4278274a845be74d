package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingDependency = errors.New("select both a child task and a parent task")
	ErrSelfDependency    = errors.New("a task cannot depend on itself")
	ErrDependencyCycle   = errors.New("dependency would create a cycle")
)

// ValidationError reports a client-side check that blocked a request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err (or any error in its chain) is a
// ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks that every required field is set and that enum fields
// carry known values.
func (in TaskInput) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"titulo", in.Title},
		{"fecha_limite", in.DueDate.String()},
		{"prioridad", in.Priority},
		{"estado", in.Status},
		{"categoria", in.Category},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{
				Field:   r.field,
				Message: "required field is missing (title, due date, priority, status and category are mandatory)",
			}
		}
	}

	if !contains(Priorities, in.Priority) {
		return &ValidationError{Field: "prioridad", Message: fmt.Sprintf("unknown priority %q", in.Priority)}
	}
	if !contains(Statuses, in.Status) {
		return &ValidationError{Field: "estado", Message: fmt.Sprintf("unknown status %q", in.Status)}
	}
	return nil
}

// ValidateDependency checks a proposed child -> parent link before it is
// sent. When a snapshot is given, the parent's ancestor chain must not
// reach the child. Ids <= 0 mean "not selected".
func ValidateDependency(childID, parentID int64, snapshot []Task) error {
	if childID <= 0 || parentID <= 0 {
		return ErrMissingDependency
	}
	if childID == parentID {
		return ErrSelfDependency
	}

	parents := make(map[int64]int64, len(snapshot))
	for _, t := range snapshot {
		if t.ParentID != nil {
			parents[t.ID] = *t.ParentID
		}
	}

	seen := map[int64]bool{}
	for cur := parentID; ; {
		if cur == childID {
			return fmt.Errorf("%w: task %d is already an ancestor of task %d", ErrDependencyCycle, childID, parentID)
		}
		if seen[cur] {
			return nil
		}
		seen[cur] = true
		next, ok := parents[cur]
		if !ok {
			return nil
		}
		cur = next
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
