package model

import (
	"encoding/json"
	"fmt"
)

// HistoryEntry records a single field change on a task.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	ChangedAt Timestamp `json:"changed_at"`
	ChangedBy string    `json:"changed_by"`
}

// historyWire accepts both the documented English field names and the
// names the task server emits natively.
type historyWire struct {
	ID        *int64    `json:"id"`
	Field     string    `json:"field"`
	OldValue  *string   `json:"old_value"`
	NewValue  *string   `json:"new_value"`
	ChangedAt Timestamp `json:"changed_at"`
	ChangedBy string    `json:"changed_by"`

	NativeID        *int64    `json:"id_historial"`
	NativeField     string    `json:"campo_modificado"`
	NativeOldValue  *string   `json:"valor_anterior"`
	NativeNewValue  *string   `json:"valor_nuevo"`
	NativeChangedAt Timestamp `json:"fecha_cambio"`
	NativeChangedBy string    `json:"usuario_cambio"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *HistoryEntry) UnmarshalJSON(data []byte) error {
	var w historyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding history entry: %w", err)
	}

	*h = HistoryEntry{
		Field:     firstNonEmpty(w.Field, w.NativeField),
		OldValue:  firstNonNil(w.OldValue, w.NativeOldValue),
		NewValue:  firstNonNil(w.NewValue, w.NativeNewValue),
		ChangedAt: w.ChangedAt,
		ChangedBy: firstNonEmpty(w.ChangedBy, w.NativeChangedBy),
	}
	switch {
	case w.ID != nil:
		h.ID = *w.ID
	case w.NativeID != nil:
		h.ID = *w.NativeID
	}
	if h.ChangedAt.IsZero() {
		h.ChangedAt = w.NativeChangedAt
	}
	return nil
}

// ChangedByLabel returns the author for display, "system" when unknown.
func (h HistoryEntry) ChangedByLabel() string {
	if h.ChangedBy == "" {
		return "system"
	}
	return h.ChangedBy
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonNil(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}
