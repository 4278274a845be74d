package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTaskDecode(t *testing.T) {
	raw := `{
		"id_tarea": 7,
		"titulo": "Write report",
		"descripcion": "",
		"fecha_limite": "2024-01-01T00:00:00.000Z",
		"prioridad": "Alta",
		"estado": "Vencida",
		"categoria": "work",
		"id_tarea_padre": 3,
		"tarea_padre_titulo": "Quarterly",
		"fecha_creacion": "2023-12-20 09:30:00",
		"fecha_actualizacion": null
	}`

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if task.ID != 7 || task.Title != "Write report" {
		t.Errorf("got id=%d title=%q", task.ID, task.Title)
	}
	if task.ParentID == nil || *task.ParentID != 3 {
		t.Errorf("ParentID = %v, want 3", task.ParentID)
	}
	if got := task.DueDate.String(); got != "2024-01-01" {
		t.Errorf("DueDate = %q, want 2024-01-01", got)
	}
	want := time.Date(2023, 12, 20, 9, 30, 0, 0, time.UTC)
	if !task.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", task.CreatedAt, want)
	}
	if !task.UpdatedAt.IsZero() {
		t.Errorf("UpdatedAt = %v, want zero", task.UpdatedAt)
	}
	if task.ParentLabel() != "Quarterly" {
		t.Errorf("ParentLabel() = %q", task.ParentLabel())
	}
}

func TestTaskDecodeToleratesGarbageTime(t *testing.T) {
	var tasks []Task
	body := `[
		{"id_tarea": 1, "fecha_limite": "2024-01-01"},
		{"id_tarea": 2, "fecha_limite": "soon", "fecha_actualizacion": "Mon Jan 15 2024"}
	]`
	if err := json.Unmarshal([]byte(body), &tasks); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("decoded %d tasks, want 2", len(tasks))
	}
	if tasks[0].UpdatedAt.Malformed() {
		t.Error("absent UpdatedAt reported as malformed")
	}
	bad := tasks[1]
	if !bad.UpdatedAt.IsZero() || !bad.UpdatedAt.Malformed() {
		t.Errorf("UpdatedAt = %v (malformed %v), want zero and malformed", bad.UpdatedAt, bad.UpdatedAt.Malformed())
	}
	if !bad.DueDate.IsZero() {
		t.Errorf("DueDate = %v, want zero", bad.DueDate)
	}
}

func TestTaskInputEncode(t *testing.T) {
	parent := int64(4)
	due, err := ParseDate("2025-03-09")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	in := TaskInput{
		Title:    "Ship",
		DueDate:  due,
		Priority: PriorityHigh,
		Status:   StatusPending,
		Category: "ops",
		ParentID: &parent,
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)
	for _, want := range []string{
		`"titulo":"Ship"`,
		`"fecha_limite":"2025-03-09"`,
		`"tarea_padre_id":4`,
		`"prioridad":"Alta"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
}

func TestTaskInputValidate(t *testing.T) {
	due, _ := ParseDate("2025-01-01")
	valid := TaskInput{
		Title:    "a",
		DueDate:  due,
		Priority: PriorityMedium,
		Status:   StatusPending,
		Category: "home",
	}

	tests := []struct {
		name      string
		mutate    func(in *TaskInput)
		wantField string
	}{
		{"valid", func(*TaskInput) {}, ""},
		{"missing title", func(in *TaskInput) { in.Title = "  " }, "titulo"},
		{"missing due date", func(in *TaskInput) { in.DueDate = Date{} }, "fecha_limite"},
		{"missing category", func(in *TaskInput) { in.Category = "" }, "categoria"},
		{"unknown priority", func(in *TaskInput) { in.Priority = "Urgent" }, "prioridad"},
		{"unknown status", func(in *TaskInput) { in.Status = "Done" }, "estado"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := in.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestValidateDependency(t *testing.T) {
	p := func(v int64) *int64 { return &v }
	snapshot := []Task{
		{ID: 1},
		{ID: 2, ParentID: p(1)},
		{ID: 3, ParentID: p(2)},
		{ID: 4},
	}

	tests := []struct {
		name    string
		child   int64
		parent  int64
		wantErr error
	}{
		{"ok", 4, 3, nil},
		{"self", 2, 2, ErrSelfDependency},
		{"missing child", 0, 2, ErrMissingDependency},
		{"missing parent", 2, 0, ErrMissingDependency},
		{"cycle through ancestors", 1, 3, ErrDependencyCycle},
		{"reparent leaf", 3, 4, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDependency(tt.child, tt.parent, snapshot)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateDependency() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateDependency() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHistoryEntryDecode(t *testing.T) {
	t.Run("documented names", func(t *testing.T) {
		var h HistoryEntry
		raw := `{"id": 1, "field": "estado", "old_value": "Pendiente", "new_value": "Completada",
			"changed_at": "2024-05-01T10:00:00Z", "changed_by": "ana"}`
		if err := json.Unmarshal([]byte(raw), &h); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if h.ID != 1 || h.Field != "estado" || h.NewValue != "Completada" || h.ChangedBy != "ana" {
			t.Errorf("got %+v", h)
		}
		if h.ChangedAt.IsZero() {
			t.Error("ChangedAt not decoded")
		}
	})

	t.Run("server names", func(t *testing.T) {
		var h HistoryEntry
		raw := `{"id_historial": 9, "campo_modificado": "titulo", "valor_anterior": "a",
			"valor_nuevo": "b", "fecha_cambio": "2024-05-01 10:00:00", "usuario_cambio": null}`
		if err := json.Unmarshal([]byte(raw), &h); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if h.ID != 9 || h.Field != "titulo" || h.OldValue != "a" || h.NewValue != "b" {
			t.Errorf("got %+v", h)
		}
		if h.ChangedByLabel() != "system" {
			t.Errorf("ChangedByLabel() = %q, want system", h.ChangedByLabel())
		}
	})
}
