package history

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tasys/internal/keys"
	"github.com/nhle/tasys/internal/model"
)

func TestEnterRequestsHistory(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 30)
	m.SetTasks([]model.Task{{ID: 4, Title: "a"}, {ID: 7, Title: "b"}})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("no request")
	}
	if req, ok := cmd().(RequestMsg); !ok || req.TaskID != 7 {
		t.Fatalf("msg = %#v", req)
	}
	if m.TaskID() != 7 {
		t.Errorf("TaskID = %d", m.TaskID())
	}
}

func TestSetEntriesIgnoresOtherTask(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 30)
	m.SetTasks([]model.Task{{ID: 4, Title: "a"}})
	m.Open(4)

	m.SetEntries(5, []model.HistoryEntry{{Field: "estado"}}, nil)
	if len(m.Entries()) != 0 {
		t.Fatal("entries for another task applied")
	}

	entries := []model.HistoryEntry{
		{Field: "estado", OldValue: "Pendiente", NewValue: "Completada", ChangedAt: model.NewTimestamp(time.Now())},
	}
	m.SetEntries(4, entries, nil)
	if len(m.Entries()) != 1 {
		t.Errorf("entries = %d", len(m.Entries()))
	}
	if got := len(m.table.Rows()); got != 1 {
		t.Errorf("rows = %d", got)
	}
	if m.table.Rows()[0][4] != "system" {
		t.Errorf("changed by = %q", m.table.Rows()[0][4])
	}
}

func TestEscReturnsToPickerThenCloses(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 30)
	m.SetTasks([]model.Task{{ID: 4, Title: "a"}})
	m.Open(4)
	m.SetEntries(4, nil, errors.New("not found"))

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil {
		t.Fatal("first esc should only leave the table")
	}
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("second esc should close")
	}
	if _, ok := cmd().(CloseMsg); !ok {
		t.Error("expected CloseMsg")
	}
}
