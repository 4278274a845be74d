package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  Tasks ":  Tasks,
		"q":         Quit,
		"n":         NewTask,
		"new-tasks": NewTasks,
		"":          "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnterEmitsCommand(t *testing.T) {
	m := New(80, 20)
	for _, r := range "deps" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if got := cmd(); got != CommandMsg(Dependencies) {
		t.Errorf("msg = %v, want %q", got, Dependencies)
	}
}
