package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/nhle/tasys/internal/model"
)

type stubSource struct {
	mu      gosync.Mutex
	calls   int
	gate    chan struct{}
	entered chan struct{}
	listErr error
	ovErr   error
}

func (s *stubSource) ListTasks(ctx context.Context) ([]model.Task, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	s.mu.Unlock()

	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []model.Task{{ID: 1, Title: "one"}}, nil
}

func (s *stubSource) ListOverdue(ctx context.Context) ([]model.Task, error) {
	if s.ovErr != nil {
		return nil, s.ovErr
	}
	return []model.Task{{ID: 1}}, nil
}

func (s *stubSource) ListNewlyCreated(ctx context.Context) ([]model.Task, error) {
	return []model.Task{{ID: 1}, {ID: 2}}, nil
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func waitResult(t *testing.T, r *Refresher) RefreshResultMsg {
	t.Helper()
	done := make(chan RefreshResultMsg, 1)
	go func() { done <- r.WaitForNextResult()().(RefreshResultMsg) }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for refresh result")
		return RefreshResultMsg{}
	}
}

func TestStartRefreshesOnce(t *testing.T) {
	src := &stubSource{}
	r := New(src)
	defer r.Stop()

	cmd := r.Start()
	if cmd == nil {
		t.Fatal("Start returned nil cmd")
	}
	msg := cmd().(RefreshResultMsg)

	if msg.Error != nil {
		t.Fatalf("Error = %v", msg.Error)
	}
	if len(msg.Reasons) != 1 || msg.Reasons[0] != ReasonStartup {
		t.Errorf("Reasons = %v", msg.Reasons)
	}
	if len(msg.Tasks) != 1 || len(msg.Overdue) != 1 || len(msg.NewlyCreated) != 2 {
		t.Errorf("msg = %+v", msg)
	}
	if st := r.Status(); st.State != RefreshIdle || st.LastSync.IsZero() {
		t.Errorf("Status = %+v", st)
	}
	if r.Start() != nil {
		t.Error("second Start should be a no-op")
	}
}

func TestTriggersCoalesceWhileRunning(t *testing.T) {
	src := &stubSource{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 4),
	}
	r := New(src)
	defer r.Stop()
	r.Start()

	// First refresh is now blocked inside ListTasks.
	<-src.entered
	r.Trigger(ReasonMutation)
	r.Trigger(ReasonManual)
	r.Trigger(ReasonMutation)

	close(src.gate)
	first := waitResult(t, r)
	second := waitResult(t, r)

	if len(first.Reasons) != 1 || first.Reasons[0] != ReasonStartup {
		t.Errorf("first Reasons = %v", first.Reasons)
	}
	want := []string{ReasonMutation, ReasonManual, ReasonMutation}
	if len(second.Reasons) != len(want) {
		t.Fatalf("second Reasons = %v, want %v", second.Reasons, want)
	}
	for i := range want {
		if second.Reasons[i] != want[i] {
			t.Errorf("second Reasons[%d] = %q, want %q", i, second.Reasons[i], want[i])
		}
	}
	if got := src.callCount(); got != 2 {
		t.Errorf("ListTasks calls = %d, want 2", got)
	}
}

func TestRefreshErrorKeepsCandidateSetsFailOpen(t *testing.T) {
	src := &stubSource{
		listErr: errors.New("connection refused"),
		ovErr:   errors.New("connection refused"),
	}
	r := New(src)
	defer r.Stop()

	msg := r.Start()().(RefreshResultMsg)
	if msg.Error == nil {
		t.Fatal("expected snapshot error")
	}
	if msg.Overdue != nil {
		t.Errorf("Overdue = %v, want nil on failure", msg.Overdue)
	}
	if len(msg.NewlyCreated) != 2 {
		t.Errorf("NewlyCreated = %v", msg.NewlyCreated)
	}
	if st := r.Status(); st.State != RefreshError || st.Error == nil {
		t.Errorf("Status = %+v", st)
	}
}

func TestRefreshStateString(t *testing.T) {
	if RefreshIdle.String() != "idle" || RefreshRunning.String() != "syncing" || RefreshError.String() != "error" {
		t.Error("unexpected state labels")
	}
}
