package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/notify"
)

// RefreshState represents the current state of the refresher.
type RefreshState int

const (
	RefreshIdle RefreshState = iota
	RefreshRunning
	RefreshError
)

func (s RefreshState) String() string {
	switch s {
	case RefreshRunning:
		return "syncing"
	case RefreshError:
		return "error"
	default:
		return "idle"
	}
}

// Status holds the refresher state shown in the header.
type Status struct {
	State    RefreshState
	LastSync time.Time
	Error    error
}

// Reasons a refresh was requested.
const (
	ReasonStartup  = "startup"
	ReasonMutation = "mutation"
	ReasonManual   = "manual"
	ReasonSettings = "settings"
)

// RefreshResultMsg is a tea.Msg sent when a refresh completes. Overdue and
// NewlyCreated have already failed open: a failed fetch leaves them nil.
type RefreshResultMsg struct {
	Reasons      []string
	Tasks        []model.Task
	Error        error
	Overdue      []model.Task
	NewlyCreated []model.Task
}

// Source is what the refresher reads from the task API.
type Source interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	notify.TaskLister
}

// fetchTimeout is the maximum time allowed for a single refresh.
const fetchTimeout = 30 * time.Second

// Refresher re-fetches the task snapshot and both notification candidate
// sets whenever it is triggered. There is no timer: refreshes happen only
// on Trigger. Triggers that arrive while a refresh is running collapse
// into a single follow-up refresh.
type Refresher struct {
	source  Source
	counter *notify.Counter

	resultCh  chan RefreshResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	pending []string
	status  Status
	running bool
}

// New creates a Refresher reading from src.
func New(src Source) *Refresher {
	return &Refresher{
		source:    src,
		counter:   notify.NewCounter(src),
		resultCh:  make(chan RefreshResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// SetSource swaps the API the next refresh reads from, e.g. after the base
// URL changed in settings.
func (r *Refresher) SetSource(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.source = src
	r.counter = notify.NewCounter(src)
}

// Start launches the refresh goroutine, queues the startup refresh, and
// returns a tea.Cmd waiting for the first result.
func (r *Refresher) Start() tea.Cmd {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()

	go r.loop()
	r.Trigger(ReasonStartup)

	return r.waitForResult()
}

// Stop halts the refresh goroutine. A refresh in flight still completes.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	close(r.stopCh)
	r.running = false
}

// Trigger requests a refresh. It never blocks.
func (r *Refresher) Trigger(reason string) {
	r.mu.Lock()
	r.pending = append(r.pending, reason)
	r.mu.Unlock()

	select {
	case r.triggerCh <- struct{}{}:
	default:
		// A refresh is already queued; it will pick up this reason.
	}
}

// Status returns the current refresher status.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Refresher) loop() {
	for {
		select {
		case <-r.stopCh:
			return
		case <-r.triggerCh:
			r.mu.Lock()
			reasons := r.pending
			r.pending = nil
			r.mu.Unlock()

			r.sendResult(r.refresh(reasons))
		}
	}
}

// refresh performs one fetch of the snapshot and candidate sets.
func (r *Refresher) refresh(reasons []string) RefreshResultMsg {
	r.mu.Lock()
	src, counter := r.source, r.counter
	r.status.State = RefreshRunning
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	msg := RefreshResultMsg{Reasons: reasons}
	msg.Tasks, msg.Error = src.ListTasks(ctx)
	msg.Overdue = counter.Overdue(ctx)
	msg.NewlyCreated = counter.NewlyCreated(ctx)

	r.mu.Lock()
	if msg.Error != nil {
		r.status.State = RefreshError
		r.status.Error = msg.Error
	} else {
		r.status = Status{State: RefreshIdle, LastSync: time.Now()}
	}
	r.mu.Unlock()

	return msg
}

// sendResult sends a RefreshResultMsg on the result channel without blocking.
func (r *Refresher) sendResult(msg RefreshResultMsg) {
	select {
	case r.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the refresher
	}
}

func (r *Refresher) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-r.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call it after handling each RefreshResultMsg to keep listening.
func (r *Refresher) WaitForNextResult() tea.Cmd {
	return r.waitForResult()
}
