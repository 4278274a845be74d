package testutil

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/tasys/internal/model"
)

// Request is one call received by FakeAPI.
type Request struct {
	Method string
	Path   string
	Header http.Header
}

type failure struct {
	status  int
	message string
}

// FakeAPI is an in-process stand-in for the task-management service.
// It keeps tasks in memory, records every request, and can be told to
// fail specific routes.
type FakeAPI struct {
	URL string

	mu       sync.Mutex
	tasks    map[int64]model.Task
	history  map[int64][]model.HistoryEntry
	nextID   int64
	requests []Request
	failures map[string]failure
	now      func() time.Time
}

// NewFakeAPI starts a FakeAPI seeded with tasks. The server is closed when
// the test completes.
func NewFakeAPI(t *testing.T, seed ...model.Task) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		tasks:    make(map[int64]model.Task),
		history:  make(map[int64][]model.HistoryEntry),
		failures: make(map[string]failure),
		now:      time.Now,
	}
	f.Seed(seed...)

	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)
	f.URL = srv.URL

	return f
}

// Seed inserts or replaces tasks. Tasks without an id get the next one.
func (f *FakeAPI) Seed(tasks ...model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tasks {
		if t.ID == 0 {
			f.nextID++
			t.ID = f.nextID
		}
		if t.ID > f.nextID {
			f.nextID = t.ID
		}
		f.tasks[t.ID] = t
	}
}

// SetHistory replaces the change log returned for a task.
func (f *FakeAPI) SetHistory(id int64, entries []model.HistoryEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[id] = entries
}

// Fail makes method+path answer with status and a {"message"} body.
func (f *FakeAPI) Fail(method, path string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = failure{status: status, message: message}
}

// Requests returns a copy of every request received so far.
func (f *FakeAPI) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Task returns the stored task with id.
func (f *FakeAPI) Task(id int64) (model.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	return t, ok
}

func (f *FakeAPI) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(f.record)

	g := r.Group("/api/tasks")
	g.GET("", f.listTasks)
	g.POST("", f.createTask)
	g.GET("/overdue", f.listOverdue)
	g.GET("/newly-created", f.listNewlyCreated)
	g.PUT("/:id", f.updateTask)
	g.DELETE("/:id", f.deleteTask)
	g.GET("/:id/children", f.listChildren)
	g.PUT("/:id/set-parent", f.setParent)
	g.DELETE("/:id/remove-parent", f.removeParent)
	g.GET("/:id/history", f.getHistory)

	return r
}

// record logs the request and applies injected failures.
func (f *FakeAPI) record(c *gin.Context) {
	f.mu.Lock()
	f.requests = append(f.requests, Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Header: c.Request.Header.Clone(),
	})
	fail, ok := f.failures[c.Request.Method+" "+c.Request.URL.Path]
	f.mu.Unlock()

	if ok {
		c.AbortWithStatusJSON(fail.status, gin.H{"message": fail.message})
		return
	}
	c.Next()
}

func (f *FakeAPI) sorted(keep func(model.Task) bool) []model.Task {
	out := []model.Task{}
	for _, t := range f.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *FakeAPI) listTasks(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.JSON(http.StatusOK, f.sorted(func(model.Task) bool { return true }))
}

func (f *FakeAPI) listOverdue(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	c.JSON(http.StatusOK, f.sorted(func(t model.Task) bool {
		if t.Status == model.StatusOverdue {
			return true
		}
		return t.Status != model.StatusCompleted && !t.DueDate.IsZero() && t.DueDate.Before(now)
	}))
}

func (f *FakeAPI) listNewlyCreated(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := f.now().Add(-24 * time.Hour)
	c.JSON(http.StatusOK, f.sorted(func(t model.Task) bool {
		return t.CreatedAt.After(cutoff)
	}))
}

func (f *FakeAPI) createTask(c *gin.Context) {
	var in model.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if in.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "titulo is required"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	task := model.Task{ID: f.nextID, CreatedAt: model.NewTimestamp(f.now())}.Apply(in)
	if in.ParentID != nil {
		if parent, ok := f.tasks[*in.ParentID]; ok {
			task.ParentTitle = parent.Title
		}
	}
	f.tasks[task.ID] = task
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

func (f *FakeAPI) lookup(c *gin.Context) (model.Task, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid task id"})
		return model.Task{}, false
	}
	t, ok := f.tasks[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Tarea no encontrada"})
		return model.Task{}, false
	}
	return t, true
}

func (f *FakeAPI) updateTask(c *gin.Context) {
	var in model.Task
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.lookup(c)
	if !ok {
		return
	}

	updated := existing.Apply(in.Input())
	updated.UpdatedAt = model.NewTimestamp(f.now())
	if existing.Status != updated.Status {
		f.history[existing.ID] = append(f.history[existing.ID], model.HistoryEntry{
			ID:        int64(len(f.history[existing.ID]) + 1),
			Field:     "estado",
			OldValue:  existing.Status,
			NewValue:  updated.Status,
			ChangedAt: updated.UpdatedAt,
		})
	}
	f.tasks[existing.ID] = updated
	c.JSON(http.StatusOK, updated)
}

func (f *FakeAPI) deleteTask(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.lookup(c)
	if !ok {
		return
	}
	delete(f.tasks, t.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Tarea eliminada"})
}

func (f *FakeAPI) listChildren(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parent, ok := f.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, f.sorted(func(t model.Task) bool {
		return t.ParentID != nil && *t.ParentID == parent.ID
	}))
}

func (f *FakeAPI) setParent(c *gin.Context) {
	var body struct {
		ParentTaskID int64 `json:"parent_task_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	child, ok := f.lookup(c)
	if !ok {
		return
	}
	if body.ParentTaskID == child.ID {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Una tarea no puede depender de sí misma"})
		return
	}
	parent, ok := f.tasks[body.ParentTaskID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Tarea padre no encontrada"})
		return
	}

	pid := parent.ID
	child.ParentID = &pid
	child.ParentTitle = parent.Title
	f.tasks[child.ID] = child
	c.JSON(http.StatusOK, gin.H{"message": "Dependencia establecida"})
}

func (f *FakeAPI) removeParent(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	child, ok := f.lookup(c)
	if !ok {
		return
	}
	child.ParentID = nil
	child.ParentTitle = ""
	f.tasks[child.ID] = child
	c.JSON(http.StatusOK, gin.H{"message": "Dependencia eliminada"})
}

func (f *FakeAPI) getHistory(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.lookup(c)
	if !ok {
		return
	}
	entries := f.history[t.ID]
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	c.JSON(http.StatusOK, entries)
}
