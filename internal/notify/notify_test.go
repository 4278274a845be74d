package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/nhle/tasys/internal/api"
	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/store"
	"github.com/nhle/tasys/tests/testutil"
)

func ms(t time.Time) int64 { return t.UnixMilli() }

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRelevanceTime(t *testing.T) {
	due := mustDate(t, "2024-01-01")
	updated := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	withoutUpdate := model.Task{DueDate: due}
	if got := RelevanceTime(withoutUpdate); got != ms(due.Time) {
		t.Errorf("RelevanceTime without update = %d, want due date %d", got, ms(due.Time))
	}

	withUpdate := model.Task{DueDate: due, UpdatedAt: model.NewTimestamp(updated)}
	if got := RelevanceTime(withUpdate); got != ms(updated) {
		t.Errorf("RelevanceTime with update = %d, want %d", got, ms(updated))
	}
}

func TestMalformedUpdateTimeIsNotUnread(t *testing.T) {
	var tasks []model.Task
	body := `[
		{"id_tarea": 1, "fecha_limite": "2024-01-01"},
		{"id_tarea": 2, "fecha_limite": "2024-01-02", "fecha_actualizacion": "Mon Jan 15 2024"}
	]`
	if err := json.Unmarshal([]byte(body), &tasks); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := CountOverdueUnread(tasks, 0); got != 1 {
		t.Errorf("CountOverdueUnread = %d, want 1", got)
	}
}

func TestCountOverdueUnread(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: 1, DueDate: model.NewDate(base.AddDate(0, 0, -10))},
		{ID: 2, DueDate: model.NewDate(base.AddDate(0, 0, -10)), UpdatedAt: model.NewTimestamp(base.Add(time.Hour))},
		{ID: 3, DueDate: model.NewDate(base.AddDate(0, 0, -1))},
	}

	tests := []struct {
		name      string
		watermark int64
		want      int
	}{
		{"never viewed", 0, 3},
		{"before every relevance time", ms(base.AddDate(0, 0, -30)), 3},
		{"between", ms(base.AddDate(0, 0, -5)), 2},
		{"equal is not unread", ms(base.Add(time.Hour)), 0},
		{"after all", ms(base.AddDate(0, 0, 1)), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountOverdueUnread(tasks, tt.watermark); got != tt.want {
				t.Errorf("CountOverdueUnread(%d) = %d, want %d", tt.watermark, got, tt.want)
			}
		})
	}
}

func TestCountOverdueUnreadMatchesDefinition(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tasks []model.Task
	for i := 0; i < 20; i++ {
		task := model.Task{ID: int64(i + 1), DueDate: model.NewDate(base.AddDate(0, 0, i))}
		if i%3 == 0 {
			task.UpdatedAt = model.NewTimestamp(base.AddDate(0, 0, 40-i))
		}
		tasks = append(tasks, task)
	}

	for day := -1; day <= 45; day++ {
		w := ms(base.AddDate(0, 0, day))
		want := 0
		for _, task := range tasks {
			if RelevanceTime(task) > w {
				want++
			}
		}
		if got := CountOverdueUnread(tasks, w); got != want {
			t.Fatalf("day %d: got %d, want %d", day, got, want)
		}
	}
}

func TestCountNewUnread(t *testing.T) {
	now := time.Now()
	tasks := []model.Task{
		{ID: 1, CreatedAt: model.NewTimestamp(now.Add(-20 * time.Hour))},
		{ID: 2, CreatedAt: model.NewTimestamp(now.Add(-2 * time.Hour))},
		{ID: 3, CreatedAt: model.NewTimestamp(now.Add(-time.Minute))},
	}

	if got := CountNewUnread(tasks, 0); got != 3 {
		t.Errorf("watermark 0: got %d, want 3", got)
	}
	if got := CountNewUnread(tasks, ms(now.Add(-3*time.Hour))); got != 2 {
		t.Errorf("watermark 3h ago: got %d, want 2", got)
	}
	if got := CountNewUnread(tasks, ms(now)); got != 0 {
		t.Errorf("watermark now: got %d, want 0", got)
	}
	if got := CountNewUnread(nil, 0); got != 0 {
		t.Errorf("empty set: got %d, want 0", got)
	}
}

func TestLoadWatermarks(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryStore()
	kv.Set(ctx, "lastOverdueViewed", "1700000000000")
	kv.Set(ctx, "lastNewTasksViewed", "not-a-number")

	wm := LoadWatermarks(ctx, kv)
	if got := wm.Get(model.CategoryOverdue); got != 1700000000000 {
		t.Errorf("overdue = %d, want 1700000000000", got)
	}
	if got := wm.Get(model.CategoryNew); got != 0 {
		t.Errorf("malformed new watermark = %d, want 0", got)
	}

	empty := LoadWatermarks(ctx, store.NewMemoryStore())
	if empty.Current() != (model.Watermarks{}) {
		t.Errorf("fresh store watermarks = %+v, want zero", empty.Current())
	}
}

func TestMarkViewedPersistsAndSurvivesReload(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewTestStore(t)
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	wm := LoadWatermarks(ctx, kv, WithClock(func() time.Time { return now }))
	got, err := wm.MarkViewed(ctx, model.CategoryOverdue)
	if err != nil {
		t.Fatalf("MarkViewed: %v", err)
	}
	if got != ms(now) {
		t.Errorf("MarkViewed = %d, want %d", got, ms(now))
	}

	raw, ok, err := kv.Get(ctx, "lastOverdueViewed")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if raw != strconv.FormatInt(ms(now), 10) {
		t.Errorf("stored = %q", raw)
	}

	reloaded := LoadWatermarks(ctx, kv)
	if reloaded.Get(model.CategoryOverdue) != ms(now) {
		t.Errorf("reloaded = %d, want %d", reloaded.Get(model.CategoryOverdue), ms(now))
	}
	if reloaded.Get(model.CategoryNew) != 0 {
		t.Errorf("new watermark changed: %d", reloaded.Get(model.CategoryNew))
	}
}

func TestMarkViewedIsMonotonic(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	wm := LoadWatermarks(ctx, store.NewMemoryStore(), WithClock(func() time.Time { return clock }))

	steps := []time.Duration{time.Hour, -3 * time.Hour, time.Minute, -time.Second, 24 * time.Hour}
	prev := int64(0)
	for i, step := range steps {
		clock = clock.Add(step)
		got, err := wm.MarkViewed(ctx, model.CategoryNew)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got < prev {
			t.Fatalf("step %d: watermark went backwards: %d < %d", i, got, prev)
		}
		prev = got
	}
	if wm.Get(model.CategoryOverdue) != 0 {
		t.Error("overdue watermark moved while marking new")
	}
}

func TestMarkViewedUnknownCategory(t *testing.T) {
	wm := LoadWatermarks(context.Background(), store.NewMemoryStore())
	if _, err := wm.MarkViewed(context.Background(), model.Category("bogus")); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk gone")
}

func (failingKV) Set(context.Context, string, string) error {
	return errors.New("disk gone")
}

func TestMarkViewedAdvancesEvenWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	wm := LoadWatermarks(ctx, failingKV{}, WithClock(func() time.Time { return now }))

	got, err := wm.MarkViewed(ctx, model.CategoryOverdue)
	if err == nil {
		t.Fatal("expected persist error")
	}
	if got != ms(now) || wm.Get(model.CategoryOverdue) != ms(now) {
		t.Errorf("watermark = %d, want %d", wm.Get(model.CategoryOverdue), ms(now))
	}
}

func TestOverdueScenario(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t, model.Task{
		ID:       1,
		Title:    "file taxes",
		DueDate:  mustDate(t, "2024-01-01"),
		Priority: model.PriorityHigh,
		Status:   model.StatusOverdue,
		Category: "home",
	})
	counter := NewCounter(api.NewClient(fake.URL))
	wm := LoadWatermarks(ctx, store.NewMemoryStore())

	if got := counter.ComputeOverdueUnread(ctx, wm.Get(model.CategoryOverdue)); got != 1 {
		t.Fatalf("before viewing: got %d, want 1", got)
	}

	if _, err := wm.MarkViewed(ctx, model.CategoryOverdue); err != nil {
		t.Fatalf("MarkViewed: %v", err)
	}
	if got := counter.ComputeOverdueUnread(ctx, wm.Get(model.CategoryOverdue)); got != 0 {
		t.Errorf("after viewing: got %d, want 0", got)
	}
}

func TestMarkViewedZeroesNewBadge(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	fake := testutil.NewFakeAPI(t,
		model.Task{ID: 1, Title: "a", Status: model.StatusPending, CreatedAt: model.NewTimestamp(now.Add(-time.Hour))},
		model.Task{ID: 2, Title: "b", Status: model.StatusPending, CreatedAt: model.NewTimestamp(now.Add(-time.Minute))},
	)
	counter := NewCounter(api.NewClient(fake.URL))
	wm := LoadWatermarks(ctx, store.NewMemoryStore())

	created := counter.NewlyCreated(ctx)
	if got := CountNewUnread(created, wm.Get(model.CategoryNew)); got != 2 {
		t.Fatalf("before viewing: got %d, want 2", got)
	}
	wm.MarkViewed(ctx, model.CategoryNew)
	if got := CountNewUnread(created, wm.Get(model.CategoryNew)); got != 0 {
		t.Errorf("after viewing: got %d, want 0", got)
	}
}

func TestCounterFailsOpen(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t, model.Task{ID: 1, Status: model.StatusOverdue, CreatedAt: model.NewTimestamp(time.Now())})
	fake.Fail(http.MethodGet, "/api/tasks/overdue", http.StatusInternalServerError, "boom")
	fake.Fail(http.MethodGet, "/api/tasks/newly-created", http.StatusInternalServerError, "boom")
	counter := NewCounter(api.NewClient(fake.URL))

	if got := counter.ComputeOverdueUnread(ctx, 0); got != 0 {
		t.Errorf("overdue on 500 = %d, want 0", got)
	}
	if got := counter.ComputeNewUnread(ctx, 0); got != 0 {
		t.Errorf("new on 500 = %d, want 0", got)
	}

	unreachable := NewCounter(api.NewClient("http://127.0.0.1:1", api.WithTimeout(time.Second)))
	if got := unreachable.ComputeOverdueUnread(ctx, 0); got != 0 {
		t.Errorf("overdue unreachable = %d, want 0", got)
	}
}

func TestUnread(t *testing.T) {
	now := time.Now()
	overdue := []model.Task{{ID: 1, UpdatedAt: model.NewTimestamp(now)}}
	created := []model.Task{
		{ID: 2, CreatedAt: model.NewTimestamp(now)},
		{ID: 3, CreatedAt: model.NewTimestamp(now)},
	}

	c := Unread(overdue, created, model.Watermarks{})
	if c.Get(model.CategoryOverdue) != 1 || c.Get(model.CategoryNew) != 2 {
		t.Errorf("counts = %+v", c)
	}

	c = Unread(overdue, created, model.Watermarks{Overdue: ms(now), New: ms(now.Add(-time.Second))})
	if c != (Counts{Overdue: 0, New: 2}) {
		t.Errorf("counts = %+v", c)
	}
}
