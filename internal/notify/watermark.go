package notify

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/nhle/tasys/internal/model"
	"github.com/nhle/tasys/internal/store"
)

// WatermarkStore owns the last-viewed watermarks and persists them through
// a KV. It is not safe for concurrent use; the root model is its only
// writer.
type WatermarkStore struct {
	kv    store.KV
	now   func() time.Time
	marks model.Watermarks
}

// WatermarkOption customizes a WatermarkStore.
type WatermarkOption func(*WatermarkStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) WatermarkOption {
	return func(s *WatermarkStore) { s.now = now }
}

// LoadWatermarks reads both watermarks from kv. Missing, unreadable or
// malformed values load as 0 and are logged.
func LoadWatermarks(ctx context.Context, kv store.KV, opts ...WatermarkOption) *WatermarkStore {
	s := &WatermarkStore{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	for _, c := range model.Categories {
		s.marks = s.marks.With(c, s.load(ctx, c))
	}
	return s
}

func (s *WatermarkStore) load(ctx context.Context, c model.Category) int64 {
	key := c.StorageKey()
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		log.Printf("loading watermark %s: %v", key, err)
		return 0
	}
	if !ok {
		return 0
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		log.Printf("ignoring malformed watermark %s=%q", key, raw)
		return 0
	}
	return v
}

// Current returns a copy of both watermarks.
func (s *WatermarkStore) Current() model.Watermarks {
	return s.marks
}

// Get returns the watermark for c.
func (s *WatermarkStore) Get(c model.Category) int64 {
	return s.marks.Get(c)
}

// MarkViewed advances the watermark for c to now and persists it. The
// watermark never moves backwards: if the clock reads earlier than the
// stored value, the stored value is kept. The in-memory value advances
// even when persisting fails; the error is still returned.
func (s *WatermarkStore) MarkViewed(ctx context.Context, c model.Category) (int64, error) {
	if c.StorageKey() == "" {
		return 0, fmt.Errorf("marking viewed: unknown category %q", c)
	}

	next := s.now().UnixMilli()
	if cur := s.marks.Get(c); cur > next {
		next = cur
	}
	s.marks = s.marks.With(c, next)

	if err := s.kv.Set(ctx, c.StorageKey(), strconv.FormatInt(next, 10)); err != nil {
		return next, fmt.Errorf("persisting watermark %s: %w", c.StorageKey(), err)
	}
	return next, nil
}
