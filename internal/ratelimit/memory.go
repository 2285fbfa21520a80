package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/invoicer/internal/clock"
)

// sweepEvery bounds how many calls pass between removals of expired windows.
const sweepEvery = 1024

type window struct {
	start time.Time
	count int
}

// FixedWindow counts requests per key in aligned windows, in process.
type FixedWindow struct {
	clock clock.Clock

	mu      sync.Mutex
	windows map[string]*window
	calls   int
}

func NewFixedWindow(clk clock.Clock) *FixedWindow {
	return &FixedWindow{
		clock:   clk,
		windows: map[string]*window{},
	}
}

func (f *FixedWindow) Allow(_ context.Context, key string, limit int, size time.Duration) (*Result, error) {
	if err := validate(key, limit, size); err != nil {
		return &Result{Allowed: false}, err
	}

	now := f.clock.Now()
	start := now.Truncate(size)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.calls%sweepEvery == 0 {
		f.sweep(start)
	}

	w, ok := f.windows[key]
	if !ok || !w.start.Equal(start) {
		w = &window{start: start}
		f.windows[key] = w
	}

	if w.count >= limit {
		return &Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			RetryAfter: start.Add(size).Sub(now),
		}, nil
	}

	w.count++
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - w.count,
	}, nil
}

func (f *FixedWindow) sweep(current time.Time) {
	for key, w := range f.windows {
		if w.start.Before(current) {
			delete(f.windows, key)
		}
	}
}
