// Package ratelimit implements a sliding-window admission counter.
package ratelimit

import (
	"sync"
	"time"
)

// Span is the length of the sliding window.
const Span = time.Minute

// Window admits at most limit events in any trailing Span.
// Unlike a token bucket, bursts inside the window are capped by count only.
type Window struct {
	mu     sync.Mutex
	limit  int
	stamps []time.Time
	now    func() time.Time
}

func NewWindow(limit int) *Window {
	return &Window{limit: limit, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (w *Window) WithClock(now func() time.Time) *Window {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
	return w
}

// Admit prunes stamps older than Span and records now if the window has room.
// A rejected call leaves no trace.
func (w *Window) Admit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)
	if len(w.stamps) >= w.limit {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

func (w *Window) prune(now time.Time) {
	keep := 0
	for _, t := range w.stamps {
		if now.Sub(t) < Span {
			w.stamps[keep] = t
			keep++
		}
	}
	clear(w.stamps[keep:])
	w.stamps = w.stamps[:keep]
}

// SetLimit changes the per-window cap. Already-recorded stamps stay.
func (w *Window) SetLimit(limit int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.limit = limit
}

func (w *Window) Limit() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.limit
}

// Len returns the number of admissions inside the current window.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.stamps)
}

func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stamps = nil
}
