// Package ratelimit implements the per-provider sliding-window request
// limiter used to gate access to rate-limited transcription and synthesis
// backends.
//
// A Window retains the timestamps of recent dispatches. Allow purges entries
// older than the window before comparing the retained count to the limit;
// Record appends the current time and is called only after a request is
// actually dispatched, so skipped or failed-before-dispatch attempts never
// consume budget.
//
// All methods are safe for concurrent use; the window is the only state
// shared between concurrent pipeline runs.
package ratelimit

import (
	"sync"
	"time"
)

// Window is a sliding-window rate limiter.
type Window struct {
	mu          sync.Mutex
	maxRequests int
	interval    time.Duration
	stamps      []time.Time

	// now is injectable for tests.
	now func() time.Time
}

// NewWindow creates a limiter allowing maxRequests dispatches per interval.
// maxRequests <= 0 disables limiting (Allow always true).
func NewWindow(maxRequests int, interval time.Duration) *Window {
	return &Window{
		maxRequests: maxRequests,
		interval:    interval,
		now:         time.Now,
	}
}

// Allow reports whether another request may be dispatched right now. Expired
// timestamps are purged before the capacity check.
func (w *Window) Allow() bool {
	if w.maxRequests <= 0 {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.purge(w.now())
	return len(w.stamps) < w.maxRequests
}

// Record notes that a request has been dispatched. Call it after the request
// goes on the wire, never on a mere attempt.
func (w *Window) Record() {
	if w.maxRequests <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	w.purge(now)
	w.stamps = append(w.stamps, now)
}

// Remaining returns how many dispatches are left in the current window.
func (w *Window) Remaining() int {
	if w.maxRequests <= 0 {
		return -1
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.purge(w.now())
	return w.maxRequests - len(w.stamps)
}

// ResetAt returns the instant the oldest retained dispatch expires — the
// earliest time a currently-exhausted window can admit a request again. The
// zero time means the window is empty.
func (w *Window) ResetAt() time.Time {
	if w.maxRequests <= 0 {
		return time.Time{}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.purge(w.now())
	if len(w.stamps) == 0 {
		return time.Time{}
	}
	return w.stamps[0].Add(w.interval)
}

// purge drops timestamps older than the window. Must be called with w.mu
// held. Survivors are copied to a fresh backing array so evicted entries do
// not pin memory.
func (w *Window) purge(now time.Time) {
	cutoff := now.Add(-w.interval)
	start := 0
	for start < len(w.stamps) && !w.stamps[start].After(cutoff) {
		start++
	}
	if start == 0 {
		return
	}
	keep := make([]time.Time, len(w.stamps)-start)
	copy(keep, w.stamps[start:])
	w.stamps = keep
}

// SetNow replaces the clock. Test helper; not for production use.
func (w *Window) SetNow(now func() time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
}
