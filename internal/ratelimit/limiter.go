// Package ratelimit implements a fixed-window request limiter. Window state
// lives behind the Store interface so the process-local store can be swapped
// for a shared one without touching the decision logic.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// DefaultRetryAfter is reported when the window reset time is unknown.
const DefaultRetryAfter = 60

// Window is the state of one identity's current window.
type Window struct {
	Count   int64
	Start   time.Time
	ResetAt time.Time
}

// Store records hits per identity. Hit must atomically either open a new
// window with Count 1 (no window, or the previous one elapsed) or increment
// the current one, and return the result.
type Store interface {
	Hit(ctx context.Context, identity string, window time.Duration) (Window, error)
}

type Decision struct {
	Allowed   bool
	Count     int64
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window resets.
func (d Decision) RetryAfter(now time.Time) int {
	if d.ResetAt.IsZero() {
		return DefaultRetryAfter
	}
	secs := int(math.Ceil(d.ResetAt.Sub(now).Seconds()))
	if secs < 0 {
		return 0
	}
	return secs
}

type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

func New(store Store, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{store: store, limit: limit, window: window}
}

func (l *Limiter) Limit() int {
	return l.limit
}

func (l *Limiter) Window() time.Duration {
	return l.window
}

// Allow counts one request for identity. A request is rejected once the
// window count exceeds the limit.
func (l *Limiter) Allow(ctx context.Context, identity string) (Decision, error) {
	w, err := l.store.Hit(ctx, identity, l.window)
	if err != nil {
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}, err
	}

	remaining := l.limit - int(w.Count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   w.Count <= int64(l.limit),
		Count:     w.Count,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   w.ResetAt,
	}, nil
}
