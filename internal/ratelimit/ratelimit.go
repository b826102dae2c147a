// Package ratelimit throttles attempt submissions per key over fixed windows.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter decides whether one more event for key is allowed now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Unlimited allows everything.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is an in-process fixed-window limiter. Each instance owns its
// own counters; nothing is shared between instances.
type MemoryLimiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]window
}

// NewMemoryLimiter allows limit events per key in each period.
// A limit of zero or less disables limiting.
func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]window),
	}
}

// WithClock replaces the limiter's time source.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("rate limit key is required")
	}
	if l.limit <= 0 || l.period <= 0 {
		return true, nil
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		l.sweep(now)
		w = window{start: now}
	}
	if w.count >= l.limit {
		l.windows[key] = w
		return false, nil
	}
	w.count++
	l.windows[key] = w
	return true, nil
}

// sweep drops expired windows. Caller holds mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.period {
			delete(l.windows, k)
		}
	}
}

// Key builds the limiter key for a user's submissions.
func Key(userID string) string {
	return "user:" + userID
}
