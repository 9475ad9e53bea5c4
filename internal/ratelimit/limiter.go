// Package ratelimit implements a fixed-window per-connection message counter.
package ratelimit

import (
	"sync"
	"time"
)

type record struct {
	count   int
	resetAt time.Time
}

// Limiter tracks message counts per connection id in fixed one-second
// windows. Records reset lazily on check; Remove must be called when a
// connection is torn down so idle records do not accumulate.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	records map[string]*record
	now     func() time.Time
}

func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Second
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// Allow reports whether one more message from connID fits in its current
// window, counting it if so.
func (l *Limiter) Allow(connID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	r, ok := l.records[connID]
	if !ok || now.After(r.resetAt) {
		l.records[connID] = &record{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if r.count >= l.limit {
		return false
	}
	r.count++
	return true
}

// Remove drops the record for connID.
func (l *Limiter) Remove(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, connID)
}

// SetNow overrides the clock. Test hook.
func (l *Limiter) SetNow(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
