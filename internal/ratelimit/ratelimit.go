package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of a single Allow check.
type Decision struct {
	Permitted  bool
	RetryAfter time.Duration
}

// Limiter enforces a minimum interval between requests per provider.
// It only decides; it never blocks. Callers choose whether to wait,
// skip to another provider, or surface the retry-after to the user.
type Limiter struct {
	mu        sync.Mutex
	intervals map[string]time.Duration
	last      map[string]time.Time

	nowFunc func() time.Time // for testing
}

// New creates a Limiter with per-provider minimum intervals.
// Providers without a configured interval are never throttled.
func New(intervals map[string]time.Duration) *Limiter {
	if intervals == nil {
		intervals = make(map[string]time.Duration)
	}
	return &Limiter{
		intervals: intervals,
		last:      make(map[string]time.Time),
		nowFunc:   time.Now,
	}
}

// Allow reports whether a request to the provider may proceed now.
// A permitted check records the request time; a denied check records
// nothing, so rapid re-checks cannot keep extending the window.
func (l *Limiter) Allow(provider string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	min, ok := l.intervals[provider]
	if !ok || min <= 0 {
		return Decision{Permitted: true}
	}

	now := l.nowFunc()
	last, seen := l.last[provider]
	if !seen || now.Sub(last) >= min {
		l.last[provider] = now
		return Decision{Permitted: true}
	}

	return Decision{
		Permitted:  false,
		RetryAfter: min - now.Sub(last),
	}
}

// Peek returns the wait a provider call would incur right now, without
// consuming the slot. Zero means a call would be permitted.
func (l *Limiter) Peek(provider string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	min, ok := l.intervals[provider]
	if !ok || min <= 0 {
		return 0
	}

	last, seen := l.last[provider]
	if !seen {
		return 0
	}

	if wait := min - l.nowFunc().Sub(last); wait > 0 {
		return wait
	}
	return 0
}

// Providers returns the provider names with a configured interval.
func (l *Limiter) Providers() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.intervals))
	for name := range l.intervals {
		names = append(names, name)
	}
	return names
}
