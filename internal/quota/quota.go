package quota

import (
	"sync"
	"time"
)

// Limit is the budget for one named resource.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a TryConsume call.
type Decision struct {
	Permitted bool
	Remaining int
	ResetIn   time.Duration
}

// ResourceStatus is a read-only view of one resource's window,
// surfaced on the status endpoint.
type ResourceStatus struct {
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

type window struct {
	start time.Time
	count int
}

// Tracker counts consumption against fixed rolling windows, one per
// named resource. Resources without a configured limit are unmetered.
type Tracker struct {
	mu      sync.Mutex
	limits  map[string]Limit
	windows map[string]*window

	nowFunc func() time.Time // for testing
}

// New creates a Tracker with the given per-resource limits.
func New(limits map[string]Limit) *Tracker {
	if limits == nil {
		limits = make(map[string]Limit)
	}
	return &Tracker{
		limits:  limits,
		windows: make(map[string]*window),
		nowFunc: time.Now,
	}
}

// TryConsume attempts to consume amount units of the resource's budget.
// The window roll, the limit check, and the count update happen under
// one lock so concurrent callers cannot overshoot the limit.
// A denied attempt leaves the count unchanged.
func (t *Tracker) TryConsume(resource string, amount int) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	lim, ok := t.limits[resource]
	if !ok || lim.Limit <= 0 || lim.Window <= 0 {
		return Decision{Permitted: true}
	}

	now := t.nowFunc()
	w, ok := t.windows[resource]
	if !ok {
		w = &window{start: now}
		t.windows[resource] = w
	}

	// Roll the window before evaluating.
	if now.Sub(w.start) >= lim.Window {
		w.start = now
		w.count = 0
	}

	resetIn := lim.Window - now.Sub(w.start)

	if w.count+amount <= lim.Limit {
		w.count += amount
		return Decision{
			Permitted: true,
			Remaining: lim.Limit - w.count,
			ResetIn:   resetIn,
		}
	}

	remaining := lim.Limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Permitted: false,
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}

// Status reports the current window of every metered resource without
// consuming anything.
func (t *Tracker) Status() map[string]ResourceStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	out := make(map[string]ResourceStatus, len(t.limits))
	for name, lim := range t.limits {
		st := ResourceStatus{Limit: lim.Limit, Remaining: lim.Limit}
		if w, ok := t.windows[name]; ok && now.Sub(w.start) < lim.Window {
			st.Remaining = lim.Limit - w.count
			if st.Remaining < 0 {
				st.Remaining = 0
			}
			st.ResetIn = lim.Window - now.Sub(w.start)
		}
		out[name] = st
	}
	return out
}
