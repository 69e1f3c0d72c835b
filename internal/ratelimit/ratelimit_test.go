package ratelimit

import (
	"testing"
	"time"
)

// fakeClock drives the limiter's notion of now in tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(intervals map[string]time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 2, 19, 6, 0, 0, 0, time.UTC)}
	l := New(intervals)
	l.nowFunc = clock.Now
	return l, clock
}

func TestAllowFirstCallPermitted(t *testing.T) {
	l, _ := newTestLimiter(map[string]time.Duration{"metocean": 2 * time.Second})

	d := l.Allow("metocean")
	if !d.Permitted {
		t.Fatal("first call should be permitted")
	}
	if d.RetryAfter != 0 {
		t.Fatalf("expected zero retry-after, got %v", d.RetryAfter)
	}
}

func TestAllowWithinIntervalDenied(t *testing.T) {
	l, clock := newTestLimiter(map[string]time.Duration{"metocean": 2 * time.Second})

	l.Allow("metocean")
	clock.Advance(500 * time.Millisecond)

	d := l.Allow("metocean")
	if d.Permitted {
		t.Fatal("call within min interval should be denied")
	}
	if d.RetryAfter != 1500*time.Millisecond {
		t.Fatalf("expected retry-after 1.5s, got %v", d.RetryAfter)
	}
}

func TestAllowAfterIntervalPermitted(t *testing.T) {
	l, clock := newTestLimiter(map[string]time.Duration{"niwa-tide": time.Second})

	l.Allow("niwa-tide")
	clock.Advance(time.Second)

	if d := l.Allow("niwa-tide"); !d.Permitted {
		t.Fatalf("call after min interval should be permitted, retry-after %v", d.RetryAfter)
	}
}

// A denied check must not record a timestamp, otherwise rapid checks
// would keep pushing the window forward and starve the caller.
func TestDeniedCheckDoesNotExtendWindow(t *testing.T) {
	l, clock := newTestLimiter(map[string]time.Duration{"metocean": 2 * time.Second})

	l.Allow("metocean")

	for i := 0; i < 3; i++ {
		clock.Advance(500 * time.Millisecond)
		if d := l.Allow("metocean"); d.Permitted {
			t.Fatalf("check %d should have been denied", i)
		}
	}

	clock.Advance(500 * time.Millisecond) // 2s since the one permitted call
	if d := l.Allow("metocean"); !d.Permitted {
		t.Fatalf("expected permission 2s after last permitted call, retry-after %v", d.RetryAfter)
	}
}

func TestProvidersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(map[string]time.Duration{
		"metocean":  2 * time.Second,
		"niwa-tide": time.Second,
	})

	l.Allow("metocean")
	if d := l.Allow("niwa-tide"); !d.Permitted {
		t.Fatal("metocean call must not throttle niwa-tide")
	}
}

func TestUnconfiguredProviderNeverThrottled(t *testing.T) {
	l, _ := newTestLimiter(map[string]time.Duration{"metocean": 2 * time.Second})

	for i := 0; i < 5; i++ {
		if d := l.Allow("manual-cache"); !d.Permitted {
			t.Fatal("provider without interval should never be throttled")
		}
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	l, clock := newTestLimiter(map[string]time.Duration{"metocean": 2 * time.Second})

	if wait := l.Peek("metocean"); wait != 0 {
		t.Fatalf("untouched provider should have zero wait, got %v", wait)
	}

	l.Allow("metocean")
	clock.Advance(time.Second)

	if wait := l.Peek("metocean"); wait != time.Second {
		t.Fatalf("expected 1s wait, got %v", wait)
	}

	// Peek must not have recorded anything.
	clock.Advance(time.Second)
	if d := l.Allow("metocean"); !d.Permitted {
		t.Fatal("peek should not consume the slot")
	}
}
