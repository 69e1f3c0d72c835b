package cache

import (
	"encoding/json"
	"sync"
	"time"
)

// Entry is one cached payload. Entries are immutable once written; a
// later Put for the same key replaces the entry wholesale.
type Entry struct {
	Value     json.RawMessage
	FetchedAt time.Time
	ExpiresAt time.Time
	Source    string
}

// Expired reports whether the entry is past its TTL at the given time.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TTLCache is a concurrency-safe key -> (value, expiry) store. Expired
// entries read as misses but are retained until swept or overwritten,
// so they can still be served as a stale last resort.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]Entry

	nowFunc func() time.Time // for testing
}

// New creates an empty TTLCache.
func New() *TTLCache {
	return &TTLCache{
		entries: make(map[string]Entry),
		nowFunc: time.Now,
	}
}

// Get returns the live entry for key. An expired entry is a miss.
func (c *TTLCache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.Expired(c.nowFunc()) {
		return Entry{}, false
	}
	return e, true
}

// GetStale returns the entry for key regardless of expiry. Used only
// when every provider has failed and stale data beats no data.
func (c *TTLCache) GetStale(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	return e, ok
}

// Put stores value under key with the given TTL, unconditionally
// replacing any existing entry. A non-positive TTL stores nothing.
func (c *TTLCache) Put(key string, value json.RawMessage, source string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	now := c.nowFunc()
	c.mu.Lock()
	c.entries[key] = Entry{
		Value:     value,
		FetchedAt: now,
		ExpiresAt: now.Add(ttl),
		Source:    source,
	}
	c.mu.Unlock()
}

// Invalidate removes the entry for key regardless of expiry state,
// e.g. after the manual fallback file has been edited in place.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Sweep drops entries that expired more than maxStale ago and are
// therefore no longer worth keeping for stale rescue. It returns the
// number of entries removed. maxStale <= 0 drops every expired entry.
func (c *TTLCache) Sweep(maxStale time.Duration) int {
	now := c.nowFunc()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if e.Expired(now) && now.Sub(e.ExpiresAt) >= maxStale {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired included.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
