package fetch

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/straitnav/marinefetch/internal/cache"
)

// Orchestrator composes the cache and the per-kind provider chains
// into the single Fetch entry point used by callers.
type Orchestrator struct {
	cache  *cache.TTLCache
	chains map[Kind]*Chain
	ttls   map[Kind]time.Duration
	group  singleflight.Group
}

// NewOrchestrator creates an Orchestrator over the given chains.
// ttls holds the cache TTL per data kind.
func NewOrchestrator(c *cache.TTLCache, chains map[Kind]*Chain, ttls map[Kind]time.Duration) *Orchestrator {
	return &Orchestrator{
		cache:  c,
		chains: chains,
		ttls:   ttls,
	}
}

// Fetch returns data for the request, serving from cache when a live
// entry exists and otherwise resolving the provider chain. Concurrent
// callers for the same key share a single in-flight resolve. When the
// whole chain fails, an expired entry is served flagged as stale; with
// no entry at all the ChainError propagates.
func (o *Orchestrator) Fetch(ctx context.Context, req Request) (Result, error) {
	chain, ok := o.chains[req.Kind]
	if !ok {
		return Result{}, ErrUnknownKind
	}

	key := req.Key()

	// Fast path: live cache hit touches no provider and no limiter.
	if e, ok := o.cache.Get(key); ok {
		return resultFromEntry(e, false), nil
	}

	v, err, _ := o.group.Do(key, func() (interface{}, error) {
		// A concurrent flight may have populated the cache while this
		// caller waited its turn.
		if e, ok := o.cache.Get(key); ok {
			return resultFromEntry(e, false), nil
		}

		value, source, err := chain.Resolve(ctx, req)
		if err != nil {
			if e, ok := o.cache.GetStale(key); ok {
				log.Printf("serving stale %s from %s: %v", key, e.Source, err)
				return resultFromEntry(e, true), nil
			}
			return nil, err
		}

		o.cache.Put(key, value, source, o.ttls[req.Kind])
		return Result{
			Value:     value,
			Source:    source,
			FetchedAt: time.Now().UTC(),
		}, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// Invalidate drops any cached entry for the request, expired or not.
// This is the explicit refresh path for externally maintained sources.
func (o *Orchestrator) Invalidate(req Request) {
	o.cache.Invalidate(req.Key())
}

func resultFromEntry(e cache.Entry, stale bool) Result {
	return Result{
		Value:     e.Value,
		Source:    e.Source,
		Stale:     stale,
		FetchedAt: e.FetchedAt,
	}
}
