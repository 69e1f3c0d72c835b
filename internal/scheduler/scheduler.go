package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/straitnav/marinefetch/internal/cache"
	"github.com/straitnav/marinefetch/internal/fetch"
	"github.com/straitnav/marinefetch/internal/location"
)

// Scheduler periodically pre-warms the cache for configured locations
// and sweeps expired entries that are past the stale-rescue horizon.
type Scheduler struct {
	scheduler    *gocron.Scheduler
	orchestrator *fetch.Orchestrator
	resolver     *location.Resolver
	cache        *cache.TTLCache

	locations []string
	interval  time.Duration
	maxStale  time.Duration
}

// New creates a new Scheduler.
func New(orchestrator *fetch.Orchestrator, resolver *location.Resolver, c *cache.TTLCache, locations []string, interval, maxStale time.Duration) *Scheduler {
	return &Scheduler{
		scheduler:    gocron.NewScheduler(time.UTC),
		orchestrator: orchestrator,
		resolver:     resolver,
		cache:        c,
		locations:    locations,
		interval:     interval,
		maxStale:     maxStale,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		s.warm()

		if removed := s.cache.Sweep(s.maxStale); removed > 0 {
			log.Printf("scheduler: swept %d rescue-exhausted cache entries", removed)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// warm fetches every configured (kind, location) pair through the
// orchestrator so interactive callers land on live cache entries.
// Results are discarded; failures are the chains' problem to diagnose.
func (s *Scheduler) warm() {
	if len(s.locations) == 0 {
		return
	}

	log.Println("scheduler: running cache warm job")

	date := time.Now().UTC().Format("2006-01-02")
	kinds := []struct {
		kind fetch.Kind
		days int
	}{
		{fetch.KindMarine, 2},
		{fetch.KindTides, 2},
		{fetch.KindBiteTimes, 7},
	}

	var wg sync.WaitGroup
	for _, loc := range s.locations {
		place, err := s.resolver.Resolve(loc)
		if err != nil {
			log.Printf("scheduler: skipping unknown warm location %q: %v", loc, err)
			continue
		}

		for _, k := range kinds {
			k := k
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				req := fetch.Request{
					Kind:     k.kind,
					Location: place.Name,
					Lat:      place.Lat,
					Lon:      place.Lon,
					Date:     date,
					Days:     k.days,
				}
				if _, err := s.orchestrator.Fetch(ctx, req); err != nil {
					log.Printf("scheduler: warm fetch failed for %s: %v", req.Key(), err)
				}
			}()
		}
	}
	wg.Wait()

	log.Println("scheduler: completed cache warm job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
