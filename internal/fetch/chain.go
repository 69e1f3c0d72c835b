package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/straitnav/marinefetch/internal/quota"
	"github.com/straitnav/marinefetch/internal/ratelimit"
)

// Chain tries an ordered list of providers for one data kind. Order
// encodes preference: primary before fallback before the terminal
// static source. The first well-formed result wins.
type Chain struct {
	providers []Provider
	limiter   *ratelimit.Limiter
	quota     *quota.Tracker

	// metered maps provider ID to the quota resource its calls are
	// billed against. Providers not listed consume no quota.
	metered map[string]string

	// timeout bounds each provider invocation independently, so a hung
	// primary cannot eat the whole request budget before the fallback.
	timeout time.Duration
}

// NewChain creates a Chain. limiter and tracker are shared process-wide
// state; the same instances gate every chain.
func NewChain(providers []Provider, limiter *ratelimit.Limiter, tracker *quota.Tracker, metered map[string]string, timeout time.Duration) *Chain {
	if metered == nil {
		metered = make(map[string]string)
	}
	return &Chain{
		providers: providers,
		limiter:   limiter,
		quota:     tracker,
		metered:   metered,
		timeout:   timeout,
	}
}

// Resolve walks the providers strictly in configured order and returns
// the first successful payload with the provider that served it. Gating
// denials and adapter failures are recorded and the chain moves on; if
// every provider is exhausted the full attempt list comes back as a
// *ChainError.
func (c *Chain) Resolve(ctx context.Context, req Request) (json.RawMessage, string, error) {
	var attempts []Attempt

	for _, p := range c.providers {
		id := p.ID()

		if d := c.limiter.Allow(id); !d.Permitted {
			attempts = append(attempts, Attempt{Provider: id, Reason: ReasonRateLimited})
			continue
		}

		// Quota is checked after the rate limiter so a throttled skip
		// never consumes budget.
		if resource, ok := c.metered[id]; ok {
			if d := c.quota.TryConsume(resource, 1); !d.Permitted {
				attempts = append(attempts, Attempt{Provider: id, Reason: ReasonQuotaExceeded})
				continue
			}
		}

		value, err := c.invoke(ctx, p, req)
		if err != nil {
			reason := err.Error()
			if errors.Is(err, context.DeadlineExceeded) {
				reason = ReasonTimeout
			}
			log.Printf("provider %s failed for %s: %v", id, req.Key(), err)
			attempts = append(attempts, Attempt{Provider: id, Reason: reason})
			continue
		}

		return value, id, nil
	}

	return nil, "", &ChainError{Attempts: attempts}
}

func (c *Chain) invoke(ctx context.Context, p Provider, req Request) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return p.Fetch(ctx, req)
}
