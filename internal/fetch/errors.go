package fetch

import (
	"errors"
	"fmt"
	"strings"
)

// Skip reasons recorded when a provider is bypassed without being
// contacted, or when its invocation times out. Upstream failures are
// recorded under the adapter's own error text.
const (
	ReasonRateLimited   = "rate-limited"
	ReasonQuotaExceeded = "quota-exceeded"
	ReasonTimeout       = "timeout"
)

// ErrUnknownKind is returned for requests with no configured chain.
var ErrUnknownKind = errors.New("fetch: no chain configured for kind")

// Attempt records why one provider did not produce a result.
type Attempt struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// ChainError reports that every provider in a chain failed or was
// skipped, with the ordered list of attempts for diagnostics. It is
// the terminal failure of a fetch unless a stale cache entry rescues
// it; it must never be silently replaced by an empty payload.
type ChainError struct {
	Attempts []Attempt
}

func (e *ChainError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s (%s)", a.Provider, a.Reason)
	}
	return "fetch: all providers failed: " + strings.Join(parts, "; ")
}

// Providers returns the ordered list of attempted provider IDs.
func (e *ChainError) Providers() []string {
	out := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.Provider
	}
	return out
}
