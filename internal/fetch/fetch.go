package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind names one logical data need served by its own provider chain.
type Kind string

const (
	KindMarine    Kind = "marine"
	KindTides     Kind = "tides"
	KindBiteTimes Kind = "bite-times"
)

// Request identifies the data a caller wants: what, where, and for
// which date range. It is independent of which provider serves it.
type Request struct {
	Kind     Kind
	Location string // canonical location name
	Lat      float64
	Lon      float64
	Date     string // start date, YYYY-MM-DD
	Days     int
}

// Key returns the canonical cache key for this request. Two
// semantically identical requests always produce the same key.
func (r Request) Key() string {
	loc := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(r.Location)), " ", "-")
	return fmt.Sprintf("%s:%s:%s:%d", r.Kind, loc, r.Date, r.Days)
}

// Result is what callers receive from a successful fetch. Stale is set
// when an expired cache entry was served because every provider failed.
type Result struct {
	Value     json.RawMessage `json:"value"`
	Source    string          `json:"source"`
	Stale     bool            `json:"stale"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// Provider adapts one upstream data source. Implementations must honor
// ctx cancellation and return a well-formed JSON payload on success.
type Provider interface {
	ID() string
	Fetch(ctx context.Context, req Request) (json.RawMessage, error)
}
