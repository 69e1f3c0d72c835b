package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/straitnav/marinefetch/internal/fetch"
)

// StaticProvider reads precomputed payloads from a local JSON file
// mapping cache keys (or bare data kinds as a catch-all) to payloads.
// It is the terminal provider of every chain: no rate limit, no quota,
// so a chain always ends in either success or a diagnosed failure.
//
// The file is externally maintained; edits are picked up on the next
// read, and cached results built from it are refreshed via the explicit
// invalidation endpoint.
type StaticProvider struct {
	name string
	path string
}

func NewStaticProvider(path string) *StaticProvider {
	return &StaticProvider{
		name: "manual-cache",
		path: path,
	}
}

func (p *StaticProvider) ID() string {
	return p.name
}

func (p *StaticProvider) Fetch(_ context.Context, req fetch.Request) (json.RawMessage, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("manual data file: %w", err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errMalformed
	}

	if payload, ok := entries[req.Key()]; ok {
		return payload, nil
	}
	// Generic per-kind fallback, e.g. one "bite-times" entry covering
	// every location when no key-specific data is maintained.
	if payload, ok := entries[string(req.Kind)]; ok {
		return payload, nil
	}

	return nil, fmt.Errorf("no manual data for %s", req.Key())
}
