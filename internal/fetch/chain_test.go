package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/straitnav/marinefetch/internal/quota"
	"github.com/straitnav/marinefetch/internal/ratelimit"
)

// stubProvider is a scriptable in-memory provider for chain tests.
type stubProvider struct {
	id    string
	calls int32
	fn    func(ctx context.Context, req Request) (json.RawMessage, error)
}

func (p *stubProvider) ID() string { return p.id }

func (p *stubProvider) Fetch(ctx context.Context, req Request) (json.RawMessage, error) {
	atomic.AddInt32(&p.calls, 1)
	return p.fn(ctx, req)
}

func (p *stubProvider) callCount() int32 { return atomic.LoadInt32(&p.calls) }

func succeedWith(payload string) func(context.Context, Request) (json.RawMessage, error) {
	return func(context.Context, Request) (json.RawMessage, error) {
		return json.RawMessage(payload), nil
	}
}

func failWith(msg string) func(context.Context, Request) (json.RawMessage, error) {
	return func(context.Context, Request) (json.RawMessage, error) {
		return nil, errors.New(msg)
	}
}

func testRequest() Request {
	return Request{Kind: KindTides, Location: "Mana", Date: "2026-02-19", Days: 2}
}

func openChain(providers ...Provider) *Chain {
	return NewChain(providers, ratelimit.New(nil), quota.New(nil), nil, 0)
}

func TestResolveFirstSuccessShortCircuits(t *testing.T) {
	primary := &stubProvider{id: "niwa-tide", fn: succeedWith(`{"v":1}`)}
	fallback := &stubProvider{id: "manual-cache", fn: succeedWith(`{"v":2}`)}

	value, source, err := openChain(primary, fallback).Resolve(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != "niwa-tide" {
		t.Fatalf("expected primary to serve, got %q", source)
	}
	if string(value) != `{"v":1}` {
		t.Fatalf("unexpected payload %s", value)
	}
	if fallback.callCount() != 0 {
		t.Fatal("fallback must not be invoked after primary success")
	}
}

// Primary returns a malformed payload error, fallback succeeds: the
// result comes from the fallback and no error surfaces to the caller.
func TestResolveFallsThroughOnFailure(t *testing.T) {
	primary := &stubProvider{id: "bitetimes-primary", fn: failWith("malformed-response")}
	fallback := &stubProvider{id: "bitetimes-fallback", fn: succeedWith(`{"days":[]}`)}

	_, source, err := openChain(primary, fallback).Resolve(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != "bitetimes-fallback" {
		t.Fatalf("expected fallback to serve, got %q", source)
	}
}

func TestResolveExhaustedReturnsOrderedAttempts(t *testing.T) {
	a := &stubProvider{id: "bitetimes-primary", fn: failWith("server-error")}
	b := &stubProvider{id: "bitetimes-fallback", fn: failWith("malformed-response")}

	_, _, err := openChain(a, b).Resolve(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected chain exhaustion error")
	}

	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected *ChainError, got %T", err)
	}
	want := []Attempt{
		{Provider: "bitetimes-primary", Reason: "server-error"},
		{Provider: "bitetimes-fallback", Reason: "malformed-response"},
	}
	if len(chainErr.Attempts) != len(want) {
		t.Fatalf("expected %d attempts, got %d", len(want), len(chainErr.Attempts))
	}
	for i, a := range want {
		if chainErr.Attempts[i] != a {
			t.Fatalf("attempt %d: expected %+v, got %+v", i, a, chainErr.Attempts[i])
		}
	}
}

// A rate-limited provider is skipped without consuming quota, and the
// chain proceeds to the next provider.
func TestRateLimitedSkipPreservesQuota(t *testing.T) {
	limiter := ratelimit.New(map[string]time.Duration{"metocean": time.Hour})
	tracker := quota.New(map[string]quota.Limit{"metocean": {Limit: 10, Window: time.Hour}})

	primary := &stubProvider{id: "metocean", fn: succeedWith(`{"v":1}`)}
	fallback := &stubProvider{id: "manual-cache", fn: succeedWith(`{"v":2}`)}
	chain := NewChain(
		[]Provider{primary, fallback},
		limiter, tracker,
		map[string]string{"metocean": "metocean"},
		0,
	)

	// First resolve: metocean permitted, consumes one unit.
	_, source, err := chain.Resolve(context.Background(), testRequest())
	if err != nil || source != "metocean" {
		t.Fatalf("first resolve: source %q, err %v", source, err)
	}

	// Second resolve inside the min interval: metocean skipped as
	// rate-limited, fallback serves, quota untouched.
	_, source, err = chain.Resolve(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != "manual-cache" {
		t.Fatalf("expected fallback, got %q", source)
	}
	if primary.callCount() != 1 {
		t.Fatalf("metocean should have been invoked once, got %d", primary.callCount())
	}
	if st := tracker.Status()["metocean"]; st.Remaining != 9 {
		t.Fatalf("rate-limited skip must not consume quota; remaining %d", st.Remaining)
	}
}

func TestQuotaExceededSkips(t *testing.T) {
	tracker := quota.New(map[string]quota.Limit{"metocean": {Limit: 1, Window: time.Hour}})

	primary := &stubProvider{id: "metocean", fn: succeedWith(`{"v":1}`)}
	fallback := &stubProvider{id: "manual-cache", fn: succeedWith(`{"v":2}`)}
	chain := NewChain(
		[]Provider{primary, fallback},
		ratelimit.New(nil), tracker,
		map[string]string{"metocean": "metocean"},
		0,
	)

	if _, source, _ := chain.Resolve(context.Background(), testRequest()); source != "metocean" {
		t.Fatalf("first resolve should use metocean, got %q", source)
	}

	_, source, err := chain.Resolve(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != "manual-cache" {
		t.Fatalf("expected fallback once quota is exhausted, got %q", source)
	}
	if primary.callCount() != 1 {
		t.Fatal("quota-denied provider must not be invoked")
	}
}

func TestTimedOutProviderRecordedAsTimeout(t *testing.T) {
	slow := &stubProvider{id: "metocean", fn: func(ctx context.Context, _ Request) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	chain := NewChain([]Provider{slow}, ratelimit.New(nil), quota.New(nil), nil, 10*time.Millisecond)

	_, _, err := chain.Resolve(context.Background(), testRequest())

	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected *ChainError, got %v", err)
	}
	if len(chainErr.Attempts) != 1 || chainErr.Attempts[0].Reason != ReasonTimeout {
		t.Fatalf("expected a timeout attempt, got %+v", chainErr.Attempts)
	}
}
