package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/straitnav/marinefetch/internal/fetch"
)

const biteTimesPage = `<!DOCTYPE html>
<html><body>
<div class="day">
  <h5>Thu 19 Feb</h5>
  <p>Major Bite 13:45 - 15:45</p>
  <p>Major Bite 01:23 - 03:23</p>
  <p>Minor Bite 05:20 - 08:20</p>
  <p>Minor Bite 18:01 - 21:01</p>
  <p>Sun Rise: 06:45 Set: 20:12</p>
  <p>Moon Rise: 22:10 Set: 09:33</p>
</div>
<div class="day">
  <h5>Fri 20 Feb</h5>
  <p>Major Bite 14:30 - 16:30</p>
  <p>Minor Bite 06:05 - 09:05</p>
</div>
<div class="day">
  <h5>Sat 21 Feb</h5>
  <p>Major Bite 15:10 - 17:10</p>
</div>
</body></html>`

func biteRequest(days int) fetch.Request {
	return fetch.Request{
		Kind:     fetch.KindBiteTimes,
		Location: "Kapiti Island",
		Date:     "2026-02-19",
		Days:     days,
	}
}

func newBitePage(t *testing.T, body string) (*httptest.Server, *BiteTimesProvider) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server, NewBiteTimesProvider(server.Client(), "bitetimes-primary", server.URL)
}

func TestBiteTimesFetchParsesCalendar(t *testing.T) {
	_, p := newBitePage(t, biteTimesPage)

	raw, err := p.Fetch(context.Background(), biteRequest(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload fetch.BiteTimesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("payload is not a BiteTimesPayload: %v", err)
	}
	if len(payload.Days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(payload.Days))
	}

	first := payload.Days[0]
	if first.Day != "Thu 19 Feb" {
		t.Fatalf("unexpected day header %q", first.Day)
	}
	if len(first.MajorBites) != 2 || first.MajorBites[0] != (fetch.BiteWindow{Start: "13:45", End: "15:45"}) {
		t.Fatalf("unexpected major bites %+v", first.MajorBites)
	}
	if len(first.MinorBites) != 2 || first.MinorBites[1] != (fetch.BiteWindow{Start: "18:01", End: "21:01"}) {
		t.Fatalf("unexpected minor bites %+v", first.MinorBites)
	}
	if first.Sun == nil || first.Sun.Rise != "06:45" || first.Sun.Set != "20:12" {
		t.Fatalf("unexpected sun times %+v", first.Sun)
	}
	if first.Moon == nil || first.Moon.Rise != "22:10" || first.Moon.Set != "09:33" {
		t.Fatalf("unexpected moon times %+v", first.Moon)
	}

	if payload.Days[1].Sun != nil {
		t.Fatal("day without sun line should have nil sun")
	}
}

func TestBiteTimesFetchHonorsDaysLimit(t *testing.T) {
	_, p := newBitePage(t, biteTimesPage)

	raw, err := p.Fetch(context.Background(), biteRequest(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload fetch.BiteTimesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(payload.Days))
	}
}

func TestBiteTimesFetchNoDayHeadersIsMalformed(t *testing.T) {
	_, p := newBitePage(t, `<html><body><h5>Upcoming events</h5></body></html>`)

	if _, err := p.Fetch(context.Background(), biteRequest(7)); !errors.Is(err, errMalformed) {
		t.Fatalf("expected malformed-response, got %v", err)
	}
}
