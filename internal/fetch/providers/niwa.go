package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/straitnav/marinefetch/internal/fetch"
)

// NIWAProvider fetches tide forecasts from the NIWA Tide API and
// derives tide state and magnitude from the height series.
type NIWAProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewNIWAProvider(client *http.Client, apiKey string) *NIWAProvider {
	return &NIWAProvider{
		name:    "niwa-tide",
		apiKey:  apiKey,
		baseURL: "https://api.niwa.co.nz/tides/data",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuit("niwa-tide"),
	}
}

func (p *NIWAProvider) ID() string {
	return p.name
}

func (p *NIWAProvider) Fetch(ctx context.Context, req fetch.Request) (json.RawMessage, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("niwa api key is not configured")
	}

	days := req.Days
	if days < 1 {
		days = 1
	}
	if days > 31 {
		days = 31 // NIWA caps numberOfDays at 31
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(req.Lat, 'f', -1, 64))
		// NIWA uses 'long', not 'lon'.
		values.Set("long", strconv.FormatFloat(req.Lon, 'f', -1, 64))
		values.Set("numberOfDays", strconv.Itoa(days))
		values.Set("apikey", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Values []struct {
			Time  string  `json:"time"`
			Value float64 `json:"value"`
		} `json:"values"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errMalformed
	}

	heights := make([]float64, 0, len(payload.Values))
	for _, v := range payload.Values {
		heights = append(heights, v.Value)
	}
	if len(heights) < 2 {
		return nil, errMalformed
	}

	tide := classifyTide(heights)
	return json.Marshal(tide)
}

// classifyTide derives rising/falling state and spring/neap magnitude
// from a tide height series. The magnitude factor scales expected chop:
// Cook Strait ranges run about 1.5 m on springs, under 0.9 m on neaps.
func classifyTide(heights []float64) fetch.TidePayload {
	state := "falling"
	if heights[1] > heights[0] {
		state = "rising"
	}

	min, max := heights[0], heights[0]
	for _, h := range heights[1:] {
		if h < min {
			min = h
		}
		if h > max {
			max = h
		}
	}
	tideRange := max - min

	magnitude := "NORMAL"
	factor := 1.0
	switch {
	case tideRange > 1.5:
		magnitude = "SPRING"
		factor = 1.5
	case tideRange < 0.9:
		magnitude = "NEAP"
		factor = 0.7
	}

	kept := heights
	if len(kept) > 20 {
		kept = kept[:20]
	}

	return fetch.TidePayload{
		State:           state,
		Magnitude:       magnitude,
		MagnitudeFactor: factor,
		RangeM:          tideRange,
		Heights:         kept,
		Description:     fmt.Sprintf("%s tide (%s): range %.2fm", magnitude, strings.ToUpper(state), tideRange),
	}
}
