package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/straitnav/marinefetch/internal/fetch"
)

const metersPerSecondToKnots = 1.944

// MetOceanProvider fetches point wind/wave forecasts from the MetOcean
// v2 API. MetOcean is a paid upstream, so callers gate it behind the
// shared quota in addition to the per-provider rate limit.
type MetOceanProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker

	nowFunc func() time.Time // for testing
}

func NewMetOceanProvider(client *http.Client, apiKey string) *MetOceanProvider {
	return &MetOceanProvider{
		name:    "metocean",
		apiKey:  apiKey,
		baseURL: "https://forecast-v2.metoceanapi.com/point/time",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuit("metocean"),
		nowFunc: time.Now,
	}
}

func (p *MetOceanProvider) ID() string {
	return p.name
}

func (p *MetOceanProvider) Fetch(ctx context.Context, req fetch.Request) (json.RawMessage, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("metocean api key is not configured")
	}

	days := req.Days
	if days < 1 {
		days = 1
	}
	if days > 10 {
		days = 10 // marine forecasts beyond 10 days are unreliable
	}

	buildRequest := func() (*http.Request, error) {
		now := p.nowFunc().UTC()
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(req.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(req.Lon, 'f', -1, 64))
		values.Set("variables", "wind.speed.at-10m,wind.direction.at-10m,wave.height")
		values.Set("from", now.Format("2006-01-02T15:04:05Z"))
		values.Set("to", now.AddDate(0, 0, days).Format("2006-01-02T15:04:05Z"))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		httpReq, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("x-api-key", p.apiKey)
		httpReq.Header.Set("User-Agent", "marinefetch/1.0 (marine safety tool)")
		return httpReq, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Dimensions struct {
			Time struct {
				Data []time.Time `json:"data"`
			} `json:"time"`
		} `json:"dimensions"`
		Variables map[string]struct {
			Data []float64 `json:"data"`
		} `json:"variables"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errMalformed
	}

	wind := payload.Variables["wind.speed.at-10m"].Data
	wave := payload.Variables["wave.height"].Data
	times := payload.Dimensions.Time.Data
	if len(wind) == 0 || len(wave) == 0 {
		return nil, errMalformed
	}

	n := len(wind)
	if len(wave) < n {
		n = len(wave)
	}

	marine := fetch.MarinePayload{
		Location:  req.Location,
		Intervals: make([]fetch.MarineInterval, 0, n),
	}
	for i := 0; i < n; i++ {
		interval := fetch.MarineInterval{
			WindKt: wind[i] * metersPerSecondToKnots,
			WaveM:  wave[i],
		}
		if i < len(times) {
			interval.Time = times[i].UTC()
		}
		if interval.WindKt > marine.MaxWindKt {
			marine.MaxWindKt = interval.WindKt
		}
		if interval.WaveM > marine.MaxWaveM {
			marine.MaxWaveM = interval.WaveM
		}
		marine.Intervals = append(marine.Intervals, interval)
	}

	return json.Marshal(marine)
}
