package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/straitnav/marinefetch/internal/fetch"
	"github.com/straitnav/marinefetch/internal/quota"
)

// Provider IDs used across configuration, chains, and diagnostics.
const (
	ProviderMetOcean          = "metocean"
	ProviderNIWATide          = "niwa-tide"
	ProviderBiteTimesPrimary  = "bitetimes-primary"
	ProviderBiteTimesFallback = "bitetimes-fallback"
	ProviderManualCache       = "manual-cache"
)

type AppConfig struct {
	NIWAAPIKey     string
	MetOceanAPIKey string
	GeocoderAPIKey string

	// HTTPTimeout caps the shared outbound HTTP client;
	// ProviderTimeout bounds each chain attempt end to end,
	// retries and backoff included.
	HTTPTimeout     time.Duration
	ProviderTimeout time.Duration

	// Cache TTL per data kind.
	TTLs map[fetch.Kind]time.Duration

	// Minimum interval between requests, per provider.
	MinIntervals map[string]time.Duration

	// Shared consumption budgets for billed resources.
	QuotaLimits map[string]quota.Limit

	BiteTimesPrimaryURL  string
	BiteTimesFallbackURL string
	ManualDataFile       string

	// Locations pre-fetched by the scheduler.
	WarmLocations []string
	WarmInterval  time.Duration

	// Expired entries older than this are dropped by the cache sweep
	// and can no longer be served as a stale last resort.
	StaleRescueMaxAge time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.NIWAAPIKey = os.Getenv("NIWA_API_KEY")
	cfg.MetOceanAPIKey = os.Getenv("METOCEAN_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "20s"); err != nil {
		return nil, err
	}
	if cfg.ProviderTimeout, err = getenvDuration("PROVIDER_TIMEOUT", "15s"); err != nil {
		return nil, err
	}

	cfg.TTLs = make(map[fetch.Kind]time.Duration)
	if cfg.TTLs[fetch.KindMarine], err = getenvDuration("MARINE_TTL", "1h"); err != nil {
		return nil, err
	}
	if cfg.TTLs[fetch.KindTides], err = getenvDuration("TIDES_TTL", "6h"); err != nil {
		return nil, err
	}
	if cfg.TTLs[fetch.KindBiteTimes], err = getenvDuration("BITE_TIMES_TTL", "24h"); err != nil {
		return nil, err
	}

	// Throttle intervals follow the upstream terms of use; the manual
	// fallback is deliberately unthrottled.
	cfg.MinIntervals = make(map[string]time.Duration)
	if cfg.MinIntervals[ProviderMetOcean], err = getenvDuration("METOCEAN_MIN_INTERVAL", "2s"); err != nil {
		return nil, err
	}
	if cfg.MinIntervals[ProviderNIWATide], err = getenvDuration("NIWA_MIN_INTERVAL", "1s"); err != nil {
		return nil, err
	}
	if cfg.MinIntervals[ProviderBiteTimesPrimary], err = getenvDuration("BITETIMES_MIN_INTERVAL", "5s"); err != nil {
		return nil, err
	}
	cfg.MinIntervals[ProviderBiteTimesFallback] = cfg.MinIntervals[ProviderBiteTimesPrimary]

	quotaWindow, err := getenvDuration("METOCEAN_QUOTA_WINDOW", "1h")
	if err != nil {
		return nil, err
	}
	cfg.QuotaLimits = map[string]quota.Limit{
		ProviderMetOcean: {
			Limit:  getenvInt("METOCEAN_QUOTA_LIMIT", 20),
			Window: quotaWindow,
		},
	}

	cfg.BiteTimesPrimaryURL = getenvDefault("BITETIMES_PRIMARY_URL", "https://www.bitetimes.fishing/bite-times/kapiti-island")
	cfg.BiteTimesFallbackURL = getenvDefault("BITETIMES_FALLBACK_URL", "https://www.fishing.net.nz/fishing-advice/bite-times/")
	cfg.ManualDataFile = getenvDefault("MANUAL_DATA_FILE", "data/manual_fallback.json")

	if warm := os.Getenv("WARM_LOCATIONS"); warm != "" {
		for _, loc := range strings.Split(warm, ",") {
			if loc = strings.TrimSpace(loc); loc != "" {
				cfg.WarmLocations = append(cfg.WarmLocations, loc)
			}
		}
	}
	if cfg.WarmInterval, err = getenvDuration("WARM_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if cfg.StaleRescueMaxAge, err = getenvDuration("STALE_RESCUE_MAX_AGE", "72h"); err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
