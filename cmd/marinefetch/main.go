package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	httpapi "github.com/straitnav/marinefetch/internal/api/http"
	"github.com/straitnav/marinefetch/internal/cache"
	"github.com/straitnav/marinefetch/internal/config"
	"github.com/straitnav/marinefetch/internal/fetch"
	"github.com/straitnav/marinefetch/internal/fetch/providers"
	"github.com/straitnav/marinefetch/internal/location"
	"github.com/straitnav/marinefetch/internal/quota"
	"github.com/straitnav/marinefetch/internal/ratelimit"
	"github.com/straitnav/marinefetch/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Politeness throttles and the MetOcean call budget, shared across
	// every chain so fallbacks never route around the limits.
	limiter := ratelimit.New(cfg.MinIntervals)
	tracker := quota.New(cfg.QuotaLimits)
	dataCache := cache.New()

	// Providers with resilience (backoff + circuit breaker).
	metocean := providers.NewMetOceanProvider(httpClient, cfg.MetOceanAPIKey)
	niwa := providers.NewNIWAProvider(httpClient, cfg.NIWAAPIKey)
	bitePrimary := providers.NewBiteTimesProvider(httpClient, config.ProviderBiteTimesPrimary, cfg.BiteTimesPrimaryURL)
	biteFallback := providers.NewBiteTimesProvider(httpClient, config.ProviderBiteTimesFallback, cfg.BiteTimesFallbackURL)
	manual := providers.NewStaticProvider(cfg.ManualDataFile)

	metered := map[string]string{
		config.ProviderMetOcean: config.ProviderMetOcean,
	}

	// One ordered failover chain per data kind; the manual file is
	// always the last resort.
	chains := map[fetch.Kind]*fetch.Chain{
		fetch.KindMarine: fetch.NewChain(
			[]fetch.Provider{metocean, manual},
			limiter, tracker, metered, cfg.ProviderTimeout,
		),
		fetch.KindTides: fetch.NewChain(
			[]fetch.Provider{niwa, manual},
			limiter, tracker, metered, cfg.ProviderTimeout,
		),
		fetch.KindBiteTimes: fetch.NewChain(
			[]fetch.Provider{bitePrimary, biteFallback, manual},
			limiter, tracker, metered, cfg.ProviderTimeout,
		),
	}

	orchestrator := fetch.NewOrchestrator(dataCache, chains, cfg.TTLs)
	resolver := location.NewResolver(cfg.GeocoderAPIKey)

	// Scheduler that pre-warms the cache and sweeps dead entries.
	sched := scheduler.New(orchestrator, resolver, dataCache, cfg.WarmLocations, cfg.WarmInterval, cfg.StaleRescueMaxAge)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "marinefetch",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "marinefetch",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Orchestrator: orchestrator,
		Locations:    resolver,
		Limiter:      limiter,
		Quota:        tracker,
	})

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
