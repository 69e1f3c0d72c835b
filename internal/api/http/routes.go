package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/straitnav/marinefetch/internal/fetch"
	"github.com/straitnav/marinefetch/internal/location"
	"github.com/straitnav/marinefetch/internal/quota"
	"github.com/straitnav/marinefetch/internal/ratelimit"
)

var validate = validator.New()

// Deps bundles what the handlers need. Limiter and Quota are only read
// here, for the status endpoint; gating happens inside the chains.
type Deps struct {
	Orchestrator *fetch.Orchestrator
	Locations    *location.Resolver
	Limiter      *ratelimit.Limiter
	Quota        *quota.Tracker
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/marine", dataHandler(deps, fetch.KindMarine, 2))
	v1.Get("/tides", dataHandler(deps, fetch.KindTides, 2))
	v1.Get("/bite-times", dataHandler(deps, fetch.KindBiteTimes, 7))

	// Remaining budget and per-provider throttle state, so public
	// callers can see why a request was served from a fallback.
	v1.Get("/status", func(c *fiber.Ctx) error {
		providers := fiber.Map{}
		for _, name := range deps.Limiter.Providers() {
			providers[name] = fiber.Map{
				"retryAfterSeconds": deps.Limiter.Peek(name).Seconds(),
			}
		}

		quotas := fiber.Map{}
		for name, st := range deps.Quota.Status() {
			quotas[name] = fiber.Map{
				"limit":          st.Limit,
				"remaining":      st.Remaining,
				"resetInSeconds": st.ResetIn.Seconds(),
			}
		}

		return c.JSON(fiber.Map{
			"providers": providers,
			"quotas":    quotas,
		})
	})

	// Explicit invalidation, e.g. after the manual fallback file has
	// been edited in place.
	v1.Delete("/cache", func(c *fiber.Ctx) error {
		kind := fetch.Kind(c.Query("kind"))
		switch kind {
		case fetch.KindMarine, fetch.KindTides, fetch.KindBiteTimes:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "kind must be one of marine, tides, bite-times")
		}

		q, err := parseDataQuery(c, defaultDaysFor(kind))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		place, err := deps.Locations.Resolve(q.Location)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "unknown location")
		}

		deps.Orchestrator.Invalidate(requestFor(kind, place, q))
		return c.JSON(fiber.Map{"invalidated": true})
	})
}

func dataHandler(deps Deps, kind fetch.Kind, defaultDays int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := parseDataQuery(c, defaultDays)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		place, err := deps.Locations.Resolve(q.Location)
		if err != nil {
			if errors.Is(err, location.ErrUnknown) {
				return fiber.NewError(fiber.StatusNotFound, "unknown location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to resolve location")
		}

		res, err := deps.Orchestrator.Fetch(c.Context(), requestFor(kind, place, q))
		if err != nil {
			var chainErr *fetch.ChainError
			if errors.As(err, &chainErr) {
				// Never downgrade this to an empty payload; callers
				// must see that the data is unavailable.
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error":              true,
					"message":            "all data sources unavailable",
					"attemptedProviders": chainErr.Providers(),
					"attempts":           chainErr.Attempts,
				})
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch data")
		}

		return c.JSON(fiber.Map{
			"kind":      kind,
			"location":  place.Name,
			"source":    res.Source,
			"stale":     res.Stale,
			"fetchedAt": res.FetchedAt,
			"data":      res.Value,
		})
	}
}

// dataQuery holds the common query parameters of the data endpoints.
type dataQuery struct {
	Location string `validate:"required"`
	Days     int    `validate:"min=1,max=14"`
	Date     string
}

func parseDataQuery(c *fiber.Ctx, defaultDays int) (dataQuery, error) {
	q := dataQuery{
		Location: c.Query("location"),
		Days:     defaultDays,
		Date:     c.Query("date", time.Now().UTC().Format("2006-01-02")),
	}

	if daysStr := c.Query("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return q, errors.New("days must be an integer")
		}
		q.Days = days
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

func requestFor(kind fetch.Kind, place location.Place, q dataQuery) fetch.Request {
	return fetch.Request{
		Kind:     kind,
		Location: place.Name,
		Lat:      place.Lat,
		Lon:      place.Lon,
		Date:     q.Date,
		Days:     q.Days,
	}
}

func defaultDaysFor(kind fetch.Kind) int {
	if kind == fetch.KindBiteTimes {
		return 7
	}
	return 2
}
