// Package api provides the read-only HTTP surface for rangecast.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/rangecast/rangecast/internal/api/middleware"
	"github.com/rangecast/rangecast/internal/history"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version string
	Logger  zerolog.Logger
	Runs    history.Repository

	// RateLimit is requests per minute per client IP on the /v1 routes.
	RateLimit int

	// MetricsHandler serves the Prometheus registry, mounted at /metrics
	// when non-nil.
	MetricsHandler http.Handler
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)

	h := NewHandler(cfg.Runs, cfg.Version, cfg.Logger)

	r.Get("/healthz", h.Health)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 60
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rateLimit, time.Minute))
		r.Get("/runs/latest", h.LatestRun)
		r.Get("/range/contours", h.Contours)
		r.Get("/range/metadata", h.Metadata)
	})

	return r
}
