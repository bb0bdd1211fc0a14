package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jordanhubbard/statshub/internal/health"
	"github.com/jordanhubbard/statshub/internal/metrics"
	"github.com/jordanhubbard/statshub/internal/providers"
)

type Dependencies struct {
	Sources *SourceSet
	Metrics *metrics.Registry
	Health  *health.Tracker
	Logger  *slog.Logger

	// Now is the clock for week and traffic windows; nil means time.Now.
	Now func() time.Time
}

// MountRoutes registers the stats API plus health and metrics routes.
// Middleware that should only guard the stats API (rate limiting) goes in
// statsMiddleware.
func MountRoutes(r chi.Router, d Dependencies, statsMiddleware ...func(http.Handler) http.Handler) {
	r.Get("/healthz", HealthzHandler(d))

	r.Route("/api/stats", func(r chi.Router) {
		r.Use(statsMiddleware...)
		r.Get("/activity", ActivityHandler(d))
		r.Get("/coding", CodingTimeHandler(d))
		r.Get("/traffic", TrafficHandler(d))
	})

	r.Route("/admin/v1", func(r chi.Router) {
		r.Get("/health", HealthStatsHandler(d))
	})

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}
}

// upstreamContext carries the inbound request id onto outgoing calls.
func upstreamContext(r *http.Request) context.Context {
	return providers.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
}

// HealthzResponse reports liveness and which endpoints have credentials.
type HealthzResponse struct {
	Status     string          `json:"status"`
	Configured map[string]bool `json:"configured"`
}

// HealthzHandler always answers 200 while the process serves requests;
// status is "unconfigured" when no endpoint has its credentials.
func HealthzHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		src := d.Sources.Load()
		resp := HealthzResponse{
			Status: "ok",
			Configured: map[string]bool{
				endpointActivity: len(src.MissingActivity) == 0,
				endpointCoding:   len(src.MissingCoding) == 0,
				endpointTraffic:  len(src.MissingTraffic) == 0,
			},
		}
		configured := false
		for _, ok := range resp.Configured {
			configured = configured || ok
		}
		if !configured {
			resp.Status = "unconfigured"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ProviderHealth is one row of the admin health view.
type ProviderHealth struct {
	health.Stats
	ErrorRate float64 `json:"error_rate"`
}

// HealthStatsHandler lists the tracked state of every upstream provider.
func HealthStatsHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		rows := []ProviderHealth{}
		if d.Health != nil {
			for _, s := range d.Health.AllStats() {
				rows = append(rows, ProviderHealth{Stats: s, ErrorRate: s.ErrorRate()})
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"providers": rows})
	}
}
