package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/jordanhubbard/statshub/internal/normalize"
	"github.com/jordanhubbard/statshub/internal/providers"
	"github.com/jordanhubbard/statshub/internal/providers/umami"
)

const endpointTraffic = "traffic"

// TrafficErrorResponse is the traffic failure body. Stack is only filled
// outside production.
type TrafficErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// TrafficHandler serves site analytics: aggregate stats since the configured
// epoch plus the live visitor count, fetched concurrently.
func TrafficHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src := d.Sources.Load()

		fail := func(v any, stack []byte) {
			d.logger().ErrorContext(r.Context(), "traffic handler panic", slog.Any("panic", v))
			body := TrafficErrorResponse{
				Error:   "Failed to fetch traffic stats",
				Message: fmt.Sprint(v),
			}
			if src != nil && src.Settings.ExposeStacks {
				body.Stack = string(stack)
			}
			d.respond(w, endpointTraffic, http.StatusInternalServerError, body)
		}
		defer func() {
			if v := recover(); v != nil {
				fail(v, debug.Stack())
			}
		}()

		if len(src.MissingTraffic) > 0 {
			cfgErr := providers.ConfigError(umami.ProviderID, src.MissingTraffic...)
			d.logger().ErrorContext(r.Context(), "traffic not configured", slog.String("error", cfgErr.Error()))
			d.respond(w, endpointTraffic, http.StatusInternalServerError, TrafficErrorResponse{Error: cfgErr.Error()})
			return
		}

		ctx := upstreamContext(r)
		timeout := src.Settings.UpstreamTimeout
		start, end := src.Settings.TrafficEpoch, d.now()

		var (
			stats  providers.Result[json.RawMessage]
			active providers.Result[umami.ActiveCount]
		)
		var g errgroup.Group
		g.Go(func() error {
			stats = call(ctx, d, timeout, umami.ProviderID, "stats", func(ctx context.Context) (json.RawMessage, error) {
				return src.Umami.Stats(ctx, src.UmamiWebsiteID, start, end)
			})
			return nil
		})
		g.Go(func() error {
			active = call(ctx, d, timeout, umami.ProviderID, "active", func(ctx context.Context) (umami.ActiveCount, error) {
				return src.Umami.Active(ctx, src.UmamiWebsiteID)
			})
			return nil
		})
		_ = g.Wait()

		if pe := recoveredPanic(stats.Err, active.Err); pe != nil {
			fail(pe.value, pe.stack)
			return
		}

		summary := normalize.Traffic(stats, active)
		setCacheHeaders(w, src.Settings.CacheMaxAge)
		d.respond(w, endpointTraffic, http.StatusOK, summary)
	}
}
