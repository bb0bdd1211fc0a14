package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jordanhubbard/statshub/internal/normalize"
	"github.com/jordanhubbard/statshub/internal/providers"
	"github.com/jordanhubbard/statshub/internal/providers/wakatime"
)

const endpointCoding = "coding"

// CodingTimeHandler serves the coding-time summary. The all-time total and
// the two weekly summaries are requested one after another, each with a
// fresh deadline. Transport and status failures degrade fields; a body
// that cannot be decoded fails the whole request.
func CodingTimeHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := func(reason string) {
			d.logger().ErrorContext(r.Context(), "coding time failed", slog.String("error", reason))
			d.respond(w, endpointCoding, http.StatusInternalServerError, map[string]string{
				"error": "Failed to fetch coding stats",
			})
		}
		defer func() {
			if v := recover(); v != nil {
				fail(fmt.Sprintf("panic: %v", v))
			}
		}()

		src := d.Sources.Load()
		if len(src.MissingCoding) > 0 {
			cfgErr := providers.ConfigError(wakatime.ProviderID, src.MissingCoding...)
			d.logger().ErrorContext(r.Context(), "coding time not configured", slog.String("error", cfgErr.Error()))
			d.respond(w, endpointCoding, http.StatusInternalServerError, map[string]string{"error": cfgErr.Error()})
			return
		}

		ctx := upstreamContext(r)
		timeout := src.Settings.UpstreamTimeout
		current, previous := normalize.WeekRanges(d.now(), src.Settings.UTCOffsetHours)

		var in normalize.TimeTrackingInputs
		in.AllTime = call(ctx, d, timeout, wakatime.ProviderID, "all_time", func(ctx context.Context) (*wakatime.AllTimeResponse, error) {
			return src.WakaTime.AllTime(ctx)
		})
		in.CurrentWeek = call(ctx, d, timeout, wakatime.ProviderID, "summaries_current", func(ctx context.Context) (*wakatime.SummaryResponse, error) {
			return src.WakaTime.Summaries(ctx, current.Start, current.End)
		})
		in.PreviousWeek = call(ctx, d, timeout, wakatime.ProviderID, "summaries_previous", func(ctx context.Context) (*wakatime.SummaryResponse, error) {
			return src.WakaTime.Summaries(ctx, previous.Start, previous.End)
		})

		for _, f := range []*providers.AggregationError{in.AllTime.Err, in.CurrentWeek.Err, in.PreviousWeek.Err} {
			if f != nil && f.Kind == providers.FailureUnexpected {
				fail(f.Error())
				return
			}
		}

		summary := normalize.TimeTracking(in)
		setCacheHeaders(w, src.Settings.CacheMaxAge)
		d.respond(w, endpointCoding, http.StatusOK, summary)
	}
}

func (d Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
