package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/jordanhubbard/statshub/internal/normalize"
	"github.com/jordanhubbard/statshub/internal/providers"
	"github.com/jordanhubbard/statshub/internal/providers/contributions"
	"github.com/jordanhubbard/statshub/internal/providers/github"
)

const endpointActivity = "activity"

// ActivityErrorResponse is the activity failure body.
type ActivityErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ActivityHandler serves the profile, top repositories and contribution
// calendar. The three upstream calls run concurrently, each under its own
// deadline, and a failed call only blanks its own fields.
func ActivityHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := func(v any) {
			d.logger().ErrorContext(r.Context(), "activity handler panic", slog.Any("panic", v))
			d.respond(w, endpointActivity, http.StatusInternalServerError, ActivityErrorResponse{
				Error:   "Failed to fetch activity stats",
				Details: fmt.Sprint(v),
			})
		}
		defer func() {
			if v := recover(); v != nil {
				fail(v)
			}
		}()

		src := d.Sources.Load()
		if len(src.MissingActivity) > 0 {
			cfgErr := providers.ConfigError(github.ProviderID, src.MissingActivity...)
			d.logger().ErrorContext(r.Context(), "activity not configured", slog.String("error", cfgErr.Error()))
			d.respond(w, endpointActivity, http.StatusInternalServerError, ActivityErrorResponse{Error: cfgErr.Error()})
			return
		}

		ctx := upstreamContext(r)
		timeout := src.Settings.UpstreamTimeout
		var in normalize.ActivityInputs

		var g errgroup.Group
		g.Go(func() error {
			in.Profile = call(ctx, d, timeout, github.ProviderID, "profile", func(ctx context.Context) (github.Profile, error) {
				return src.GitHub.Profile(ctx, src.GitHubUser)
			})
			return nil
		})
		g.Go(func() error {
			in.Repos = call(ctx, d, timeout, github.ProviderID, "repos", func(ctx context.Context) ([]github.Repo, error) {
				return src.GitHub.Repos(ctx, src.GitHubUser)
			})
			return nil
		})
		g.Go(func() error {
			in.Calendar = call(ctx, d, timeout, contributions.ProviderID, "calendar", func(ctx context.Context) (contributions.Calendar, error) {
				return src.Contributions.Calendar(ctx, src.GitHubUser)
			})
			return nil
		})
		_ = g.Wait()

		if pe := recoveredPanic(in.Profile.Err, in.Repos.Err, in.Calendar.Err); pe != nil {
			fail(pe.value)
			return
		}

		summary := normalize.Activity(in, normalize.ActivityDefaults{
			ContributionsFallback: src.Settings.ContributionsFallback,
		})
		setCacheHeaders(w, src.Settings.CacheMaxAge)
		d.respond(w, endpointActivity, http.StatusOK, summary)
	}
}
