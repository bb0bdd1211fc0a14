package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jordanhubbard/statshub/internal/health"
	"github.com/jordanhubbard/statshub/internal/httpapi"
	"github.com/jordanhubbard/statshub/internal/logging"
	"github.com/jordanhubbard/statshub/internal/metrics"
	"github.com/jordanhubbard/statshub/internal/providers/contributions"
	"github.com/jordanhubbard/statshub/internal/providers/github"
	"github.com/jordanhubbard/statshub/internal/providers/umami"
	"github.com/jordanhubbard/statshub/internal/providers/wakatime"
	"github.com/jordanhubbard/statshub/internal/ratelimit"
	"github.com/jordanhubbard/statshub/internal/tracing"
)

const defaultGitHubAPIURL = "https://api.github.com/"

type Server struct {
	r *chi.Mux

	sources *httpapi.SourceSet
	limiter *ratelimit.Limiter
	prober  *health.Prober
	logger  *slog.Logger
}

func NewServer(cfg Config) (*Server, error) {
	logger := logging.Setup(cfg.LogLevel)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(tracing.Middleware())
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	src, err := buildSources(cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	ht := health.NewTracker(health.DefaultConfig(), health.WithOnUpdate(func(provider string, state health.State) {
		m.ProviderState.WithLabelValues(provider).Set(metrics.StateValue(string(state)))
	}))
	ht.Register(github.ProviderID, contributions.ProviderID, wakatime.ProviderID, umami.ProviderID)

	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, time.Second, ratelimit.WithCounter(m.RateLimited))

	s := &Server{
		r:       r,
		sources: httpapi.NewSourceSet(src),
		limiter: limiter,
		logger:  logger,
	}

	httpapi.MountRoutes(r, httpapi.Dependencies{
		Sources: s.sources,
		Metrics: m,
		Health:  ht,
		Logger:  logger,
	}, limiter.Middleware)

	if cfg.ProbeIntervalSecs > 0 {
		pcfg := health.DefaultProberConfig()
		pcfg.Interval = time.Duration(cfg.ProbeIntervalSecs) * time.Second
		s.prober = health.NewProber(pcfg, ht, probeTargets(cfg), tracing.HTTPClient(pcfg.ProbeTimeout), logger)
		s.prober.Start()
	}

	logConfigured(logger, src)
	return s, nil
}

func (s *Server) Router() http.Handler { return s.r }

// Reload swaps in provider credentials and settings from cfg. Listen
// address, CORS and rate limits keep their startup values.
func (s *Server) Reload(cfg Config) error {
	src, err := buildSources(cfg)
	if err != nil {
		return err
	}
	s.sources.Store(src)
	logging.SetLevel(cfg.LogLevel)
	s.logger.Info("configuration reloaded")
	logConfigured(s.logger, src)
	return nil
}

func (s *Server) Close() error {
	if s.prober != nil {
		s.prober.Stop()
	}
	s.limiter.Stop()
	return nil
}

// buildSources constructs the provider clients for cfg. Clients are built
// even when credentials are missing; the handlers check the Missing lists
// before any call.
func buildSources(cfg Config) (*httpapi.Sources, error) {
	epoch, err := cfg.TrafficEpoch()
	if err != nil {
		return nil, err
	}
	// Per-call deadlines come from the request context; the client timeout
	// is only a backstop.
	client := tracing.HTTPClient(cfg.UpstreamTimeout() + 5*time.Second)

	ghOpts := []github.Option{github.WithHTTPClient(client)}
	if cfg.GitHub.APIURL != "" {
		ghOpts = append(ghOpts, github.WithBaseURL(cfg.GitHub.APIURL))
	}
	gh, err := github.New(cfg.GitHub.Token, ghOpts...)
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}

	return &httpapi.Sources{
		Settings: httpapi.Settings{
			UpstreamTimeout:       cfg.UpstreamTimeout(),
			CacheMaxAge:           cfg.CacheMaxAge(),
			ContributionsFallback: cfg.GitHub.ContributionsFallback,
			UTCOffsetHours:        cfg.WakaTime.UTCOffsetHours,
			TrafficEpoch:          epoch,
			ExposeStacks:          !cfg.IsProduction(),
		},
		GitHub:         gh,
		GitHubUser:     cfg.GitHub.Username,
		Contributions:  contributions.New(cfg.GitHub.ContributionsURL, contributions.WithHTTPClient(client)),
		WakaTime:       wakatime.New(cfg.WakaTime.APIKey, wakatime.WithHTTPClient(client), wakatime.WithBaseURL(cfg.WakaTime.APIURL)),
		Umami:          umami.New(cfg.Umami.APIKey, umami.WithHTTPClient(client), umami.WithBaseURL(cfg.Umami.APIURL)),
		UmamiWebsiteID: cfg.Umami.WebsiteID,

		MissingActivity: cfg.MissingActivity(),
		MissingCoding:   cfg.MissingCoding(),
		MissingTraffic:  cfg.MissingTraffic(),
	}, nil
}

// probeTargets lists the API roots of every provider an endpoint is
// configured for.
func probeTargets(cfg Config) []health.Target {
	var targets []health.Target
	if len(cfg.MissingActivity()) == 0 {
		targets = append(targets,
			health.Target{Provider: github.ProviderID, URL: firstNonEmpty(cfg.GitHub.APIURL, defaultGitHubAPIURL)},
			health.Target{Provider: contributions.ProviderID, URL: firstNonEmpty(cfg.GitHub.ContributionsURL, contributions.DefaultBaseURL)},
		)
	}
	if len(cfg.MissingCoding()) == 0 {
		targets = append(targets, health.Target{Provider: wakatime.ProviderID, URL: firstNonEmpty(cfg.WakaTime.APIURL, wakatime.BaseURL)})
	}
	if len(cfg.MissingTraffic()) == 0 {
		targets = append(targets, health.Target{Provider: umami.ProviderID, URL: firstNonEmpty(cfg.Umami.APIURL, umami.BaseURL)})
	}
	return targets
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func logConfigured(logger *slog.Logger, src *httpapi.Sources) {
	for endpoint, miss := range map[string][]string{
		"activity": src.MissingActivity,
		"coding":   src.MissingCoding,
		"traffic":  src.MissingTraffic,
	} {
		if len(miss) > 0 {
			logger.Warn("endpoint not configured", slog.String("endpoint", endpoint), slog.Any("missing", miss))
		}
	}
}
