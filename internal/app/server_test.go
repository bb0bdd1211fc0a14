package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"STATSHUB_CONFIG_FILE",
	"STATSHUB_LISTEN_ADDR",
	"STATSHUB_LOG_LEVEL",
	"STATSHUB_ENV",
	"STATSHUB_CORS_ORIGINS",
	"STATSHUB_RATE_LIMIT_RPS",
	"STATSHUB_RATE_LIMIT_BURST",
	"STATSHUB_UPSTREAM_TIMEOUT_SECS",
	"STATSHUB_CACHE_MAX_AGE_SECS",
	"STATSHUB_PROBE_INTERVAL_SECS",
	"STATSHUB_OTEL_ENABLED",
	"STATSHUB_GITHUB_TOKEN",
	"STATSHUB_GITHUB_USERNAME",
	"STATSHUB_GITHUB_API_URL",
	"STATSHUB_CONTRIBUTIONS_API_URL",
	"STATSHUB_CONTRIBUTIONS_FALLBACK",
	"STATSHUB_WAKATIME_API_KEY",
	"STATSHUB_WAKATIME_API_URL",
	"STATSHUB_WAKATIME_UTC_OFFSET_HOURS",
	"STATSHUB_UMAMI_API_KEY",
	"STATSHUB_UMAMI_WEBSITE_ID",
	"STATSHUB_UMAMI_API_URL",
	"STATSHUB_UMAMI_EPOCH",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":8080")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.IsProduction() {
		t.Errorf("IsProduction() = true for Env %q", cfg.Env)
	}
	if cfg.UpstreamTimeout() != 12*time.Second {
		t.Errorf("UpstreamTimeout() = %v, want 12s", cfg.UpstreamTimeout())
	}
	if cfg.CacheMaxAgeSecs != 300 {
		t.Errorf("CacheMaxAgeSecs = %d, want 300", cfg.CacheMaxAgeSecs)
	}
	if cfg.GitHub.ContributionsFallback != 116 {
		t.Errorf("ContributionsFallback = %d, want 116", cfg.GitHub.ContributionsFallback)
	}
	if cfg.WakaTime.UTCOffsetHours != 7 {
		t.Errorf("UTCOffsetHours = %d, want 7", cfg.WakaTime.UTCOffsetHours)
	}
	epoch, err := cfg.TrafficEpoch()
	if err != nil || !epoch.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("TrafficEpoch() = %v, %v", epoch, err)
	}
	if cfg.ProbeIntervalSecs != 0 {
		t.Errorf("ProbeIntervalSecs = %d, want 0", cfg.ProbeIntervalSecs)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATSHUB_LISTEN_ADDR", ":9090")
	t.Setenv("STATSHUB_LOG_LEVEL", "debug")
	t.Setenv("STATSHUB_ENV", "Production")
	t.Setenv("STATSHUB_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("STATSHUB_UPSTREAM_TIMEOUT_SECS", "5")
	t.Setenv("STATSHUB_GITHUB_TOKEN", "ghp_x")
	t.Setenv("STATSHUB_GITHUB_USERNAME", "octo")
	t.Setenv("STATSHUB_UMAMI_EPOCH", "2023-06-01T12:00:00Z")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout())
	assert.Empty(t, cfg.MissingActivity())

	epoch, err := cfg.TrafficEpoch()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC), epoch.UTC())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "statshub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":7070"
cache_max_age_secs: 60
github:
  username: from-file
wakatime:
  api_key: waka-file
  utc_offset_hours: -5
umami:
  website_id: site-file
`), 0o600))
	t.Setenv("STATSHUB_CONFIG_FILE", path)
	t.Setenv("STATSHUB_GITHUB_USERNAME", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, 60*time.Second, cfg.CacheMaxAge())
	assert.Equal(t, "from-env", cfg.GitHub.Username, "env overrides the file")
	assert.Equal(t, "waka-file", cfg.WakaTime.APIKey)
	assert.Equal(t, -5, cfg.WakaTime.UTCOffsetHours)
	assert.Equal(t, "info", cfg.LogLevel, "defaults survive a partial file")
}

func TestLoadConfigFileErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATSHUB_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [unterminated"), 0o600))
	t.Setenv("STATSHUB_CONFIG_FILE", path)
	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"rate limit disabled", func(c *Config) { c.RateLimitRPS = 0 }, ""},
		{"negative rps", func(c *Config) { c.RateLimitRPS = -1 }, "STATSHUB_RATE_LIMIT_RPS"},
		{"zero timeout", func(c *Config) { c.UpstreamTimeoutSecs = 0 }, "STATSHUB_UPSTREAM_TIMEOUT_SECS"},
		{"negative cache age", func(c *Config) { c.CacheMaxAgeSecs = -1 }, "STATSHUB_CACHE_MAX_AGE_SECS"},
		{"negative probe interval", func(c *Config) { c.ProbeIntervalSecs = -1 }, "STATSHUB_PROBE_INTERVAL_SECS"},
		{"offset out of range", func(c *Config) { c.WakaTime.UTCOffsetHours = 15 }, "STATSHUB_WAKATIME_UTC_OFFSET_HOURS"},
		{"bad epoch", func(c *Config) { c.Umami.Epoch = "last tuesday" }, "STATSHUB_UMAMI_EPOCH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMissingCredentials(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t, []string{"STATSHUB_GITHUB_TOKEN", "STATSHUB_GITHUB_USERNAME"}, cfg.MissingActivity())
	assert.Equal(t, []string{"STATSHUB_WAKATIME_API_KEY"}, cfg.MissingCoding())
	assert.Equal(t, []string{"STATSHUB_UMAMI_API_KEY", "STATSHUB_UMAMI_WEBSITE_ID"}, cfg.MissingTraffic())

	cfg.GitHub.Token = "t"
	cfg.Umami.WebsiteID = "  "
	assert.Equal(t, []string{"STATSHUB_GITHUB_USERNAME"}, cfg.MissingActivity())
	assert.Equal(t, []string{"STATSHUB_UMAMI_API_KEY", "STATSHUB_UMAMI_WEBSITE_ID"}, cfg.MissingTraffic())
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func getJSON(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestServerUnconfigured(t *testing.T) {
	srv := newTestServer(t, defaultConfig())

	rec, body := getJSON(t, srv.Router(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unconfigured", body["status"])

	rec, body = getJSON(t, srv.Router(), "/api/stats/coding")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "wakatime: missing configuration: STATSHUB_WAKATIME_API_KEY", body["error"])

	rec, body = getJSON(t, srv.Router(), "/admin/v1/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["providers"], 4)
}

func TestServerCodingEndToEnd(t *testing.T) {
	waka := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Basic d2FrYS1rZXk=", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/users/current/all_time_since_today":
			_, _ = w.Write([]byte(`{"data":{"total_seconds":7200,"text":"2 hrs"}}`))
		default:
			_, _ = w.Write([]byte(`{"cumulative_total":{"seconds":0}}`))
		}
	}))
	defer waka.Close()

	cfg := defaultConfig()
	cfg.WakaTime.APIKey = "waka-key"
	cfg.WakaTime.APIURL = waka.URL
	srv := newTestServer(t, cfg)

	rec, body := getJSON(t, srv.Router(), "/api/stats/coding")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2h", body["totalTime"])
	assert.Equal(t, "public, s-maxage=300, stale-while-revalidate=600", rec.Header().Get("Cache-Control"))
}

func TestServerReloadSwapsCredentials(t *testing.T) {
	srv := newTestServer(t, defaultConfig())

	rec, _ := getJSON(t, srv.Router(), "/api/stats/traffic")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	umamiAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "umami-key", r.Header.Get("x-umami-api-key"))
		_, _ = w.Write([]byte(`{"pageviews":{"value":4}}`))
	}))
	defer umamiAPI.Close()

	cfg := defaultConfig()
	cfg.Umami.APIKey = "umami-key"
	cfg.Umami.WebsiteID = "site"
	cfg.Umami.APIURL = umamiAPI.URL
	require.NoError(t, srv.Reload(cfg))

	rec, body := getJSON(t, srv.Router(), "/api/stats/traffic")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, body["summary"].(map[string]any)["pageviews"])

	bad := cfg
	bad.Umami.Epoch = "nope"
	assert.Error(t, srv.Reload(bad))
}

func TestServerRateLimitsStatsOnly(t *testing.T) {
	cfg := defaultConfig()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	srv := newTestServer(t, cfg)

	first, _ := getJSON(t, srv.Router(), "/api/stats/coding")
	assert.Equal(t, http.StatusInternalServerError, first.Code)
	second, body := getJSON(t, srv.Router(), "/api/stats/coding")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "rate limit exceeded", body["error"])

	rec, _ := getJSON(t, srv.Router(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerCORS(t *testing.T) {
	cfg := defaultConfig()
	cfg.CORSOrigins = []string{"https://portfolio.example"}
	srv := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://portfolio.example")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, "https://portfolio.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestProbeTargets(t *testing.T) {
	cfg := defaultConfig()
	assert.Empty(t, probeTargets(cfg))

	cfg.WakaTime.APIKey = "k"
	cfg.WakaTime.APIURL = "https://wakapi.example/api/compat/wakatime/v1"
	targets := probeTargets(cfg)
	require.Len(t, targets, 1)
	assert.Equal(t, "wakatime", targets[0].Provider)
	assert.Equal(t, cfg.WakaTime.APIURL, targets[0].URL)

	cfg.GitHub.Token, cfg.GitHub.Username = "t", "u"
	assert.Len(t, probeTargets(cfg), 3)
}
