package app

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "STATSHUB_"

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
	Env        string `yaml:"env"`

	// Security & hardening.
	CORSOrigins    []string `yaml:"cors_origins"`     // allowed CORS origins; empty = ["*"]
	RateLimitRPS   int      `yaml:"rate_limit_rps"`   // requests per second per IP; 0 disables
	RateLimitBurst int      `yaml:"rate_limit_burst"` // burst capacity per IP

	UpstreamTimeoutSecs int `yaml:"upstream_timeout_secs"`
	CacheMaxAgeSecs     int `yaml:"cache_max_age_secs"`
	// ProbeIntervalSecs enables the background reachability prober; 0 disables.
	ProbeIntervalSecs int `yaml:"probe_interval_secs"`

	Tracing  TracingConfig  `yaml:"tracing"`
	GitHub   GitHubConfig   `yaml:"github"`
	WakaTime WakaTimeConfig `yaml:"wakatime"`
	Umami    UmamiConfig    `yaml:"umami"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

type GitHubConfig struct {
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
	APIURL   string `yaml:"api_url"`

	ContributionsURL      string `yaml:"contributions_url"`
	ContributionsFallback int    `yaml:"contributions_fallback"`
}

type WakaTimeConfig struct {
	APIKey         string `yaml:"api_key"`
	APIURL         string `yaml:"api_url"`
	UTCOffsetHours int    `yaml:"utc_offset_hours"`
}

type UmamiConfig struct {
	APIKey    string `yaml:"api_key"`
	WebsiteID string `yaml:"website_id"`
	APIURL    string `yaml:"api_url"`
	Epoch     string `yaml:"epoch"` // RFC 3339 timestamp or YYYY-MM-DD
}

func defaultConfig() Config {
	return Config{
		ListenAddr:          ":8080",
		LogLevel:            "info",
		Env:                 "development",
		RateLimitRPS:        10,
		RateLimitBurst:      20,
		UpstreamTimeoutSecs: 12,
		CacheMaxAgeSecs:     300,
		GitHub: GitHubConfig{
			ContributionsFallback: 116,
		},
		WakaTime: WakaTimeConfig{UTCOffsetHours: 7},
		Umami:    UmamiConfig{Epoch: "2024-01-01"},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file
// named by STATSHUB_CONFIG_FILE (if any), then STATSHUB_* environment
// variables. Provider credentials may be empty; that only disables the
// endpoints that need them.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(envPrefix + "CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.CORSOrigins = getEnvStringSlice("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.RateLimitRPS = getEnvInt("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.UpstreamTimeoutSecs = getEnvInt("UPSTREAM_TIMEOUT_SECS", cfg.UpstreamTimeoutSecs)
	cfg.CacheMaxAgeSecs = getEnvInt("CACHE_MAX_AGE_SECS", cfg.CacheMaxAgeSecs)
	cfg.ProbeIntervalSecs = getEnvInt("PROBE_INTERVAL_SECS", cfg.ProbeIntervalSecs)

	cfg.Tracing.Enabled = getEnvBool("OTEL_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Endpoint = getEnv("OTEL_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.Tracing.ServiceName)

	cfg.GitHub.Token = getEnv("GITHUB_TOKEN", cfg.GitHub.Token)
	cfg.GitHub.Username = getEnv("GITHUB_USERNAME", cfg.GitHub.Username)
	cfg.GitHub.APIURL = getEnv("GITHUB_API_URL", cfg.GitHub.APIURL)
	cfg.GitHub.ContributionsURL = getEnv("CONTRIBUTIONS_API_URL", cfg.GitHub.ContributionsURL)
	cfg.GitHub.ContributionsFallback = getEnvInt("CONTRIBUTIONS_FALLBACK", cfg.GitHub.ContributionsFallback)

	cfg.WakaTime.APIKey = getEnv("WAKATIME_API_KEY", cfg.WakaTime.APIKey)
	cfg.WakaTime.APIURL = getEnv("WAKATIME_API_URL", cfg.WakaTime.APIURL)
	cfg.WakaTime.UTCOffsetHours = getEnvInt("WAKATIME_UTC_OFFSET_HOURS", cfg.WakaTime.UTCOffsetHours)

	cfg.Umami.APIKey = getEnv("UMAMI_API_KEY", cfg.Umami.APIKey)
	cfg.Umami.WebsiteID = getEnv("UMAMI_WEBSITE_ID", cfg.Umami.WebsiteID)
	cfg.Umami.APIURL = getEnv("UMAMI_API_URL", cfg.Umami.APIURL)
	cfg.Umami.Epoch = getEnv("UMAMI_EPOCH", cfg.Umami.Epoch)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks config values for obviously invalid settings.
func (c Config) Validate() error {
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("STATSHUB_RATE_LIMIT_RPS must be >= 0, got %d", c.RateLimitRPS)
	}
	if c.RateLimitBurst < 0 {
		return fmt.Errorf("STATSHUB_RATE_LIMIT_BURST must be >= 0, got %d", c.RateLimitBurst)
	}
	if c.UpstreamTimeoutSecs <= 0 {
		return fmt.Errorf("STATSHUB_UPSTREAM_TIMEOUT_SECS must be > 0, got %d", c.UpstreamTimeoutSecs)
	}
	if c.CacheMaxAgeSecs < 0 {
		return fmt.Errorf("STATSHUB_CACHE_MAX_AGE_SECS must be >= 0, got %d", c.CacheMaxAgeSecs)
	}
	if c.ProbeIntervalSecs < 0 {
		return fmt.Errorf("STATSHUB_PROBE_INTERVAL_SECS must be >= 0, got %d", c.ProbeIntervalSecs)
	}
	if c.GitHub.ContributionsFallback < 0 {
		return fmt.Errorf("STATSHUB_CONTRIBUTIONS_FALLBACK must be >= 0, got %d", c.GitHub.ContributionsFallback)
	}
	if o := c.WakaTime.UTCOffsetHours; o < -12 || o > 14 {
		return fmt.Errorf("STATSHUB_WAKATIME_UTC_OFFSET_HOURS must be within [-12, 14], got %d", o)
	}
	if _, err := c.TrafficEpoch(); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether error bodies must hide stack traces.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSecs) * time.Second
}

func (c Config) CacheMaxAge() time.Duration {
	return time.Duration(c.CacheMaxAgeSecs) * time.Second
}

// TrafficEpoch is the start of the analytics window.
func (c Config) TrafficEpoch() (time.Time, error) {
	v := strings.TrimSpace(c.Umami.Epoch)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("STATSHUB_UMAMI_EPOCH must be RFC 3339 or YYYY-MM-DD, got %q", c.Umami.Epoch)
	}
	return t, nil
}

// MissingActivity lists the unset variables the activity endpoint needs.
func (c Config) MissingActivity() []string {
	return missing(map[string]string{
		"GITHUB_TOKEN":    c.GitHub.Token,
		"GITHUB_USERNAME": c.GitHub.Username,
	})
}

// MissingCoding lists the unset variables the coding endpoint needs.
func (c Config) MissingCoding() []string {
	return missing(map[string]string{"WAKATIME_API_KEY": c.WakaTime.APIKey})
}

// MissingTraffic lists the unset variables the traffic endpoint needs.
func (c Config) MissingTraffic() []string {
	return missing(map[string]string{
		"UMAMI_API_KEY":    c.Umami.APIKey,
		"UMAMI_WEBSITE_ID": c.Umami.WebsiteID,
	})
}

func missing(vals map[string]string) []string {
	var out []string
	for _, key := range slices.Sorted(maps.Keys(vals)) {
		if strings.TrimSpace(vals[key]) == "" {
			out = append(out, envPrefix+key)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvStringSlice(key string, def []string) []string {
	if v := os.Getenv(envPrefix + key); v != "" {
		var result []string
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				result = append(result, s)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return def
}
