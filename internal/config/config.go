// Package config loads service configuration from an optional YAML or JSON
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Adzuna    AdzunaConfig    `mapstructure:"adzuna"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Freshness FreshnessConfig `mapstructure:"freshness"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigin   string        `mapstructure:"cors_origin"`
}

// DatabaseConfig selects the record store. An empty URL means in-memory.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig enables the scraped page cache when URL is set.
type RedisConfig struct {
	URL     string        `mapstructure:"url"`
	PageTTL time.Duration `mapstructure:"page_ttl"`
}

// AdzunaConfig holds provider credentials and transport settings.
type AdzunaConfig struct {
	AppID        string        `mapstructure:"app_id"`
	AppKey       string        `mapstructure:"app_key"`
	Country      string        `mapstructure:"country"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// IngestionConfig bounds enrichment and paging for realtime search.
type IngestionConfig struct {
	EnrichLimit     int           `mapstructure:"enrich_limit"`
	EnrichWorkers   int           `mapstructure:"enrich_workers"`
	EnrichBudget    time.Duration `mapstructure:"enrich_budget"`
	EnrichRate      float64       `mapstructure:"enrich_rate"`
	EnrichBurst     int           `mapstructure:"enrich_burst"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
}

// ScrapeConfig configures detail page fetching.
type ScrapeConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	UseBrowser     bool          `mapstructure:"use_browser"`
	BrowserTimeout time.Duration `mapstructure:"browser_timeout"`
	MinWords       int           `mapstructure:"min_words"`
}

// FreshnessConfig schedules the freshness monitor.
type FreshnessConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Interval           time.Duration `mapstructure:"interval"`
	StaleAfter         time.Duration `mapstructure:"stale_after"`
	ExpiryConfirmAfter time.Duration `mapstructure:"expiry_confirm_after"`
	Retention          time.Duration `mapstructure:"retention"`
	BatchSize          int           `mapstructure:"batch_size"`
}

// LLMConfig selects the narrative feedback model.
type LLMConfig struct {
	Provider    string            `mapstructure:"provider"`
	APIKey      string            `mapstructure:"api_key"`
	BaseURL     string            `mapstructure:"base_url"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	MaxAttempts int               `mapstructure:"max_attempts"`
	Models      map[string]string `mapstructure:"models"`
}

// AuthConfig verifies bearer tokens for saved-listing routes. An empty
// secret disables those routes.
type AuthConfig struct {
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

// RateLimitConfig configures per-client request limits.
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DefaultLimit  int           `mapstructure:"default_limit"`
	DefaultWindow time.Duration `mapstructure:"default_window"`
	ReviewLimit   int           `mapstructure:"review_limit"`
	ReviewWindow  time.Duration `mapstructure:"review_window"`
	Whitelist     []string      `mapstructure:"whitelist"`
	Blacklist     []string      `mapstructure:"blacklist"`
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string][]string{
	"server.port":        {"PORT"},
	"database.url":       {"DATABASE_URL"},
	"redis.url":          {"REDIS_URL"},
	"adzuna.app_id":      {"ADZUNA_APP_ID"},
	"adzuna.app_key":     {"ADZUNA_APP_KEY"},
	"adzuna.country":     {"ADZUNA_COUNTRY"},
	"llm.provider":       {"LLM_PROVIDER"},
	"llm.api_key":        {"LLM_API_KEY"},
	"llm.base_url":       {"LLM_BASE_URL"},
	"auth.token_secret":  {"JWT_SECRET"},
	"ratelimit.enabled":  {"RATE_LIMIT_ENABLED"},
	"freshness.enabled":  {"FRESHNESS_ENABLED"},
	"scrape.use_browser": {"SCRAPE_USE_BROWSER"},
	"log.json":           {"LOG_JSON"},
	"log.debug":          {"LOG_DEBUG"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.cors_origin", "*")

	v.SetDefault("redis.page_ttl", 24*time.Hour)

	v.SetDefault("adzuna.country", "us")
	v.SetDefault("adzuna.base_url", "https://api.adzuna.com/v1/api/jobs")
	v.SetDefault("adzuna.timeout", 15*time.Second)
	v.SetDefault("adzuna.retry_backoff", 500*time.Millisecond)

	v.SetDefault("ingestion.enrich_limit", 5)
	v.SetDefault("ingestion.enrich_workers", 3)
	v.SetDefault("ingestion.enrich_budget", 8*time.Second)
	v.SetDefault("ingestion.enrich_rate", 2.0)
	v.SetDefault("ingestion.enrich_burst", 2)
	v.SetDefault("ingestion.default_page_size", 20)
	v.SetDefault("ingestion.max_page_size", 50)

	v.SetDefault("scrape.timeout", 15*time.Second)
	v.SetDefault("scrape.use_browser", false)
	v.SetDefault("scrape.browser_timeout", 20*time.Second)
	v.SetDefault("scrape.min_words", 50)

	v.SetDefault("freshness.enabled", true)
	v.SetDefault("freshness.interval", 24*time.Hour)
	v.SetDefault("freshness.stale_after", 72*time.Hour)
	v.SetDefault("freshness.expiry_confirm_after", 24*time.Hour)
	v.SetDefault("freshness.retention", 720*time.Hour)
	v.SetDefault("freshness.batch_size", 200)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.timeout", 45*time.Second)
	v.SetDefault("llm.max_attempts", 2)

	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.default_limit", 120)
	v.SetDefault("ratelimit.default_window", time.Minute)
	v.SetDefault("ratelimit.review_limit", 10)
	v.SetDefault("ratelimit.review_window", time.Minute)

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment apply. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.resolveLLMKey()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveLLMKey falls back to the provider's own key variable.
func (c *Config) resolveLLMKey() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case "openai":
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	default:
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	positive := map[string]time.Duration{
		"server.read_timeout":            c.Server.ReadTimeout,
		"server.write_timeout":           c.Server.WriteTimeout,
		"server.idle_timeout":            c.Server.IdleTimeout,
		"adzuna.timeout":                 c.Adzuna.Timeout,
		"adzuna.retry_backoff":           c.Adzuna.RetryBackoff,
		"ingestion.enrich_budget":        c.Ingestion.EnrichBudget,
		"scrape.timeout":                 c.Scrape.Timeout,
		"scrape.browser_timeout":         c.Scrape.BrowserTimeout,
		"freshness.interval":             c.Freshness.Interval,
		"freshness.stale_after":          c.Freshness.StaleAfter,
		"freshness.expiry_confirm_after": c.Freshness.ExpiryConfirmAfter,
		"freshness.retention":            c.Freshness.Retention,
		"llm.timeout":                    c.LLM.Timeout,
		"redis.page_ttl":                 c.Redis.PageTTL,
	}
	for _, key := range sortedKeys(positive) {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("config error: %q must be a positive duration, got %s", key, positive[key]))
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("config error: 'server.port' out of range: %d", c.Server.Port))
	}
	if c.Ingestion.EnrichWorkers < 1 {
		errs = append(errs, fmt.Errorf("config error: 'ingestion.enrich_workers' must be at least 1"))
	}
	if c.Ingestion.EnrichLimit < 0 {
		errs = append(errs, fmt.Errorf("config error: 'ingestion.enrich_limit' must be non-negative"))
	}
	if c.Ingestion.MaxPageSize < 1 || c.Ingestion.MaxPageSize > 50 {
		errs = append(errs, fmt.Errorf("config error: 'ingestion.max_page_size' must be between 1 and 50"))
	}
	if c.Ingestion.DefaultPageSize < 1 || c.Ingestion.DefaultPageSize > c.Ingestion.MaxPageSize {
		errs = append(errs, fmt.Errorf("config error: 'ingestion.default_page_size' must be between 1 and max_page_size"))
	}
	if c.Freshness.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("config error: 'freshness.batch_size' must be at least 1"))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("config error: 'llm.max_attempts' must be at least 1"))
	}
	if c.LLM.Provider != "" && c.LLM.Provider != "gemini" && c.LLM.Provider != "openai" {
		errs = append(errs, fmt.Errorf("config error: unsupported 'llm.provider' %q", c.LLM.Provider))
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.DefaultLimit < 1 || c.RateLimit.ReviewLimit < 1 {
			errs = append(errs, fmt.Errorf("config error: rate limits must be at least 1 when enabled"))
		}
		if c.RateLimit.DefaultWindow <= 0 || c.RateLimit.ReviewWindow <= 0 {
			errs = append(errs, fmt.Errorf("config error: rate limit windows must be positive when enabled"))
		}
	}
	return errors.Join(errs...)
}

// Warnings lists settings that are allowed but probably unintended.
func (c *Config) Warnings() []string {
	var out []string
	if c.Freshness.ExpiryConfirmAfter >= c.Freshness.StaleAfter {
		out = append(out, fmt.Sprintf("freshness.expiry_confirm_after (%s) is not shorter than freshness.stale_after (%s)",
			c.Freshness.ExpiryConfirmAfter, c.Freshness.StaleAfter))
	}
	if c.Adzuna.AppID == "" || c.Adzuna.AppKey == "" {
		out = append(out, "adzuna credentials are not set; realtime search will report the provider unavailable")
	}
	if c.LLM.APIKey == "" {
		out = append(out, "no language model API key; reviews will use default narrative")
	}
	if c.Auth.TokenSecret == "" {
		out = append(out, "JWT_SECRET is not set; saved-listing routes are disabled")
	}
	return out
}

// Addr returns the listen address for the HTTP server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func sortedKeys(m map[string]time.Duration) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
