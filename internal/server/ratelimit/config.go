package ratelimit

import (
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/job-matcher/internal/config"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

const defaultCleanupInterval = 5 * time.Minute

// FromSettings builds the limiter configuration from service settings.
func FromSettings(s config.RateLimitConfig) *Config {
	if !s.Enabled {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    s.DefaultLimit,
		DefaultWindow:   s.DefaultWindow,
		CleanupInterval: defaultCleanupInterval,
		Whitelist:       ipSet(s.Whitelist),
		Blacklist:       ipSet(s.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(s.ReviewLimit, s.ReviewWindow),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific limits. Reviews call a
// language model and get the review limit; batch scoring and realtime search
// sit between reviews and the default.
func DefaultEndpointConfigs(reviewLimit int, reviewWindow time.Duration) []EndpointConfig {
	reviewBurst := max(1, reviewLimit/5)
	return []EndpointConfig{
		{Path: "/resume/review", Method: http.MethodPost, Limit: reviewLimit, Window: reviewWindow, Burst: reviewBurst},
		{Path: "/resume/review-file", Method: http.MethodPost, Limit: reviewLimit, Window: reviewWindow, Burst: reviewBurst},

		{Path: "/resume/fit/batch", Method: http.MethodPost, Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/jobs/realtime", Method: http.MethodGet, Limit: 60, Window: time.Minute, Burst: 10},

		{Path: "/saved-jobs/", Method: http.MethodPost, Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/saved-jobs/", Method: http.MethodDelete, Limit: 100, Window: time.Minute, Burst: 10},
	}
}

// ipSet turns a list of addresses into a lookup set.
func ipSet(list []string) map[string]bool {
	result := make(map[string]bool, len(list))
	for _, ip := range list {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}
