package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Backend BackendConfig
	Log     LogConfig
	Metrics MetricsConfig
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is requests per second; zero disables pacing.
	RateLimit float64
	RateBurst int
}

type LogConfig struct {
	Level string
}

type MetricsConfig struct {
	// Addr is the listen address of the metrics endpoint; empty disables it.
	Addr string
}

func defaults() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:   "http://localhost:8000",
			Timeout:   60 * time.Second,
			RateBurst: 1,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.docqa.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/docqa/config.json.
//
// Environment variables (DOCQA_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would make every backend request fail.
func (c Config) Validate() error {
	if err := ValidateBaseURL(c.Backend.BaseURL); err != nil {
		return err
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("invalid config: backend.timeout must be positive, got %s", c.Backend.Timeout)
	}
	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("invalid config: backend.rate_limit must not be negative, got %v", c.Backend.RateLimit)
	}
	if c.Backend.RateBurst < 1 {
		return fmt.Errorf("invalid config: backend.rate_burst must be at least 1, got %d", c.Backend.RateBurst)
	}
	return nil
}

// ValidateBaseURL reports whether raw is an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid config: backend.base_url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid config: backend.base_url %q must be an absolute http(s) URL", raw)
	}
	return nil
}
