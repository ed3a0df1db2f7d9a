package config

import (
	"strings"
	"testing"
	"time"
)

// memBackend is an in-memory ConfigBackend that keeps values in the type
// they were stored with.
type memBackend struct {
	values map[string]any
}

func newMemBackend() *memBackend {
	return &memBackend{values: map[string]any{}}
}

func (m *memBackend) Get(key string) (any, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memBackend) Set(key string, val any) error {
	m.values[key] = val
	return nil
}

func (m *memBackend) Delete(key string) error {
	delete(m.values, key)
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when the backend is empty.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("Backend.BaseURL = %q, want %q", cfg.Backend.BaseURL, "http://localhost:8000")
	}
	if cfg.Backend.Timeout != 60*time.Second {
		t.Errorf("Backend.Timeout = %s, want 60s", cfg.Backend.Timeout)
	}
	if cfg.Backend.RateLimit != 0 {
		t.Errorf("Backend.RateLimit = %v, want 0", cfg.Backend.RateLimit)
	}
	if cfg.Backend.RateBurst != 1 {
		t.Errorf("Backend.RateBurst = %d, want 1", cfg.Backend.RateBurst)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Metrics.Addr != "" {
		t.Errorf("Metrics.Addr = %q, want empty", cfg.Metrics.Addr)
	}
}

// TestBackendValues verifies that stored values of every type are read.
func TestBackendValues(t *testing.T) {
	clearEnv(t)
	b := newMemBackend()
	b.values["backend.base_url"] = "https://qa.example.com"
	b.values["backend.timeout"] = "15s"
	b.values["backend.rate_limit"] = 2.5
	b.values["backend.rate_burst"] = 4
	b.values["log.level"] = "debug"
	b.values["metrics.addr"] = "127.0.0.1:9100"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Backend.BaseURL != "https://qa.example.com" {
		t.Errorf("Backend.BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 15*time.Second {
		t.Errorf("Backend.Timeout = %s", cfg.Backend.Timeout)
	}
	if cfg.Backend.RateLimit != 2.5 {
		t.Errorf("Backend.RateLimit = %v", cfg.Backend.RateLimit)
	}
	if cfg.Backend.RateBurst != 4 {
		t.Errorf("Backend.RateBurst = %d", cfg.Backend.RateBurst)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9100" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := newMemBackend()
	b.values["backend.base_url"] = "http://from-file:8000"

	t.Setenv("DOCQA_BACKEND_BASE_URL", "http://from-env:9000")
	t.Setenv("DOCQA_BACKEND_TIMEOUT", "2m")
	t.Setenv("DOCQA_BACKEND_RATE_BURST", "3")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://from-env:9000" {
		t.Errorf("Backend.BaseURL = %q, want env value", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 2*time.Minute {
		t.Errorf("Backend.Timeout = %s, want 2m", cfg.Backend.Timeout)
	}
	if cfg.Backend.RateBurst != 3 {
		t.Errorf("Backend.RateBurst = %d, want 3", cfg.Backend.RateBurst)
	}
}

// TestUnparsableValuesKeepDefaults verifies bad values are skipped, not fatal.
func TestUnparsableValuesKeepDefaults(t *testing.T) {
	clearEnv(t)
	b := newMemBackend()
	b.values["backend.timeout"] = "soon"
	b.values["backend.rate_burst"] = "x"
	t.Setenv("DOCQA_BACKEND_RATE_LIMIT", "fast")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.RateBurst != 1 {
		t.Errorf("Backend.RateBurst = %d, want default", cfg.Backend.RateBurst)
	}
	if cfg.Backend.Timeout != 60*time.Second {
		t.Errorf("Backend.Timeout = %s, want default", cfg.Backend.Timeout)
	}
	if cfg.Backend.RateLimit != 0 {
		t.Errorf("Backend.RateLimit = %v, want default", cfg.Backend.RateLimit)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"relative url", map[string]string{"DOCQA_BACKEND_BASE_URL": "localhost:8000"}, "absolute http(s) URL"},
		{"ftp url", map[string]string{"DOCQA_BACKEND_BASE_URL": "ftp://host"}, "absolute http(s) URL"},
		{"zero timeout", map[string]string{"DOCQA_BACKEND_TIMEOUT": "0s"}, "backend.timeout"},
		{"negative rate", map[string]string{"DOCQA_BACKEND_RATE_LIMIT": "-1"}, "backend.rate_limit"},
		{"zero burst", map[string]string{"DOCQA_BACKEND_RATE_BURST": "0"}, "backend.rate_burst"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadWith(newMemBackend())
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestSetKey(t *testing.T) {
	b := newMemBackend()

	if err := setKeyWith(b, "backend.rate_burst", "5"); err != nil {
		t.Fatalf("set rate_burst: %v", err)
	}
	if v, ok := b.values["backend.rate_burst"].(int); !ok || v != 5 {
		t.Errorf("rate_burst stored as %#v", b.values["backend.rate_burst"])
	}

	if err := setKeyWith(b, "backend.timeout", "30s"); err != nil {
		t.Fatalf("set timeout: %v", err)
	}
	if b.values["backend.timeout"] != "30s" {
		t.Errorf("timeout stored as %#v", b.values["backend.timeout"])
	}

	if err := setKeyWith(b, "backend.rate_limit", "0.5"); err != nil {
		t.Fatalf("set rate_limit: %v", err)
	}
	if v, ok := b.values["backend.rate_limit"].(float64); !ok || v != 0.5 {
		t.Errorf("rate_limit stored as %#v", b.values["backend.rate_limit"])
	}

	if err := setKeyWith(b, "backend.base_url", "https://qa.internal"); err != nil {
		t.Fatalf("set base_url: %v", err)
	}
}

func TestSetKey_Rejects(t *testing.T) {
	b := newMemBackend()

	tests := []struct {
		key, value, want string
	}{
		{"nope.key", "x", "unknown config key"},
		{"backend.rate_burst", "many", "invalid value"},
		{"backend.timeout", "forever", "invalid value"},
		{"backend.rate_limit", "fast", "invalid value"},
		{"backend.base_url", "not a url", "absolute http(s) URL"},
	}
	for _, tt := range tests {
		err := setKeyWith(b, tt.key, tt.value)
		if err == nil {
			t.Errorf("setKeyWith(%q, %q) = nil, want error", tt.key, tt.value)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("setKeyWith(%q) error = %q, want it to contain %q", tt.key, err.Error(), tt.want)
		}
	}
	if len(b.values) != 0 {
		t.Errorf("rejected values were stored: %v", b.values)
	}
}

func TestShowAllListsEveryKey(t *testing.T) {
	infos := ShowAll(defaults())
	if len(infos) != len(ValidKeys()) {
		t.Fatalf("ShowAll returned %d keys, ValidKeys %d", len(infos), len(ValidKeys()))
	}
	for _, info := range infos {
		if !strings.HasPrefix(info.EnvVar, "DOCQA_") {
			t.Errorf("key %s has env var %q", info.Key, info.EnvVar)
		}
		if info.Key == "backend.timeout" && info.Value != "1m0s" {
			t.Errorf("backend.timeout shown as %q", info.Value)
		}
	}
}

func TestUnsetKey(t *testing.T) {
	clearEnv(t)
	b := newMemBackend()
	if err := setKeyWith(b, "backend.base_url", "http://other:1234"); err != nil {
		t.Fatal(err)
	}
	if err := unsetKeyWith(b, "backend.base_url"); err != nil {
		t.Fatalf("unset: %v", err)
	}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("Backend.BaseURL = %q, want default after unset", cfg.Backend.BaseURL)
	}

	if err := unsetKeyWith(b, "nope"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestBackendValues_NativeNumbers(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		raw   any
		check func(Config) bool
	}{
		{"int from json number", "backend.rate_burst", float64(6), func(c Config) bool { return c.Backend.RateBurst == 6 }},
		{"int from text", "backend.rate_burst", "7", func(c Config) bool { return c.Backend.RateBurst == 7 }},
		{"fractional int ignored", "backend.rate_burst", 2.5, func(c Config) bool { return c.Backend.RateBurst == 1 }},
		{"float from text", "backend.rate_limit", "1.5", func(c Config) bool { return c.Backend.RateLimit == 1.5 }},
		{"duration as seconds", "backend.timeout", float64(90), func(c Config) bool { return c.Backend.Timeout == 90*time.Second }},
		{"wrong type ignored", "backend.timeout", true, func(c Config) bool { return c.Backend.Timeout == time.Minute }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			b := newMemBackend()
			b.values[tt.key] = tt.raw

			cfg, err := loadWith(b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("%s = %#v gave %+v", tt.key, tt.raw, cfg.Backend)
			}
		})
	}
}
