package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "backend.base_url", typ: kString, env: "DOCQA_BACKEND_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Backend.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Backend.BaseURL },
	},
	{
		key: "backend.timeout", typ: kDuration, env: "DOCQA_BACKEND_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Backend.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Backend.Timeout },
	},
	{
		key: "backend.rate_limit", typ: kFloat, env: "DOCQA_BACKEND_RATE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Backend.RateLimit = v.(float64) },
		extract: func(cfg Config) any { return cfg.Backend.RateLimit },
	},
	{
		key: "backend.rate_burst", typ: kInt, env: "DOCQA_BACKEND_RATE_BURST",
		apply:   func(cfg *Config, v any) { cfg.Backend.RateBurst = v.(int) },
		extract: func(cfg Config) any { return cfg.Backend.RateBurst },
	},
	{
		key: "log.level", typ: kString, env: "DOCQA_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "metrics.addr", typ: kString, env: "DOCQA_METRICS_ADDR",
		apply:   func(cfg *Config, v any) { cfg.Metrics.Addr = v.(string) },
		extract: func(cfg Config) any { return cfg.Metrics.Addr },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parse converts a raw string into the type apply expects.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

// coerce converts a value read from a ConfigBackend. Backends hand back
// whatever they stored natively: JSON numbers arrive as float64, `defaults`
// output always arrives as text.
func (s keySpec) coerce(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return s.parse(v)
	case int:
		return s.coerce(float64(v))
	case float64:
		switch s.typ {
		case kInt:
			if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
				return nil, fmt.Errorf("%v is not an integer", v)
			}
			return int(v), nil
		case kFloat:
			return v, nil
		case kDuration:
			// Bare numbers are seconds.
			return time.Duration(v * float64(time.Second)), nil
		default:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

// stored is the native form a parsed value is persisted in.
func (s keySpec) stored(v any) any {
	if d, ok := v.(time.Duration); ok {
		return d.String()
	}
	return v
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		raw, ok, err := b.Get(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok {
			continue
		}
		if str, isStr := raw.(string); isStr && str == "" && s.typ != kString {
			continue
		}
		v, err := s.coerce(raw)
		if err != nil {
			slog.Warn("could not parse config value, using default", "key", s.key, "value", raw, "error", err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			slog.Warn("could not parse env var, using default", "env", s.env, "value", raw, "error", err)
			continue
		}
		s.apply(cfg, v)
	}
}
