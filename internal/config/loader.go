package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "HISCORE_"
	envFileVar = "HISCORE_CONFIG"
)

// legacyEnv maps unprefixed variables accepted for compatibility to their keys.
var legacyEnv = map[string]string{ //nolint:gochecknoglobals // fixed lookup table
	"DATABASE_URL": "database_url",
	"PORT":         "port",
	"PG_SSL":       "pg_ssl",
	"LOG_LEVEL":    "log_level",
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
}

// WithFile loads the given YAML file. It takes precedence over HISCORE_CONFIG.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		if path != "" {
			o.path = path
		}
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) from WithFile or HISCORE_CONFIG
//  3. legacy env: DATABASE_URL, PORT, PG_SSL, LOG_LEVEL
//  4. env (prefix HISCORE_)
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{path: os.Getenv(envFileVar)}
	for _, opt := range opts {
		opt(&o)
	}

	base := New(ctx)
	k := koanf.New(".")

	if o.path != "" {
		if err := k.Load(file.Provider(o.path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, o.path, err)
		}
	}

	legacy := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		name, ok := legacyEnv[key]
		if !ok {
			return "", nil
		}
		return name, value
	})
	if err := k.Load(legacy, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// HISCORE_DB_TIMEOUT_MS -> db_timeout_ms; underscores match koanf tags.
	prefixed := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		name := strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if name == "config" {
			return "", nil
		}
		if name == "cors_origins" {
			return name, splitList(value)
		}
		return name, value
	})
	if err := k.Load(prefixed, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
