// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load(ctx, ...LoadOption) layers file and environment values on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080". It wins over Port.
	Addr string `koanf:"addr"`

	// Port is used when Addr is empty.
	Port int `koanf:"port"`

	// DatabaseURL selects the store: postgres://, sqlite:// or memory://.
	DatabaseURL string `koanf:"database_url"`

	// PGSSL enables TLS towards Postgres without certificate verification.
	PGSSL bool `koanf:"pg_ssl"`

	// DBTimeoutMS bounds every store call.
	DBTimeoutMS int `koanf:"db_timeout_ms"`

	// DBMaxOpenConns caps the Postgres connection pool.
	DBMaxOpenConns int `koanf:"db_max_open_conns"`

	// SQLiteBusyTimeoutMS is how long a SQLite writer waits on a locked file.
	SQLiteBusyTimeoutMS int `koanf:"sqlite_busy_timeout_ms"`

	// DefaultLeaderboardLimit is used when GET /leaderboard has no usable limit.
	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRPS and RateLimitBurst configure the per-client limiter. Zero RPS disables it.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config populated with defaults. DatabaseURL has no default.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Port:                    3000,
		DBTimeoutMS:             5000,
		DBMaxOpenConns:          10,
		SQLiteBusyTimeoutMS:     5000,
		DefaultLeaderboardLimit: 10,
		MaxLeaderboardLimit:     50,
		CORSOrigins:             []string{"*"},
		RateLimitBurst:          20,
		ShutdownTimeoutMS:       10_000,
	}
}

// ListenAddr returns Addr when set, otherwise ":<Port>".
func (c *Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return ":" + strconv.Itoa(c.Port)
}

// DBTimeout returns DBTimeoutMS as a duration.
func (c *Config) DBTimeout() time.Duration {
	return time.Duration(c.DBTimeoutMS) * time.Millisecond
}

// SQLiteBusyTimeout returns SQLiteBusyTimeoutMS as a duration.
func (c *Config) SQLiteBusyTimeout() time.Duration {
	return time.Duration(c.SQLiteBusyTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DatabaseURL) == "":
		return fmt.Errorf("%w: database_url is required", ErrInvalidConfig)
	case c.Addr == "" && (c.Port < 1 || c.Port > 65535):
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	case c.DBTimeoutMS <= 0:
		return fmt.Errorf("%w: db_timeout_ms must be positive", ErrInvalidConfig)
	case c.SQLiteBusyTimeoutMS < 0:
		return fmt.Errorf("%w: sqlite_busy_timeout_ms must not be negative", ErrInvalidConfig)
	case c.DefaultLeaderboardLimit < 1:
		return fmt.Errorf("%w: default_leaderboard_limit must be at least 1", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < c.DefaultLeaderboardLimit:
		return fmt.Errorf("%w: max_leaderboard_limit below default_leaderboard_limit", ErrInvalidConfig)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("%w: rate_limit_rps must not be negative", ErrInvalidConfig)
	case c.RateLimitRPS > 0 && c.RateLimitBurst < 1:
		return fmt.Errorf("%w: rate_limit_burst must be at least 1", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
