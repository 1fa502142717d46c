package repository

import (
	"time"

	"github.com/okian/hiscore/pkg/logger"
)

// Option applies a configuration option to Open.
type Option func(*options)

type options struct {
	pgSSL        bool
	maxOpenConns int
	busyTimeout  time.Duration
	log          logger.Logger
}

func defaultOptions() options {
	return options{
		maxOpenConns: 10,
		busyTimeout:  5 * time.Second,
	}
}

// WithPGSSL turns on TLS for Postgres without verifying the server
// certificate, which is what hosted databases with self-signed chains need.
func WithPGSSL(enabled bool) Option {
	return func(o *options) {
		o.pgSSL = enabled
	}
}

// WithMaxOpenConns caps the Postgres connection pool.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithLogger sets the logger used for connection lifecycle messages.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
