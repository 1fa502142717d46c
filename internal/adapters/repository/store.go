// Package repository persists player bests and serves them in leaderboard
// order. Postgres and SQLite are reached through bun; an in-memory treap
// backs tests and single-process runs.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/hiscore/internal/domain/types"
	"github.com/okian/hiscore/pkg/metrics"
)

// Backend names reported by Store.Backend.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Store provides read/write access to player bests.
type Store interface {
	// Merge records score for name. The stored best becomes the larger of
	// the previous best and score, and the update time becomes at, in one
	// atomic step. It returns the row as stored afterwards and whether score
	// raised the best (a first submission always does).
	Merge(ctx context.Context, name string, score int64, at time.Time) (rec types.Record, improved bool, err error)

	// Get returns the stored row for name or ErrNotFound.
	Get(ctx context.Context, name string) (types.Record, error)

	// TopN returns up to n rows ordered by best desc, updated_at desc,
	// name asc. n must be at least 1.
	TopN(ctx context.Context, n int) ([]types.Record, error)

	// Count returns the number of stored players.
	Count(ctx context.Context) (int, error)

	// Init prepares the schema. It is idempotent.
	Init(ctx context.Context) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Backend names the storage engine.
	Backend() string

	Close() error
}

// Store operation labels for metrics.
const (
	opMerge = "merge"
	opGet   = "get"
	opTopN  = "top_n"
	opCount = "count"
	opInit  = "init"
	opPing  = "ping"
)

// observe records latency of one store call. A missing player is an answer,
// not a failure.
func observe(op string, start time.Time, err error) {
	failed := err != nil && !errors.Is(err, ErrNotFound)
	metrics.RecordStoreOperation(op, float64(time.Since(start).Microseconds())/1000, failed)
}
