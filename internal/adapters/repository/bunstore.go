package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"

	"github.com/okian/hiscore/internal/adapters/repository/migrations"
	"github.com/okian/hiscore/internal/domain/types"
)

// Migration bookkeeping tables.
const (
	migrationTable      = "hiscore_migrations"
	migrationLocksTable = "hiscore_migration_locks"
)

// scoreRow is the persisted shape of a player best.
type scoreRow struct {
	bun.BaseModel `bun:"table:scores,alias:s"`

	Name      string    `bun:"name,pk,type:text"`
	Best      int64     `bun:"best,notnull,default:0"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (r scoreRow) record() types.Record {
	return types.Record{Name: r.Name, Best: r.Best, UpdatedAt: r.UpdatedAt.UTC()}
}

// The merge runs as a single upsert so concurrent submissions for the same
// name never lose the larger score. Only the max function differs between
// dialects.
const (
	mergePostgres = `INSERT INTO scores (name, best, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET best = GREATEST(scores.best, EXCLUDED.best), updated_at = EXCLUDED.updated_at
RETURNING name, best, updated_at`
	mergeSQLite = `INSERT INTO scores (name, best, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET best = MAX(scores.best, excluded.best), updated_at = excluded.updated_at
RETURNING name, best, updated_at`
)

// BunStore is a Store over a SQL database reached through bun.
type BunStore struct {
	db       *bun.DB
	backend  string
	mergeSQL string
}

// NewBunStore wraps db. The dialect decides which upsert is issued.
func NewBunStore(db *bun.DB) *BunStore {
	s := &BunStore{db: db, backend: BackendPostgres, mergeSQL: mergePostgres}
	if db.Dialect().Name() == dialect.SQLite {
		s.backend = BackendSQLite
		s.mergeSQL = mergeSQLite
	}
	return s
}

// Backend implements Store.
func (s *BunStore) Backend() string { return s.backend }

// DB exposes the underlying handle.
func (s *BunStore) DB() *bun.DB { return s.db }

// Migrator returns a migrator over the scores schema history.
func (s *BunStore) Migrator() *migrate.Migrator {
	return migrate.NewMigrator(s.db, migrations.Migrations,
		migrate.WithTableName(migrationTable),
		migrate.WithLocksTableName(migrationLocksTable),
	)
}

// Init implements Store by applying every pending migration.
func (s *BunStore) Init(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe(opInit, start, err) }()

	m := s.Migrator()
	if err := m.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Ping implements Store.
func (s *BunStore) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe(opPing, start, err) }()
	return s.db.PingContext(ctx)
}

// Merge implements Store.Merge.
// The previous best is read in the same transaction only to report whether
// the best improved; the upsert alone decides what is stored.
func (s *BunStore) Merge(ctx context.Context, name string, score int64, at time.Time) (rec types.Record, improved bool, err error) {
	start := time.Now()
	defer func() { observe(opMerge, start, err) }()

	var row scoreRow
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var prev []int64
		q := tx.NewSelect().
			Model((*scoreRow)(nil)).
			Column("best").
			Where("name = ?", name)
		if s.backend == BackendPostgres {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx, &prev); err != nil {
			return err
		}

		if err := tx.NewRaw(s.mergeSQL, name, score, at.UTC()).Scan(ctx, &row); err != nil {
			return err
		}
		if len(prev) == 0 {
			// A concurrent first insert may have won the conflict.
			improved = row.Best == score
		} else {
			improved = score > prev[0]
		}
		return nil
	})
	if err != nil {
		return types.Record{}, false, fmt.Errorf("merge %q: %w", name, err)
	}
	return row.record(), improved, nil
}

// Get implements Store.Get.
func (s *BunStore) Get(ctx context.Context, name string) (rec types.Record, err error) {
	start := time.Now()
	defer func() { observe(opGet, start, err) }()

	var row scoreRow
	err = s.db.NewSelect().
		Model(&row).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, ErrNotFound
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("get %q: %w", name, err)
	}
	return row.record(), nil
}

// TopN implements Store.TopN.
func (s *BunStore) TopN(ctx context.Context, n int) (out []types.Record, err error) {
	start := time.Now()
	defer func() { observe(opTopN, start, err) }()

	if n < 1 {
		return nil, ErrInvalidLimit
	}

	var rows []scoreRow
	err = s.db.NewSelect().
		Model(&rows).
		OrderExpr("best DESC, updated_at DESC, name ASC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("top %d: %w", n, err)
	}

	out = make([]types.Record, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

// Count implements Store.Count.
func (s *BunStore) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { observe(opCount, start, err) }()

	n, err = s.db.NewSelect().Model((*scoreRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Close closes the connection pool.
func (s *BunStore) Close() error {
	return s.db.Close()
}
