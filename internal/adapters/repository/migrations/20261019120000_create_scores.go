package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// An existing table from an earlier deployment is kept as is.
		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS scores (
				name TEXT PRIMARY KEY,
				best BIGINT NOT NULL DEFAULT 0,
				updated_at TIMESTAMPTZ NOT NULL
			);
		`)
		if err != nil {
			return fmt.Errorf("failed to create scores table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS scores;`); err != nil {
			return fmt.Errorf("failed to drop scores table: %w", err)
		}
		return nil
	})
}
