// Package migrations holds the schema history of the scores table. Every
// statement is valid on both Postgres and SQLite.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry consumed by bun's migrator.
var Migrations = migrate.NewMigrations()

func init() {
	// Picks up .sql migrations stored next to this file.
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}
