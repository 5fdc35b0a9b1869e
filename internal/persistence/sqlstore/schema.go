package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		path_type TEXT NOT NULL,
		seed BIGINT NOT NULL,
		steps INTEGER NOT NULL,
		config TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS telemetry_records (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		ts INTEGER NOT NULL,
		spot DOUBLE PRECISION NOT NULL,
		iv DOUBLE PRECISION NOT NULL,
		hv DOUBLE PRECISION NOT NULL,
		x DOUBLE PRECISION NOT NULL,
		y DOUBLE PRECISION NOT NULL,
		z DOUBLE PRECISION NOT NULL,
		regime TEXT NOT NULL,
		flags INTEGER NOT NULL,
		PRIMARY KEY (run_id, ts)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at)`,
}

// Migrate creates the tables if they do not exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
