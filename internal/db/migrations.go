package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: at most one default destination branch.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_branches_single_default
	     ON branches(is_default) WHERE is_default = 1 AND deleted_at IS NULL`,
	// Migration 2: package listing is newest first.
	`CREATE INDEX IF NOT EXISTS idx_packages_created_at
	     ON packages(created_at)`,
}

// Migrate ensures the schema and runs the migration list.
func Migrate(db *sqlx.DB) error {
	if err := EnsureSchema(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
