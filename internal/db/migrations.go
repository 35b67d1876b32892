package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: index for purging expired revocations.
	`CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires_at
	     ON revoked_tokens(expires_at)`,
	// Migration 2: case-insensitive name lookups for item search.
	`CREATE INDEX IF NOT EXISTS idx_items_name_nocase
	     ON items(name COLLATE NOCASE)`,
}

// Migrate ensures the schema exists and runs every migration.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
