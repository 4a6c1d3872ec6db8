// AngelaMos | 2026
// migrate.go

package filestore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migrations[i] upgrades the schema from user_version i to i+1.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS files (
		id          TEXT PRIMARY KEY,
		filename    TEXT NOT NULL,
		mime_type   TEXT NOT NULL,
		size        INTEGER NOT NULL,
		data        BLOB NOT NULL,
		uploaded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_filename ON files(filename);
	`,
}

func SchemaVersion() int {
	return len(migrations)
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	var version int
	if err := db.GetContext(ctx, &version, `PRAGMA user_version`); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for v := version; v < len(migrations); v++ {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", v+1, err)
		}

		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			_ = tx.Rollback() //nolint:errcheck // best-effort rollback
			return fmt.Errorf("apply migration %d: %w", v+1, err)
		}

		// PRAGMA does not take bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, v+1)); err != nil {
			_ = tx.Rollback() //nolint:errcheck // best-effort rollback
			return fmt.Errorf("set schema version %d: %w", v+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", v+1, err)
		}
	}

	return nil
}
