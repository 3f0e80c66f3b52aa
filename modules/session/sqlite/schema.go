package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		store_path    TEXT    NOT NULL,
		session_key   TEXT    NOT NULL,
		updated_at    INTEGER NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0,
		last_context  TEXT    NOT NULL DEFAULT '{}',
		PRIMARY KEY (store_path, session_key)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at)`,

	`CREATE TABLE IF NOT EXISTS inbound_messages (
		id          TEXT    PRIMARY KEY,
		store_path  TEXT    NOT NULL,
		session_key TEXT    NOT NULL,
		message_sid TEXT    NOT NULL DEFAULT '',
		sender_id   TEXT    NOT NULL DEFAULT '',
		chat_type   TEXT    NOT NULL DEFAULT '',
		raw_body    TEXT    NOT NULL DEFAULT '',
		context     TEXT    NOT NULL,
		timestamp   INTEGER NOT NULL,
		created_at  TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_inbound_session ON inbound_messages(store_path, session_key, timestamp)`,
}

// migrate creates or updates the database schema to the latest version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}
	return nil
}
