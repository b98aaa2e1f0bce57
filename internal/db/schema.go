package db

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is recorded in schema_version when the schema is created.
const SchemaVersion = 1

// SchemaSQL is the complete schema. Every store is a set of (key, JSON payload)
// rows; typed decoding and validation happen above the store.
//
// This is the single source of truth for the schema: tests use it via
// GetSchemaSQL() instead of hardcoding CREATE TABLE statements.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS keyed_records (
	store TEXT NOT NULL CHECK(store IN ('daily', 'daily_status_log', 'bookings', 'booking_status_log', 'deposits')),
	record_key TEXT NOT NULL,
	payload TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (store, record_key)
);

CREATE INDEX IF NOT EXISTS idx_keyed_records_store ON keyed_records(store);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// InitSchema creates the schema if it does not exist and records its version.
func InitSchema(conn *sql.DB) error {
	if _, err := conn.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := conn.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
