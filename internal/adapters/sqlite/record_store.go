// Package sqlite contains SQLite implementations of the keyed record store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/fleetbot/internal/ports/secondary"
)

// RecordStore implements secondary.BatchRecordStore with SQLite.
type RecordStore struct {
	db *sql.DB
}

// NewRecordStore creates a new SQLite record store.
func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

var _ secondary.BatchRecordStore = (*RecordStore)(nil)

// ReadAll returns every record of a store.
func (s *RecordStore) ReadAll(ctx context.Context, store secondary.StoreID) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT record_key, payload FROM keyed_records WHERE store = ? ORDER BY record_key",
		string(store),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read store %s: %w", store, err)
	}
	defer rows.Close()

	records := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan record in %s: %w", store, err)
		}
		records[key] = json.RawMessage(payload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate store %s: %w", store, err)
	}
	return records, nil
}

// WriteAll replaces the content of one store.
func (s *RecordStore) WriteAll(ctx context.Context, store secondary.StoreID, records map[string]json.RawMessage) error {
	return s.WriteBatch(ctx, map[secondary.StoreID]map[string]json.RawMessage{store: records})
}

// WriteBatch replaces several stores in a single transaction.
func (s *RecordStore) WriteBatch(ctx context.Context, batch map[secondary.StoreID]map[string]json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for store, records := range batch {
		if err := replaceStore(ctx, tx, store, records); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

func replaceStore(ctx context.Context, tx *sql.Tx, store secondary.StoreID, records map[string]json.RawMessage) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM keyed_records WHERE store = ?", string(store)); err != nil {
		return fmt.Errorf("failed to clear store %s: %w", store, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO keyed_records (store, record_key, payload, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for key, payload := range records {
		if _, err := stmt.ExecContext(ctx, string(store), key, string(payload)); err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", store, key, err)
		}
	}
	return nil
}
