// Package postgres contains a PostgreSQL implementation of the keyed record store.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/fleetbot/internal/ports/secondary"
)

// SchemaSQL creates the keyed record table.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS keyed_records (
	store TEXT NOT NULL,
	record_key TEXT NOT NULL,
	payload TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (store, record_key)
)`

// RecordStore implements secondary.BatchRecordStore on a pgx pool.
type RecordStore struct {
	Db *pgxpool.Pool
}

var _ secondary.BatchRecordStore = (*RecordStore)(nil)

// NewRecordStore connects to connString, pings the server and ensures the schema.
func NewRecordStore(ctx context.Context, connString string) (*RecordStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, SchemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &RecordStore{Db: pool}, nil
}

// Close releases the pool.
func (s *RecordStore) Close() {
	s.Db.Close()
}

// ReadAll returns every record of a store.
func (s *RecordStore) ReadAll(ctx context.Context, store secondary.StoreID) (map[string]json.RawMessage, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT record_key, payload FROM keyed_records WHERE store = $1 ORDER BY record_key",
		string(store))
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

// WriteBatch replaces several stores in one transaction using COPY.
func (s *RecordStore) WriteBatch(ctx context.Context, batch map[secondary.StoreID]map[string]json.RawMessage) error {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for store, records := range batch {
		if _, err := tx.Exec(ctx, "DELETE FROM keyed_records WHERE store = $1", string(store)); err != nil {
			return fmt.Errorf("failed to clear store %s: %w", store, err)
		}
		rows := make([][]any, 0, len(records))
		for key, payload := range records {
			rows = append(rows, []any{string(store), key, string(payload)})
		}
		if len(rows) == 0 {
			continue
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"keyed_records"},
			[]string{"store", "record_key", "payload"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to write store %s: %w", store, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}
