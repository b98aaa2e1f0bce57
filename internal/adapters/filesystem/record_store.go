// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/example/fleetbot/internal/ports/secondary"
)

// RecordStore implements secondary.BatchRecordStore as one JSON file per store.
// Keyed stores are JSON objects; status logs are JSON arrays in key order.
type RecordStore struct {
	dir string
}

var _ secondary.BatchRecordStore = (*RecordStore)(nil)

// NewRecordStore creates a file store rooted at dir.
// If dir is empty, defaults to ~/.fleetbot/data.
func NewRecordStore(dir string) (*RecordStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".fleetbot", "data")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &RecordStore{dir: dir}, nil
}

// Path returns the file backing a store.
func (s *RecordStore) Path(store secondary.StoreID) string {
	return filepath.Join(s.dir, string(store)+".json")
}

// ReadAll returns every record of a store. A missing file is an empty store.
func (s *RecordStore) ReadAll(ctx context.Context, store secondary.StoreID) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.Path(store))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store %s: %w", store, err)
	}

	records := make(map[string]json.RawMessage)
	if store.IsLog() {
		var entries []json.RawMessage
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode store %s: %w", store, err)
		}
		for i, e := range entries {
			records[secondary.LogKey(i)] = e
		}
		return records, nil
	}

	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode store %s: %w", store, err)
	}
	return records, nil
}

// WriteAll replaces the store file atomically through a rename.
func (s *RecordStore) WriteAll(ctx context.Context, store secondary.StoreID, records map[string]json.RawMessage) error {
	return s.WriteBatch(ctx, map[secondary.StoreID]map[string]json.RawMessage{store: records})
}

// WriteBatch stages a temp file for every store and renames them into place
// only once all of them are written, so a failed encode or write leaves every
// store file untouched.
func (s *RecordStore) WriteBatch(ctx context.Context, batch map[secondary.StoreID]map[string]json.RawMessage) error {
	stores := make([]secondary.StoreID, 0, len(batch))
	for store := range batch {
		stores = append(stores, store)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i] < stores[j] })

	staged := make([]string, 0, len(stores))
	defer func() {
		for _, name := range staged {
			os.Remove(name)
		}
	}()
	for _, store := range stores {
		name, err := s.stage(store, batch[store])
		if err != nil {
			return err
		}
		staged = append(staged, name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, store := range stores {
		if err := os.Rename(staged[i], s.Path(store)); err != nil {
			return fmt.Errorf("failed to replace store %s: %w", store, err)
		}
	}
	return nil
}

// stage writes the encoded store to a synced temp file and returns its name.
func (s *RecordStore) stage(store secondary.StoreID, records map[string]json.RawMessage) (string, error) {
	var payload any = records
	if store.IsLog() {
		keys := make([]string, 0, len(records))
		for k := range records {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]json.RawMessage, len(keys))
		for i, k := range keys {
			entries[i] = records[k]
		}
		payload = entries
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode store %s: %w", store, err)
	}

	tmp, err := os.CreateTemp(s.dir, string(store)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", store, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write store %s: %w", store, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to sync store %s: %w", store, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close store %s: %w", store, err)
	}
	return tmp.Name(), nil
}
