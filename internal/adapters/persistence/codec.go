package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/example/fleetbot/internal/core/datekey"
	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/secondary"
)

// record is the common shape of keyed records for last-write-wins merging.
type record interface {
	Validate() error
}

// decodeStore decodes one raw store into the snapshot. Records that fail to
// decode or validate are returned untouched so a write-back never loses them.
func decodeStore(logger *slog.Logger, snap *secondary.Snapshot, store secondary.StoreID, raw map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	rejected := make(map[string]json.RawMessage)
	reject := func(key string, payload json.RawMessage, err error) {
		logger.Warn("skipping invalid record", "store", store, "key", key, "error", err)
		rejected[key] = payload
	}

	switch store {
	case secondary.StoreDaily:
		for key, payload := range raw {
			var r models.DailyRecord
			if err := json.Unmarshal(payload, &r); err != nil {
				reject(key, payload, err)
				continue
			}
			r.Key = datekey.NormalizeKey(key)
			if err := r.Validate(); err != nil {
				reject(key, payload, err)
				continue
			}
			if prev, ok := snap.Daily[r.Key]; ok && !r.SubmittedAt.After(prev.SubmittedAt) {
				continue
			}
			snap.Daily[r.Key] = &r
		}
	case secondary.StoreBookings:
		for key, payload := range raw {
			var r models.BookingRecord
			if err := json.Unmarshal(payload, &r); err != nil {
				reject(key, payload, err)
				continue
			}
			r.Key = key
			if err := r.Validate(); err != nil {
				reject(key, payload, err)
				continue
			}
			snap.Bookings[r.Key] = &r
		}
	case secondary.StoreDeposits:
		for key, payload := range raw {
			var r models.DepositRecord
			if err := json.Unmarshal(payload, &r); err != nil {
				reject(key, payload, err)
				continue
			}
			r.ID = key
			if err := r.Validate(); err != nil {
				reject(key, payload, err)
				continue
			}
			snap.Deposits[r.ID] = &r
		}
	case secondary.StoreDailyStatusLog, secondary.StoreBookingStatusLog:
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var entries []models.StatusLogEntry
		for _, key := range keys {
			var e models.StatusLogEntry
			if err := json.Unmarshal(raw[key], &e); err != nil {
				reject(key, raw[key], err)
				continue
			}
			if err := e.Validate(); err != nil {
				reject(key, raw[key], err)
				continue
			}
			for i := range e.Keys {
				e.Keys[i] = datekey.NormalizeKey(e.Keys[i])
			}
			entries = append(entries, e)
		}
		if store == secondary.StoreDailyStatusLog {
			snap.DailyLog = entries
		} else {
			snap.BookingLog = entries
		}
	default:
		return nil, fmt.Errorf("unknown store %q", store)
	}
	return rejected, nil
}

// encodeStore serializes one store of the snapshot, validating every record.
// Rejected payloads from the read are carried over unless a valid record now
// owns the key.
func encodeStore(snap *secondary.Snapshot, store secondary.StoreID, rejected map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage)
	put := func(key string, r record) error {
		if err := r.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		out[key] = data
		return nil
	}

	switch store {
	case secondary.StoreDaily:
		for _, r := range snap.Daily {
			r.Key = datekey.NormalizeKey(r.Key)
			if err := put(r.Key, r); err != nil {
				return nil, err
			}
		}
	case secondary.StoreBookings:
		for key, r := range snap.Bookings {
			if err := put(key, r); err != nil {
				return nil, err
			}
		}
	case secondary.StoreDeposits:
		for key, r := range snap.Deposits {
			if err := put(key, r); err != nil {
				return nil, err
			}
		}
	case secondary.StoreDailyStatusLog, secondary.StoreBookingStatusLog:
		entries := snap.DailyLog
		if store == secondary.StoreBookingStatusLog {
			entries = snap.BookingLog
		}
		// Rejected log entries keep their position ahead of valid ones.
		i := 0
		for _, payload := range sortedValues(rejected) {
			out[secondary.LogKey(i)] = payload
			i++
		}
		for j := range entries {
			if err := put(secondary.LogKey(i), &entries[j]); err != nil {
				return nil, err
			}
			i++
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown store %q", store)
	}

	for key, payload := range rejected {
		if _, ok := out[key]; !ok {
			out[key] = payload
		}
	}
	return out, nil
}

func sortedValues(m map[string]json.RawMessage) []json.RawMessage {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]json.RawMessage, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}
