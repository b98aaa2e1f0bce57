// Package persistence implements the typed ledger over a raw keyed record store.
// Every read-modify-write cycle holds a process-wide mutex per store, so two
// senders can never interleave writes to the same store.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/fleetbot/internal/core/datekey"
	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/secondary"
	"github.com/example/fleetbot/internal/telemetry"
)

// ErrUnverifiedWrite is returned when a store does not read back what was written.
var ErrUnverifiedWrite = errors.New("store write could not be verified")

// Ledger implements secondary.Ledger.
type Ledger struct {
	store  secondary.RecordStore
	logger *slog.Logger
	locks  map[secondary.StoreID]*sync.Mutex
}

var _ secondary.Ledger = (*Ledger)(nil)

// NewLedger wraps a raw record store.
func NewLedger(store secondary.RecordStore, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	locks := make(map[secondary.StoreID]*sync.Mutex, len(secondary.AllStores))
	for _, id := range secondary.AllStores {
		locks[id] = &sync.Mutex{}
	}
	return &Ledger{store: store, logger: logger, locks: locks}
}

// lock acquires the store mutexes in a fixed order and returns the release func.
func (l *Ledger) lock(stores []secondary.StoreID) ([]secondary.StoreID, func(), error) {
	seen := make(map[secondary.StoreID]bool, len(stores))
	var ordered []secondary.StoreID
	for _, s := range stores {
		if _, ok := l.locks[s]; !ok {
			return nil, nil, fmt.Errorf("unknown store %q", s)
		}
		if !seen[s] {
			seen[s] = true
			ordered = append(ordered, s)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	for _, s := range ordered {
		l.locks[s].Lock()
	}
	return ordered, func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			l.locks[ordered[i]].Unlock()
		}
	}, nil
}

type rawStores map[secondary.StoreID]map[string]json.RawMessage

// load decodes the stores and also returns the invalid records per store and
// the raw contents as read.
func (l *Ledger) load(ctx context.Context, stores []secondary.StoreID) (*secondary.Snapshot, rawStores, rawStores, error) {
	snap := secondary.NewSnapshot()
	rejected := make(rawStores, len(stores))
	original := make(rawStores, len(stores))
	for _, s := range stores {
		raw, err := l.store.ReadAll(ctx, s)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load %s: %w", s, err)
		}
		rej, err := decodeStore(l.logger, snap, s, raw)
		if err != nil {
			return nil, nil, nil, err
		}
		rejected[s] = rej
		original[s] = raw
	}
	return snap, rejected, original, nil
}

// View decodes the listed stores under their locks without writing.
func (l *Ledger) View(ctx context.Context, stores []secondary.StoreID, fn func(*secondary.Snapshot) error) error {
	ordered, unlock, err := l.lock(stores)
	if err != nil {
		return err
	}
	defer unlock()

	snap, _, _, err := l.load(ctx, ordered)
	if err != nil {
		return err
	}
	return fn(snap)
}

// Update decodes the listed stores, runs fn and writes back what fn touched.
func (l *Ledger) Update(ctx context.Context, stores []secondary.StoreID, fn func(*secondary.Snapshot) error) error {
	ordered, unlock, err := l.lock(stores)
	if err != nil {
		return err
	}
	defer unlock()

	snap, rejected, original, err := l.load(ctx, ordered)
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		return err
	}

	locked := make(map[secondary.StoreID]bool, len(ordered))
	for _, s := range ordered {
		locked[s] = true
	}
	batch := make(map[secondary.StoreID]map[string]json.RawMessage)
	for _, s := range snap.Dirty() {
		if !locked[s] {
			return fmt.Errorf("store %s was modified without being locked", s)
		}
		encoded, err := encodeStore(snap, s, rejected[s])
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", s, err)
		}
		batch[s] = encoded
	}
	return l.write(ctx, batch, original)
}

// write persists a batch, atomically when the store supports it, then reads
// every store back to confirm the key sets. Without batch support a failed
// store write restores the stores already written from original.
func (l *Ledger) write(ctx context.Context, batch, original rawStores) error {
	if len(batch) == 0 {
		return nil
	}

	if bs, ok := l.store.(secondary.BatchRecordStore); ok {
		if err := bs.WriteBatch(ctx, batch); err != nil {
			for s := range batch {
				telemetry.StoreWriteFailures.WithLabelValues(string(s)).Inc()
			}
			l.logger.Error("store write failed", "error", err)
			return fmt.Errorf("failed to write records: %w", err)
		}
	} else {
		var written []secondary.StoreID
		for _, s := range sortedStores(batch) {
			if err := l.store.WriteAll(ctx, s, batch[s]); err != nil {
				telemetry.StoreWriteFailures.WithLabelValues(string(s)).Inc()
				l.logger.Error("store write failed", "store", s, "error", err)
				if rbErr := l.rollback(ctx, written, original); rbErr != nil {
					return fmt.Errorf("failed to write %s: %w (rollback: %v)", s, err, rbErr)
				}
				return fmt.Errorf("failed to write %s: %w", s, err)
			}
			written = append(written, s)
		}
	}

	for _, s := range sortedStores(batch) {
		got, err := l.store.ReadAll(ctx, s)
		if err != nil {
			telemetry.StoreWriteFailures.WithLabelValues(string(s)).Inc()
			return fmt.Errorf("%w: %s: %v", ErrUnverifiedWrite, s, err)
		}
		if !sameKeys(got, batch[s]) {
			telemetry.StoreWriteFailures.WithLabelValues(string(s)).Inc()
			l.logger.Error("store write not verified", "store", s, "written", len(batch[s]), "read", len(got))
			return fmt.Errorf("%w: %s", ErrUnverifiedWrite, s)
		}
	}
	return nil
}

// rollback rewrites the given stores with their contents from before the
// update, newest write first.
func (l *Ledger) rollback(ctx context.Context, written []secondary.StoreID, original rawStores) error {
	var errs []error
	for i := len(written) - 1; i >= 0; i-- {
		s := written[i]
		prev := original[s]
		if prev == nil {
			prev = map[string]json.RawMessage{}
		}
		if err := l.store.WriteAll(ctx, s, prev); err != nil {
			l.logger.Error("store rollback failed", "store", s, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s, err))
			continue
		}
		l.logger.Warn("store rolled back", "store", s)
	}
	return errors.Join(errs...)
}

// Merge applies incoming records to a store. Keyed stores keep the newer
// record per key; status logs gain entries whose id they do not have yet.
func (l *Ledger) Merge(ctx context.Context, store secondary.StoreID, incoming map[string]json.RawMessage) (secondary.MergeResult, error) {
	var result secondary.MergeResult
	err := l.Update(ctx, []secondary.StoreID{store}, func(snap *secondary.Snapshot) error {
		for _, key := range sortedKeys(incoming) {
			outcome, err := mergeOne(snap, store, key, incoming[key])
			if err != nil {
				l.logger.Warn("rejected synced record", "store", store, "key", key, "error", err)
				result.Rejected = append(result.Rejected, key)
				continue
			}
			switch outcome {
			case mergeAdded:
				result.Added++
			case mergeReplaced:
				result.Replaced++
			default:
				result.Kept++
			}
		}
		if result.Added+result.Replaced > 0 {
			snap.MarkDirty(store)
		}
		return nil
	})
	if err != nil {
		return secondary.MergeResult{}, err
	}
	return result, nil
}

type mergeOutcome int

const (
	mergeKept mergeOutcome = iota
	mergeAdded
	mergeReplaced
)

func mergeOne(snap *secondary.Snapshot, store secondary.StoreID, key string, payload json.RawMessage) (mergeOutcome, error) {
	switch store {
	case secondary.StoreDaily:
		var r models.DailyRecord
		if err := json.Unmarshal(payload, &r); err != nil {
			return mergeKept, err
		}
		r.Key = datekey.NormalizeKey(key)
		if err := r.Validate(); err != nil {
			return mergeKept, err
		}
		prev, ok := snap.Daily[r.Key]
		return pick(ok, prev.Timestamp, r.SubmittedAt, func() { snap.Daily[r.Key] = &r }), nil
	case secondary.StoreBookings:
		var r models.BookingRecord
		if err := json.Unmarshal(payload, &r); err != nil {
			return mergeKept, err
		}
		r.Key = key
		if err := r.Validate(); err != nil {
			return mergeKept, err
		}
		prev, ok := snap.Bookings[r.Key]
		return pick(ok, prev.Timestamp, r.SubmittedAt, func() { snap.Bookings[r.Key] = &r }), nil
	case secondary.StoreDeposits:
		var r models.DepositRecord
		if err := json.Unmarshal(payload, &r); err != nil {
			return mergeKept, err
		}
		r.ID = key
		if err := r.Validate(); err != nil {
			return mergeKept, err
		}
		prev, ok := snap.Deposits[r.ID]
		return pick(ok, prev.Timestamp, r.DepositedAt, func() { snap.Deposits[r.ID] = &r }), nil
	case secondary.StoreDailyStatusLog, secondary.StoreBookingStatusLog:
		var e models.StatusLogEntry
		if err := json.Unmarshal(payload, &e); err != nil {
			return mergeKept, err
		}
		if err := e.Validate(); err != nil {
			return mergeKept, err
		}
		log := &snap.DailyLog
		if store == secondary.StoreBookingStatusLog {
			log = &snap.BookingLog
		}
		for _, existing := range *log {
			if existing.ID == e.ID {
				return mergeKept, nil
			}
		}
		*log = append(*log, e)
		return mergeAdded, nil
	}
	return mergeKept, fmt.Errorf("unknown store %q", store)
}

// pick stores the incoming record when nothing exists or it is strictly newer.
func pick(exists bool, prev func() time.Time, incoming time.Time, put func()) mergeOutcome {
	if !exists {
		put()
		return mergeAdded
	}
	if incoming.After(prev()) {
		put()
		return mergeReplaced
	}
	return mergeKept
}

func sameKeys(a, b map[string]json.RawMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStores(batch map[secondary.StoreID]map[string]json.RawMessage) []secondary.StoreID {
	out := make([]secondary.StoreID, 0, len(batch))
	for s := range batch {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
