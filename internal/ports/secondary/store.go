// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/fleetbot/internal/models"
)

// StoreID names one independently keyed store.
type StoreID string

const (
	StoreDaily            StoreID = "daily"
	StoreDailyStatusLog   StoreID = "daily_status_log"
	StoreBookings         StoreID = "bookings"
	StoreBookingStatusLog StoreID = "booking_status_log"
	StoreDeposits         StoreID = "deposits"
)

// AllStores lists every store in lock order.
var AllStores = []StoreID{StoreBookingStatusLog, StoreBookings, StoreDaily, StoreDailyStatusLog, StoreDeposits}

// ParseStoreID validates a store name.
func ParseStoreID(name string) (StoreID, error) {
	for _, s := range AllStores {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown store %q", name)
}

// IsLog reports whether the store is an append-only status audit log.
func (s StoreID) IsLog() bool {
	return s == StoreDailyStatusLog || s == StoreBookingStatusLog
}

// RecordStore is the raw keyed persistence contract. Both calls move the whole
// mapping of a store; the store itself does not serialize writers.
type RecordStore interface {
	// ReadAll returns every record of a store. A store never written is empty.
	ReadAll(ctx context.Context, store StoreID) (map[string]json.RawMessage, error)

	// WriteAll replaces the whole content of a store.
	WriteAll(ctx context.Context, store StoreID, records map[string]json.RawMessage) error
}

// BatchRecordStore is a RecordStore that can replace several stores in one
// transaction.
type BatchRecordStore interface {
	RecordStore

	// WriteBatch replaces every listed store atomically.
	WriteBatch(ctx context.Context, batch map[StoreID]map[string]json.RawMessage) error
}

// Snapshot is a typed, decoded view of the stores locked for one unit of work.
// Mutations go through the Put and Append methods so only touched stores are
// written back.
type Snapshot struct {
	Daily      map[string]*models.DailyRecord
	Bookings   map[string]*models.BookingRecord
	Deposits   map[string]*models.DepositRecord
	DailyLog   []models.StatusLogEntry
	BookingLog []models.StatusLogEntry

	dirty map[StoreID]bool
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Daily:    make(map[string]*models.DailyRecord),
		Bookings: make(map[string]*models.BookingRecord),
		Deposits: make(map[string]*models.DepositRecord),
		dirty:    make(map[StoreID]bool),
	}
}

// PutDaily stores or replaces a daily record under its key.
func (s *Snapshot) PutDaily(r *models.DailyRecord) {
	s.Daily[r.Key] = r
	s.MarkDirty(StoreDaily)
}

// PutBooking stores or replaces a booking under its key.
func (s *Snapshot) PutBooking(r *models.BookingRecord) {
	s.Bookings[r.Key] = r
	s.MarkDirty(StoreBookings)
}

// PutDeposit stores a deposit under its id.
func (s *Snapshot) PutDeposit(r *models.DepositRecord) {
	s.Deposits[r.ID] = r
	s.MarkDirty(StoreDeposits)
}

// AppendDailyLog appends a daily status audit entry.
func (s *Snapshot) AppendDailyLog(e models.StatusLogEntry) {
	s.DailyLog = append(s.DailyLog, e)
	s.MarkDirty(StoreDailyStatusLog)
}

// AppendBookingLog appends a booking status audit entry.
func (s *Snapshot) AppendBookingLog(e models.StatusLogEntry) {
	s.BookingLog = append(s.BookingLog, e)
	s.MarkDirty(StoreBookingStatusLog)
}

// MarkDirty flags a store for write-back.
func (s *Snapshot) MarkDirty(store StoreID) {
	if s.dirty == nil {
		s.dirty = make(map[StoreID]bool)
	}
	s.dirty[store] = true
}

// Dirty returns the stores that need to be written.
func (s *Snapshot) Dirty() []StoreID {
	var out []StoreID
	for _, id := range AllStores {
		if s.dirty[id] {
			out = append(out, id)
		}
	}
	return out
}

// MergeResult summarizes a last-write-wins import.
type MergeResult struct {
	Added    int
	Replaced int
	Kept     int
	Rejected []string
}

// Ledger is the typed, serialized unit-of-work port over the record stores.
type Ledger interface {
	// View decodes the listed stores under their locks without writing.
	View(ctx context.Context, stores []StoreID, fn func(*Snapshot) error) error

	// Update decodes the listed stores under their locks, runs fn, then writes
	// and verifies every store fn touched. Nothing is written if fn fails.
	Update(ctx context.Context, stores []StoreID, fn func(*Snapshot) error) error

	// Merge applies incoming records to a store, keeping the newer record per
	// key by submittedAt or depositedAt.
	Merge(ctx context.Context, store StoreID, incoming map[string]json.RawMessage) (MergeResult, error)
}

// LogKey is the key of the i-th entry of a status audit log. Keys sort in
// append order.
func LogKey(i int) string {
	return fmt.Sprintf("%06d", i)
}
