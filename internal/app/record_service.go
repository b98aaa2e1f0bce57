package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/fleetbot/internal/core/datekey"
	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/primary"
	"github.com/example/fleetbot/internal/ports/secondary"
)

// RecordServiceImpl implements the RecordService interface.
type RecordServiceImpl struct {
	ledger secondary.Ledger
	loc    *time.Location
}

var _ primary.RecordService = (*RecordServiceImpl)(nil)

// NewRecordService creates a new RecordService with injected dependencies.
func NewRecordService(ledger secondary.Ledger, loc *time.Location) *RecordServiceImpl {
	if loc == nil {
		loc = time.Local
	}
	return &RecordServiceImpl{ledger: ledger, loc: loc}
}

func busMatches(filter, code string) bool {
	return filter == "" || strings.EqualFold(filter, code)
}

// ListDaily returns daily records ordered by date, then key.
func (s *RecordServiceImpl) ListDaily(ctx context.Context, busCode string) ([]*models.DailyRecord, error) {
	var out []*models.DailyRecord
	err := s.ledger.View(ctx, []secondary.StoreID{secondary.StoreDaily}, func(snap *secondary.Snapshot) error {
		for _, r := range snap.Daily {
			if busMatches(busCode, r.BusCode) {
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list daily records: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		di := datekey.ParseDisplay(out[i].Dated, s.loc)
		dj := datekey.ParseDisplay(out[j].Dated, s.loc)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// ListBookings returns bookings ordered by travel date, then key.
func (s *RecordServiceImpl) ListBookings(ctx context.Context, busCode string) ([]*models.BookingRecord, error) {
	var out []*models.BookingRecord
	err := s.ledger.View(ctx, []secondary.StoreID{secondary.StoreBookings}, func(snap *secondary.Snapshot) error {
		for _, r := range snap.Bookings {
			if busMatches(busCode, r.BusCode) {
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		di := datekey.ParseDisplay(out[i].TravelDate, s.loc)
		dj := datekey.ParseDisplay(out[j].TravelDate, s.loc)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// ListDeposits returns deposits ordered by deposit time.
func (s *RecordServiceImpl) ListDeposits(ctx context.Context, busCode string) ([]*models.DepositRecord, error) {
	var out []*models.DepositRecord
	err := s.ledger.View(ctx, []secondary.StoreID{secondary.StoreDeposits}, func(snap *secondary.Snapshot) error {
		for _, r := range snap.Deposits {
			if busMatches(busCode, r.BusCode) {
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepositedAt.Equal(out[j].DepositedAt) {
			return out[i].DepositedAt.Before(out[j].DepositedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Export returns the valid records of a store keyed as they are stored.
func (s *RecordServiceImpl) Export(ctx context.Context, store string) (map[string]json.RawMessage, error) {
	id, err := secondary.ParseStoreID(store)
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage)
	err = s.ledger.View(ctx, []secondary.StoreID{id}, func(snap *secondary.Snapshot) error {
		put := func(key string, v any) error {
			raw, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", key, err)
			}
			out[key] = raw
			return nil
		}
		switch id {
		case secondary.StoreDaily:
			for k, r := range snap.Daily {
				if err := put(k, r); err != nil {
					return err
				}
			}
		case secondary.StoreBookings:
			for k, r := range snap.Bookings {
				if err := put(k, r); err != nil {
					return err
				}
			}
		case secondary.StoreDeposits:
			for k, r := range snap.Deposits {
				if err := put(k, r); err != nil {
					return err
				}
			}
		case secondary.StoreDailyStatusLog:
			for i, e := range snap.DailyLog {
				if err := put(secondary.LogKey(i), e); err != nil {
					return err
				}
			}
		case secondary.StoreBookingStatusLog:
			for i, e := range snap.BookingLog {
				if err := put(secondary.LogKey(i), e); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", store, err)
	}
	return out, nil
}

// Import merges external records into a store. The newer record per key wins.
func (s *RecordServiceImpl) Import(ctx context.Context, store string, records map[string]json.RawMessage) (*primary.ImportResult, error) {
	id, err := secondary.ParseStoreID(store)
	if err != nil {
		return nil, err
	}
	res, err := s.ledger.Merge(ctx, id, records)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", store, err)
	}
	return &primary.ImportResult{
		Store:    string(id),
		Added:    res.Added,
		Replaced: res.Replaced,
		Kept:     res.Kept,
		Rejected: res.Rejected,
	}, nil
}
