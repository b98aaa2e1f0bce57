package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/fleetbot/internal/core/allocation"
	"github.com/example/fleetbot/internal/core/datekey"
	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/primary"
	"github.com/example/fleetbot/internal/ports/secondary"
	"github.com/example/fleetbot/internal/telemetry"
)

var depositStores = []secondary.StoreID{secondary.StoreBookings, secondary.StoreDaily, secondary.StoreDeposits}

// DepositServiceImpl implements the DepositService interface.
type DepositServiceImpl struct {
	ledger secondary.Ledger
	roster secondary.Roster
	loc    *time.Location
	now    func() time.Time
}

var _ primary.DepositService = (*DepositServiceImpl)(nil)

// NewDepositService creates a new DepositService with injected dependencies.
func NewDepositService(ledger secondary.Ledger, roster secondary.Roster, loc *time.Location) *DepositServiceImpl {
	if loc == nil {
		loc = time.Local
	}
	return &DepositServiceImpl{
		ledger: ledger,
		roster: roster,
		loc:    loc,
		now:    time.Now,
	}
}

func (s *DepositServiceImpl) bus(code string) (models.Bus, error) {
	if code == "" {
		return models.Bus{}, ErrBusRequired
	}
	bus, ok := s.roster.Bus(code)
	if !ok {
		return models.Bus{}, fmt.Errorf("%w %s", ErrNoBus, code)
	}
	return bus, nil
}

// Preview lists outstanding cash for a bus without changing anything.
func (s *DepositServiceImpl) Preview(ctx context.Context, busCode string) (*primary.DepositPreview, error) {
	bus, err := s.bus(busCode)
	if err != nil {
		return nil, err
	}

	var preview *primary.DepositPreview
	err = s.ledger.View(ctx, depositStores, func(snap *secondary.Snapshot) error {
		daily := outstandingDaily(snap, bus.Code, s.loc)
		bookings := outstandingBookings(snap, bus.Code, s.loc)
		prev := previousBalance(snap, bus)
		preview = &primary.DepositPreview{
			BusCode:         bus.Code,
			Daily:           toOutstanding(daily),
			Bookings:        toOutstanding(bookings),
			DailyTotal:      allocation.Total(daily),
			BookingTotal:    allocation.Total(bookings),
			PreviousBalance: prev,
			TotalAvailable: allocation.Available(allocation.Request{
				Daily: daily, Bookings: bookings, PreviousBalance: prev,
			}),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load outstanding cash: %w", err)
	}
	return preview, nil
}

// MakeDeposit allocates an amount across outstanding entries and records it.
// Either every consumed entry is marked deposited together with the new
// deposit record, or nothing changes.
func (s *DepositServiceImpl) MakeDeposit(ctx context.Context, req primary.DepositRequest) (*models.DepositRecord, error) {
	bus, err := s.bus(req.BusCode)
	if err != nil {
		return nil, err
	}
	now := s.now().In(s.loc)
	date := req.Date
	if date.IsZero() {
		date = now
	}

	var deposit *models.DepositRecord
	err = s.ledger.Update(ctx, depositStores, func(snap *secondary.Snapshot) error {
		daily := outstandingDaily(snap, bus.Code, s.loc)
		bookings := outstandingBookings(snap, bus.Code, s.loc)
		prev := previousBalance(snap, bus)

		res, err := allocation.Allocate(allocation.Request{
			Daily:           daily,
			Bookings:        bookings,
			PreviousBalance: prev,
			Amount:          req.Amount,
		})
		if err != nil {
			return err
		}

		existing := make([]string, 0, len(snap.Deposits))
		for id := range snap.Deposits {
			existing = append(existing, id)
		}
		id := allocation.NextDepositID(bus.Code, date, existing)

		for _, key := range res.DailyIDs {
			r := snap.Daily[key]
			r.Status = models.StatusDeposited
			r.DepositID = id
			snap.PutDaily(r)
		}
		for _, key := range res.BookingIDs {
			r := snap.Bookings[key]
			r.CashStatus = models.StatusDeposited
			r.DepositID = id
			snap.PutBooking(r)
		}

		deposit = &models.DepositRecord{
			ID:              id,
			BusCode:         bus.Code,
			Date:            datekey.Format(date),
			Amount:          req.Amount,
			FromDaily:       res.FromDaily,
			FromBookings:    res.FromBookings,
			FromBalance:     res.FromBalance,
			PreviousBalance: prev,
			TotalAvailable:  res.TotalAvailable,
			NewBalance:      res.NewBalance,
			CarryForward:    res.CarryForward,
			DailyKeys:       res.DailyIDs,
			BookingKeys:     res.BookingIDs,
			Remarks:         req.Remarks,
			Sender:          req.Sender,
			DepositedAt:     now,
		}
		snap.PutDeposit(deposit)
		return nil
	})
	if err != nil {
		telemetry.DepositsTotal.WithLabelValues(depositResult(err)).Inc()
		return nil, err
	}
	telemetry.DepositsTotal.WithLabelValues("ok").Inc()
	return deposit, nil
}

func depositResult(err error) string {
	var unsat *allocation.UnsatisfiableError
	switch {
	case errors.As(err, &unsat):
		return "unsatisfiable"
	case errors.Is(err, allocation.ErrInvalidAmount), errors.Is(err, allocation.ErrExceedsAvailable):
		return "rejected"
	default:
		return "error"
	}
}

func toOutstanding(entries []allocation.Entry) []primary.OutstandingEntry {
	out := make([]primary.OutstandingEntry, len(entries))
	for i, e := range entries {
		date := ""
		if !e.Date.IsZero() {
			date = datekey.Format(e.Date)
		}
		out[i] = primary.OutstandingEntry{Key: e.ID, Date: date, Amount: e.Amount}
	}
	return out
}
