package app

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/fleetbot/internal/core/allocation"
	"github.com/example/fleetbot/internal/core/datekey"
	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/secondary"
)

// outstandingDaily lists the unbanked cash handovers of a bus, oldest first.
func outstandingDaily(snap *secondary.Snapshot, busCode string, loc *time.Location) []allocation.Entry {
	var entries []allocation.Entry
	for _, key := range sortedDailyKeys(snap) {
		r := snap.Daily[key]
		if r.BusCode != busCode || r.Status == models.StatusDeposited || !r.CashHandover.IsPositive() {
			continue
		}
		entries = append(entries, allocation.Entry{
			ID:     key,
			Amount: r.CashHandover,
			Date:   datekey.ParseDisplay(r.Dated, loc),
		})
	}
	return allocation.SortEntries(entries)
}

// outstandingBookings lists unbanked booking advances of a bus, oldest travel
// date first. Cancelled bookings carry no cash.
func outstandingBookings(snap *secondary.Snapshot, busCode string, loc *time.Location) []allocation.Entry {
	var entries []allocation.Entry
	for _, key := range sortedBookingKeys(snap) {
		r := snap.Bookings[key]
		if r.BusCode != busCode || r.CashStatus == models.StatusDeposited ||
			r.Status == models.StatusCancelled || !r.AdvancePaid.IsPositive() {
			continue
		}
		entries = append(entries, allocation.Entry{
			ID:     key,
			Amount: r.AdvancePaid,
			Date:   datekey.ParseDisplay(r.TravelDate, loc),
		})
	}
	return allocation.SortEntries(entries)
}

// previousBalance is the carry-forward of the latest deposit of the bus, or
// the roster opening balance before the first deposit.
func previousBalance(snap *secondary.Snapshot, bus models.Bus) decimal.Decimal {
	var last *models.DepositRecord
	for _, d := range snap.Deposits {
		if d.BusCode != bus.Code {
			continue
		}
		if last == nil || d.DepositedAt.After(last.DepositedAt) ||
			(d.DepositedAt.Equal(last.DepositedAt) && d.ID > last.ID) {
			last = d
		}
	}
	if last == nil {
		return bus.OpeningBalance
	}
	return last.CarryForward
}

func sortedDailyKeys(snap *secondary.Snapshot) []string {
	keys := make([]string, 0, len(snap.Daily))
	for k := range snap.Daily {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedBookingKeys(snap *secondary.Snapshot) []string {
	keys := make([]string, 0, len(snap.Bookings))
	for k := range snap.Bookings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
