// Package allocation implements the cash deposit allocation engine.
// Outstanding entries are consumed oldest first and only ever whole; the
// previous balance fills whatever the entries leave.
package allocation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/fleetbot/internal/core/datekey"
)

var (
	// ErrInvalidAmount is returned for a requested amount that is not positive.
	ErrInvalidAmount = errors.New("deposit amount must be greater than zero")
	// ErrExceedsAvailable is returned when the request exceeds all outstanding cash.
	ErrExceedsAvailable = errors.New("deposit amount exceeds available cash")
)

// UnsatisfiableError reports a request that whole entries plus balance cannot
// cover exactly. MaxSatisfiable is what the FIFO walk could actually take.
type UnsatisfiableError struct {
	Requested      decimal.Decimal
	MaxSatisfiable decimal.Decimal
}

func (e *UnsatisfiableError) Error() string {
	return fmt.Sprintf("cannot deposit %s from whole entries; the most that can be deposited is %s",
		e.Requested.StringFixed(0), e.MaxSatisfiable.StringFixed(0))
}

// Entry is one outstanding cash-bearing record.
type Entry struct {
	ID     string
	Amount decimal.Decimal
	Date   time.Time
}

// Request is the input to Allocate.
type Request struct {
	Daily           []Entry
	Bookings        []Entry
	PreviousBalance decimal.Decimal
	Amount          decimal.Decimal
}

// Result is a successful allocation.
type Result struct {
	DailyIDs       []string
	BookingIDs     []string
	FromDaily      decimal.Decimal
	FromBookings   decimal.Decimal
	FromBalance    decimal.Decimal
	TotalAvailable decimal.Decimal
	NewBalance     decimal.Decimal
	// CarryForward is the part of the previous balance left undrawn.
	CarryForward decimal.Decimal
}

// SortEntries returns a copy ordered by date, oldest first. Zero dates sort
// first; ties keep their input order. Non-positive entries are dropped.
func SortEntries(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Amount.IsPositive() {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Total sums entry amounts.
func Total(entries []Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// Available is every outstanding entry plus the previous balance.
func Available(req Request) decimal.Decimal {
	return Total(SortEntries(req.Daily)).Add(Total(SortEntries(req.Bookings))).Add(positive(req.PreviousBalance))
}

// Allocate consumes outstanding entries for req.Amount. It never mutates its
// input and never returns a partial result.
func Allocate(req Request) (Result, error) {
	if !req.Amount.IsPositive() {
		return Result{}, ErrInvalidAmount
	}
	daily := SortEntries(req.Daily)
	bookings := SortEntries(req.Bookings)
	balance := positive(req.PreviousBalance)
	available := Total(daily).Add(Total(bookings)).Add(balance)
	if req.Amount.GreaterThan(available) {
		return Result{}, fmt.Errorf("%w: requested %s, available %s",
			ErrExceedsAvailable, req.Amount.StringFixed(0), available.StringFixed(0))
	}

	res := Result{TotalAvailable: available}
	remaining := req.Amount

	res.DailyIDs, res.FromDaily, remaining = consume(daily, remaining)
	res.BookingIDs, res.FromBookings, remaining = consume(bookings, remaining)

	if remaining.IsPositive() && balance.IsPositive() {
		res.FromBalance = decimal.Min(remaining, balance)
		remaining = remaining.Sub(res.FromBalance)
	}

	if remaining.IsPositive() {
		return Result{}, &UnsatisfiableError{
			Requested:      req.Amount,
			MaxSatisfiable: req.Amount.Sub(remaining),
		}
	}

	res.NewBalance = available.Sub(req.Amount)
	res.CarryForward = balance.Sub(res.FromBalance)
	return res, nil
}

// consume takes whole entries in order until the next one no longer fits.
func consume(entries []Entry, remaining decimal.Decimal) ([]string, decimal.Decimal, decimal.Decimal) {
	var ids []string
	taken := decimal.Zero
	for _, e := range entries {
		if !remaining.IsPositive() || e.Amount.GreaterThan(remaining) {
			break
		}
		ids = append(ids, e.ID)
		taken = taken.Add(e.Amount)
		remaining = remaining.Sub(e.Amount)
	}
	return ids, taken, remaining
}

func positive(d decimal.Decimal) decimal.Decimal {
	if d.IsPositive() {
		return d
	}
	return decimal.Zero
}

// NextDepositID returns DEP_{bus}_{DDMMYYYY}_{seq}, seq being the number of
// existing ids for that bus and date, zero-padded to three digits.
func NextDepositID(busCode string, date time.Time, existing []string) string {
	prefix := fmt.Sprintf("DEP_%s_%s_", busCode, datekey.Compact(date))
	taken := make(map[string]bool, len(existing))
	seq := 0
	for _, id := range existing {
		taken[id] = true
		if strings.HasPrefix(id, prefix) {
			seq++
		}
	}
	for {
		id := fmt.Sprintf("%s%03d", prefix, seq)
		if !taken[id] {
			return id
		}
		seq++
	}
}
