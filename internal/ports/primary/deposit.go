package primary

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/fleetbot/internal/models"
)

// DepositService defines the primary port for cash deposits.
type DepositService interface {
	// Preview lists outstanding cash for a bus without changing anything.
	Preview(ctx context.Context, busCode string) (*DepositPreview, error)

	// MakeDeposit allocates an amount across outstanding entries and records it.
	MakeDeposit(ctx context.Context, req DepositRequest) (*models.DepositRecord, error)
}

// OutstandingEntry is one unbanked daily record or booking advance.
type OutstandingEntry struct {
	Key    string
	Date   string
	Amount decimal.Decimal
}

// DepositPreview is the outstanding cash of a bus, oldest entries first.
type DepositPreview struct {
	BusCode         string
	Daily           []OutstandingEntry
	Bookings        []OutstandingEntry
	DailyTotal      decimal.Decimal
	BookingTotal    decimal.Decimal
	PreviousBalance decimal.Decimal
	TotalAvailable  decimal.Decimal
}

// DepositRequest contains parameters for making a deposit.
type DepositRequest struct {
	BusCode string
	Amount  decimal.Decimal
	Date    time.Time
	Remarks string
	Sender  string
}
