package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DepositRecord records one cash deposit and which unbanked entries it consumed.
// NewBalance is the undeposited cash left after the deposit; CarryForward is the
// part of the previous balance not drawn down, used as the next deposit's
// previous balance.
type DepositRecord struct {
	ID              string          `json:"id"`
	BusCode         string          `json:"busCode"`
	Date            string          `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	FromDaily       decimal.Decimal `json:"fromDaily"`
	FromBookings    decimal.Decimal `json:"fromBookings"`
	FromBalance     decimal.Decimal `json:"fromBalance"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	TotalAvailable  decimal.Decimal `json:"totalAvailable"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	CarryForward    decimal.Decimal `json:"carryForward"`
	DailyKeys       []string        `json:"dailyKeys,omitempty"`
	BookingKeys     []string        `json:"bookingKeys,omitempty"`
	Remarks         string          `json:"remarks,omitempty"`
	Sender          string          `json:"sender"`
	DepositedAt     time.Time       `json:"depositedAt"`
}

// Validate checks the record read from or about to be written to a store.
func (r *DepositRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("deposit has no id")
	}
	if r.BusCode == "" {
		return fmt.Errorf("deposit %s has no bus code", r.ID)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("deposit %s has non-positive amount", r.ID)
	}
	sum := r.FromDaily.Add(r.FromBookings).Add(r.FromBalance)
	if !sum.Equal(r.Amount) {
		return fmt.Errorf("deposit %s breakdown %s does not match amount %s", r.ID, sum, r.Amount)
	}
	return nil
}

// Timestamp is the last-write-wins comparison field.
func (r *DepositRecord) Timestamp() time.Time { return r.DepositedAt }
