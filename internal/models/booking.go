package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BookingRecord is a private hire booking, keyed by a generated BK{millis} id.
// CashStatus tracks whether the advance has been banked, independently of the
// booking lifecycle in Status.
type BookingRecord struct {
	Key          string          `json:"key"`
	BusCode      string          `json:"busCode,omitempty"`
	CustomerName string          `json:"customerName"`
	Mobile       string          `json:"mobile"`
	TravelDate   string          `json:"travelDate"`
	Pickup       string          `json:"pickup"`
	Drop         string          `json:"drop"`
	TotalFare    decimal.Decimal `json:"totalFare"`
	AdvancePaid  decimal.Decimal `json:"advancePaid"`
	BalanceDue   decimal.Decimal `json:"balanceDue"`
	Remarks      string          `json:"remarks,omitempty"`
	Sender       string          `json:"sender"`
	SubmittedAt  time.Time       `json:"submittedAt"`
	Status       Status          `json:"status"`
	CashStatus   Status          `json:"cashStatus,omitempty"`
	DepositID    string          `json:"depositId,omitempty"`
}

// Validate checks the record read from or about to be written to a store.
func (r *BookingRecord) Validate() error {
	if r.Key == "" {
		return fmt.Errorf("booking has no key")
	}
	if !datePattern.MatchString(r.TravelDate) {
		return fmt.Errorf("booking %s has malformed travel date %q", r.Key, r.TravelDate)
	}
	switch r.Status {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
	default:
		return fmt.Errorf("booking %s has invalid status %q", r.Key, r.Status)
	}
	if r.CashStatus != "" && r.CashStatus != StatusDeposited {
		return fmt.Errorf("booking %s has invalid cash status %q", r.Key, r.CashStatus)
	}
	return nil
}

// Timestamp is the last-write-wins comparison field.
func (r *BookingRecord) Timestamp() time.Time { return r.SubmittedAt }
