package models

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

var datePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// DailyRecord is one bus's cash sheet for one day, keyed {busCode}_{DDMMYYYY}.
type DailyRecord struct {
	Key                 string          `json:"key"`
	BusCode             string          `json:"busCode"`
	Dated               string          `json:"dated"`
	Diesel              decimal.Decimal `json:"diesel"`
	Adda                decimal.Decimal `json:"adda"`
	Union               decimal.Decimal `json:"union"`
	TotalCashCollection decimal.Decimal `json:"totalCashCollection"`
	Online              decimal.Decimal `json:"online"`
	CashHandover        decimal.Decimal `json:"cashHandover"`
	ExtraExpenses       []ExpenseItem   `json:"extraExpenses,omitempty"`
	Remarks             string          `json:"remarks,omitempty"`
	Sender              string          `json:"sender"`
	SubmittedAt         time.Time       `json:"submittedAt"`
	Status              Status          `json:"status"`
	DepositID           string          `json:"depositId,omitempty"`
}

// Validate checks the record read from or about to be written to a store.
func (r *DailyRecord) Validate() error {
	if r.Key == "" {
		return fmt.Errorf("daily record has no key")
	}
	if r.BusCode == "" {
		return fmt.Errorf("daily record %s has no bus code", r.Key)
	}
	if !datePattern.MatchString(r.Dated) {
		return fmt.Errorf("daily record %s has malformed date %q", r.Key, r.Dated)
	}
	switch r.Status {
	case StatusInitiated, StatusCollected, StatusDeposited:
	default:
		return fmt.Errorf("daily record %s has invalid status %q", r.Key, r.Status)
	}
	for _, e := range r.ExtraExpenses {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("daily record %s: %w", r.Key, err)
		}
	}
	return nil
}

// Timestamp is the last-write-wins comparison field.
func (r *DailyRecord) Timestamp() time.Time { return r.SubmittedAt }
