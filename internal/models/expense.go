package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Payment modes for expense line items.
const (
	ModeCash   = "cash"
	ModeOnline = "online"
)

// ExpenseItem is a named extra expense attached to a daily record.
type ExpenseItem struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Mode   string          `json:"mode"`
}

// Validate checks the item shape.
func (e ExpenseItem) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("expense name is required")
	}
	if e.Amount.IsNegative() {
		return fmt.Errorf("expense %s has negative amount", e.Name)
	}
	return nil
}
