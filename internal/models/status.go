// Package models contains the persisted record schemas for fleetbot.
// Every record validates itself on read; stores never hold free-form objects.
package models

import (
	"fmt"
	"strings"
)

// Status is the lifecycle status of a daily record or a booking.
type Status string

// Daily record statuses.
const (
	StatusInitiated Status = "Initiated"
	StatusCollected Status = "Collected"
	StatusDeposited Status = "Deposited"
)

// Booking statuses.
const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

var knownStatuses = []Status{
	StatusInitiated, StatusCollected, StatusDeposited,
	StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled,
}

// ParseStatus maps a case-insensitive status word to its canonical form.
func ParseStatus(word string) (Status, error) {
	for _, s := range knownStatuses {
		if strings.EqualFold(string(s), strings.TrimSpace(word)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", word)
}

// IsKnown reports whether s is one of the declared statuses.
func (s Status) IsKnown() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}
