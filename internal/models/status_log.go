package models

import (
	"fmt"
	"time"
)

// StatusLogEntry is one append-only audit entry for a batch status update.
// Keys lists exactly the records that changed, never the skipped ones.
type StatusLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Keys      []string  `json:"keys"`
	Remarks   string    `json:"remarks,omitempty"`
	Actor     string    `json:"actor,omitempty"`
}

// Validate checks the entry shape.
func (e *StatusLogEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("status log entry has no id")
	}
	if !e.Status.IsKnown() {
		return fmt.Errorf("status log entry %s has invalid status %q", e.ID, e.Status)
	}
	if len(e.Keys) == 0 {
		return fmt.Errorf("status log entry %s lists no keys", e.ID)
	}
	return nil
}

// Contains reports whether the entry already applied status to key.
func (e *StatusLogEntry) Contains(key string, status Status) bool {
	if e.Status != status {
		return false
	}
	for _, k := range e.Keys {
		if k == key {
			return true
		}
	}
	return false
}
