package primary

import (
	"context"

	"github.com/example/fleetbot/internal/models"
)

// StatusService defines the primary port for record status changes.
type StatusService interface {
	// UpdateStatus applies a batch status transition and appends one audit entry.
	UpdateStatus(ctx context.Context, req StatusUpdateRequest) (*StatusUpdateResult, error)

	// QueryStatus lists record keys currently holding a status.
	QueryStatus(ctx context.Context, req StatusQuery) ([]string, error)
}

// StatusUpdateRequest contains parameters for a batch status update.
type StatusUpdateRequest struct {
	Feature  string
	BusCode  string
	DateExpr string
	Status   string
	Remarks  string
	Actor    string
}

// SkippedKey is a key left untouched by a batch.
type SkippedKey struct {
	Key    string
	Reason string
}

// StatusUpdateResult reports what a batch changed.
type StatusUpdateResult struct {
	Status     models.Status
	Updated    []string
	Skipped    []SkippedKey
	LogEntryID string
}

// StatusQuery contains parameters for a status query.
type StatusQuery struct {
	Feature string
	BusCode string
	Status  string
}
