package primary

import (
	"context"
	"encoding/json"

	"github.com/example/fleetbot/internal/models"
)

// RecordService defines the primary port for reading and syncing stored records.
type RecordService interface {
	// ListDaily returns daily records, oldest first. An empty bus lists all.
	ListDaily(ctx context.Context, busCode string) ([]*models.DailyRecord, error)

	// ListBookings returns bookings by travel date. An empty bus lists all.
	ListBookings(ctx context.Context, busCode string) ([]*models.BookingRecord, error)

	// ListDeposits returns deposits by deposit time. An empty bus lists all.
	ListDeposits(ctx context.Context, busCode string) ([]*models.DepositRecord, error)

	// Export returns the raw content of a store.
	Export(ctx context.Context, store string) (map[string]json.RawMessage, error)

	// Import merges external records into a store, newest record per key wins.
	Import(ctx context.Context, store string, records map[string]json.RawMessage) (*ImportResult, error)
}

// ImportResult summarizes an import.
type ImportResult struct {
	Store    string
	Added    int
	Replaced int
	Kept     int
	Rejected []string
}
