package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/primary"
)

// RecordAdapter translates CLI operations to RecordService calls.
type RecordAdapter struct {
	service primary.RecordService
	out     io.Writer
}

// NewRecordAdapter creates a new RecordAdapter with the given service.
func NewRecordAdapter(service primary.RecordService, out io.Writer) *RecordAdapter {
	return &RecordAdapter{
		service: service,
		out:     out,
	}
}

// ListDaily prints daily records as a table.
func (a *RecordAdapter) ListDaily(ctx context.Context, busCode string) ([]*models.DailyRecord, error) {
	records, err := a.service.ListDaily(ctx, busCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily records: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No daily records found.")
		return records, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "KEY\tDATE\tCOLLECTION\tHANDOVER\tSTATUS\tDEPOSIT")
	fmt.Fprintln(w, "---\t----\t----------\t--------\t------\t-------")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Key,
			r.Dated,
			rupees(r.TotalCashCollection),
			rupees(r.CashHandover),
			r.Status,
			r.DepositID,
		)
	}
	w.Flush()
	return records, nil
}

// ListBookings prints bookings as a table.
func (a *RecordAdapter) ListBookings(ctx context.Context, busCode string) ([]*models.BookingRecord, error) {
	records, err := a.service.ListBookings(ctx, busCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No bookings found.")
		return records, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "KEY\tTRAVEL\tCUSTOMER\tBUS\tADVANCE\tBALANCE\tSTATUS")
	fmt.Fprintln(w, "---\t------\t--------\t---\t-------\t-------\t------")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Key,
			r.TravelDate,
			r.CustomerName,
			r.BusCode,
			rupees(r.AdvancePaid),
			rupees(r.BalanceDue),
			r.Status,
		)
	}
	w.Flush()
	return records, nil
}

// ListDeposits prints deposits as a table.
func (a *RecordAdapter) ListDeposits(ctx context.Context, busCode string) ([]*models.DepositRecord, error) {
	records, err := a.service.ListDeposits(ctx, busCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No deposits found.")
		return records, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tNEW BALANCE\tENTRIES")
	fmt.Fprintln(w, "--\t----\t------\t-----------\t-------")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			r.ID,
			r.Date,
			rupees(r.Amount),
			rupees(r.NewBalance),
			len(r.DailyKeys)+len(r.BookingKeys),
		)
	}
	w.Flush()
	return records, nil
}

// Export writes the raw content of a store as indented JSON.
func (a *RecordAdapter) Export(ctx context.Context, store string) error {
	records, err := a.service.Export(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", store, err)
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// Import merges records read as a JSON object keyed by record key.
func (a *RecordAdapter) Import(ctx context.Context, store string, in io.Reader) (*primary.ImportResult, error) {
	var records map[string]json.RawMessage
	if err := json.NewDecoder(in).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to read %s records: %w", store, err)
	}

	res, err := a.service.Import(ctx, store, records)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", store, err)
	}

	fmt.Fprintf(a.out, "%s Imported %s: %d added, %d replaced, %d kept\n",
		color.GreenString("✓"), res.Store, res.Added, res.Replaced, res.Kept)
	for _, key := range res.Rejected {
		fmt.Fprintf(a.out, "  %s rejected %s\n", color.RedString("✗"), key)
	}
	return res, nil
}
