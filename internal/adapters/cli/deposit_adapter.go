package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/primary"
)

// DepositAdapter is a thin adapter that translates CLI operations to DepositService calls.
type DepositAdapter struct {
	service primary.DepositService
	out     io.Writer
}

// NewDepositAdapter creates a new DepositAdapter with the given service.
func NewDepositAdapter(service primary.DepositService, out io.Writer) *DepositAdapter {
	return &DepositAdapter{
		service: service,
		out:     out,
	}
}

// Preview prints the outstanding entries of a bus, oldest first.
func (a *DepositAdapter) Preview(ctx context.Context, busCode string) (*primary.DepositPreview, error) {
	preview, err := a.service.Preview(ctx, busCode)
	if err != nil {
		return nil, fmt.Errorf("failed to preview deposit: %w", err)
	}

	fmt.Fprintf(a.out, "\nOutstanding cash for %s\n\n", preview.BusCode)
	if len(preview.Daily)+len(preview.Bookings) == 0 {
		fmt.Fprintln(a.out, "No outstanding entries.")
	} else {
		w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "KIND\tKEY\tDATE\tAMOUNT")
		fmt.Fprintln(w, "----\t---\t----\t------")
		for _, e := range preview.Daily {
			fmt.Fprintf(w, "daily\t%s\t%s\t%s\n", e.Key, e.Date, rupees(e.Amount))
		}
		for _, e := range preview.Bookings {
			fmt.Fprintf(w, "booking\t%s\t%s\t%s\n", e.Key, e.Date, rupees(e.Amount))
		}
		w.Flush()
	}

	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "%-18s %s\n", "Daily:", rupees(preview.DailyTotal))
	fmt.Fprintf(a.out, "%-18s %s\n", "Bookings:", rupees(preview.BookingTotal))
	fmt.Fprintf(a.out, "%-18s %s\n", "Previous balance:", rupees(preview.PreviousBalance))
	fmt.Fprintf(a.out, "%-18s %s\n", "Total available:", color.New(color.Bold).Sprint(rupees(preview.TotalAvailable)))
	return preview, nil
}

// Make records a deposit and prints its breakdown.
func (a *DepositAdapter) Make(ctx context.Context, busCode string, amount decimal.Decimal, date time.Time, remarks, sender string) (*models.DepositRecord, error) {
	dep, err := a.service.MakeDeposit(ctx, primary.DepositRequest{
		BusCode: busCode,
		Amount:  amount,
		Date:    date,
		Remarks: remarks,
		Sender:  sender,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to make deposit: %w", err)
	}

	fmt.Fprintf(a.out, "%s Deposit recorded: %s\n", color.GreenString("✓"), dep.ID)
	fmt.Fprintf(a.out, "  Amount:        %s\n", rupees(dep.Amount))
	fmt.Fprintf(a.out, "  From daily:    %s\n", rupees(dep.FromDaily))
	fmt.Fprintf(a.out, "  From bookings: %s\n", rupees(dep.FromBookings))
	fmt.Fprintf(a.out, "  From balance:  %s\n", rupees(dep.FromBalance))
	fmt.Fprintf(a.out, "  New balance:   %s\n", rupees(dep.NewBalance))
	if len(dep.DailyKeys) > 0 {
		fmt.Fprintf(a.out, "  Daily keys:    %s\n", strings.Join(dep.DailyKeys, ", "))
	}
	if len(dep.BookingKeys) > 0 {
		fmt.Fprintf(a.out, "  Booking keys:  %s\n", strings.Join(dep.BookingKeys, ", "))
	}
	return dep, nil
}

func rupees(d decimal.Decimal) string {
	return "₹" + d.String()
}
