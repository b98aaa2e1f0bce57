package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/fleetbot/internal/ports/primary"
)

// StatusAdapter translates CLI operations to StatusService calls.
type StatusAdapter struct {
	service primary.StatusService
	out     io.Writer
}

// NewStatusAdapter creates a new StatusAdapter with the given service.
func NewStatusAdapter(service primary.StatusService, out io.Writer) *StatusAdapter {
	return &StatusAdapter{
		service: service,
		out:     out,
	}
}

// Update applies a batch status change and lists updated and skipped keys.
func (a *StatusAdapter) Update(ctx context.Context, req primary.StatusUpdateRequest) (*primary.StatusUpdateResult, error) {
	res, err := a.service.UpdateStatus(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	if len(res.Updated) == 0 {
		fmt.Fprintf(a.out, "Nothing updated to %s\n", res.Status)
	} else {
		fmt.Fprintf(a.out, "%s Updated %d to %s (log %s)\n", color.GreenString("✓"), len(res.Updated), res.Status, res.LogEntryID)
		for _, key := range res.Updated {
			fmt.Fprintf(a.out, "  %s\n", key)
		}
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(a.out, "%s Skipped %d\n", color.YellowString("!"), len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Fprintf(a.out, "  %-16s %s\n", s.Key, s.Reason)
		}
	}
	return res, nil
}

// Query lists the keys holding a status.
func (a *StatusAdapter) Query(ctx context.Context, q primary.StatusQuery) ([]string, error) {
	keys, err := a.service.QueryStatus(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query status: %w", err)
	}
	if len(keys) == 0 {
		fmt.Fprintln(a.out, "No matching records.")
		return keys, nil
	}
	for _, key := range keys {
		fmt.Fprintln(a.out, key)
	}
	fmt.Fprintf(a.out, "\n%d record(s)\n", len(keys))
	return keys, nil
}
