package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/example/fleetbot/internal/ports/primary"
	"github.com/example/fleetbot/internal/wire"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Update and query record statuses",
	}

	cmd.AddCommand(statusUpdateCmd())
	cmd.AddCommand(statusQueryCmd())
	return cmd
}

func statusUpdateCmd() *cobra.Command {
	var bus, remarks, actor string

	cmd := &cobra.Command{
		Use:   "update [daily|booking] [dates] [status]",
		Short: "Move records for a date range to a new status",
		Long: `Apply one status to every record in a date expression. Dates may be a
single date, a comma list or a range such as "01/11/2025 to 05/11/2025".
Records already at or past the status are skipped.

Examples:
  fleetbot status update daily "01/11/2025 to 05/11/2025" collected --bus BUS1
  fleetbot status update booking 10/11/2025 confirmed --remarks "advance received"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer wire.Close()
			_, err := wire.StatusAdapter().Update(context.Background(), primary.StatusUpdateRequest{
				Feature:  args[0],
				BusCode:  bus,
				DateExpr: args[1],
				Status:   args[2],
				Remarks:  remarks,
				Actor:    actor,
			})
			return err
		},
	}

	cmd.Flags().StringVar(&bus, "bus", "", "Bus code (required for daily)")
	cmd.Flags().StringVar(&remarks, "remarks", "", "Remarks for the audit log")
	cmd.Flags().StringVar(&actor, "actor", "cli", "Actor recorded in the audit log")
	return cmd
}

func statusQueryCmd() *cobra.Command {
	var bus string

	cmd := &cobra.Command{
		Use:   "query [daily|booking] [status]",
		Short: "List records holding a status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer wire.Close()
			_, err := wire.StatusAdapter().Query(context.Background(), primary.StatusQuery{
				Feature: args[0],
				BusCode: bus,
				Status:  args[1],
			})
			return err
		},
	}

	cmd.Flags().StringVar(&bus, "bus", "", "Limit to one bus")
	return cmd
}
