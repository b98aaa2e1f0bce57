package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/fleetbot/internal/wire"
)

// RecordsCmd returns the records command
func RecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List, export and import stored records",
	}

	cmd.AddCommand(recordsListCmd())
	cmd.AddCommand(recordsExportCmd())
	cmd.AddCommand(recordsImportCmd())
	return cmd
}

func recordsListCmd() *cobra.Command {
	var bus string

	cmd := &cobra.Command{
		Use:   "list [daily|bookings|deposits]",
		Short: "List records as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer wire.Close()
			adapter := wire.RecordAdapter()
			ctx := context.Background()

			var err error
			switch args[0] {
			case "daily":
				_, err = adapter.ListDaily(ctx, bus)
			case "bookings", "booking":
				_, err = adapter.ListBookings(ctx, bus)
			case "deposits", "deposit":
				_, err = adapter.ListDeposits(ctx, bus)
			default:
				return fmt.Errorf("unknown record kind %q (use daily, bookings or deposits)", args[0])
			}
			return err
		},
	}

	cmd.Flags().StringVar(&bus, "bus", "", "Limit to one bus")
	return cmd
}

func recordsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [store]",
		Short: "Write the raw records of a store as JSON",
		Long: `Write every record of a store as a JSON object keyed by record key.
Stores: daily, daily_status_log, bookings, booking_status_log, deposits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer wire.Close()
			return wire.RecordAdapter().Export(context.Background(), args[0])
		},
	}
}

func recordsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [store] [file]",
		Short: "Merge records from a JSON export into a store",
		Long: `Merge records into a store. For each key the record with the newest
timestamp wins; invalid records are rejected. Use "-" to read stdin.

Examples:
  fleetbot records import daily backup/daily.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer wire.Close()

			var in io.Reader = os.Stdin
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[1], err)
				}
				defer f.Close()
				in = f
			}

			_, err := wire.RecordAdapter().Import(context.Background(), args[0], in)
			return err
		},
	}
}
