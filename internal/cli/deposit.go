package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/fleetbot/internal/core/datekey"
	"github.com/example/fleetbot/internal/core/extract"
	"github.com/example/fleetbot/internal/wire"
)

// DepositCmd returns the deposit command
func DepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Preview and record cash deposits",
	}

	cmd.AddCommand(depositPreviewCmd())
	cmd.AddCommand(depositMakeCmd())
	return cmd
}

func depositPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview [bus]",
		Short: "List outstanding cash for a bus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer wire.Close()
			_, err := wire.DepositAdapter().Preview(context.Background(), args[0])
			return err
		},
	}
}

func depositMakeCmd() *cobra.Command {
	var date, remarks string

	cmd := &cobra.Command{
		Use:   "make [bus] [amount]",
		Short: "Record a deposit of whole outstanding entries",
		Long: `Record a deposit. Outstanding entries are consumed oldest first and only
whole entries can be deposited.

Examples:
  fleetbot deposit make BUS1 5000
  fleetbot deposit make BUS1 5000 --date 05/11/2025 --remarks "SBI branch"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer wire.Close()

			amount, err := extract.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			var when time.Time
			if date != "" {
				loc, err := wire.Config().Location()
				if err != nil {
					return err
				}
				when, err = datekey.Parse(date, time.Now().In(loc))
				if err != nil {
					return fmt.Errorf("invalid date %q: %w", date, err)
				}
			}

			_, err = wire.DepositAdapter().Make(context.Background(), args[0], amount, when, remarks, "cli")
			return err
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Deposit date (DD/MM/YYYY, today or yesterday)")
	cmd.Flags().StringVar(&remarks, "remarks", "", "Remarks stored with the deposit")
	return cmd
}
