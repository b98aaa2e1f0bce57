package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/fleetbot/internal/wire"
)

// RosterCmd returns the roster command
func RosterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roster",
		Short: "Show the configured buses",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer wire.Close()
			wire.RosterAdapter().Show()
			return nil
		},
	}
}
