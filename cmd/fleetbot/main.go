package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/fleetbot/internal/cli"
	"github.com/example/fleetbot/internal/version"
	"github.com/example/fleetbot/internal/wire"
)

func main() {
	var configPath, logFormat string

	rootCmd := &cobra.Command{
		Use:     "fleetbot",
		Short:   "fleetbot - chat bot for bus cash sheets, bookings and deposits",
		Version: version.String(),
		Long: `fleetbot collects daily bus cash sheets and private hire bookings over chat,
tracks their status and allocates cash deposits to outstanding entries.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			wire.SetConfigPath(configPath)
			if logFormat != "" {
				wire.SetLogFormat(logFormat)
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.fleetbot/fleetbot.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.ChatCmd())
	rootCmd.AddCommand(cli.DepositCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.RecordsCmd())
	rootCmd.AddCommand(cli.RosterCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
