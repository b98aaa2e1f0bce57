package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/fleetbot/internal/config"
)

const sampleRoster = `# Buses the bot accepts sheets for.
buses:
  - code: BUS1
    name: Main route
    opening_balance: "0"

# Senders allowed to talk to the bot. Leave empty to allow everyone.
users: []
`

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config and roster",
		Long:  `Write a default config to ~/.fleetbot/fleetbot.yaml and a sample roster next to it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to check config: %w", err)
			}

			cfg := config.Default()
			cfg.RosterPath = filepath.Join(filepath.Dir(path), "roster.yaml")
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Printf("✓ Config written to %s\n", path)

			if _, err := os.Stat(cfg.RosterPath); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfg.RosterPath, []byte(sampleRoster), 0644); err != nil {
					return fmt.Errorf("failed to write roster: %w", err)
				}
				fmt.Printf("✓ Sample roster written to %s\n", cfg.RosterPath)
			}

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  edit the roster, then")
			fmt.Println("  fleetbot chat")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	return cmd
}
