package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/fleetbot/internal/adapters/transport/console"
	"github.com/example/fleetbot/internal/wire"
)

// ChatCmd returns the chat command
func ChatCmd() *cobra.Command {
	var sender string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot from the terminal",
		Long: `Start an interactive conversation with the bot on this terminal.
Type "quit" or "exit" to leave.

Examples:
  fleetbot chat
  fleetbot chat --as 919000000001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer wire.Close()

			c := console.New(os.Stdin, os.Stdout, sender)
			dispatcher := wire.NewDispatcher(c)

			color.New(color.FgHiBlack).Printf("Chatting as %s. Type \"help\" for commands.\n", sender)
			err := c.Run(cmd.Context(), dispatcher)
			dispatcher.Wait()
			return err
		},
	}

	cmd.Flags().StringVar(&sender, "as", "console", "Sender id to chat as")
	return cmd
}
