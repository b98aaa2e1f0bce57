package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/fleetbot/internal/adapters/httpapi"
	"github.com/example/fleetbot/internal/adapters/transport/telegram"
	"github.com/example/fleetbot/internal/ports/secondary"
	"github.com/example/fleetbot/internal/version"
	"github.com/example/fleetbot/internal/wire"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	var noTelegram bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		Long: `Run the chat bot: the HTTP webhook and API, the Telegram poller when a
token is configured, and the idle session sweeper.

Logs are JSON unless --log-format is given.

Examples:
  fleetbot serve
  fleetbot serve --no-telegram`,
		PreRun: func(cmd *cobra.Command, args []string) {
			if f := cmd.Flag("log-format"); f == nil || !f.Changed {
				wire.SetLogFormat("json")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := wire.Config()
			logger := wire.Logger()
			defer wire.Close()

			var sender secondary.MessageSender
			var tg *telegram.Transport
			if cfg.TelegramToken != "" && !noTelegram {
				t, err := telegram.New(cfg.TelegramToken, logger)
				if err != nil {
					return err
				}
				tg = t
				sender = t
			}

			dispatcher := wire.NewDispatcher(sender)
			go wire.RunSessionSweeper(ctx)

			srv := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewHandler(dispatcher, wire.RecordService(), logger))
			errCh := make(chan error, 2)
			go func() {
				logger.Info("http listening", "addr", cfg.HTTPAddr, "version", version.String())
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			if tg != nil {
				go func() {
					if err := tg.Run(ctx, dispatcher); err != nil {
						errCh <- err
					}
				}()
			}

			var runErr error
			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case runErr = <-errCh:
				logger.Error("server failed", "error", runErr)
			}
			stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown", "error", err)
			}
			dispatcher.Wait()
			return runErr
		},
	}

	cmd.Flags().BoolVar(&noTelegram, "no-telegram", false, "Do not poll Telegram even if a token is configured")
	return cmd
}
