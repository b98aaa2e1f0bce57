// Package wire provides dependency injection for fleetbot.
// It creates singleton services with lazy initialization.
package wire

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	cliadapter "github.com/example/fleetbot/internal/adapters/cli"
	"github.com/example/fleetbot/internal/adapters/filesystem"
	"github.com/example/fleetbot/internal/adapters/memory"
	"github.com/example/fleetbot/internal/adapters/persistence"
	"github.com/example/fleetbot/internal/adapters/postgres"
	"github.com/example/fleetbot/internal/adapters/roster"
	"github.com/example/fleetbot/internal/adapters/sqlite"
	"github.com/example/fleetbot/internal/app"
	"github.com/example/fleetbot/internal/config"
	"github.com/example/fleetbot/internal/db"
	"github.com/example/fleetbot/internal/ports/primary"
	"github.com/example/fleetbot/internal/ports/secondary"
)

var (
	configPath string
	logFormat  string

	cfg                 *config.Config
	logger              *slog.Logger
	location            *time.Location
	ledger              secondary.Ledger
	busRoster           *roster.Roster
	sessions            *memory.SessionStore
	depositService      *app.DepositServiceImpl
	statusService       *app.StatusServiceImpl
	recordService       *app.RecordServiceImpl
	conversationService *app.ConversationServiceImpl
	closers             []func()
	once                sync.Once
)

// SetConfigPath selects the config file. It must be called before any
// accessor; an empty path uses the default lookup.
func SetConfigPath(path string) {
	configPath = path
}

// SetLogFormat overrides the configured log format ("text" or "json").
func SetLogFormat(format string) {
	logFormat = format
}

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	once.Do(initServices)
	return logger
}

// Roster returns the bus and user roster.
func Roster() secondary.Roster {
	once.Do(initServices)
	return busRoster
}

// Sessions returns the in-memory conversation session store.
func Sessions() *memory.SessionStore {
	once.Do(initServices)
	return sessions
}

// DepositService returns the singleton DepositService instance.
func DepositService() primary.DepositService {
	once.Do(initServices)
	return depositService
}

// StatusService returns the singleton StatusService instance.
func StatusService() primary.StatusService {
	once.Do(initServices)
	return statusService
}

// RecordService returns the singleton RecordService instance.
func RecordService() primary.RecordService {
	once.Do(initServices)
	return recordService
}

// ConversationService returns the singleton ConversationService instance.
func ConversationService() primary.ConversationService {
	once.Do(initServices)
	return conversationService
}

// NewDispatcher creates a dispatcher delivering asynchronous replies through
// sender. sender may be nil when every message goes through Dispatch.
func NewDispatcher(sender secondary.MessageSender) *app.Dispatcher {
	once.Do(initServices)
	return app.NewDispatcher(conversationService, sender, busRoster, logger, cfg.Dispatcher.QueueSize)
}

// RunSessionSweeper expires idle sessions until ctx is done.
func RunSessionSweeper(ctx context.Context) {
	once.Do(initServices)
	sessions.Run(ctx, cfg.Session.SweepInterval)
}

// Close releases store connections.
func Close() {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	closers = nil
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		fatal("failed to load config", err)
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	logger = NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	location, err = cfg.Location()
	if err != nil {
		fatal("failed to resolve timezone", err)
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		fatal("failed to open record store", err)
	}
	ledger = persistence.NewLedger(store, logger)

	if cfg.RosterPath == "" {
		logger.Warn("no roster configured, every sender is allowed and no buses exist")
		busRoster = roster.New(nil, nil)
	} else {
		busRoster, err = roster.Load(cfg.RosterPath)
		if err != nil {
			fatal("failed to load roster", err)
		}
	}

	sessions = memory.NewSessionStore(cfg.Session.IdleTTL, logger)

	depositService = app.NewDepositService(ledger, busRoster, location)
	statusService = app.NewStatusService(ledger, location, cfg.MaxRangeDays)
	recordService = app.NewRecordService(ledger, location)
	conversationService = app.NewConversationService(app.ConversationDeps{
		Ledger:   ledger,
		Sessions: sessions,
		Roster:   busRoster,
		Deposits: depositService,
		Statuses: statusService,
		Location: location,
		Logger:   logger,
	})
}

// openStore selects the record store backend.
func openStore(sc config.StoreConfig) (secondary.RecordStore, error) {
	switch sc.Driver {
	case config.DriverPostgres:
		store, err := postgres.NewRecordStore(context.Background(), sc.Source)
		if err != nil {
			return nil, err
		}
		closers = append(closers, store.Close)
		return store, nil
	case config.DriverFile:
		dir := sc.Source
		if dir == "" {
			dir = "data"
		}
		return filesystem.NewRecordStore(dir)
	default:
		path := sc.Source
		if path == "" {
			p, err := db.DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		conn, err := db.Open(path)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { conn.Close() })
		return sqlite.NewRecordStore(conn), nil
	}
}

// NewLogger builds a slog logger writing text or JSON at the given level.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

// DepositAdapter returns a new DepositAdapter writing to stdout.
func DepositAdapter() *cliadapter.DepositAdapter {
	return DepositAdapterWithOutput(os.Stdout)
}

// DepositAdapterWithOutput returns a new DepositAdapter writing to the given output.
func DepositAdapterWithOutput(out io.Writer) *cliadapter.DepositAdapter {
	once.Do(initServices)
	return cliadapter.NewDepositAdapter(depositService, out)
}

// StatusAdapter returns a new StatusAdapter writing to stdout.
func StatusAdapter() *cliadapter.StatusAdapter {
	once.Do(initServices)
	return cliadapter.NewStatusAdapter(statusService, os.Stdout)
}

// RecordAdapter returns a new RecordAdapter writing to stdout.
func RecordAdapter() *cliadapter.RecordAdapter {
	once.Do(initServices)
	return cliadapter.NewRecordAdapter(recordService, os.Stdout)
}

// RosterAdapter returns a new RosterAdapter writing to stdout.
func RosterAdapter() *cliadapter.RosterAdapter {
	once.Do(initServices)
	return cliadapter.NewRosterAdapter(busRoster, os.Stdout)
}
