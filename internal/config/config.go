// Package config loads fleetbot configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

// Config represents the fleetbot configuration.
type Config struct {
	Store         StoreConfig    `yaml:"store"`
	HTTPAddr      string         `yaml:"http_addr"`
	TelegramToken string         `yaml:"telegram_token,omitempty"`
	RosterPath    string         `yaml:"roster_path"`
	Session       SessionConfig  `yaml:"session"`
	MaxRangeDays  int            `yaml:"max_range_days"`
	Timezone      string         `yaml:"timezone"`
	LogLevel      string         `yaml:"log_level"`
	LogFormat     string         `yaml:"log_format"`
	Dispatcher    DispatchConfig `yaml:"dispatcher"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "postgres" or "file"
	Source string `yaml:"source"` // db path, DSN or data directory
}

// SessionConfig controls idle session expiry.
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// DispatchConfig bounds the per-sender mailboxes.
type DispatchConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Store:        StoreConfig{Driver: DriverSQLite},
		HTTPAddr:     ":8080",
		Session:      SessionConfig{IdleTTL: 30 * time.Minute, SweepInterval: time.Minute},
		MaxRangeDays: 62,
		Timezone:     "Asia/Kolkata",
		LogLevel:     "info",
		LogFormat:    "text",
		Dispatcher:   DispatchConfig{QueueSize: 32},
	}
}

// DefaultPath returns ~/.fleetbot/fleetbot.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".fleetbot", "fleetbot.yaml"), nil
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error. An empty path falls
// back to FLEETBOT_CONFIG, then DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("FLEETBOT_CONFIG")
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("FLEETBOT_DB_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("FLEETBOT_DB_SOURCE"); v != "" {
		cfg.Store.Source = v
	}
	if v := os.Getenv("FLEETBOT_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("FLEETBOT_TELEGRAM_TOKEN"); v != "" {
		cfg.TelegramToken = v
	}
	if v := os.Getenv("FLEETBOT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLEETBOT_ROSTER"); v != "" {
		cfg.RosterPath = v
	}
	if v := os.Getenv("FLEETBOT_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid FLEETBOT_SESSION_TTL: %w", err)
		}
		cfg.Session.IdleTTL = d
	}
	if v := os.Getenv("FLEETBOT_MAX_RANGE_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FLEETBOT_MAX_RANGE_DAYS: %w", err)
		}
		cfg.MaxRangeDays = n
	}
	return nil
}

// Validate rejects configurations the bot cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverFile:
	case DriverPostgres:
		if c.Store.Source == "" {
			return fmt.Errorf("store.source is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.MaxRangeDays < 1 {
		return fmt.Errorf("max_range_days must be at least 1")
	}
	if c.Session.IdleTTL < 0 {
		return fmt.Errorf("session.idle_ttl must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone used for "today".
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Save writes cfg as YAML, creating the directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
