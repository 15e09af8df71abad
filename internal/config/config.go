// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds the application configuration.
type Config struct {
	User    UserConfig    `toml:"user"`
	Storage StorageConfig `toml:"storage"`
	Undo    UndoConfig    `toml:"undo"`
	Log     LogConfig     `toml:"log"`
	UI      UIConfig      `toml:"ui"`
}

// UserConfig identifies the signed-in user. An empty ID means signed out.
type UserConfig struct {
	ID string `toml:"id"`
}

// StorageConfig selects and configures the document store.
type StorageConfig struct {
	Backend      string `toml:"backend"`       // "sqlite" or "redis"
	DBPath       string `toml:"db_path"`       // sqlite file
	RedisURL     string `toml:"redis_url"`     // e.g., "redis://localhost:6379/0"
	PollInterval string `toml:"poll_interval"` // sqlite change polling, e.g., "1s"
}

// UndoConfig holds the undo window.
type UndoConfig struct {
	Window string `toml:"window"` // e.g., "5s"
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level   string `toml:"level"` // debug, info, warn, error
	File    string `toml:"file"`  // empty logs to stderr
	JSON    bool   `toml:"json"`
	Console bool   `toml:"console"`
}

// UIConfig holds terminal output settings.
type UIConfig struct {
	Color bool   `toml:"color"`
	Theme string `toml:"theme"` // TUI color theme, e.g. "mocha"
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		User: UserConfig{
			ID: defaultUserID(),
		},
		Storage: StorageConfig{
			Backend:      BackendSQLite,
			DBPath:       defaultDBPath(),
			RedisURL:     "redis://localhost:6379/0",
			PollInterval: "1s",
		},
		Undo: UndoConfig{
			Window: "5s",
		},
		Log: LogConfig{
			Level: "warn",
		},
		UI: UIConfig{
			Color: true,
			Theme: "mocha",
		},
	}
}

func defaultUserID() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// defaultDBPath returns the default database path.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "hourly.db"
	}
	return filepath.Join(home, ".local", "share", "hourly", "hourly.db")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "hourly", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads config from a file if it exists.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("HOURLY_USER"); ok {
		cfg.User.ID = v
	}

	if v := os.Getenv("HOURLY_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("HOURLY_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("HOURLY_REDIS_URL"); v != "" {
		cfg.Storage.RedisURL = v
	}
	if v := os.Getenv("HOURLY_POLL_INTERVAL"); v != "" {
		cfg.Storage.PollInterval = v
	}

	if v := os.Getenv("HOURLY_UNDO_WINDOW"); v != "" {
		cfg.Undo.Window = v
	}

	if v := os.Getenv("HOURLY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HOURLY_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	if v := os.Getenv("HOURLY_COLOR"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.UI.Color = b
		}
	}
	if v := os.Getenv("HOURLY_THEME"); v != "" {
		cfg.UI.Theme = v
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		cfg.UI.Color = false
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.DBPath == "" {
			return errors.New("db_path must be set for the sqlite backend")
		}
		if _, err := positiveDuration(c.Storage.PollInterval, "poll_interval"); err != nil {
			return err
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("redis_url must be set for the redis backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %q", c.Storage.Backend)
	}

	if _, err := positiveDuration(c.Undo.Window, "undo window"); err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}

	return nil
}

func positiveDuration(s, field string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 5s, got %q", field, s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", field, s)
	}
	return d, nil
}

// UndoWindow returns the parsed undo window. Call Validate first.
func (c *Config) UndoWindow() time.Duration {
	d, _ := time.ParseDuration(c.Undo.Window)
	return d
}

// PollInterval returns the parsed sqlite poll interval. Call Validate first.
func (c *Config) PollInterval() time.Duration {
	d, _ := time.ParseDuration(c.Storage.PollInterval)
	return d
}

// SignedIn returns true if a user is configured.
func (c *Config) SignedIn() bool {
	return strings.TrimSpace(c.User.ID) != ""
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
