package ui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/javiermolinar/hourly/internal/config"
	"github.com/javiermolinar/hourly/internal/db"
	"github.com/javiermolinar/hourly/internal/logging"
	"github.com/javiermolinar/hourly/internal/redisstore"
	"github.com/javiermolinar/hourly/internal/task"
)

// openStore opens the configured document store.
func openStore(cfg *config.Config, log *logging.Logger) (task.DocumentStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		s, err := redisstore.NewFromURL(cfg.Storage.RedisURL, redisstore.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("opening redis store: %w", err)
		}
		return s, nil
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		s, err := db.New(cfg.Storage.DBPath,
			db.WithPollInterval(cfg.PollInterval()),
			db.WithLogger(log),
		)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// newLogger builds the process logger. With debug set, everything down to
// debug level goes to a file in the temp directory unless a file is
// configured.
func newLogger(cfg config.LogConfig, debug bool) (*logging.Logger, error) {
	lc := logging.DefaultConfig()

	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	lc.Level = level
	lc.FilePath = cfg.File
	lc.JSON = cfg.JSON
	lc.Console = cfg.Console

	if debug {
		lc.Level = logging.DebugLevel
		if lc.FilePath == "" {
			lc.FilePath = filepath.Join(os.TempDir(), "hourly-debug.log")
		}
	}

	return logging.New(lc)
}
