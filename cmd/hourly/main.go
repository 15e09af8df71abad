package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/javiermolinar/hourly/internal/config"
	"github.com/javiermolinar/hourly/internal/logging"
	"github.com/javiermolinar/hourly/internal/ui"
)

func main() {
	if err := run(); err != nil {
		// Recorded in the --debug log file when one is configured.
		logging.Get().WithError(err).Debug("command failed")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := ui.NewApp(cfg)
	defer func() { _ = app.Close() }()
	return app.ExecuteContext(ctx)
}
