package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/javiermolinar/hourly/internal/auth"
	"github.com/javiermolinar/hourly/internal/config"
	"github.com/javiermolinar/hourly/internal/logging"
	"github.com/javiermolinar/hourly/internal/planner"
	"github.com/javiermolinar/hourly/internal/remote"
	"github.com/javiermolinar/hourly/internal/task"
	"github.com/javiermolinar/hourly/internal/tui"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	config     *config.Config
	configPath string // --config
	user       string // --user
	debug      bool   // --debug

	log     *logging.Logger
	docs    task.DocumentStore
	ownDocs bool // docs opened by the app and closed with it
	auth    *auth.Static
	planner *planner.Planner

	now         func() time.Time
	stdin       io.Reader
	interactive func() bool
	root        *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithDocumentStore makes the app use docs instead of opening the
// configured backend.
func WithDocumentStore(docs task.DocumentStore) Option {
	return func(a *App) { a.docs = docs }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithInput sets where prompts read answers from. Prompts only run when the
// input is interactive.
func WithInput(r io.Reader, interactive bool) Option {
	return func(a *App) {
		a.stdin = r
		a.interactive = func() bool { return interactive }
	}
}

// NewApp creates a new CLI application with the given config.
func NewApp(cfg *config.Config, opts ...Option) *App {
	a := &App{
		config: cfg,
		log:    logging.Nop(),
		now:    time.Now,
		stdin:  os.Stdin,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
	for _, opt := range opts {
		opt(a)
	}

	a.root = &cobra.Command{
		Use:   "hourly",
		Short: "Plan your days hour by hour",
		Long: `Hourly is a personal planner that places tasks into hour slots
from 6:00 to 23:00 and keeps them in sync with a document store.

Run without a command to open the day planner.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.ensurePlanner(cmd.Context())
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), p, a.log, tui.WithClock(a.now), tui.WithTheme(a.config.UI.Theme))
		},
	}

	// Add global flags
	a.root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default "+config.DefaultConfigPath()+")")
	a.root.PersistentFlags().StringVar(&a.user, "user", "", "Act as this user instead of the configured one")
	a.root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging (logs to temp file)")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.configCmd())
	a.root.AddCommand(a.addCmd())
	a.root.AddCommand(a.listCmd())
	a.root.AddCommand(a.moveCmd())
	a.root.AddCommand(a.assignCmd())
	a.root.AddCommand(a.renameCmd())
	a.root.AddCommand(a.doneCmd())
	a.root.AddCommand(a.importCmd())
	a.root.AddCommand(a.exportCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hourly %s (commit: %s)\n", Version, Commit)
		},
	}
}

// setup applies the global flags before any command runs.
func (a *App) setup(_ *cobra.Command, _ []string) error {
	if a.configPath != "" {
		cfg, err := config.LoadFrom(a.configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		a.config = cfg
	}
	if a.user != "" {
		a.config.User.ID = a.user
	}

	if !a.config.UI.Color {
		DisableColor()
	}

	log, err := newLogger(a.config.Log, a.debug)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	a.log = log
	logging.SetDefault(log)
	log.Infof("hourly %s, %s store", Version, a.config.Storage.Backend)
	return nil
}

// ensurePlanner opens the document store and the user's session on first use.
func (a *App) ensurePlanner(ctx context.Context) (*planner.Planner, error) {
	if a.planner != nil {
		return a.planner, nil
	}

	if a.docs == nil {
		docs, err := openStore(a.config, a.log)
		if err != nil {
			return nil, err
		}
		a.docs = docs
		a.ownDocs = true
	}

	a.auth = auth.NewStatic(a.config.User.ID)
	p := planner.New(a.auth, a.docs, a.log,
		planner.WithUndoWindow(a.config.UndoWindow()),
		planner.WithClock(a.now),
	)
	if err := p.Open(ctx); err != nil {
		if errors.Is(err, task.ErrNoUser) {
			return nil, fmt.Errorf("%w: set [user] id in the config file or pass --user", err)
		}
		return nil, fmt.Errorf("opening planner: %w", err)
	}
	a.planner = p
	return p, nil
}

// await blocks until op finishes. A nil op means nothing was submitted.
func await(ctx context.Context, op *remote.Op) error {
	if op == nil {
		return nil
	}
	return op.Wait(ctx)
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

// ExecuteContext runs the CLI application with ctx.
func (a *App) ExecuteContext(ctx context.Context) error {
	return a.root.ExecuteContext(ctx)
}

// Close waits for outstanding writes, then releases the session and the
// document store.
func (a *App) Close() error {
	if a.planner != nil {
		a.planner.Wait()
		a.planner.Close()
		a.planner = nil
	}
	if a.ownDocs && a.docs != nil {
		err := a.docs.Close()
		a.docs = nil
		return err
	}
	return nil
}
