package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/hourly/internal/config"
	"github.com/javiermolinar/hourly/internal/tui/theme"
)

func (a *App) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit configuration",
		Long: `Interactive configuration management.

If no config file exists, creates one with default values.
Otherwise, displays current config and, in a terminal, allows editing.

Example:
  hourly config`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runConfigInteractive(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n\n", a.path())
			printConfig(cmd.OutOrStdout(), a.config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.path()
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file already exists: %s", path)
			}
			if err := config.Default().SaveTo(path); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	})

	return cmd
}

func (a *App) path() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.DefaultConfigPath()
}

func (a *App) runConfigInteractive(w io.Writer) error {
	configPath := a.path()
	fmt.Fprintf(w, "Config file: %s\n\n", configPath)

	cfg := a.config

	// Check if file exists
	_, fileErr := os.Stat(configPath)
	isNew := os.IsNotExist(fileErr)

	if isNew {
		fmt.Fprintln(w, "No config file found. Creating with default values...")
		if err := cfg.SaveTo(configPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(w, "Created %s\n\n", configPath)
	}

	// Display current config
	printConfig(w, cfg)

	if !a.interactive() {
		return nil
	}

	reader := bufio.NewReader(a.stdin)

	// Ask if user wants to edit
	if !promptYesNo(w, reader, "\nWould you like to edit the configuration?") {
		return nil
	}

	cfg.User.ID = promptValue(w, reader, "User ID", cfg.User.ID)
	cfg.Storage.Backend = promptValue(w, reader, "Storage backend (sqlite, redis)", cfg.Storage.Backend)
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		cfg.Storage.RedisURL = promptValue(w, reader, "Redis URL", cfg.Storage.RedisURL)
	default:
		cfg.Storage.DBPath = promptValue(w, reader, "Database path", cfg.Storage.DBPath)
	}
	cfg.Undo.Window = promptValue(w, reader, "Undo window", cfg.Undo.Window)
	cfg.Log.Level = promptValue(w, reader, "Log level (debug, info, warn, error)", cfg.Log.Level)
	cfg.UI.Theme = promptTheme(w, reader, cfg.UI.Theme)

	// Validate before saving
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.SaveTo(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(w, "\nConfiguration saved!")
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current configuration:")
	fmt.Fprintln(w, "──────────────────────")
	fmt.Fprintln(w, "[user]")
	if cfg.SignedIn() {
		fmt.Fprintf(w, "  id               = %s\n", cfg.User.ID)
	} else {
		fmt.Fprintf(w, "  id               = %s\n", formatWarn("(signed out)"))
	}
	fmt.Fprintln(w, "\n[storage]")
	fmt.Fprintf(w, "  backend          = %s\n", cfg.Storage.Backend)
	if cfg.Storage.Backend == config.BackendRedis {
		fmt.Fprintf(w, "  redis_url        = %s\n", cfg.Storage.RedisURL)
	} else {
		fmt.Fprintf(w, "  db_path          = %s\n", cfg.Storage.DBPath)
		fmt.Fprintf(w, "  poll_interval    = %s\n", cfg.Storage.PollInterval)
	}
	fmt.Fprintln(w, "\n[undo]")
	fmt.Fprintf(w, "  window           = %s\n", cfg.Undo.Window)
	fmt.Fprintln(w, "\n[log]")
	fmt.Fprintf(w, "  level            = %s\n", cfg.Log.Level)
	if cfg.Log.File != "" {
		fmt.Fprintf(w, "  file             = %s\n", cfg.Log.File)
	}
	fmt.Fprintln(w, "\n[ui]")
	fmt.Fprintf(w, "  color            = %t\n", cfg.UI.Color)
	fmt.Fprintf(w, "  theme            = %s\n", cfg.UI.Theme)
}

func promptTheme(w io.Writer, reader *bufio.Reader, current string) string {
	label := fmt.Sprintf("Theme (%s)", strings.Join(theme.Available(), ", "))
	for {
		v := promptValue(w, reader, label, current)
		if theme.IsAvailable(v) {
			return strings.ToLower(v)
		}
		fmt.Fprintf(w, "  %s\n", formatWarn("unknown theme "+v))
		if v == current {
			return current
		}
	}
}

func promptYesNo(w io.Writer, reader *bufio.Reader, question string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", question)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func promptValue(w io.Writer, reader *bufio.Reader, label, current string) string {
	if current == "" {
		fmt.Fprintf(w, "  %s: ", label)
	} else {
		fmt.Fprintf(w, "  %s [%s]: ", label, current)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	return input
}
