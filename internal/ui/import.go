package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/hourly/internal/transfer"
)

func (a *App) importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file.yaml]",
		Short: "Import tasks from a YAML export",
		Long: `Import tasks written by "hourly export" into the current user's
collection. Tasks that already exist are skipped; imported tasks are
appended to their slots. Use "-" to read from stdin.`,
		Example: `  hourly import backup.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.ensurePlanner(ctx)
			if err != nil {
				return err
			}
			user, _ := p.User()

			var r io.Reader = a.stdin
			source := "stdin"
			if args[0] != "-" {
				path, err := resolvePath(args[0])
				if err != nil {
					return err
				}
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("opening import file: %w", err)
				}
				defer func() { _ = f.Close() }()
				r = f
				source = path
			}

			file, err := transfer.Decode(r)
			if err != nil {
				return err
			}
			res, err := transfer.Import(ctx, a.docs, user.ID, file, a.now())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks from %s", res.Imported, source)
			if res.Skipped > 0 {
				fmt.Fprint(cmd.OutOrStdout(), formatMuted(fmt.Sprintf(" (%d already present)", res.Skipped)))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	return cmd
}

func (a *App) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.yaml]",
		Short: "Export tasks as YAML",
		Long: `Export every task of the current user as YAML, to a file or to
stdout when no file is given.`,
		Example: `  hourly export backup.yaml
  hourly export > backup.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.ensurePlanner(cmd.Context())
			if err != nil {
				return err
			}
			user, _ := p.User()
			tasks := p.Tasks()

			if len(args) == 0 {
				return transfer.Export(cmd.OutOrStdout(), user.ID, tasks, a.now())
			}

			path, err := resolvePath(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("creating export directory: %w", err)
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			if err := transfer.Export(f, user.ID, tasks, a.now()); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("writing export file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tasks to %s\n", len(tasks), path)
			return nil
		},
	}
}

func resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("empty path")
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return filepath.Clean(abs), nil
}
