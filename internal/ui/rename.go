package ui

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *App) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rename [task-id] [title]",
		Short:   "Change a task's title",
		Example: `  hourly rename 2024-03-01_9:00_1709283600000 "Write the docs"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.ensurePlanner(ctx)
			if err != nil {
				return err
			}

			title := strings.Join(args[1:], " ")
			op, err := p.Rename(ctx, args[0], title)
			if err != nil {
				return err
			}
			if err := await(ctx, op); err != nil {
				return fmt.Errorf("renaming task: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", formatMuted(args[0]), strings.TrimSpace(title))
			return nil
		},
	}
}
