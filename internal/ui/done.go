package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/hourly/internal/planner"
	"github.com/javiermolinar/hourly/internal/undo"
)

func (a *App) doneCmd() *cobra.Command {
	var noPrompt bool

	cmd := &cobra.Command{
		Use:     "done [task-id]",
		Aliases: []string{"complete"},
		Short:   "Check a task off",
		Long: `Check a task off. The task is removed from its slot right away.

In a terminal you are offered to undo it while the undo window is open
(see [undo] window in the config).`,
		Example: `  hourly done 2024-03-01_9:00_1709283600000`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.ensurePlanner(ctx)
			if err != nil {
				return err
			}

			tok, op, err := p.Complete(ctx, args[0])
			if err != nil {
				return err
			}
			if err := await(ctx, op); err != nil {
				return fmt.Errorf("completing task: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", formatOK("Done:"), tok.Task.Title)

			if noPrompt || !a.interactive() {
				return nil
			}
			return a.offerUndo(ctx, w, p, tok)
		},
	}

	cmd.Flags().BoolVar(&noPrompt, "no-undo", false, "Do not offer to undo")

	return cmd
}

// offerUndo asks whether to restore the task until the token's window closes.
func (a *App) offerUndo(ctx context.Context, w io.Writer, p *planner.Planner, tok *undo.Token) error {
	remaining := tok.Remaining()
	if remaining <= 0 {
		return nil
	}
	secs := int(math.Ceil(remaining.Seconds()))
	fmt.Fprintf(w, "%s ", formatWarn(fmt.Sprintf("Undo? [y/N] (%ds)", secs)))

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(a.stdin).ReadString('\n')
		answer <- strings.ToLower(strings.TrimSpace(line))
	}()

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		fmt.Fprintln(w)
		fmt.Fprintln(w, formatMuted("Undo window closed."))
		return nil
	case ans := <-answer:
		if ans != "y" && ans != "yes" {
			return nil
		}
	}

	restored, err := p.Undo(ctx, tok)
	if err != nil {
		return fmt.Errorf("restoring task: %w", err)
	}
	if !restored {
		fmt.Fprintln(w, formatMuted("Too late, the undo window has closed."))
		return nil
	}
	fmt.Fprintf(w, "Restored %q\n", tok.Task.Title)
	return nil
}
