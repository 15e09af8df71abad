package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/hourly/internal/dateutil"
	"github.com/javiermolinar/hourly/internal/scheduler"
	"github.com/javiermolinar/hourly/internal/task"
)

func (a *App) addCmd() *cobra.Command {
	var (
		date  string
		hour  string
		inbox bool
	)

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a new task",
		Long: `Add a task at the end of an hour slot.

Without --hour the task goes into the current hour (or 6:00 before the
day starts). With --inbox it is left unscheduled.`,
		Example: `  hourly add "Write documentation"
  hourly add "Call the bank" --date=tomorrow --hour=10:00
  hourly add "Read that paper" --inbox`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.ensurePlanner(ctx)
			if err != nil {
				return err
			}

			var c task.Coord
			if !inbox {
				c, err = resolveCoord(date, hour, a.now())
				if err != nil {
					return err
				}
			}

			t, op, err := p.Add(ctx, strings.Join(args, " "), c)
			if err != nil {
				return err
			}
			if err := await(ctx, op); err != nil {
				return fmt.Errorf("creating task: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s (%s)\n", formatMuted(t.ID), t.Title, coordLabel(t.Coord()))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day (YYYY-MM-DD, today, tomorrow, monday, +2, ...; default: today)")
	cmd.Flags().StringVar(&hour, "hour", "", "Hour slot (6:00 to 23:00, default: current hour)")
	cmd.Flags().BoolVar(&inbox, "inbox", false, "Leave the task unscheduled")
	cmd.MarkFlagsMutuallyExclusive("inbox", "date")
	cmd.MarkFlagsMutuallyExclusive("inbox", "hour")

	return cmd
}

// resolveCoord turns --date and --hour flags into a slot. Missing parts
// default to the next slot from now.
func resolveCoord(date, hour string, now time.Time) (task.Coord, error) {
	c := scheduler.NextSlot(now)
	if date != "" {
		day, err := dateutil.ParseDay(date, now)
		if err != nil {
			return task.Coord{}, err
		}
		c.Date = day
	}
	if hour != "" {
		h, err := task.ParseHour(hour)
		if err != nil {
			return task.Coord{}, err
		}
		c.Hour = h
	}
	return c, nil
}
