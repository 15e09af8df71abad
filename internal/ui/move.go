package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/hourly/internal/reorder"
)

func (a *App) moveCmd() *cobra.Command {
	var (
		to     string
		before string
	)

	cmd := &cobra.Command{
		Use:   "move [task-id]",
		Short: "Move a task to another slot or before another task",
		Long: `Move a task the way a drag and drop does.

--to drops the task at the end of a slot, given as a slot key
("2024-03-01_9:00"). --before drops it in front of another task, in
that task's slot.`,
		Example: `  hourly move 2024-03-01_9:00_1709283600000 --to 2024-03-01_14:00
  hourly move 2024-03-01_9:00_1709283600000 --before 2024-03-01_9:00_1709280000000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				d   reorder.Drop
				err error
			)
			switch {
			case to != "":
				d, err = reorder.DropOnKey(args[0], to)
				if err != nil {
					return err
				}
			case before != "":
				d = reorder.Drop{TaskID: args[0], Target: reorder.OnTask(before)}
			default:
				return errors.New("one of --to or --before is required")
			}
			return a.drop(cmd, d)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Destination slot key (YYYY-MM-DD_H:00)")
	cmd.Flags().StringVar(&before, "before", "", "Task to drop in front of")
	cmd.MarkFlagsMutuallyExclusive("to", "before")

	return cmd
}

func (a *App) assignCmd() *cobra.Command {
	var (
		date string
		hour string
	)

	cmd := &cobra.Command{
		Use:   "assign [task-id]",
		Short: "Assign a date and hour to a task",
		Long: `Assign a task to a slot. The task is placed at the end of the slot.
Unscheduled tasks are scheduled this way.`,
		Example: `  hourly assign inbox_1709283600000 --date=monday --hour=9:00`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := resolveCoord(date, hour, a.now())
			if err != nil {
				return err
			}
			return a.drop(cmd, reorder.Drop{TaskID: args[0], Target: reorder.OnSlot(c)})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day (default: today)")
	cmd.Flags().StringVar(&hour, "hour", "", "Hour slot (required)")
	_ = cmd.MarkFlagRequired("hour")

	return cmd
}

func (a *App) drop(cmd *cobra.Command, d reorder.Drop) error {
	ctx := cmd.Context()
	p, err := a.ensurePlanner(ctx)
	if err != nil {
		return err
	}

	op, err := p.Move(ctx, d)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if op == nil {
		fmt.Fprintln(w, formatMuted("Nothing to move."))
		return nil
	}
	if err := await(ctx, op); err != nil {
		return fmt.Errorf("moving task: %w", err)
	}

	t, _ := p.Get(d.TaskID)
	slot := p.Slot(t.Coord())
	titles := make([]string, len(slot))
	for i, s := range slot {
		titles[i] = s.Title
	}
	fmt.Fprintf(w, "Moved %q to %s (position %d of %d)\n", t.Title, coordLabel(t.Coord()), t.Order+1, len(slot))
	fmt.Fprintln(w, formatMuted("  "+strings.Join(titles, " · ")))
	return nil
}
