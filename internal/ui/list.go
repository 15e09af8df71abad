package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/hourly/internal/dateutil"
	"github.com/javiermolinar/hourly/internal/scheduler"
	"github.com/javiermolinar/hourly/internal/task"
)

func (a *App) listCmd() *cobra.Command {
	var (
		week  bool
		inbox bool
		empty bool
		ids   bool
	)

	cmd := &cobra.Command{
		Use:   "list [day]",
		Short: "List the tasks of a day or the coming week",
		Long: `List tasks hour by hour.

For today, the current and upcoming hours are listed first and past
hours after them. With --week, the seven days starting tomorrow are
listed, one block per day.`,
		Example: `  hourly list
  hourly list tomorrow --empty
  hourly list --week
  hourly list --inbox`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.ensurePlanner(cmd.Context())
			if err != nil {
				return err
			}

			now := a.now()
			tasks := p.Tasks()
			opts := PrintOpts{ShowIDs: ids, ShowEmpty: empty}
			w := cmd.OutOrStdout()

			switch {
			case inbox:
				printInbox(w, tasks, opts)
			case week:
				printWeek(w, tasks, now, opts)
			default:
				day := ""
				if len(args) == 1 {
					day = args[0]
				}
				d, err := dateutil.ParseDay(day, now)
				if err != nil {
					return err
				}
				printDay(w, tasks, d, now, opts)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&week, "week", false, "List the seven days starting tomorrow")
	cmd.Flags().BoolVar(&inbox, "inbox", false, "List unscheduled tasks")
	cmd.Flags().BoolVar(&empty, "empty", false, "Also list hours without tasks")
	cmd.Flags().BoolVar(&ids, "ids", false, "Show task IDs")
	cmd.MarkFlagsMutuallyExclusive("week", "inbox")

	return cmd
}

func printDay(w io.Writer, tasks []task.Task, day string, now time.Time, opts PrintOpts) {
	fmt.Fprintln(w, formatHeader("=== "+dayHeading(day, now)+" ==="))

	coords := scheduler.DaySlots(day)
	if day == dateutil.Day(now) {
		coords = scheduler.Partition(now, coords)
	}
	slots := scheduler.Bucket(tasks, coords)

	if countTasks(slots) == 0 && !opts.ShowEmpty {
		fmt.Fprintln(w, formatMuted("  No tasks."))
		return
	}
	for _, s := range slots {
		printSlot(w, s, now, opts)
	}
}

func printWeek(w io.Writer, tasks []task.Task, now time.Time, opts PrintOpts) {
	slots := scheduler.Bucket(tasks, scheduler.Week(now))
	for i, day := range scheduler.Days(scheduler.Week(now)) {
		if i > 0 {
			fmt.Fprintln(w)
		}
		daySlots := slots[i*task.HoursPerDay : (i+1)*task.HoursPerDay]
		fmt.Fprintf(w, "%s  %s\n",
			formatHeader("=== "+dayHeading(day, now)+" ==="),
			formatMuted(fmt.Sprintf("%d tasks", countTasks(daySlots))))
		for _, s := range daySlots {
			printSlot(w, s, now, opts)
		}
	}
}

func printInbox(w io.Writer, tasks []task.Task, opts PrintOpts) {
	fmt.Fprintln(w, formatHeader("=== Inbox ==="))
	inbox := scheduler.Unscheduled(tasks)
	if len(inbox) == 0 {
		fmt.Fprintln(w, formatMuted("  No unscheduled tasks."))
		return
	}
	for _, t := range inbox {
		fmt.Fprintf(w, "  %s\n", taskLine(t, opts))
	}
}

func countTasks(slots []scheduler.Slot) int {
	n := 0
	for _, s := range slots {
		n += len(s.Tasks)
	}
	return n
}
