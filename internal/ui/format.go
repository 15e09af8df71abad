package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/javiermolinar/hourly/internal/dateutil"
	"github.com/javiermolinar/hourly/internal/scheduler"
	"github.com/javiermolinar/hourly/internal/task"
)

// PrintOpts configures task printing behavior.
type PrintOpts struct {
	ShowIDs    bool // print task IDs after titles
	ShowEmpty  bool // print hours without tasks
	TitleWidth int  // 0 = derive from the terminal
}

func (o PrintOpts) titleWidth() int {
	if o.TitleWidth > 0 {
		return o.TitleWidth
	}
	// "  23:00  ○ " plus room for an ID
	w := termWidth() - 12
	if o.ShowIDs {
		w -= 30
	}
	return max(w, 20)
}

// printSlot prints one hour and its tasks. The hour label is coloured by
// its phase relative to now.
func printSlot(w io.Writer, s scheduler.Slot, now time.Time, opts PrintOpts) {
	if len(s.Tasks) == 0 && !opts.ShowEmpty {
		return
	}

	label := fmt.Sprintf("%5s", s.Hour)
	switch scheduler.PhaseOf(s.Coord, now) {
	case scheduler.Current:
		label = formatCurrent(label)
	case scheduler.Past:
		label = formatPast(label)
	}

	if len(s.Tasks) == 0 {
		fmt.Fprintf(w, "  %s  %s\n", label, formatMuted("·"))
		return
	}
	for i, t := range s.Tasks {
		if i > 0 {
			label = "     "
		}
		fmt.Fprintf(w, "  %s  %s\n", label, taskLine(t, opts))
	}
}

// taskLine renders a task as "○ title [id]".
func taskLine(t task.Task, opts PrintOpts) string {
	symbol := "○"
	title := ansi.Truncate(t.Title, opts.titleWidth(), "…")
	if t.Completed {
		symbol = "●"
		title = formatPast(title)
	}
	line := symbol + " " + title
	if opts.ShowIDs {
		line += "  " + formatMuted(t.ID)
	}
	return line
}

// dayHeading renders "Fri 2024-03-01", with "today" or "tomorrow" appended
// when it applies.
func dayHeading(day string, now time.Time) string {
	d, err := dateutil.Parse(day)
	if err != nil {
		return day
	}
	heading := d.Format("Mon ") + day
	switch day {
	case dateutil.Day(now):
		heading += " (today)"
	case dateutil.Day(now.AddDate(0, 0, 1)):
		heading += " (tomorrow)"
	}
	return heading
}

func coordLabel(c task.Coord) string {
	if c.IsZero() {
		return "inbox"
	}
	return c.Date + " " + string(c.Hour)
}
