// Package scheduler enumerates the hour slots a view renders.
// Every function is a pure function of its inputs.
package scheduler

import (
	"slices"
	"time"

	"github.com/javiermolinar/hourly/internal/dateutil"
	"github.com/javiermolinar/hourly/internal/task"
)

// WeekDays is the length of the week view.
const WeekDays = 7

// Day returns the slots of ref's calendar day in hour order.
func Day(ref time.Time) []task.Coord {
	return DaySlots(dateutil.Day(ref))
}

// DaySlots returns the slots of a calendar day in hour order.
func DaySlots(day string) []task.Coord {
	coords := make([]task.Coord, 0, task.HoursPerDay)
	for _, h := range task.Hours() {
		coords = append(coords, task.Coord{Date: day, Hour: h})
	}
	return coords
}

// Window returns the slots of days consecutive days starting on start's day.
func Window(start time.Time, days int) []task.Coord {
	first := dateutil.TruncateToDay(start)
	coords := make([]task.Coord, 0, max(days, 0)*task.HoursPerDay)
	for i := range max(days, 0) {
		coords = append(coords, DaySlots(dateutil.Day(first.AddDate(0, 0, i)))...)
	}
	return coords
}

// Week returns the slots of the seven days starting tomorrow.
func Week(ref time.Time) []task.Coord {
	return Window(dateutil.TruncateToDay(ref).AddDate(0, 0, 1), WeekDays)
}

// Phase places a slot relative to a reference instant.
type Phase int

const (
	Past Phase = iota
	Current
	Future
)

func (p Phase) String() string {
	switch p {
	case Past:
		return "past"
	case Current:
		return "current"
	default:
		return "future"
	}
}

// PhaseOf returns whether c is before, at, or after the hour of ref.
func PhaseOf(c task.Coord, ref time.Time) Phase {
	today := dateutil.Day(ref)
	switch {
	case c.Date < today:
		return Past
	case c.Date > today:
		return Future
	}
	switch h := c.Hour.Clock(); {
	case h < ref.Hour():
		return Past
	case h == ref.Hour():
		return Current
	default:
		return Future
	}
}

// Partition reorders coords so that current and future slots come first and
// past slots follow, each group keeping its relative order.
func Partition(ref time.Time, coords []task.Coord) []task.Coord {
	out := make([]task.Coord, 0, len(coords))
	var past []task.Coord
	for _, c := range coords {
		if PhaseOf(c, ref) == Past {
			past = append(past, c)
			continue
		}
		out = append(out, c)
	}
	return append(out, past...)
}

// NextSlot returns the slot a new task lands in when no hour is given: the
// current hour, or the first hour of the day before it starts.
func NextSlot(now time.Time) task.Coord {
	day := dateutil.Day(now)
	h := now.Hour()
	if h < task.FirstHour {
		h = task.FirstHour
	}
	return task.Coord{Date: day, Hour: task.HourOf(h)}
}

// Slot is a slot coordinate with its tasks in slot order.
type Slot struct {
	task.Coord
	Tasks []task.Task
}

// Bucket groups tasks into the given slots, preserving the order of
// coords. Tasks outside every slot are left out.
func Bucket(tasks []task.Task, coords []task.Coord) []Slot {
	index := make(map[task.Coord]int, len(coords))
	slots := make([]Slot, len(coords))
	for i, c := range coords {
		slots[i] = Slot{Coord: c}
		index[c] = i
	}
	for _, t := range tasks {
		if i, ok := index[t.Coord()]; ok {
			slots[i].Tasks = append(slots[i].Tasks, t)
		}
	}
	for i := range slots {
		task.SortSlot(slots[i].Tasks)
	}
	return slots
}

// Unscheduled returns the tasks without a slot, in slot order.
func Unscheduled(tasks []task.Task) []task.Task {
	return task.InSlotOrder(tasks, task.Coord{})
}

// Days returns the distinct days of coords in order of first appearance.
func Days(coords []task.Coord) []string {
	var days []string
	for _, c := range coords {
		if !slices.Contains(days, c.Date) {
			days = append(days, c.Date)
		}
	}
	return days
}
