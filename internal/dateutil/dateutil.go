// Package dateutil parses and shifts calendar days ("YYYY-MM-DD").
package dateutil

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Layout is the calendar-day format.
const Layout = "2006-01-02"

// Validation errors.
var (
	ErrInvalidDateFormat  = errors.New("date must be YYYY-MM-DD, a weekday, today, tomorrow, yesterday or +N/-N")
	ErrEndDateBeforeStart = errors.New("end date must be on or after start date")
)

var weekdayMap = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Day formats t as a calendar day in t's location.
func Day(t time.Time) string {
	return t.Format(Layout)
}

// TruncateToDay returns t with time set to midnight.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Parse parses an absolute calendar day.
func Parse(day string) (time.Time, error) {
	t, err := time.Parse(Layout, day)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return t, nil
}

// AddDays shifts a calendar day by n days.
func AddDays(day string, n int) (string, error) {
	t, err := Parse(day)
	if err != nil {
		return "", err
	}
	return Day(t.AddDate(0, 0, n)), nil
}

// ParseDay resolves user input to a calendar day relative to ref:
//   - "" or "today", "tomorrow", "yesterday"
//   - weekday names: the next occurrence, never today
//   - "next-<weekday>", "next-week"
//   - "+N" or "-N" days
//   - an absolute "YYYY-MM-DD"
//
// Input is case-insensitive.
func ParseDay(s string, ref time.Time) (string, error) {
	today := TruncateToDay(ref)
	input := strings.ToLower(strings.TrimSpace(s))

	switch input {
	case "", "today":
		return Day(today), nil
	case "tomorrow":
		return Day(today.AddDate(0, 0, 1)), nil
	case "yesterday":
		return Day(today.AddDate(0, 0, -1)), nil
	case "next-week":
		return Day(today.AddDate(0, 0, 7)), nil
	}

	if name, ok := strings.CutPrefix(input, "next-"); ok {
		target, ok := weekdayMap[name]
		if !ok {
			return "", ErrInvalidDateFormat
		}
		return Day(nextWeekday(today, target)), nil
	}
	if target, ok := weekdayMap[input]; ok {
		return Day(nextWeekday(today, target)), nil
	}
	if input[0] == '+' || input[0] == '-' {
		n, err := strconv.Atoi(input)
		if err != nil {
			return "", ErrInvalidDateFormat
		}
		return Day(today.AddDate(0, 0, n)), nil
	}

	t, err := Parse(input)
	if err != nil {
		return "", err
	}
	return Day(t), nil
}

// nextWeekday returns the next occurrence of target after today.
func nextWeekday(today time.Time, target time.Weekday) time.Time {
	daysUntil := int(target) - int(today.Weekday())
	if daysUntil <= 0 {
		daysUntil += 7
	}
	return today.AddDate(0, 0, daysUntil)
}

// Range is an inclusive span of calendar days.
type Range struct {
	Start string
	End   string
}

// NewRange resolves start and end with ParseDay. An empty end means start.
func NewRange(start, end string, ref time.Time) (Range, error) {
	s, err := ParseDay(start, ref)
	if err != nil {
		return Range{}, err
	}
	e := s
	if end != "" {
		if e, err = ParseDay(end, ref); err != nil {
			return Range{}, err
		}
	}
	// Layout sorts lexically.
	if e < s {
		return Range{}, ErrEndDateBeforeStart
	}
	return Range{Start: s, End: e}, nil
}

// Contains reports whether day lies within r.
func (r Range) Contains(day string) bool {
	return day >= r.Start && day <= r.End
}

// Days lists every day of r in order.
func (r Range) Days() []string {
	start, err := Parse(r.Start)
	if err != nil {
		return nil
	}
	var out []string
	for d := start; Day(d) <= r.End; d = d.AddDate(0, 0, 1) {
		out = append(out, Day(d))
	}
	return out
}
