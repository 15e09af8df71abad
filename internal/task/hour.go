package task

import (
	"strconv"
	"strings"
)

// Hour is a slot label such as "9:00".
type Hour string

const (
	// FirstHour is the earliest schedulable hour of a day.
	FirstHour = 6
	// HoursPerDay is the number of hour slots in a day (6:00 through 23:00).
	HoursPerDay = 18
)

var hourLabels = func() []Hour {
	labels := make([]Hour, HoursPerDay)
	for i := range labels {
		labels[i] = HourOf(FirstHour + i)
	}
	return labels
}()

// Hours returns the fixed hour enumeration in display order.
func Hours() []Hour {
	out := make([]Hour, len(hourLabels))
	copy(out, hourLabels)
	return out
}

// HourOf formats a clock hour as a slot label. It does not validate the range.
func HourOf(h int) Hour {
	return Hour(strconv.Itoa(h) + ":00")
}

// ParseHour validates a slot label.
// A zero-padded label ("09:00") is accepted and normalised.
func ParseHour(s string) (Hour, error) {
	s = strings.TrimSpace(s)
	h, ok := hourNumber(s)
	if !ok {
		return "", ErrInvalidHour
	}
	return HourOf(h), nil
}

// Valid reports whether h is one of the fixed labels.
func (h Hour) Valid() bool {
	n, ok := hourNumber(string(h))
	return ok && string(h) == string(HourOf(n))
}

// Clock returns the hour of day (6..23), or -1 if h is not a valid label.
func (h Hour) Clock() int {
	n, ok := hourNumber(string(h))
	if !ok {
		return -1
	}
	return n
}

// Index returns the slot position within a day (0..17), or -1.
func (h Hour) Index() int {
	n := h.Clock()
	if n < 0 {
		return -1
	}
	return n - FirstHour
}

func hourNumber(s string) (int, bool) {
	head, tail, found := strings.Cut(s, ":")
	if !found || tail != "00" || head == "" || len(head) > 2 {
		return 0, false
	}
	n, err := strconv.Atoi(head)
	if err != nil || n < FirstHour || n >= FirstHour+HoursPerDay {
		return 0, false
	}
	return n, true
}
