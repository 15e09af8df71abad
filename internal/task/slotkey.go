package task

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used in slot keys and documents.
const DateLayout = "2006-01-02"

const keySeparator = "_"

// Coord is a slot coordinate. The zero Coord is the unscheduled bucket.
type Coord struct {
	Date string
	Hour Hour
}

// IsZero reports whether c is the unscheduled bucket.
func (c Coord) IsZero() bool {
	return c.Date == "" && c.Hour == ""
}

// Valid reports whether c names a schedulable slot.
func (c Coord) Valid() bool {
	return validDate(c.Date) && c.Hour.Valid()
}

// Key returns the slot key of c, or "" for an invalid coordinate.
func (c Coord) Key() string {
	key, err := EncodeSlotKey(c.Date, c.Hour)
	if err != nil {
		return ""
	}
	return key
}

func (c Coord) String() string {
	if c.IsZero() {
		return "unscheduled"
	}
	return c.Date + " " + string(c.Hour)
}

// MalformedKeyError reports a slot key that does not decode.
type MalformedKeyError struct {
	Key    string
	Reason string
}

func (e *MalformedKeyError) Error() string {
	return fmt.Sprintf("malformed slot key %q: %s", e.Key, e.Reason)
}

// Is lets errors.Is match ErrMalformedKey.
func (e *MalformedKeyError) Is(target error) bool {
	return target == ErrMalformedKey
}

// EncodeSlotKey maps a (date, hour) pair to its slot key, e.g. "2024-03-01_9:00".
func EncodeSlotKey(date string, hour Hour) (string, error) {
	if !validDate(date) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if !hour.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidHour, hour)
	}
	return date + keySeparator + string(hour), nil
}

// DecodeSlotKey is the inverse of EncodeSlotKey.
func DecodeSlotKey(key string) (Coord, error) {
	parts := strings.Split(key, keySeparator)
	if len(parts) != 2 {
		return Coord{}, &MalformedKeyError{Key: key, Reason: "expected <date>_<hour>"}
	}
	if !validDate(parts[0]) {
		return Coord{}, &MalformedKeyError{Key: key, Reason: "bad date"}
	}
	hour := Hour(parts[1])
	if !hour.Valid() {
		return Coord{}, &MalformedKeyError{Key: key, Reason: "bad hour"}
	}
	return Coord{Date: parts[0], Hour: hour}, nil
}

// validDate accepts YYYY-MM-DD days between 0001-01-01 and 9999-12-31.
func validDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	t, err := time.Parse(DateLayout, s)
	return err == nil && t.Format(DateLayout) == s && t.Year() >= 1
}
