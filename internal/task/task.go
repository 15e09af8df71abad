// Package task defines the core domain types for hourly.
package task

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Validation errors.
var (
	ErrEmptyTitle   = errors.New("title cannot be empty")
	ErrInvalidHour  = errors.New("hour must be one of 6:00 through 23:00")
	ErrInvalidDate  = errors.New("date must be in YYYY-MM-DD format")
	ErrMalformedKey = errors.New("malformed slot key")
)

// Domain errors.
var (
	ErrTaskNotFound = errors.New("task not found")
	ErrNoUser       = errors.New("no signed-in user")
)

// inboxPrefix names unscheduled tasks in their ID.
const inboxPrefix = "inbox"

// Task is a unit of work placed in an hour slot.
type Task struct {
	ID        string
	Title     string
	Completed bool
	Order     int    // position within its slot
	Date      string // "YYYY-MM-DD", empty when unscheduled
	Hour      Hour   // empty when unscheduled
}

// New creates a task for the given slot with validation.
// A zero coord creates an unscheduled task.
func New(title string, coord Coord, order int, createdAt time.Time) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}
	if !coord.IsZero() && !coord.Valid() {
		if _, err := EncodeSlotKey(coord.Date, coord.Hour); err != nil {
			return Task{}, err
		}
	}
	return Task{
		ID:    NewID(coord, createdAt),
		Title: title,
		Order: order,
		Date:  coord.Date,
		Hour:  coord.Hour,
	}, nil
}

// NewID builds a task ID from its creation slot and time.
func NewID(coord Coord, createdAt time.Time) string {
	prefix := coord.Key()
	if prefix == "" {
		prefix = inboxPrefix
	}
	return prefix + keySeparator + strconv.FormatInt(createdAt.UnixMilli(), 10)
}

// IDTime extracts the creation time encoded in an ID.
func IDTime(id string) (time.Time, bool) {
	i := strings.LastIndex(id, keySeparator)
	if i < 0 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(id[i+1:], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// CompareIDs orders IDs by creation time, then lexically.
func CompareIDs(a, b string) int {
	ta, okA := IDTime(a)
	tb, okB := IDTime(b)
	if okA && okB {
		if c := ta.Compare(tb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

// Coord returns the task's slot. A partial or malformed coordinate is
// treated as unscheduled.
func (t Task) Coord() Coord {
	c := Coord{Date: t.Date, Hour: t.Hour}
	if !c.Valid() {
		return Coord{}
	}
	return c
}

// InSlot reports whether the task belongs to the given slot.
func (t Task) InSlot(c Coord) bool {
	return t.Coord() == c
}

// Validate checks the mutable fields.
func (t Task) Validate() error {
	if t.ID == "" {
		return errors.New("id cannot be empty")
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.Order < 0 {
		return fmt.Errorf("order must not be negative, got %d", t.Order)
	}
	if t.Date == "" && t.Hour == "" {
		return nil
	}
	_, err := EncodeSlotKey(t.Date, t.Hour)
	return err
}

// Compare orders tasks within a slot: by Order, then by ID creation time.
func Compare(a, b Task) int {
	if c := cmp.Compare(a.Order, b.Order); c != 0 {
		return c
	}
	return CompareIDs(a.ID, b.ID)
}

// SortSlot sorts tasks in slot order in place.
func SortSlot(tasks []Task) {
	slices.SortFunc(tasks, Compare)
}

// InSlotOrder returns the tasks of one slot, sorted.
func InSlotOrder(tasks []Task, c Coord) []Task {
	var out []Task
	for _, t := range tasks {
		if t.InSlot(c) {
			out = append(out, t)
		}
	}
	SortSlot(out)
	return out
}

// Index returns the position of the task with the given ID, or -1.
func Index(tasks []Task, id string) int {
	return slices.IndexFunc(tasks, func(t Task) bool { return t.ID == id })
}

// IsDense reports whether the orders of a slot's tasks are exactly 0..n-1.
func IsDense(tasks []Task) bool {
	seen := make([]bool, len(tasks))
	for _, t := range tasks {
		if t.Order < 0 || t.Order >= len(tasks) || seen[t.Order] {
			return false
		}
		seen[t.Order] = true
	}
	return true
}
