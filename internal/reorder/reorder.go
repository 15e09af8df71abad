// Package reorder turns drag-and-drop gestures into slot orderings.
package reorder

import (
	"errors"
	"fmt"
	"slices"

	"github.com/javiermolinar/hourly/internal/task"
)

// ErrInvalidTarget is returned when a drop names a slot outside the grid.
var ErrInvalidTarget = errors.New("invalid drop target")

// Target is where a task was dropped: onto another task or onto a slot.
// The zero Target is a cancelled gesture.
type Target struct {
	TaskID string
	Slot   task.Coord
	onSlot bool
}

// OnTask targets the position of the task with the given ID.
func OnTask(id string) Target {
	return Target{TaskID: id}
}

// OnSlot targets the end of a slot. The zero Coord is the unscheduled bucket.
func OnSlot(c task.Coord) Target {
	return Target{Slot: c, onSlot: true}
}

// IsZero reports whether the target is empty (gesture cancelled).
func (t Target) IsZero() bool {
	return !t.onSlot && t.TaskID == ""
}

func (t Target) String() string {
	switch {
	case t.onSlot && t.Slot.IsZero():
		return "slot unscheduled"
	case t.onSlot:
		return "slot " + t.Slot.Key()
	case t.TaskID != "":
		return "task " + t.TaskID
	default:
		return "none"
	}
}

// Drop is a completed drag gesture.
type Drop struct {
	TaskID string
	Target Target
}

// DropOnKey builds a drop onto the slot named by a slot key.
func DropOnKey(taskID, key string) (Drop, error) {
	c, err := task.DecodeSlotKey(key)
	if err != nil {
		return Drop{}, err
	}
	return Drop{TaskID: taskID, Target: OnSlot(c)}, nil
}

// Plan computes the placement of every task whose order or slot changes
// when d is applied to tasks. Both the source and destination slots end
// up densely ordered. A self-drop or cancelled drop yields no changes.
func Plan(tasks []task.Task, d Drop) ([]task.OrderChange, error) {
	if d.Target.IsZero() || d.Target.TaskID == d.TaskID {
		return nil, nil
	}

	i := task.Index(tasks, d.TaskID)
	if i < 0 {
		return nil, fmt.Errorf("moving %q: %w", d.TaskID, task.ErrTaskNotFound)
	}
	moved := tasks[i]
	from := moved.Coord()

	to, err := destination(tasks, d.Target)
	if err != nil {
		return nil, err
	}

	source := task.InSlotOrder(tasks, from)
	rest := slices.DeleteFunc(slices.Clone(source), func(t task.Task) bool { return t.ID == d.TaskID })

	var dest []task.Task
	if to == from {
		dest = rest
	} else {
		dest = task.InSlotOrder(tasks, to)
	}

	pos := len(dest)
	if !d.Target.onSlot {
		// Position in the slot as the user saw it, before removal.
		seen := source
		if to != from {
			seen = dest
		}
		pos = min(task.Index(seen, d.Target.TaskID), len(dest))
	}

	dest = slices.Insert(slices.Clone(dest), pos, moved)

	var changes []task.OrderChange
	changes = appendChanges(changes, dest, to)
	if to != from {
		changes = appendChanges(changes, rest, from)
	}
	return changes, nil
}

func destination(tasks []task.Task, target Target) (task.Coord, error) {
	if target.onSlot {
		if !target.Slot.IsZero() && !target.Slot.Valid() {
			return task.Coord{}, fmt.Errorf("%w: %s", ErrInvalidTarget, target.Slot)
		}
		return target.Slot, nil
	}
	j := task.Index(tasks, target.TaskID)
	if j < 0 {
		return task.Coord{}, fmt.Errorf("drop target %q: %w", target.TaskID, task.ErrTaskNotFound)
	}
	return tasks[j].Coord(), nil
}

// appendChanges re-denses slot into c and records every task that moved.
func appendChanges(changes []task.OrderChange, slot []task.Task, c task.Coord) []task.OrderChange {
	for order, t := range slot {
		if t.Order == order && t.Date == c.Date && t.Hour == c.Hour {
			continue
		}
		changes = append(changes, task.OrderChange{
			TaskID: t.ID,
			Order:  order,
			Date:   c.Date,
			Hour:   c.Hour,
		})
	}
	return changes
}
