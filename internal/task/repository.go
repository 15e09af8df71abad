package task

import (
	"context"
	"errors"
	"fmt"
)

// ErrPersistence marks every failed call into a DocumentStore.
var ErrPersistence = errors.New("persistence failed")

// PersistenceError describes a failed create, update, delete or batch call.
type PersistenceError struct {
	Op     string // "create", "update", "delete", "batch", "subscribe"
	TaskID string // empty for batch and subscribe
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.TaskID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// SnapshotFunc receives the full task collection of a user.
type SnapshotFunc func(tasks []Task)

// DocumentStore is the per-user task collection of the remote document database.
type DocumentStore interface {
	// ListTasks reads the full collection.
	ListTasks(ctx context.Context, userID string) ([]Task, error)

	// PutTask creates or replaces the task document with t.ID.
	PutTask(ctx context.Context, userID string, t Task) error

	// UpdateTask patches one document.
	// Returns ErrTaskNotFound if no document has the ID.
	UpdateTask(ctx context.Context, userID, id string, p Patch) error

	// DeleteTask removes one document. Deleting a missing document is not an error.
	DeleteTask(ctx context.Context, userID, id string) error

	// BatchUpdate applies every change atomically: all or none.
	// Returns ErrTaskNotFound if any referenced document is missing.
	BatchUpdate(ctx context.Context, userID string, changes []OrderChange) error

	// Watch delivers the current collection, then a full snapshot after every change,
	// until stop is called or ctx is done.
	Watch(ctx context.Context, userID string, fn SnapshotFunc) (stop func(), err error)

	// Close releases any resources held by the store.
	Close() error
}
