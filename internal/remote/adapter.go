// Package remote bridges the local task store and the document store.
package remote

import (
	"context"
	"errors"
	"sync"

	"github.com/javiermolinar/hourly/internal/logging"
	"github.com/javiermolinar/hourly/internal/task"
)

// Tracker records the outcome of a pending local mutation.
type Tracker interface {
	Committed(pendingID string)
	Failed(pendingID string, err error)
}

// Adapter issues persistence calls for one user's task collection.
// Failures are returned as *task.PersistenceError and never retried.
type Adapter struct {
	docs   task.DocumentStore
	userID string
	log    *logging.Logger
	wg     sync.WaitGroup
}

// New creates an adapter for userID.
func New(docs task.DocumentStore, userID string, log *logging.Logger) *Adapter {
	return &Adapter{
		docs:   docs,
		userID: userID,
		log:    logging.OrNop(log).WithComponent("remote").With("user_id", userID),
	}
}

// UserID returns the user the adapter writes for.
func (a *Adapter) UserID() string {
	return a.userID
}

// Subscription is a live snapshot feed. Close it on every exit path.
type Subscription struct {
	once sync.Once
	stop func()
	done chan struct{}
}

// Close stops the feed. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.stop()
		close(s.done)
	})
}

// Done is closed once the subscription has been released.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscribe starts delivering full snapshots to onSnapshot.
// The subscription is released when Close is called or ctx is done.
func (a *Adapter) Subscribe(ctx context.Context, onSnapshot task.SnapshotFunc) (*Subscription, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	stop, err := a.docs.Watch(watchCtx, a.userID, onSnapshot)
	if err != nil {
		cancel()
		return nil, a.fail("subscribe", "", err)
	}

	sub := &Subscription{
		stop: func() {
			stop()
			cancel()
		},
		done: make(chan struct{}),
	}
	go func() {
		select {
		case <-watchCtx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	a.log.Debug("subscribed to task collection")
	return sub, nil
}

// List reads the collection once.
func (a *Adapter) List(ctx context.Context) ([]task.Task, error) {
	tasks, err := a.docs.ListTasks(ctx, a.userID)
	if err != nil {
		return nil, a.fail("list", "", err)
	}
	return tasks, nil
}

// Create writes a new task document, or restores one with the same ID.
func (a *Adapter) Create(ctx context.Context, t task.Task) error {
	if err := a.docs.PutTask(ctx, a.userID, t); err != nil {
		return a.fail("create", t.ID, err)
	}
	return nil
}

// Update patches one task document.
func (a *Adapter) Update(ctx context.Context, id string, p task.Patch) error {
	if err := a.docs.UpdateTask(ctx, a.userID, id, p); err != nil {
		return a.fail("update", id, err)
	}
	return nil
}

// Delete removes one task document.
func (a *Adapter) Delete(ctx context.Context, id string) error {
	if err := a.docs.DeleteTask(ctx, a.userID, id); err != nil {
		return a.fail("delete", id, err)
	}
	return nil
}

// BatchReorder writes every change of one gesture atomically.
func (a *Adapter) BatchReorder(ctx context.Context, changes []task.OrderChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := a.docs.BatchUpdate(ctx, a.userID, changes); err != nil {
		return a.fail("batch", "", err)
	}
	return nil
}

// Submit runs fn on its own goroutine and reports the outcome of the
// pending mutation to tracker. The returned Op completes when fn returns.
func (a *Adapter) Submit(ctx context.Context, tracker Tracker, pendingID, kind string, fn func(context.Context) error) *Op {
	op := newOp(kind)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := fn(context.WithoutCancel(ctx))
		if tracker != nil && pendingID != "" {
			if err != nil {
				tracker.Failed(pendingID, err)
			} else {
				tracker.Committed(pendingID)
			}
		}
		if err != nil {
			a.log.Event(logging.WarnLevel).Err(err).Str("op", kind).Str("pending_id", pendingID).Msg("persistence call failed")
		}
		op.finish(err)
	}()
	return op
}

// Wait blocks until every submitted call has returned.
func (a *Adapter) Wait() {
	a.wg.Wait()
}

func (a *Adapter) fail(op, id string, err error) error {
	var pe *task.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &task.PersistenceError{Op: op, TaskID: id, Err: err}
}
