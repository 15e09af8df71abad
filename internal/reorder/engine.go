package reorder

import (
	"context"
	"sync"

	"github.com/javiermolinar/hourly/internal/logging"
	"github.com/javiermolinar/hourly/internal/remote"
	"github.com/javiermolinar/hourly/internal/task"
)

// Store is the local task set the engine plans against and mutates.
type Store interface {
	GetAll() []task.Task
	ApplyLocal(m task.Mutation) string
	remote.Tracker
}

// Engine applies drops optimistically and persists them.
type Engine struct {
	mu      sync.Mutex
	store   Store
	adapter *remote.Adapter
	log     *logging.Logger
}

// NewEngine creates an engine over a store and its adapter.
func NewEngine(s Store, a *remote.Adapter, log *logging.Logger) *Engine {
	return &Engine{
		store:   s,
		adapter: a,
		log:     logging.OrNop(log).WithComponent("reorder"),
	}
}

// Drop plans d, applies it to the store as one reorder mutation and
// submits the changes as one atomic write. It returns a nil Op when the
// drop changes nothing.
func (e *Engine) Drop(ctx context.Context, d Drop) (*remote.Op, error) {
	// Gestures are planned and applied one at a time so each plan sees
	// the effect of the previous one.
	e.mu.Lock()
	defer e.mu.Unlock()

	changes, err := Plan(e.store.GetAll(), d)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		e.log.Debugf("drop of %s on %s changes nothing", d.TaskID, d.Target)
		return nil, nil
	}

	pendingID := e.store.ApplyLocal(task.ReorderMutation(changes))
	if pendingID == "" {
		return nil, nil
	}

	e.log.Event(logging.DebugLevel).
		Str("task_id", d.TaskID).
		Stringer("target", d.Target).
		Int("changes", len(changes)).
		Msg("drop applied")

	if len(changes) == 1 {
		c := changes[0]
		return e.adapter.Submit(ctx, e.store, pendingID, "update", func(ctx context.Context) error {
			return e.adapter.Update(ctx, c.TaskID, c.Patch())
		}), nil
	}
	return e.adapter.Submit(ctx, e.store, pendingID, "batch", func(ctx context.Context) error {
		return e.adapter.BatchReorder(ctx, changes)
	}), nil
}
