// Package store holds the in-memory task set of the signed-in user.
//
// The store keeps two layers: the confirmed mirror of the last remote
// snapshot and an overlay of pending local mutations. Reads compose the
// two; a snapshot replaces the mirror and clears the overlay.
package store

import (
	"cmp"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/javiermolinar/hourly/internal/logging"
	"github.com/javiermolinar/hourly/internal/task"
)

// Listener is called after every change with the composed task set.
type Listener func(tasks []task.Task)

// Store is the authoritative local view of a user's tasks.
// It is safe for concurrent use; listeners run outside the lock.
type Store struct {
	mu        sync.Mutex
	confirmed map[string]task.Task
	overlay   []Pending
	listeners map[int]Listener
	nextSub   int
	loaded    bool
	detached  bool

	newID func() string
	log   *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDFunc replaces the pending-mutation ID generator.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates an empty store.
func New(log *logging.Logger, opts ...Option) *Store {
	s := &Store{
		confirmed: make(map[string]task.Task),
		listeners: make(map[int]Listener),
		newID:     uuid.NewString,
		log:       logging.OrNop(log).WithComponent("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAll returns every task, sorted by slot then order for stable output.
func (s *Store) GetAll() []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// GetBySlot returns the tasks of one slot sorted by order, ties by ID.
func (s *Store) GetBySlot(c task.Coord) []task.Task {
	return task.InSlotOrder(s.GetAll(), c)
}

// Get returns one task of the composed view.
func (s *Store) Get(id string) (task.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := Compose(s.confirmed, s.overlay)[id]
	return t, ok
}

// Loaded reports whether at least one snapshot has been applied.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// ApplyLocal records an optimistic mutation and returns its pending ID.
// Callers validate mutations first; the store accepts everything.
func (s *Store) ApplyLocal(m task.Mutation) string {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return ""
	}
	id := s.newID()
	s.overlay = append(s.overlay, Pending{ID: id, Mutation: m, State: StateInflight})
	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	s.log.Event(logging.DebugLevel).
		Str("pending_id", id).
		Stringer("kind", m.Kind).
		Strs("task_ids", m.IDs()).
		Msg("local mutation applied")
	notify(listeners, view)
	return id
}

// ApplyRemoteSnapshot replaces the confirmed layer with tasks and clears
// the overlay. Pending mutations the snapshot does not reflect are lost.
func (s *Store) ApplyRemoteSnapshot(tasks []task.Task) Reconciliation {
	snapshot := make(map[string]task.Task, len(tasks))
	for _, t := range tasks {
		snapshot[t.ID] = t
	}

	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return Reconciliation{}
	}
	rec := Reconcile(s.overlay, snapshot)
	s.confirmed = snapshot
	s.overlay = nil
	s.loaded = true
	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	for _, p := range rec.Dropped {
		s.log.Event(logging.WarnLevel).
			Str("pending_id", p.ID).
			Stringer("kind", p.Mutation.Kind).
			Stringer("state", p.State).
			Strs("task_ids", p.Mutation.IDs()).
			Msg("snapshot replaced unconfirmed local mutation")
	}
	s.log.Debugf("snapshot applied: %d tasks, %d acked, %d dropped", len(tasks), len(rec.Acked), len(rec.Dropped))
	notify(listeners, view)
	return rec
}

// Committed marks a pending mutation as accepted by the remote store.
func (s *Store) Committed(id string) {
	s.setState(id, StateCommitted, nil)
}

// Failed flags a pending mutation whose persistence call returned err.
// Its local effect is kept until the next snapshot.
func (s *Store) Failed(id string, err error) {
	s.setState(id, StateFailed, err)
}

func (s *Store) setState(id string, state State, err error) {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	i := slices.IndexFunc(s.overlay, func(p Pending) bool { return p.ID == id })
	if i < 0 {
		// Already settled by a snapshot.
		s.mu.Unlock()
		return
	}
	s.overlay[i].State = state
	s.overlay[i].Err = err
	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, view)
}

// Pending returns a copy of the overlay in application order.
func (s *Store) Pending() []Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.overlay)
}

// Subscribe registers fn for change notifications and returns a cancel func.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Detach turns every later mutation, snapshot and acknowledgement into a
// no-op. Used when the owning view goes away while calls are in flight.
func (s *Store) Detach() {
	s.mu.Lock()
	s.detached = true
	s.listeners = make(map[int]Listener)
	s.mu.Unlock()
}

func (s *Store) viewLocked() []task.Task {
	view := Compose(s.confirmed, s.overlay)
	out := make([]task.Task, 0, len(view))
	for _, t := range view {
		out = append(out, t)
	}
	slices.SortFunc(out, compareView)
	return out
}

func (s *Store) listenersLocked() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.listeners[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(listeners []Listener, view []task.Task) {
	for _, fn := range listeners {
		fn(slices.Clone(view))
	}
}

// compareView orders by date, hour, then slot order. Unscheduled tasks come last.
func compareView(a, b task.Task) int {
	ca, cb := a.Coord(), b.Coord()
	if ca.IsZero() != cb.IsZero() {
		if ca.IsZero() {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(ca.Date, cb.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(ca.Hour.Index(), cb.Hour.Index()); c != 0 {
		return c
	}
	return task.Compare(a, b)
}
