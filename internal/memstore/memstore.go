// Package memstore is an in-memory task.DocumentStore.
// It records calls and can inject failures, which makes it the backend of
// choice for tests of the sync and reorder layers.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/javiermolinar/hourly/internal/task"
)

// Call is one recorded persistence call.
type Call struct {
	Op      string // "put", "update", "delete", "batch"
	TaskIDs []string
}

// Store implements task.DocumentStore in memory.
type Store struct {
	mu       sync.Mutex
	users    map[string]map[string]task.Task
	watchers map[string]map[int]task.SnapshotFunc
	nextW    int
	failures map[string][]error
	calls    []Call
	gate     chan struct{}
	manual   bool
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:    make(map[string]map[string]task.Task),
		watchers: make(map[string]map[int]task.SnapshotFunc),
		failures: make(map[string][]error),
	}
}

// Seed replaces a user's collection without notifying watchers.
func (s *Store) Seed(userID string, tasks ...task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := make(map[string]task.Task, len(tasks))
	for _, t := range tasks {
		coll[t.ID] = t
	}
	s.users[userID] = coll
}

// FailNext makes the next call of op ("put", "update", "delete", "batch",
// "list", "watch") return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

// Hold blocks every write until the returned release func is called.
func (s *Store) Hold() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.gate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// ManualNotify stops automatic snapshots after writes; use Emit instead.
func (s *Store) ManualNotify() {
	s.mu.Lock()
	s.manual = true
	s.mu.Unlock()
}

// Emit delivers the current collection of userID to its watchers.
func (s *Store) Emit(userID string) {
	s.mu.Lock()
	snap, fns := s.snapshotLocked(userID), s.watchersLocked(userID)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(slices.Clone(snap))
	}
}

// Calls returns the recorded writes.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Watchers returns the number of live watchers of userID.
func (s *Store) Watchers(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers[userID])
}

// Tasks returns a user's collection sorted by ID.
func (s *Store) Tasks(userID string) []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(userID)
}

// ListTasks implements task.DocumentStore.
func (s *Store) ListTasks(_ context.Context, userID string) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("list"); err != nil {
		return nil, err
	}
	return s.snapshotLocked(userID), nil
}

// PutTask implements task.DocumentStore.
func (s *Store) PutTask(_ context.Context, userID string, t task.Task) error {
	return s.write(userID, Call{Op: "put", TaskIDs: []string{t.ID}}, func(coll map[string]task.Task) error {
		coll[t.ID] = t
		return nil
	})
}

// UpdateTask implements task.DocumentStore.
func (s *Store) UpdateTask(_ context.Context, userID, id string, p task.Patch) error {
	return s.write(userID, Call{Op: "update", TaskIDs: []string{id}}, func(coll map[string]task.Task) error {
		t, ok := coll[id]
		if !ok {
			return task.ErrTaskNotFound
		}
		coll[id] = p.Apply(t)
		return nil
	})
}

// DeleteTask implements task.DocumentStore.
func (s *Store) DeleteTask(_ context.Context, userID, id string) error {
	return s.write(userID, Call{Op: "delete", TaskIDs: []string{id}}, func(coll map[string]task.Task) error {
		delete(coll, id)
		return nil
	})
}

// BatchUpdate implements task.DocumentStore.
func (s *Store) BatchUpdate(_ context.Context, userID string, changes []task.OrderChange) error {
	call := Call{Op: "batch"}
	for _, c := range changes {
		call.TaskIDs = append(call.TaskIDs, c.TaskID)
	}
	return s.write(userID, call, func(coll map[string]task.Task) error {
		for _, c := range changes {
			if _, ok := coll[c.TaskID]; !ok {
				return task.ErrTaskNotFound
			}
		}
		for _, c := range changes {
			coll[c.TaskID] = c.Apply(coll[c.TaskID])
		}
		return nil
	})
}

// Watch implements task.DocumentStore.
func (s *Store) Watch(ctx context.Context, userID string, fn task.SnapshotFunc) (func(), error) {
	s.mu.Lock()
	if err := s.failLocked("watch"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	id := s.nextW
	s.nextW++
	if s.watchers[userID] == nil {
		s.watchers[userID] = make(map[int]task.SnapshotFunc)
	}
	s.watchers[userID][id] = fn
	snap := s.snapshotLocked(userID)
	s.mu.Unlock()

	fn(snap)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers[userID], id)
			s.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return stop, nil
}

// Close implements task.DocumentStore.
func (s *Store) Close() error {
	return nil
}

func (s *Store) write(userID string, call Call, fn func(map[string]task.Task) error) error {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	if err := s.failLocked(call.Op); err != nil {
		s.mu.Unlock()
		return err
	}
	coll := s.users[userID]
	if coll == nil {
		coll = make(map[string]task.Task)
		s.users[userID] = coll
	}
	// Work on a copy so a failing batch leaves nothing behind.
	next := maps.Clone(coll)
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.users[userID] = next
	var snap []task.Task
	var fns []task.SnapshotFunc
	if !s.manual {
		snap, fns = s.snapshotLocked(userID), s.watchersLocked(userID)
	}
	s.mu.Unlock()

	for _, w := range fns {
		w(slices.Clone(snap))
	}
	return nil
}

func (s *Store) failLocked(op string) error {
	errs := s.failures[op]
	if len(errs) == 0 {
		return nil
	}
	s.failures[op] = errs[1:]
	return errs[0]
}

func (s *Store) snapshotLocked(userID string) []task.Task {
	out := slices.Collect(maps.Values(s.users[userID]))
	slices.SortFunc(out, func(a, b task.Task) int { return task.CompareIDs(a.ID, b.ID) })
	return out
}

func (s *Store) watchersLocked(userID string) []task.SnapshotFunc {
	keys := slices.Sorted(maps.Keys(s.watchers[userID]))
	out := make([]task.SnapshotFunc, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.watchers[userID][k])
	}
	return out
}

var _ task.DocumentStore = (*Store)(nil)
