// Package planner runs one user's planning session: it keeps the local task
// store fed from the document store and routes every gesture through the
// reorder engine, the sync adapter and the undo coordinator.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/javiermolinar/hourly/internal/auth"
	"github.com/javiermolinar/hourly/internal/logging"
	"github.com/javiermolinar/hourly/internal/remote"
	"github.com/javiermolinar/hourly/internal/reorder"
	"github.com/javiermolinar/hourly/internal/store"
	"github.com/javiermolinar/hourly/internal/task"
	"github.com/javiermolinar/hourly/internal/undo"
)

// ErrNotOpen is returned by mutations issued before Open or after Close.
var ErrNotOpen = errors.New("planner is not open")

// Option configures a Planner.
type Option func(*Planner)

// WithUndoWindow sets how long a completed task can be restored.
func WithUndoWindow(d time.Duration) Option {
	return func(p *Planner) { p.window = d }
}

// WithClock replaces time.Now for IDs and undo deadlines.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// Planner is the session facade used by the CLI and the TUI.
type Planner struct {
	auth   auth.Provider
	docs   task.DocumentStore
	log    *logging.Logger
	now    func() time.Time
	window time.Duration

	mu   sync.Mutex
	sess *session
}

type session struct {
	user    auth.User
	store   *store.Store
	adapter *remote.Adapter
	engine  *reorder.Engine
	undo    *undo.Coordinator
	sub     *remote.Subscription
}

// New creates a planner. Nothing is read until Open.
func New(a auth.Provider, docs task.DocumentStore, log *logging.Logger, opts ...Option) *Planner {
	p := &Planner{
		auth:   a,
		docs:   docs,
		log:    logging.OrNop(log).WithComponent("planner"),
		now:    time.Now,
		window: undo.DefaultWindow,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open starts a session for the current user and loads their tasks.
// The subscription lives until Close or until ctx is done.
func (p *Planner) Open(ctx context.Context) error {
	user, ok := p.auth.Current()
	if !ok {
		return task.ErrNoUser
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess != nil {
		if p.sess.user == user && !p.sess.closed() {
			return nil
		}
		p.closeLocked()
	}

	log := p.log.With("user_id", user.ID)
	s := &session{
		user:    user,
		store:   store.New(log),
		adapter: remote.New(p.docs, user.ID, log),
	}
	s.engine = reorder.NewEngine(s.store, s.adapter, log)
	s.undo = undo.New(p.window, undo.RestorerFunc(s.restore), undo.WithClock(p.now), undo.WithLogger(log))

	sub, err := s.adapter.Subscribe(ctx, func(tasks []task.Task) {
		s.store.ApplyRemoteSnapshot(tasks)
	})
	if err != nil {
		s.store.Detach()
		return err
	}
	s.sub = sub

	if !s.store.Loaded() {
		tasks, err := s.adapter.List(ctx)
		if err != nil {
			sub.Close()
			s.store.Detach()
			return err
		}
		s.store.ApplyRemoteSnapshot(tasks)
	}

	p.sess = s
	log.Debug("planner session opened")
	return nil
}

// Close releases the subscription and detaches the store. Calls still in
// flight complete remotely but their results are discarded.
func (p *Planner) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

// closed reports whether the snapshot subscription has ended, for example
// because the context passed to Open was cancelled.
func (s *session) closed() bool {
	select {
	case <-s.sub.Done():
		return true
	default:
		return false
	}
}

func (p *Planner) closeLocked() {
	if p.sess == nil {
		return
	}
	p.sess.sub.Close()
	p.sess.store.Detach()
	p.sess = nil
}

// Wait blocks until every persistence call issued so far has returned.
func (p *Planner) Wait() {
	p.mu.Lock()
	s := p.sess
	p.mu.Unlock()
	if s != nil {
		s.adapter.Wait()
	}
}

// session returns the open session if it still belongs to the current user.
func (p *Planner) session() (*session, error) {
	user, ok := p.auth.Current()
	if !ok {
		return nil, task.ErrNoUser
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return nil, ErrNotOpen
	}
	if p.sess.user != user {
		return nil, task.ErrNoUser
	}
	return p.sess, nil
}

// User returns the session's user.
func (p *Planner) User() (auth.User, bool) {
	s, err := p.session()
	if err != nil {
		return auth.User{}, false
	}
	return s.user, true
}

// Tasks returns every task of the current user; none when signed out.
func (p *Planner) Tasks() []task.Task {
	s, err := p.session()
	if err != nil {
		return nil
	}
	return s.store.GetAll()
}

// Slot returns one slot's tasks in order.
func (p *Planner) Slot(c task.Coord) []task.Task {
	s, err := p.session()
	if err != nil {
		return nil
	}
	return s.store.GetBySlot(c)
}

// Get returns one task.
func (p *Planner) Get(id string) (task.Task, bool) {
	s, err := p.session()
	if err != nil {
		return task.Task{}, false
	}
	return s.store.Get(id)
}

// Pending returns the mutations not yet reflected by a snapshot.
func (p *Planner) Pending() []store.Pending {
	s, err := p.session()
	if err != nil {
		return nil
	}
	return s.store.Pending()
}

// Subscribe registers fn for every change of the local view.
func (p *Planner) Subscribe(fn store.Listener) (func(), error) {
	s, err := p.session()
	if err != nil {
		return nil, err
	}
	return s.store.Subscribe(fn), nil
}

// Add creates a task at the end of a slot. A zero coord leaves it unscheduled.
func (p *Planner) Add(ctx context.Context, title string, c task.Coord) (task.Task, *remote.Op, error) {
	s, err := p.session()
	if err != nil {
		return task.Task{}, nil, err
	}

	slot := s.store.GetBySlot(c)
	order := 0
	for _, t := range slot {
		order = max(order, t.Order+1)
	}

	createdAt := p.now()
	t, err := task.New(title, c, order, createdAt)
	if err != nil {
		return task.Task{}, nil, err
	}
	for {
		if _, taken := s.store.Get(t.ID); !taken {
			break
		}
		createdAt = createdAt.Add(time.Millisecond)
		t.ID = task.NewID(c, createdAt)
	}

	pendingID := s.store.ApplyLocal(task.CreateMutation(t))
	op := s.adapter.Submit(ctx, s.store, pendingID, "create", func(ctx context.Context) error {
		return s.adapter.Create(ctx, t)
	})
	return t, op, nil
}

// Rename changes a task's title.
func (p *Planner) Rename(ctx context.Context, id, title string) (*remote.Op, error) {
	s, err := p.session()
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, task.ErrEmptyTitle
	}
	if _, ok := s.store.Get(id); !ok {
		return nil, fmt.Errorf("rename %q: %w", id, task.ErrTaskNotFound)
	}

	patch := task.Patch{Title: &title}
	pendingID := s.store.ApplyLocal(task.UpdateMutation(id, patch))
	return s.adapter.Submit(ctx, s.store, pendingID, "update", func(ctx context.Context) error {
		return s.adapter.Update(ctx, id, patch)
	}), nil
}

// Move applies a drag-and-drop gesture. A nil Op means nothing changed.
func (p *Planner) Move(ctx context.Context, d reorder.Drop) (*remote.Op, error) {
	s, err := p.session()
	if err != nil {
		return nil, err
	}
	return s.engine.Drop(ctx, d)
}

// Assign moves a task to the end of the slot at c.
func (p *Planner) Assign(ctx context.Context, id string, c task.Coord) (*remote.Op, error) {
	return p.Move(ctx, reorder.Drop{TaskID: id, Target: reorder.OnSlot(c)})
}

// Complete checks a task off. The task is deleted right away and can be
// restored with Undo until the token's window closes. The token is
// confirmed when the delete succeeds and abandoned when it fails.
func (p *Planner) Complete(ctx context.Context, id string) (*undo.Token, *remote.Op, error) {
	s, err := p.session()
	if err != nil {
		return nil, nil, err
	}
	t, ok := s.store.Get(id)
	if !ok {
		return nil, nil, fmt.Errorf("complete %q: %w", id, task.ErrTaskNotFound)
	}

	tok := s.undo.Capture(t)
	pendingID := s.store.ApplyLocal(task.DeleteMutation(id))
	op := s.adapter.Submit(ctx, s.store, pendingID, "delete", func(ctx context.Context) error {
		if err := s.adapter.Delete(ctx, id); err != nil {
			s.undo.Abandon(tok)
			return err
		}
		return s.undo.Confirm(tok)
	})
	return tok, op, nil
}

// Undo restores the task behind tok. It reports whether a restore ran.
func (p *Planner) Undo(ctx context.Context, tok *undo.Token) (bool, error) {
	s, err := p.session()
	if err != nil {
		return false, err
	}
	return s.undo.Undo(ctx, tok)
}

// UndoLatest restores the most recently completed task still in its window.
func (p *Planner) UndoLatest(ctx context.Context) (bool, error) {
	s, err := p.session()
	if err != nil {
		return false, err
	}
	tok, ok := s.undo.Latest()
	if !ok {
		return false, nil
	}
	return s.undo.Undo(ctx, tok)
}

// Undoable lists the tokens that can still be undone.
func (p *Planner) Undoable() []*undo.Token {
	s, err := p.session()
	if err != nil {
		return nil
	}
	s.undo.Sweep()
	return s.undo.Active()
}

// restore re-creates a removed task with its original ID and fields.
func (s *session) restore(ctx context.Context, t task.Task) error {
	pendingID := s.store.ApplyLocal(task.CreateMutation(t))
	op := s.adapter.Submit(ctx, s.store, pendingID, "create", func(ctx context.Context) error {
		return s.adapter.Create(ctx, t)
	})
	return op.Wait(ctx)
}
