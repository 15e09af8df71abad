// Package undo offers a bounded-time reversal of task removals.
//
// A token moves Active -> Confirmed -> Undone or Expired. Undone and
// Expired are terminal.
package undo

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javiermolinar/hourly/internal/logging"
	"github.com/javiermolinar/hourly/internal/task"
)

// Errors.
var (
	ErrUndoExpired       = errors.New("undo window has elapsed")
	ErrTokenConsumed     = errors.New("undo token already consumed")
	ErrInvalidTransition = errors.New("invalid undo token transition")
)

// DefaultWindow is how long a confirmed removal can be undone.
const DefaultWindow = 5 * time.Second

// State is the lifecycle position of a token.
type State int

const (
	StateActive State = iota
	StateConfirmed
	StateUndone
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateConfirmed:
		return "confirmed"
	case StateUndone:
		return "undone"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateUndone || s == StateExpired
}

// Restorer re-creates a removed task with its original ID and fields.
type Restorer interface {
	Restore(ctx context.Context, t task.Task) error
}

// RestorerFunc adapts a function to Restorer.
type RestorerFunc func(ctx context.Context, t task.Task) error

// Restore calls f.
func (f RestorerFunc) Restore(ctx context.Context, t task.Task) error {
	return f(ctx, t)
}

// Token holds a copy of a removed task.
type Token struct {
	ID   string
	Task task.Task

	c        *Coordinator
	state    State
	deadline time.Time
}

// State returns the token's current state.
func (t *Token) State() State {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return t.state
}

// Remaining returns how long the token can still be undone.
func (t *Token) Remaining() time.Duration {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.state != StateConfirmed {
		return 0
	}
	return max(t.deadline.Sub(t.c.now()), 0)
}

// Coordinator issues and consumes undo tokens.
type Coordinator struct {
	mu       sync.Mutex
	window   time.Duration
	restorer Restorer
	tokens   map[string]*Token
	now      func() time.Time
	log      *logging.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Coordinator) { c.log = logging.OrNop(l).WithComponent("undo") }
}

// New creates a coordinator. A non-positive window uses DefaultWindow.
func New(window time.Duration, r Restorer, opts ...Option) *Coordinator {
	if window <= 0 {
		window = DefaultWindow
	}
	c := &Coordinator{
		window:   window,
		restorer: r,
		tokens:   make(map[string]*Token),
		now:      time.Now,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Window returns the undo window.
func (c *Coordinator) Window() time.Duration {
	return c.window
}

// Capture stores a copy of t before its removal is issued.
func (c *Coordinator) Capture(t task.Task) *Token {
	tok := &Token{ID: uuid.NewString(), Task: t, c: c, state: StateActive}
	c.mu.Lock()
	c.tokens[tok.ID] = tok
	c.mu.Unlock()
	return tok
}

// Confirm starts the undo window once the removal has succeeded.
func (c *Coordinator) Confirm(tok *Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok.state != StateActive {
		return fmt.Errorf("confirm %s token: %w", tok.state, ErrInvalidTransition)
	}
	tok.state = StateConfirmed
	tok.deadline = c.now().Add(c.window)
	return nil
}

// Abandon retires a token whose removal failed; there is nothing to undo.
func (c *Coordinator) Abandon(tok *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok.state.Terminal() {
		return
	}
	tok.state = StateExpired
	delete(c.tokens, tok.ID)
}

// Undo restores the captured task. It reports whether a restore was
// attempted. Consumed or expired tokens are ignored and only logged.
// Undoing a token that is not confirmed yet returns ErrInvalidTransition.
func (c *Coordinator) Undo(ctx context.Context, tok *Token) (bool, error) {
	c.mu.Lock()
	if err := c.consumeLocked(tok); err != nil {
		c.mu.Unlock()
		if errors.Is(err, ErrInvalidTransition) {
			return false, err
		}
		c.log.Event(logging.InfoLevel).Err(err).Str("token", tok.ID).Str("task_id", tok.Task.ID).Msg("undo ignored")
		return false, nil
	}
	c.mu.Unlock()

	if err := c.restorer.Restore(ctx, tok.Task); err != nil {
		c.log.Event(logging.WarnLevel).Err(err).Str("task_id", tok.Task.ID).Msg("undo restore failed")
		return false, err
	}
	c.log.Debugf("restored task %s", tok.Task.ID)
	return true, nil
}

func (c *Coordinator) consumeLocked(tok *Token) error {
	switch tok.state {
	case StateUndone:
		return ErrTokenConsumed
	case StateExpired:
		return ErrUndoExpired
	case StateActive:
		return fmt.Errorf("undo before removal confirmed: %w", ErrInvalidTransition)
	}
	if !c.now().Before(tok.deadline) {
		tok.state = StateExpired
		delete(c.tokens, tok.ID)
		return ErrUndoExpired
	}
	tok.state = StateUndone
	delete(c.tokens, tok.ID)
	return nil
}

// Sweep expires every confirmed token past its deadline and returns them.
func (c *Coordinator) Sweep() []*Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	var expired []*Token
	for id, tok := range c.tokens {
		if tok.state == StateConfirmed && !now.Before(tok.deadline) {
			tok.state = StateExpired
			delete(c.tokens, id)
			expired = append(expired, tok)
		}
	}
	return expired
}

// Active returns the tokens that can still be undone, oldest deadline first.
func (c *Coordinator) Active() []*Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	var out []*Token
	for _, tok := range c.tokens {
		if tok.state == StateConfirmed && now.Before(tok.deadline) {
			out = append(out, tok)
		}
	}
	slices.SortFunc(out, func(a, b *Token) int {
		if n := a.deadline.Compare(b.deadline); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Latest returns the most recently confirmed undoable token.
func (c *Coordinator) Latest() (*Token, bool) {
	active := c.Active()
	if len(active) == 0 {
		return nil, false
	}
	return active[len(active)-1], true
}
