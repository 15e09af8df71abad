package undo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/javiermolinar/hourly/internal/task"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type recorder struct {
	restored []task.Task
	err      error
}

func (r *recorder) Restore(_ context.Context, t task.Task) error {
	if r.err != nil {
		return r.err
	}
	r.restored = append(r.restored, t)
	return nil
}

var sample = task.Task{ID: "2024-03-01_9:00_1", Title: "write report", Order: 2, Date: "2024-03-01", Hour: "9:00"}

func newTestCoordinator(r Restorer) (*Coordinator, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	return New(5*time.Second, r, WithClock(clock.Now)), clock
}

func TestUndo_RestoresCapturedTask(t *testing.T) {
	r := &recorder{}
	c, _ := newTestCoordinator(r)

	tok := c.Capture(sample)
	if tok.State() != StateActive {
		t.Fatalf("new token state = %s", tok.State())
	}
	if err := c.Confirm(tok); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if tok.Remaining() != 5*time.Second {
		t.Errorf("remaining = %s", tok.Remaining())
	}

	ok, err := c.Undo(context.Background(), tok)
	if err != nil || !ok {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	if len(r.restored) != 1 || r.restored[0] != sample {
		t.Errorf("restored %+v", r.restored)
	}
	if tok.State() != StateUndone {
		t.Errorf("state = %s, want undone", tok.State())
	}
}

func TestUndo_IsIdempotent(t *testing.T) {
	r := &recorder{}
	c, _ := newTestCoordinator(r)

	tok := c.Capture(sample)
	_ = c.Confirm(tok)

	if ok, _ := c.Undo(context.Background(), tok); !ok {
		t.Fatal("first undo should restore")
	}
	ok, err := c.Undo(context.Background(), tok)
	if ok || err != nil {
		t.Errorf("second undo = %v, %v; want false, nil", ok, err)
	}
	if len(r.restored) != 1 {
		t.Errorf("restored %d times, want 1", len(r.restored))
	}
}

func TestUndo_AfterWindowIsIgnored(t *testing.T) {
	r := &recorder{}
	c, clock := newTestCoordinator(r)

	tok := c.Capture(sample)
	_ = c.Confirm(tok)
	clock.Advance(5 * time.Second)

	ok, err := c.Undo(context.Background(), tok)
	if ok || err != nil {
		t.Errorf("expired undo = %v, %v; want false, nil", ok, err)
	}
	if tok.State() != StateExpired {
		t.Errorf("state = %s, want expired", tok.State())
	}
	if len(r.restored) != 0 {
		t.Error("expired token must not restore")
	}
}

func TestUndo_BeforeConfirm(t *testing.T) {
	c, _ := newTestCoordinator(&recorder{})
	tok := c.Capture(sample)

	_, err := c.Undo(context.Background(), tok)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("got %v, want invalid transition", err)
	}
	if tok.State() != StateActive {
		t.Errorf("state = %s, want active", tok.State())
	}
}

func TestUndo_RestoreFailureConsumesToken(t *testing.T) {
	r := &recorder{err: errors.New("offline")}
	c, _ := newTestCoordinator(r)

	tok := c.Capture(sample)
	_ = c.Confirm(tok)

	if _, err := c.Undo(context.Background(), tok); err == nil {
		t.Fatal("expected restore error")
	}
	if tok.State() != StateUndone {
		t.Errorf("state = %s, want undone", tok.State())
	}
}

func TestTransitions(t *testing.T) {
	c, _ := newTestCoordinator(&recorder{})

	tok := c.Capture(sample)
	_ = c.Confirm(tok)
	if err := c.Confirm(tok); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double confirm: got %v", err)
	}

	abandoned := c.Capture(sample)
	c.Abandon(abandoned)
	if abandoned.State() != StateExpired {
		t.Errorf("abandoned state = %s", abandoned.State())
	}
	if err := c.Confirm(abandoned); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("confirm after abandon: got %v", err)
	}
	c.Abandon(tok)
	if ok, _ := c.Undo(context.Background(), tok); ok {
		t.Error("abandoned token must not restore")
	}
}

func TestSweepAndActive(t *testing.T) {
	c, clock := newTestCoordinator(&recorder{})

	first := c.Capture(sample)
	_ = c.Confirm(first)
	clock.Advance(3 * time.Second)
	second := c.Capture(sample)
	_ = c.Confirm(second)

	if active := c.Active(); len(active) != 2 || active[0] != first {
		t.Fatalf("active = %v", active)
	}
	if latest, ok := c.Latest(); !ok || latest != second {
		t.Errorf("latest = %v", latest)
	}

	clock.Advance(2 * time.Second)
	expired := c.Sweep()
	if len(expired) != 1 || expired[0] != first {
		t.Errorf("swept %v", expired)
	}
	if active := c.Active(); len(active) != 1 || active[0] != second {
		t.Errorf("active after sweep = %v", active)
	}
}

func TestNew_DefaultWindow(t *testing.T) {
	c := New(0, &recorder{})
	if c.Window() != DefaultWindow {
		t.Errorf("window = %s", c.Window())
	}
}
