package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/javiermolinar/hourly/internal/task"
)

const user = "ada"

var slot9 = task.Coord{Date: "2024-03-01", Hour: "9:00"}

func mk(id string, order int) task.Task {
	return task.Task{ID: id, Title: "task " + id, Order: order, Date: slot9.Date, Hour: slot9.Hour}
}

func TestWriteAndWatch(t *testing.T) {
	s := New()
	ctx := context.Background()

	var snaps [][]task.Task
	stop, err := s.Watch(ctx, user, func(tasks []task.Task) {
		snaps = append(snaps, tasks)
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer stop()

	if err := s.PutTask(ctx, user, mk("a", 0)); err != nil {
		t.Fatalf("PutTask failed: %v", err)
	}
	if err := s.UpdateTask(ctx, user, "a", task.Patch{Title: ptr("renamed")}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if err := s.UpdateTask(ctx, user, "missing", task.Patch{}); !errors.Is(err, task.ErrTaskNotFound) {
		t.Errorf("UpdateTask(missing) = %v, want ErrTaskNotFound", err)
	}

	if len(snaps) != 3 {
		t.Fatalf("got %d snapshots, want initial + 2 writes", len(snaps))
	}
	if len(snaps[0]) != 0 || snaps[2][0].Title != "renamed" {
		t.Errorf("snapshots = %+v", snaps)
	}
	if got := s.Calls(); len(got) != 3 || got[0].Op != "put" || got[1].Op != "update" {
		t.Errorf("calls = %+v", got)
	}
}

func TestBatchUpdate_AllOrNothing(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Seed(user, mk("a", 0), mk("b", 1))

	err := s.BatchUpdate(ctx, user, []task.OrderChange{
		{TaskID: "a", Order: 1, Date: slot9.Date, Hour: slot9.Hour},
		{TaskID: "gone", Order: 0, Date: slot9.Date, Hour: slot9.Hour},
	})
	if !errors.Is(err, task.ErrTaskNotFound) {
		t.Fatalf("BatchUpdate = %v, want ErrTaskNotFound", err)
	}
	if got := s.Tasks(user); got[0].Order != 0 || got[1].Order != 1 {
		t.Errorf("partial write: %+v", got)
	}
}

func TestFailNext(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")
	s.FailNext("put", boom)

	if err := s.PutTask(ctx, user, mk("a", 0)); !errors.Is(err, boom) {
		t.Fatalf("first PutTask = %v, want boom", err)
	}
	if err := s.PutTask(ctx, user, mk("a", 0)); err != nil {
		t.Fatalf("second PutTask = %v, want nil", err)
	}
	if n := len(s.Tasks(user)); n != 1 {
		t.Errorf("got %d tasks, want 1", n)
	}
}

func TestHold(t *testing.T) {
	s := New()
	release := s.Hold()

	done := make(chan error, 1)
	go func() { done <- s.PutTask(context.Background(), user, mk("a", 0)) }()

	select {
	case <-done:
		t.Fatal("write should block while held")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	release()
	if err := <-done; err != nil {
		t.Fatalf("PutTask failed: %v", err)
	}
}

func TestManualNotify(t *testing.T) {
	s := New()
	s.ManualNotify()
	ctx, cancel := context.WithCancel(context.Background())

	n := 0
	if _, err := s.Watch(ctx, user, func([]task.Task) { n++ }); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	_ = s.PutTask(context.Background(), user, mk("a", 0))
	if n != 1 {
		t.Fatalf("got %d snapshots before Emit, want 1", n)
	}
	s.Emit(user)
	if n != 2 {
		t.Errorf("got %d snapshots after Emit, want 2", n)
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for s.Watchers(user) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("watcher not removed after cancel")
		}
		time.Sleep(time.Millisecond)
	}
}

func ptr[T any](v T) *T { return &v }
