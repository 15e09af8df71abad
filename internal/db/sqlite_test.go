package db

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/javiermolinar/hourly/internal/task"
)

const user = "ada"

var slot9 = task.Coord{Date: "2024-03-01", Hour: "9:00"}

func newTestRepo(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	repo, err := New(path, WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create test repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func mk(id string, order int, c task.Coord) task.Task {
	return task.Task{ID: id, Title: "task " + id, Order: order, Date: c.Date, Hour: c.Hour}
}

func find(tasks []task.Task, id string) (task.Task, bool) {
	i := task.Index(tasks, id)
	if i < 0 {
		return task.Task{}, false
	}
	return tasks[i], true
}

func TestPutAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := mk("2024-03-01_9:00_1709283600000", 0, slot9)
	inbox := task.Task{ID: "inbox_1709283600001", Title: "someday"}
	for _, tk := range []task.Task{a, inbox} {
		if err := repo.PutTask(ctx, user, tk); err != nil {
			t.Fatalf("PutTask failed: %v", err)
		}
	}

	tasks, err := repo.ListTasks(ctx, user)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0] != a {
		t.Errorf("got %+v, want %+v", tasks[0], a)
	}
	if tasks[1] != inbox {
		t.Errorf("unscheduled task should round-trip with empty coordinates, got %+v", tasks[1])
	}

	other, err := repo.ListTasks(ctx, "bob")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("collections must be per user, got %v", other)
	}
}

func TestPutTask_ReplacesExisting(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := mk("a", 0, slot9)
	_ = repo.PutTask(ctx, user, a)
	a.Title = "restored"
	a.Completed = true
	if err := repo.PutTask(ctx, user, a); err != nil {
		t.Fatalf("PutTask failed: %v", err)
	}

	tasks, _ := repo.ListTasks(ctx, user)
	if len(tasks) != 1 || tasks[0] != a {
		t.Errorf("got %+v", tasks)
	}
}

func TestUpdateTask(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_ = repo.PutTask(ctx, user, mk("a", 0, slot9))

	title := "renamed"
	if err := repo.UpdateTask(ctx, user, "a", task.Patch{Title: &title}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	empty := ""
	noHour := task.Hour("")
	if err := repo.UpdateTask(ctx, user, "a", task.Patch{Date: &empty, Hour: &noHour}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	tasks, _ := repo.ListTasks(ctx, user)
	got := tasks[0]
	if got.Title != "renamed" || got.Date != "" || got.Hour != "" {
		t.Errorf("got %+v", got)
	}

	err := repo.UpdateTask(ctx, user, "ghost", task.Patch{Title: &title})
	if !errors.Is(err, task.ErrTaskNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	err = repo.UpdateTask(ctx, "bob", "a", task.Patch{Title: &title})
	if !errors.Is(err, task.ErrTaskNotFound) {
		t.Errorf("another user's task must not be updated, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_ = repo.PutTask(ctx, user, mk("a", 0, slot9))

	if err := repo.DeleteTask(ctx, user, "a"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if err := repo.DeleteTask(ctx, user, "a"); err != nil {
		t.Errorf("deleting twice should not fail: %v", err)
	}
	tasks, _ := repo.ListTasks(ctx, user)
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %v", tasks)
	}
}

func TestBatchUpdate_Atomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_ = repo.PutTask(ctx, user, mk("a", 0, slot9))
	_ = repo.PutTask(ctx, user, mk("b", 1, slot9))

	err := repo.BatchUpdate(ctx, user, []task.OrderChange{
		{TaskID: "a", Order: 1, Date: slot9.Date, Hour: slot9.Hour},
		{TaskID: "ghost", Order: 0, Date: slot9.Date, Hour: slot9.Hour},
	})
	if !errors.Is(err, task.ErrTaskNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	tasks, _ := repo.ListTasks(ctx, user)
	if a, _ := find(tasks, "a"); a.Order != 0 {
		t.Error("failed batch must leave no partial update")
	}

	err = repo.BatchUpdate(ctx, user, []task.OrderChange{
		{TaskID: "b", Order: 0, Date: slot9.Date, Hour: slot9.Hour},
		{TaskID: "a", Order: 0, Date: slot9.Date, Hour: "10:00"},
	})
	if err != nil {
		t.Fatalf("BatchUpdate failed: %v", err)
	}
	tasks, _ = repo.ListTasks(ctx, user)
	a, _ := find(tasks, "a")
	b, _ := find(tasks, "b")
	if a.Hour != "10:00" || a.Order != 0 || b.Order != 0 {
		t.Errorf("a=%+v b=%+v", a, b)
	}

	if err := repo.BatchUpdate(ctx, user, nil); err != nil {
		t.Errorf("empty batch should be a no-op: %v", err)
	}
}

type snapshots struct {
	mu   sync.Mutex
	seen [][]task.Task
}

func (s *snapshots) add(tasks []task.Task) {
	s.mu.Lock()
	s.seen = append(s.seen, tasks)
	s.mu.Unlock()
}

func (s *snapshots) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func (s *snapshots) last() []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[len(s.seen)-1]
}

func TestWatch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_ = repo.PutTask(ctx, user, mk("a", 0, slot9))

	var snaps snapshots
	stop, err := repo.Watch(ctx, user, snaps.add)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if snaps.count() != 1 || len(snaps.last()) != 1 {
		t.Fatalf("expected initial snapshot, got %d", snaps.count())
	}

	_ = repo.PutTask(ctx, user, mk("b", 1, slot9))
	if snaps.count() != 2 || len(snaps.last()) != 2 {
		t.Errorf("expected snapshot after write, got %d", snaps.count())
	}

	// Writes for other users are not delivered.
	_ = repo.PutTask(ctx, "bob", mk("c", 0, slot9))
	if snaps.count() != 2 {
		t.Errorf("unexpected snapshot for another user")
	}

	stop()
	stop()
	_ = repo.DeleteTask(ctx, user, "a")
	if snaps.count() != 2 {
		t.Errorf("stopped watcher should not be called")
	}
}

func TestWatch_ConcurrentWritesDeliverInOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		sizes []int
	)
	_, err := repo.Watch(ctx, user, func(tasks []task.Task) {
		// A slow consumer of the older snapshot must not let it land last.
		if len(tasks) == 1 {
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		sizes = append(sizes, len(tasks))
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.PutTask(ctx, user, mk(id, 0, slot9)); err != nil {
				t.Errorf("PutTask(%s) failed: %v", id, err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(sizes); i++ {
		if sizes[i] < sizes[i-1] {
			t.Fatalf("snapshot sizes in delivery order = %v, want non-decreasing", sizes)
		}
	}
	if got := sizes[len(sizes)-1]; got != 2 {
		t.Errorf("last snapshot has %d tasks, want 2 (sizes %v)", got, sizes)
	}
}

func TestWatch_StopsOnContextCancel(t *testing.T) {
	repo := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())

	var snaps snapshots
	if _, err := repo.Watch(ctx, user, snaps.add); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for {
		repo.mu.Lock()
		n := len(repo.watchers[user])
		repo.mu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("watcher not removed after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatch_SeesOtherProcessCommits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	watcher, err := New(path, WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = watcher.Close() }()
	writer, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = writer.Close() }()

	var snaps snapshots
	if _, err := watcher.Watch(context.Background(), user, snaps.add); err != nil {
		t.Fatal(err)
	}
	if err := writer.PutTask(context.Background(), user, mk("a", 0, slot9)); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for snaps.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("external commit not delivered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := snaps.last(); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for range 2 {
		repo, err := New(path)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		_ = repo.Close()
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := map[string]string{
		"2024-03-01":           "2024-03-01",
		"2024-03-01T00:00:00Z": "2024-03-01",
		"2024-03-01 09:00:00":  "2024-03-01",
		"":                     "",
	}
	for in, want := range tests {
		if got := normalizeDate(in); got != want {
			t.Errorf("normalizeDate(%q) = %q, want %q", in, got, want)
		}
	}
}
