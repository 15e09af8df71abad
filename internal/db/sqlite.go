// Package db provides the SQLite document store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/javiermolinar/hourly/internal/logging"
	"github.com/javiermolinar/hourly/internal/task"
)

// DefaultPollInterval is how often the store checks for commits made by
// other processes.
const DefaultPollInterval = time.Second

// SQLite implements task.DocumentStore using SQLite.
// Each user's tasks form one collection keyed by (user_id, id).
type SQLite struct {
	db   *sql.DB
	log  *logging.Logger
	poll time.Duration

	mu       sync.Mutex
	watchers map[string]map[int]task.SnapshotFunc
	nextW    int
	// delivery serialises snapshot reads and deliveries per user, so
	// watchers see snapshots in the order they were read.
	delivery map[string]*sync.Mutex

	pollOnce  sync.Once
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// Option configures a SQLite store.
type Option func(*SQLite)

// WithPollInterval sets how often commits from other processes are detected.
func WithPollInterval(d time.Duration) Option {
	return func(s *SQLite) {
		if d > 0 {
			s.poll = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *SQLite) { s.log = logging.OrNop(l).WithComponent("sqlite") }
}

// New opens the database at path and runs migrations.
func New(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: PRAGMA data_version is per connection, and writes
	// are serialised anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLite{
		db:       db,
		log:      logging.Nop(),
		poll:     DefaultPollInterval,
		watchers: make(map[string]map[int]task.SnapshotFunc),
		delivery: make(map[string]*sync.Mutex),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// ListTasks returns every task of userID.
func (s *SQLite) ListTasks(ctx context.Context, userID string) ([]task.Task, error) {
	query := `
		SELECT id, title, completed, ord, date, hour
		FROM tasks
		WHERE user_id = ?
		ORDER BY created_at, id
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []task.Task
	for rows.Next() {
		var (
			t    task.Task
			date sql.NullString
			hour sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Completed, &t.Order, &date, &hour); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		if date.Valid {
			t.Date = normalizeDate(date.String)
		}
		if hour.Valid {
			t.Hour = task.Hour(hour.String)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}

	return tasks, nil
}

// PutTask inserts t, or replaces the stored task with the same ID.
func (s *SQLite) PutTask(ctx context.Context, userID string, t task.Task) error {
	query := `
		INSERT INTO tasks (user_id, id, title, completed, ord, date, hour, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			title = excluded.title,
			completed = excluded.completed,
			ord = excluded.ord,
			date = excluded.date,
			hour = excluded.hour,
			updated_at = excluded.updated_at
	`

	now := time.Now()
	createdAt, ok := task.IDTime(t.ID)
	if !ok {
		createdAt = now
	}

	_, err := s.db.ExecContext(ctx, query,
		userID,
		t.ID,
		t.Title,
		t.Completed,
		t.Order,
		nullString(t.Date),
		nullString(string(t.Hour)),
		createdAt.UTC().Format(time.RFC3339Nano),
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}

	s.notify(ctx, userID)
	return nil
}

// UpdateTask applies a partial update to one task.
func (s *SQLite) UpdateTask(ctx context.Context, userID, id string, p task.Patch) error {
	var (
		sets []string
		args []any
	)
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *p.Completed)
	}
	if p.Order != nil {
		sets = append(sets, "ord = ?")
		args = append(args, *p.Order)
	}
	if p.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, nullString(*p.Date))
	}
	if p.Hour != nil {
		sets = append(sets, "hour = ?")
		args = append(args, nullString(string(*p.Hour)))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano), userID, id)

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE user_id = ? AND id = ?`

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, task.ErrTaskNotFound)
	}

	s.notify(ctx, userID)
	return nil
}

// DeleteTask removes one task. Deleting a missing task is not an error.
func (s *SQLite) DeleteTask(ctx context.Context, userID, id string) error {
	query := `DELETE FROM tasks WHERE user_id = ? AND id = ?`

	if _, err := s.db.ExecContext(ctx, query, userID, id); err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}

	s.notify(ctx, userID)
	return nil
}

// BatchUpdate applies every change in a single transaction.
func (s *SQLite) BatchUpdate(ctx context.Context, userID string, changes []task.OrderChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := s.batchUpdate(ctx, userID, changes); err != nil {
		return err
	}
	s.notify(ctx, userID)
	return nil
}

func (s *SQLite) batchUpdate(ctx context.Context, userID string, changes []task.OrderChange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE tasks SET ord = ?, date = ?, hour = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, c := range changes {
		result, err := stmt.ExecContext(ctx,
			c.Order,
			nullString(c.Date),
			nullString(string(c.Hour)),
			now,
			userID,
			c.TaskID,
		)
		if err != nil {
			return fmt.Errorf("updating task %s: %w", c.TaskID, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("task %s: %w", c.TaskID, task.ErrTaskNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Watch delivers the current collection of userID to fn, then a new
// snapshot after every commit until ctx is done or stop is called.
func (s *SQLite) Watch(ctx context.Context, userID string, fn task.SnapshotFunc) (func(), error) {
	dl := s.deliveryLock(userID)
	dl.Lock()
	defer dl.Unlock()

	tasks, err := s.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	id := s.nextW
	s.nextW++
	if s.watchers[userID] == nil {
		s.watchers[userID] = make(map[int]task.SnapshotFunc)
	}
	s.watchers[userID][id] = fn
	s.mu.Unlock()

	s.pollOnce.Do(func() {
		last, err := s.dataVersion()
		if err != nil {
			s.log.Event(logging.WarnLevel).Err(err).Msg("change polling disabled")
			return
		}
		s.wg.Add(1)
		go s.pollLoop(last)
	})

	fn(tasks)

	stopped := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers[userID], id)
			if len(s.watchers[userID]) == 0 {
				delete(s.watchers, userID)
			}
			s.mu.Unlock()
			close(stopped)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-s.done:
			stop()
		case <-stopped:
		}
	}()

	return stop, nil
}

// Close stops change polling and releases database resources.
func (s *SQLite) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// notify sends a fresh snapshot of userID to its watchers. Reads and
// deliveries for one user never interleave: a snapshot read later is
// delivered later.
func (s *SQLite) notify(ctx context.Context, userID string) {
	dl := s.deliveryLock(userID)
	dl.Lock()
	defer dl.Unlock()

	s.mu.Lock()
	fns := s.watchersLocked(userID)
	s.mu.Unlock()
	if len(fns) == 0 {
		return
	}

	tasks, err := s.ListTasks(context.WithoutCancel(ctx), userID)
	if err != nil {
		s.log.Event(logging.WarnLevel).Err(err).Str("user_id", userID).Msg("reading snapshot for watchers")
		return
	}
	for _, fn := range fns {
		fn(slices.Clone(tasks))
	}
}

func (s *SQLite) deliveryLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	dl, ok := s.delivery[userID]
	if !ok {
		dl = new(sync.Mutex)
		s.delivery[userID] = dl
	}
	return dl
}

func (s *SQLite) watchersLocked(userID string) []task.SnapshotFunc {
	ws := s.watchers[userID]
	out := make([]task.SnapshotFunc, 0, len(ws))
	for _, k := range slices.Sorted(maps.Keys(ws)) {
		out = append(out, ws[k])
	}
	return out
}

// pollLoop detects commits made through other connections (another hourly
// process on the same file) and notifies every watched user.
func (s *SQLite) pollLoop(last int64) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		v, err := s.dataVersion()
		if err != nil {
			s.log.Debugf("reading data version: %v", err)
			continue
		}
		if v == last {
			continue
		}
		last = v

		s.mu.Lock()
		users := slices.Sorted(maps.Keys(s.watchers))
		s.mu.Unlock()
		s.log.Debugf("external change detected, refreshing %d users", len(users))
		for _, u := range users {
			s.notify(context.Background(), u)
		}
	}
}

func (s *SQLite) dataVersion() (int64, error) {
	var v int64
	if err := s.db.QueryRow(`PRAGMA data_version`).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// normalizeDate returns the calendar day of a stored date. SQLite may hand
// back DATE values written by other tools as "2006-01-02T00:00:00Z" or
// with a time component.
func normalizeDate(s string) string {
	if n := len(task.DateLayout); len(s) > n && (s[n] == 'T' || s[n] == ' ') {
		return s[:n]
	}
	return s
}

var _ task.DocumentStore = (*SQLite)(nil)
