// Package redisstore provides a Redis document store.
//
// A user's tasks live in one hash, hourly:users:{id}:tasks, mapping task ID
// to a JSON document. Every write publishes on hourly:users:{id}:tasks:changed
// so watchers can re-read the collection.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/javiermolinar/hourly/internal/logging"
	"github.com/javiermolinar/hourly/internal/task"
)

const (
	// KeyPrefix is the Redis key prefix for user collections.
	KeyPrefix = "hourly:users:"
	// DefaultURL is the default Redis connection URL.
	DefaultURL = "redis://localhost:6379/0"

	maxTxRetries = 5
)

// ErrConflict is returned when an optimistic transaction keeps losing races.
var ErrConflict = errors.New("concurrent modification, retries exhausted")

// document is the stored form of a task.
type document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Order     int    `json:"order"`
	Date      string `json:"date,omitempty"`
	Hour      string `json:"hour,omitempty"`
}

func toDocument(t task.Task) document {
	return document{
		ID:        t.ID,
		Title:     t.Title,
		Completed: t.Completed,
		Order:     t.Order,
		Date:      t.Date,
		Hour:      string(t.Hour),
	}
}

func (d document) task() task.Task {
	return task.Task{
		ID:        d.ID,
		Title:     d.Title,
		Completed: d.Completed,
		Order:     d.Order,
		Date:      d.Date,
		Hour:      task.Hour(d.Hour),
	}
}

// Store implements task.DocumentStore on Redis.
type Store struct {
	rdb *redis.Client
	log *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.log = logging.OrNop(l).WithComponent("redis") }
}

// NewFromURL connects to the Redis server at url.
func NewFromURL(url string, opts ...Option) (*Store, error) {
	if url == "" {
		url = DefaultURL
	}
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(ropts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newStore(rdb, opts...), nil
}

func newStore(rdb *redis.Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func tasksKey(userID string) string {
	return KeyPrefix + userID + ":tasks"
}

func channel(userID string) string {
	return tasksKey(userID) + ":changed"
}

// ListTasks returns every task of userID.
func (s *Store) ListTasks(ctx context.Context, userID string) ([]task.Task, error) {
	values, err := s.rdb.HGetAll(ctx, tasksKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading tasks: %w", err)
	}

	tasks := make([]task.Task, 0, len(values))
	for id, raw := range values {
		var d document
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			s.log.Event(logging.WarnLevel).Err(err).Str("task_id", id).Msg("skipping undecodable task document")
			continue
		}
		d.ID = id
		tasks = append(tasks, d.task())
	}
	task.SortSlot(tasks)
	return tasks, nil
}

// PutTask stores t, replacing any task with the same ID.
func (s *Store) PutTask(ctx context.Context, userID string, t task.Task) error {
	raw, err := json.Marshal(toDocument(t))
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	if err := s.rdb.HSet(ctx, tasksKey(userID), t.ID, raw).Err(); err != nil {
		return fmt.Errorf("writing task: %w", err)
	}
	s.publish(ctx, userID)
	return nil
}

// UpdateTask applies a partial update to one task.
func (s *Store) UpdateTask(ctx context.Context, userID, id string, p task.Patch) error {
	err := s.update(ctx, userID, []string{id}, func(current map[string]task.Task) map[string]task.Task {
		return map[string]task.Task{id: p.Apply(current[id])}
	})
	if err != nil {
		return err
	}
	s.publish(ctx, userID)
	return nil
}

// DeleteTask removes one task. Deleting a missing task is not an error.
func (s *Store) DeleteTask(ctx context.Context, userID, id string) error {
	if err := s.rdb.HDel(ctx, tasksKey(userID), id).Err(); err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	s.publish(ctx, userID)
	return nil
}

// BatchUpdate applies every change in one MULTI/EXEC transaction.
func (s *Store) BatchUpdate(ctx context.Context, userID string, changes []task.OrderChange) error {
	if len(changes) == 0 {
		return nil
	}
	ids := make([]string, len(changes))
	for i, c := range changes {
		ids[i] = c.TaskID
	}

	err := s.update(ctx, userID, ids, func(current map[string]task.Task) map[string]task.Task {
		next := make(map[string]task.Task, len(changes))
		for _, c := range changes {
			t, ok := next[c.TaskID]
			if !ok {
				t = current[c.TaskID]
			}
			next[c.TaskID] = c.Apply(t)
		}
		return next
	})
	if err != nil {
		return err
	}
	s.publish(ctx, userID)
	return nil
}

// update reads ids under WATCH, computes the new documents and writes them
// in one transaction, retrying when another client modified the hash.
func (s *Store) update(ctx context.Context, userID string, ids []string, fn func(map[string]task.Task) map[string]task.Task) error {
	key := tasksKey(userID)

	txf := func(tx *redis.Tx) error {
		values, err := tx.HMGet(ctx, key, ids...).Result()
		if err != nil {
			return fmt.Errorf("reading tasks: %w", err)
		}

		current := make(map[string]task.Task, len(ids))
		for i, v := range values {
			str, ok := v.(string)
			if !ok {
				return fmt.Errorf("task %s: %w", ids[i], task.ErrTaskNotFound)
			}
			var d document
			if err := json.Unmarshal([]byte(str), &d); err != nil {
				return fmt.Errorf("decoding task %s: %w", ids[i], err)
			}
			d.ID = ids[i]
			current[ids[i]] = d.task()
		}

		next := fn(current)
		fields := make([]any, 0, 2*len(next))
		for id, t := range next {
			raw, err := json.Marshal(toDocument(t))
			if err != nil {
				return fmt.Errorf("encoding task %s: %w", id, err)
			}
			fields = append(fields, id, raw)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields...)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (s *Store) publish(ctx context.Context, userID string) {
	if err := s.rdb.Publish(context.WithoutCancel(ctx), channel(userID), "1").Err(); err != nil {
		s.log.Event(logging.WarnLevel).Err(err).Str("user_id", userID).Msg("publishing change notification")
	}
}

// Watch delivers the current collection of userID to fn, then a fresh
// snapshot after every change notification until ctx is done or stop is
// called.
func (s *Store) Watch(ctx context.Context, userID string, fn task.SnapshotFunc) (func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)

	pubsub := s.rdb.Subscribe(watchCtx, channel(userID))
	// Wait for the subscription so no change after the initial read is missed.
	if _, err := pubsub.Receive(watchCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to changes: %w", err)
	}

	tasks, err := s.ListTasks(watchCtx, userID)
	if err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, err
	}
	fn(tasks)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		msgs := pubsub.Channel()
		for {
			select {
			case <-watchCtx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
			}
			tasks, err := s.ListTasks(watchCtx, userID)
			if err != nil {
				if watchCtx.Err() == nil {
					s.log.Event(logging.WarnLevel).Err(err).Str("user_id", userID).Msg("reading snapshot for watcher")
				}
				continue
			}
			fn(tasks)
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			_ = pubsub.Close()
			wg.Wait()
		})
	}
	go func() {
		<-watchCtx.Done()
		stop()
	}()

	return stop, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

var _ task.DocumentStore = (*Store)(nil)
