// Package transfer reads and writes a user's tasks as YAML.
package transfer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/javiermolinar/hourly/internal/task"
)

// Version is the current file format version.
const Version = 1

// ErrUnsupportedVersion is returned for files written by a newer format.
var ErrUnsupportedVersion = errors.New("unsupported export version")

// File is the exported form of one user's tasks.
type File struct {
	Version    int       `yaml:"version"`
	User       string    `yaml:"user,omitempty"`
	ExportedAt time.Time `yaml:"exported_at"`
	Tasks      []Entry   `yaml:"tasks"`
}

// Entry is one exported task.
type Entry struct {
	ID        string `yaml:"id,omitempty"`
	Title     string `yaml:"title"`
	Completed bool   `yaml:"completed,omitempty"`
	Order     int    `yaml:"order"`
	Date      string `yaml:"date,omitempty"`
	Hour      string `yaml:"hour,omitempty"`
}

func entryOf(t task.Task) Entry {
	return Entry{
		ID:        t.ID,
		Title:     t.Title,
		Completed: t.Completed,
		Order:     t.Order,
		Date:      t.Date,
		Hour:      string(t.Hour),
	}
}

func (e Entry) coord() task.Coord {
	return task.Coord{Date: e.Date, Hour: task.Hour(e.Hour)}
}

// Export writes tasks to w. Scheduled tasks come first by slot, then
// unscheduled ones, each group in slot order.
func Export(w io.Writer, userID string, tasks []task.Task, now time.Time) error {
	sorted := make([]task.Task, len(tasks))
	copy(sorted, tasks)
	sortForExport(sorted)

	f := File{
		Version:    Version,
		User:       userID,
		ExportedAt: now.UTC().Truncate(time.Second),
		Tasks:      make([]Entry, 0, len(sorted)),
	}
	for _, t := range sorted {
		f.Tasks = append(f.Tasks, entryOf(t))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding tasks: %w", err)
	}
	return enc.Close()
}

// Decode reads and validates an exported file.
func Decode(r io.Reader) (*File, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{Version: Version}, nil
		}
		return nil, fmt.Errorf("decoding tasks: %w", err)
	}
	if f.Version == 0 {
		f.Version = Version
	}
	if f.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}

	seen := make(map[string]bool, len(f.Tasks))
	for i, e := range f.Tasks {
		if e.ID != "" {
			if seen[e.ID] {
				return nil, fmt.Errorf("task %d: duplicate id %q", i+1, e.ID)
			}
			seen[e.ID] = true
		}
		probe := task.Task{ID: "probe", Title: e.Title, Date: e.Date, Hour: task.Hour(e.Hour)}
		if err := probe.Validate(); err != nil {
			return nil, fmt.Errorf("task %d (%q): %w", i+1, e.Title, err)
		}
	}
	return &f, nil
}

// Result summarises an import.
type Result struct {
	Imported int
	Skipped  int // already present by ID
}

// Import writes the file's tasks into userID's collection. Tasks whose ID
// already exists are skipped. Imported tasks are appended after the
// existing tasks of their slot, keeping the file's relative order, so
// every slot stays dense. Entries without an ID get a fresh one.
func Import(ctx context.Context, docs task.DocumentStore, userID string, f *File, now time.Time) (Result, error) {
	var res Result

	existing, err := docs.ListTasks(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("listing existing tasks: %w", err)
	}

	present := make(map[string]bool, len(existing))
	next := make(map[task.Coord]int)
	for _, t := range existing {
		present[t.ID] = true
		c := t.Coord()
		next[c] = max(next[c], t.Order+1)
	}

	var incoming []task.Task
	for i, e := range f.Tasks {
		if e.ID != "" && present[e.ID] {
			res.Skipped++
			continue
		}
		id := e.ID
		if id == "" {
			id = task.NewID(e.coord(), now.Add(time.Duration(i)*time.Millisecond))
		}
		incoming = append(incoming, task.Task{
			ID:        id,
			Title:     e.Title,
			Completed: e.Completed,
			Order:     e.Order,
			Date:      e.Date,
			Hour:      task.Hour(e.Hour),
		})
	}

	task.SortSlot(incoming)
	for _, t := range incoming {
		c := t.Coord()
		t.Order = next[c]
		next[c]++
		if err := docs.PutTask(ctx, userID, t); err != nil {
			return res, fmt.Errorf("importing task %q: %w", t.Title, err)
		}
		res.Imported++
	}
	return res, nil
}

func sortForExport(tasks []task.Task) {
	task.SortSlot(tasks)
	// Stable so slot order survives the grouping.
	slices.SortStableFunc(tasks, func(a, b task.Task) int {
		ca, cb := a.Coord(), b.Coord()
		switch {
		case ca.IsZero() && cb.IsZero():
			return 0
		case ca.IsZero():
			return 1
		case cb.IsZero():
			return -1
		}
		if c := strings.Compare(ca.Date, cb.Date); c != 0 {
			return c
		}
		return cmp.Compare(ca.Hour.Index(), cb.Hour.Index())
	})
}
