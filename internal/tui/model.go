// Package tui provides the terminal user interface for hourly.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/hourly/internal/dateutil"
	"github.com/javiermolinar/hourly/internal/logging"
	"github.com/javiermolinar/hourly/internal/remote"
	"github.com/javiermolinar/hourly/internal/reorder"
	"github.com/javiermolinar/hourly/internal/scheduler"
	"github.com/javiermolinar/hourly/internal/store"
	"github.com/javiermolinar/hourly/internal/task"
	"github.com/javiermolinar/hourly/internal/tui/commands"
	"github.com/javiermolinar/hourly/internal/tui/theme"
	"github.com/javiermolinar/hourly/internal/undo"
)

// Session is the planner surface the TUI drives.
type Session interface {
	Tasks() []task.Task
	Pending() []store.Pending
	Subscribe(fn store.Listener) (func(), error)
	Add(ctx context.Context, title string, c task.Coord) (task.Task, *remote.Op, error)
	Rename(ctx context.Context, id, title string) (*remote.Op, error)
	Move(ctx context.Context, d reorder.Drop) (*remote.Op, error)
	Complete(ctx context.Context, id string) (*undo.Token, *remote.Op, error)
	UndoLatest(ctx context.Context) (bool, error)
	Undoable() []*undo.Token
}

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAdd
	ModeRename
)

const (
	hourColWidth  = 6
	statusTimeout = 4 * time.Second
	tickInterval  = time.Second
)

// Position represents a cursor position in the day view.
type Position struct {
	Row   int // index into the rendered slots
	Index int // task within the slot
}

// Model is the main TUI model.
type Model struct {
	// Dependencies
	ctx      context.Context
	session  Session
	log      *logging.Logger
	now      func() time.Time
	copyText func(string) error

	styles *Styles

	// State
	day     string
	slots   []scheduler.Slot
	marks   map[string]store.State
	cursor  Position
	mode    Mode
	editing string // task being renamed

	input textinput.Model

	width  int
	height int

	statusMsg string
	statusErr bool
	statusSeq int
}

// Option configures optional model behavior.
type Option func(*Model)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// WithTheme selects a color theme by name.
func WithTheme(name string) Option {
	return func(m *Model) {
		t, err := theme.Load(name)
		if err != nil {
			m.log.Warnf("loading theme %q: %v", name, err)
			return
		}
		m.styles = NewStyles(t)
	}
}

// WithClipboard overrides the clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		m.copyText = write
	}
}

// New creates a new TUI model showing today.
func New(ctx context.Context, s Session, log *logging.Logger, opts ...Option) Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50

	m := Model{
		ctx:      ctx,
		session:  s,
		log:      logging.OrNop(log).WithComponent("tui"),
		now:      time.Now,
		copyText: clipboard.WriteAll,
		input:    ti,
		marks:    map[string]store.State{},
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.styles == nil {
		t, _ := theme.Load(theme.DefaultName)
		m.styles = NewStyles(t)
	}
	m.input.PromptStyle = m.styles.PromptStyle
	m.input.Cursor.Style = m.styles.CursorStyle

	m.day = dateutil.Day(m.now())
	m.refresh()
	m.focusNow()
	return m
}

// Init starts the clock that drives the undo countdown.
func (m Model) Init() tea.Cmd {
	return commands.Tick(tickInterval)
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, s Session, log *logging.Logger, opts ...Option) error {
	m := New(ctx, s, log, opts...)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// Store listeners run under the mutating call, which may be Update
	// itself, so changes are coalesced and forwarded from a goroutine.
	changed := make(chan struct{}, 1)
	unsubscribe, err := s.Subscribe(func([]task.Task) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing to tasks: %w", err)
	}
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-changed:
				prog.Send(commands.RefreshMsg{})
			}
		}
	}()

	if _, err := prog.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}

// rows returns the slots of the shown day: current and future hours first
// when showing today, then the unscheduled bucket.
func (m *Model) rows() []task.Coord {
	coords := scheduler.DaySlots(m.day)
	if m.day == dateutil.Day(m.now()) {
		coords = scheduler.Partition(m.now(), coords)
	}
	return append(coords, task.Coord{})
}

// refresh rebuilds the view from the session.
func (m *Model) refresh() {
	m.slots = scheduler.Bucket(m.session.Tasks(), m.rows())
	m.marks = pendingMarks(m.session.Pending())
	m.clampCursor()
}

// pendingMarks maps task IDs to the most relevant state of the mutations
// touching them. Committed mutations are not shown.
func pendingMarks(pending []store.Pending) map[string]store.State {
	marks := make(map[string]store.State)
	for _, p := range pending {
		if p.State == store.StateCommitted {
			continue
		}
		for _, id := range p.Mutation.IDs() {
			if marks[id] == store.StateFailed {
				continue
			}
			marks[id] = p.State
		}
	}
	return marks
}

func (m *Model) clampCursor() {
	if len(m.slots) == 0 {
		m.cursor = Position{}
		return
	}
	m.cursor.Row = min(max(m.cursor.Row, 0), len(m.slots)-1)
	n := len(m.slots[m.cursor.Row].Tasks)
	m.cursor.Index = min(max(m.cursor.Index, 0), max(n-1, 0))
}

// focus moves the cursor onto the task with id if the day shows it.
func (m *Model) focus(id string) bool {
	for r, s := range m.slots {
		if i := task.Index(s.Tasks, id); i >= 0 {
			m.cursor = Position{Row: r, Index: i}
			return true
		}
	}
	return false
}

// focusCoord moves the cursor onto the first task of c.
func (m *Model) focusCoord(c task.Coord) {
	for r, s := range m.slots {
		if s.Coord == c {
			m.cursor = Position{Row: r}
			return
		}
	}
}

// focusNow puts the cursor on the slot of the current hour.
func (m *Model) focusNow() {
	m.cursor = Position{}
	if m.day == dateutil.Day(m.now()) {
		m.focusCoord(scheduler.NextSlot(m.now()))
	}
}

// selectedSlot returns the slot under the cursor.
func (m *Model) selectedSlot() scheduler.Slot {
	if m.cursor.Row >= len(m.slots) {
		return scheduler.Slot{}
	}
	return m.slots[m.cursor.Row]
}

// selected returns the task under the cursor.
func (m *Model) selected() (task.Task, bool) {
	s := m.selectedSlot()
	if m.cursor.Index >= len(s.Tasks) {
		return task.Task{}, false
	}
	return s.Tasks[m.cursor.Index], true
}

// setDay switches the shown day and resets the cursor.
func (m *Model) setDay(day string) {
	m.day = day
	m.refresh()
	m.focusNow()
}

func (m *Model) shiftDay(n int) {
	day, err := dateutil.AddDays(m.day, n)
	if err != nil {
		m.log.Warnf("shifting day %s: %v", m.day, err)
		return
	}
	m.setDay(day)
}

func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusSeq++
	m.statusMsg = msg
	m.statusErr = false
	return commands.ClearStatusAfter(statusTimeout, m.statusSeq)
}

func (m *Model) setError(err error) tea.Cmd {
	cmd := m.setStatus(err.Error())
	m.statusErr = true
	return cmd
}
