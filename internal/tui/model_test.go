package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/hourly/internal/auth"
	"github.com/javiermolinar/hourly/internal/memstore"
	"github.com/javiermolinar/hourly/internal/planner"
	"github.com/javiermolinar/hourly/internal/store"
	"github.com/javiermolinar/hourly/internal/task"
	"github.com/javiermolinar/hourly/internal/tui/commands"
)

const today = "2024-03-01"

var (
	slot7 = task.Coord{Date: today, Hour: "7:00"}
	slot8 = task.Coord{Date: today, Hour: "8:00"}
	slot9 = task.Coord{Date: today, Hour: "9:00"}
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	p     *planner.Planner
	docs  *memstore.Store
	clock *clock
}

func setup(t *testing.T) *fixture {
	t.Helper()
	docs := memstore.New()
	c := &clock{now: time.Date(2024, 3, 1, 8, 30, 0, 0, time.Local)}
	p := planner.New(auth.NewStatic("ada"), docs, nil,
		planner.WithClock(c.Now), planner.WithUndoWindow(5*time.Second))
	if err := p.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(p.Close)
	return &fixture{p: p, docs: docs, clock: c}
}

func (f *fixture) add(t *testing.T, title string, c task.Coord) task.Task {
	t.Helper()
	tk, op, err := f.p.Add(context.Background(), title, c)
	if err != nil {
		t.Fatalf("Add(%q) failed: %v", title, err)
	}
	if err := op.Wait(context.Background()); err != nil {
		t.Fatalf("Add(%q) write failed: %v", title, err)
	}
	f.clock.Advance(time.Millisecond)
	return tk
}

func (f *fixture) model(opts ...Option) Model {
	opts = append([]Option{WithClock(f.clock.Now)}, opts...)
	return New(context.Background(), f.p, nil, opts...)
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press feeds keys to the model and returns the command of the last one.
func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

// settle runs cmd and feeds its message back to the model.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(Model)
}

func slotTitles(p *planner.Planner, c task.Coord) []string {
	var out []string
	for _, tk := range p.Slot(c) {
		out = append(out, tk.Title)
	}
	return out
}

func TestNew_FocusesCurrentHour(t *testing.T) {
	f := setup(t)
	m := f.model()

	if got := m.selectedSlot().Coord; got != slot8 {
		t.Errorf("cursor slot = %v, want %v", got, slot8)
	}
	// Past hours follow the rest of the day, the inbox comes last.
	if got := m.slots[len(m.slots)-3].Coord; got.Hour != "6:00" {
		t.Errorf("past hours should trail the day, got %v", got)
	}
	if !m.slots[len(m.slots)-1].Coord.IsZero() {
		t.Error("last row should be the inbox")
	}
}

func TestAddTask(t *testing.T) {
	f := setup(t)
	m := f.model()

	m, _ = press(t, m, "a")
	if m.mode != ModeAdd {
		t.Fatalf("mode = %v, want ModeAdd", m.mode)
	}
	m, cmd := press(t, m, "Write docs", "enter")
	if m.mode != ModeNormal {
		t.Errorf("mode = %v, want ModeNormal", m.mode)
	}

	got, ok := m.selected()
	if !ok || got.Title != "Write docs" || got.Coord() != slot8 {
		t.Fatalf("selected = %+v, %v", got, ok)
	}
	m = settle(t, m, cmd)
	if m.statusErr {
		t.Errorf("unexpected error status %q", m.statusMsg)
	}
	if tasks := f.docs.Tasks("ada"); len(tasks) != 1 || tasks[0].ID != got.ID {
		t.Errorf("stored tasks = %+v", tasks)
	}
}

func TestAddTask_EscCancels(t *testing.T) {
	f := setup(t)
	m := f.model()

	m, _ = press(t, m, "a", "Nope", "esc")
	if m.mode != ModeNormal {
		t.Errorf("mode = %v, want ModeNormal", m.mode)
	}
	if n := len(f.p.Tasks()); n != 0 {
		t.Errorf("got %d tasks, want 0", n)
	}
}

func TestReorderWithinSlot(t *testing.T) {
	f := setup(t)
	a := f.add(t, "A", slot8)
	f.add(t, "B", slot8)
	f.add(t, "C", slot8)
	m := f.model()

	m, _ = press(t, m, "J")
	if got := strings.Join(slotTitles(f.p, slot8), ","); got != "B,A,C" {
		t.Fatalf("after J: %s", got)
	}
	if sel, _ := m.selected(); sel.ID != a.ID {
		t.Errorf("cursor should follow the moved task, on %q", sel.Title)
	}

	m, _ = press(t, m, "J")
	if got := strings.Join(slotTitles(f.p, slot8), ","); got != "B,C,A" {
		t.Fatalf("after J J: %s", got)
	}
	// Already last.
	m, cmd := press(t, m, "J")
	if cmd != nil {
		t.Error("moving past the end should be a no-op")
	}

	m, _ = press(t, m, "K")
	if got := strings.Join(slotTitles(f.p, slot8), ","); got != "B,A,C" {
		t.Fatalf("after K: %s", got)
	}
	if m.cursor.Index != 1 {
		t.Errorf("cursor index = %d, want 1", m.cursor.Index)
	}
	f.p.Wait()
}

func TestMoveAcrossHoursAndDays(t *testing.T) {
	f := setup(t)
	a := f.add(t, "A", slot8)
	f.add(t, "B", slot9)
	m := f.model()

	m, _ = press(t, m, "]")
	if got := slotTitles(f.p, slot9); strings.Join(got, ",") != "B,A" {
		t.Fatalf("9:00 = %v, want B,A", got)
	}
	if got := m.selectedSlot().Coord; got != slot9 {
		t.Errorf("cursor slot = %v, want %v", got, slot9)
	}

	m, _ = press(t, m, "[", "[")
	if got := slotTitles(f.p, slot7); len(got) != 1 || got[0] != "A" {
		t.Fatalf("7:00 = %v, want A", got)
	}

	m, _ = press(t, m, "L")
	if m.day != "2024-03-02" {
		t.Errorf("view should follow the task, day = %s", m.day)
	}
	moved, _ := f.p.Get(a.ID)
	if moved.Coord() != (task.Coord{Date: "2024-03-02", Hour: "7:00"}) {
		t.Errorf("moved to %v", moved.Coord())
	}

	m, _ = press(t, m, "i")
	if got := f.p.Slot(task.Coord{}); len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("inbox = %+v", got)
	}
	if sel, _ := m.selected(); sel.ID != a.ID {
		t.Errorf("cursor on %q, want A", sel.Title)
	}
	f.p.Wait()
}

func TestCompleteAndUndo(t *testing.T) {
	f := setup(t)
	f.add(t, "A", slot8)
	m := f.model()

	m, cmd := press(t, m, "x")
	if got := slotTitles(f.p, slot8); len(got) != 0 {
		t.Fatalf("completed task still shown: %v", got)
	}
	m = settle(t, m, cmd)
	if view := m.View(); !strings.Contains(view, "u to undo (5s)") {
		t.Errorf("view missing undo toast:\n%s", view)
	}

	m, cmd = press(t, m, "u")
	m = settle(t, m, cmd)
	if got := slotTitles(f.p, slot8); len(got) != 1 || got[0] != "A" {
		t.Fatalf("after undo: %v", got)
	}
	if !strings.Contains(m.statusMsg, `Restored "A"`) {
		t.Errorf("status = %q", m.statusMsg)
	}

	m, _ = press(t, m, "u")
	if m.statusMsg != "Nothing to undo" {
		t.Errorf("status = %q, want Nothing to undo", m.statusMsg)
	}
	f.p.Wait()
}

func TestUndoWindowCloses(t *testing.T) {
	f := setup(t)
	f.add(t, "A", slot8)
	m := f.model()

	m, cmd := press(t, m, "x")
	m = settle(t, m, cmd)
	f.clock.Advance(6 * time.Second)

	next, _ := m.Update(commands.TickMsg(f.clock.Now()))
	m = next.(Model)
	if strings.Contains(m.View(), "u to undo") {
		t.Error("toast should disappear when the window closes")
	}
	m, _ = press(t, m, "u")
	if m.statusMsg != "Nothing to undo" {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestRename(t *testing.T) {
	f := setup(t)
	a := f.add(t, "A", slot8)
	m := f.model()

	m, _ = press(t, m, "r")
	if m.mode != ModeRename || m.input.Value() != "A" {
		t.Fatalf("mode = %v, input = %q", m.mode, m.input.Value())
	}
	m, cmd := press(t, m, " v2", "enter")
	m = settle(t, m, cmd)

	got, _ := f.p.Get(a.ID)
	if got.Title != "A v2" {
		t.Errorf("title = %q, want A v2", got.Title)
	}
}

func TestSyncFailureIsShown(t *testing.T) {
	f := setup(t)
	a := f.add(t, "A", slot8)
	m := f.model()

	f.docs.FailNext("update", errors.New("offline"))
	m, cmd := press(t, m, "r", "!", "enter")
	m = settle(t, m, cmd)

	if !m.statusErr || !strings.Contains(m.statusMsg, "rename not saved") {
		t.Errorf("status = %q (err=%v)", m.statusMsg, m.statusErr)
	}
	if m.marks[a.ID] != store.StateFailed {
		t.Errorf("mark = %v, want failed", m.marks[a.ID])
	}
	// The local change is kept.
	if got, _ := f.p.Get(a.ID); got.Title != "A!" {
		t.Errorf("title = %q, want A!", got.Title)
	}
}

func TestInflightMark(t *testing.T) {
	f := setup(t)
	a := f.add(t, "A", slot8)
	m := f.model()

	release := f.docs.Hold()
	m, _ = press(t, m, "]")
	if m.marks[a.ID] != store.StateInflight {
		t.Errorf("mark = %v, want inflight", m.marks[a.ID])
	}
	release()
	f.p.Wait()
}

func TestCopy(t *testing.T) {
	f := setup(t)
	f.add(t, "Write docs", slot8)
	var copied string
	m := f.model(WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	m, cmd := press(t, m, "y")
	m = settle(t, m, cmd)
	if copied != "Write docs" {
		t.Errorf("copied %q", copied)
	}
	if !strings.Contains(m.statusMsg, "Copied") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestDayNavigation(t *testing.T) {
	f := setup(t)
	m := f.model()

	m, _ = press(t, m, "l")
	if m.day != "2024-03-02" {
		t.Fatalf("day = %s", m.day)
	}
	if !strings.Contains(m.View(), "Sat 2024-03-02 · tomorrow") {
		t.Errorf("view missing heading:\n%s", m.View())
	}
	if got := m.selectedSlot().Coord.Hour; got != "6:00" {
		t.Errorf("other days start at 6:00, cursor on %s", got)
	}

	m, _ = press(t, m, "h", "h", "t")
	if m.day != today || m.selectedSlot().Coord != slot8 {
		t.Errorf("t should return to now, got %s %v", m.day, m.selectedSlot().Coord)
	}
}

func TestCursorMovement(t *testing.T) {
	f := setup(t)
	f.add(t, "A", slot8)
	f.add(t, "B", slot8)
	m := f.model()

	m, _ = press(t, m, "j")
	if sel, _ := m.selected(); sel.Title != "B" {
		t.Errorf("j: on %q, want B", sel.Title)
	}
	m, _ = press(t, m, "j")
	if got := m.selectedSlot().Coord; got != slot9 {
		t.Errorf("j past the slot: on %v, want %v", got, slot9)
	}
	m, _ = press(t, m, "k")
	if sel, _ := m.selected(); sel.Title != "B" {
		t.Errorf("k: on %q, want B", sel.Title)
	}
}

func TestRefreshKeepsSelection(t *testing.T) {
	f := setup(t)
	f.add(t, "A", slot8)
	b := f.add(t, "B", slot8)
	m := f.model()
	m, _ = press(t, m, "j")

	// Another device puts a task ahead of B.
	z := task.Task{
		ID:    task.NewID(slot8, f.clock.Now().Add(-time.Hour)),
		Title: "Z",
		Date:  today,
		Hour:  "8:00",
	}
	if err := f.docs.PutTask(context.Background(), "ada", z); err != nil {
		t.Fatalf("PutTask failed: %v", err)
	}
	if got := slotTitles(f.p, slot8); strings.Join(got, ",") != "Z,A,B" {
		t.Fatalf("8:00 = %v, want Z,A,B", got)
	}

	next, _ := m.Update(commands.RefreshMsg{})
	m = next.(Model)
	if sel, _ := m.selected(); sel.ID != b.ID {
		t.Errorf("selection jumped to %q", sel.Title)
	}
}

func TestPendingMarks(t *testing.T) {
	pending := []store.Pending{
		{ID: "1", Mutation: task.UpdateMutation("a", task.Patch{}), State: store.StateFailed},
		{ID: "2", Mutation: task.UpdateMutation("a", task.Patch{}), State: store.StateInflight},
		{ID: "3", Mutation: task.DeleteMutation("b"), State: store.StateInflight},
		{ID: "4", Mutation: task.DeleteMutation("c"), State: store.StateCommitted},
	}
	marks := pendingMarks(pending)

	if marks["a"] != store.StateFailed {
		t.Errorf("a = %v, failures should stick", marks["a"])
	}
	if marks["b"] != store.StateInflight {
		t.Errorf("b = %v", marks["b"])
	}
	if _, ok := marks["c"]; ok {
		t.Error("committed mutations should not be marked")
	}
}

func TestDayHeading(t *testing.T) {
	tests := []struct {
		day  string
		want string
	}{
		{"2024-03-01", "Fri 2024-03-01 · today"},
		{"2024-03-02", "Sat 2024-03-02 · tomorrow"},
		{"2024-02-29", "Thu 2024-02-29 · yesterday"},
		{"2024-03-04", "Mon 2024-03-04"},
	}
	for _, tt := range tests {
		if got := dayHeading(tt.day, today); got != tt.want {
			t.Errorf("dayHeading(%s) = %q, want %q", tt.day, got, tt.want)
		}
	}
}
