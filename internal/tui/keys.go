package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/hourly/internal/dateutil"
	"github.com/javiermolinar/hourly/internal/reorder"
	"github.com/javiermolinar/hourly/internal/task"
	"github.com/javiermolinar/hourly/internal/tui/commands"
)

// handleKeyMsg handles keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.mode {
	case ModeAdd, ModeRename:
		return m.handleInputKeys(msg)
	default:
		return m.handleNormalKeys(msg)
	}
}

// handleNormalKeys handles keys in normal mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	// Navigation
	case "j", "down":
		m.cursorDown()
	case "k", "up":
		m.cursorUp()
	case "h", "left":
		m.shiftDay(-1)
	case "l", "right":
		m.shiftDay(1)
	case "t":
		m.setDay(dateutil.Day(m.now()))

	// Editing
	case "a":
		return m.startInput(ModeAdd, "")
	case "r":
		if t, ok := m.selected(); ok {
			m.editing = t.ID
			return m.startInput(ModeRename, t.Title)
		}
	case "x":
		return m.complete()
	case "u":
		cmd := m.undoLatest()
		return m, cmd

	// Moving
	case "K", "shift+up":
		return m.moveWithinSlot(-1)
	case "J", "shift+down":
		return m.moveWithinSlot(1)
	case "[":
		return m.moveHour(-1)
	case "]":
		return m.moveHour(1)
	case "H":
		return m.moveDay(-1)
	case "L":
		return m.moveDay(1)
	case "i":
		return m.moveTo(task.Coord{})

	case "y":
		if t, ok := m.selected(); ok {
			return m, commands.Copy(t.Title, m.copyText)
		}
	}
	return m, nil
}

func (m *Model) cursorDown() {
	if m.cursor.Index+1 < len(m.selectedSlot().Tasks) {
		m.cursor.Index++
		return
	}
	if m.cursor.Row+1 < len(m.slots) {
		m.cursor = Position{Row: m.cursor.Row + 1}
	}
}

func (m *Model) cursorUp() {
	if m.cursor.Index > 0 {
		m.cursor.Index--
		return
	}
	if m.cursor.Row > 0 {
		m.cursor.Row--
		m.cursor.Index = max(len(m.slots[m.cursor.Row].Tasks)-1, 0)
	}
}

func (m Model) startInput(mode Mode, value string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.SetValue(value)
	m.input.CursorEnd()
	if mode == ModeAdd {
		m.input.Placeholder = "New task for " + slotLabel(m.selectedSlot().Coord)
	} else {
		m.input.Placeholder = "Title"
	}
	cmd := m.input.Focus()
	return m, cmd
}

// handleInputKeys handles keys while the title input is open.
func (m Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.stopInput()
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.input.Value())
		mode, id := m.mode, m.editing
		m.stopInput()
		if title == "" {
			return m, nil
		}
		if mode == ModeAdd {
			return m.add(title)
		}
		return m.rename(id, title)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) stopInput() {
	m.mode = ModeNormal
	m.editing = ""
	m.input.Blur()
	m.input.Reset()
}

func (m Model) add(title string) (tea.Model, tea.Cmd) {
	t, op, err := m.session.Add(m.ctx, title, m.selectedSlot().Coord)
	if err != nil {
		cmd := m.setError(err)
		return m, cmd
	}
	m.refresh()
	m.focus(t.ID)
	return m, commands.Await(m.ctx, op, "add")
}

func (m Model) rename(id, title string) (tea.Model, tea.Cmd) {
	op, err := m.session.Rename(m.ctx, id, title)
	if err != nil {
		cmd := m.setError(err)
		return m, cmd
	}
	m.refresh()
	return m, commands.Await(m.ctx, op, "rename")
}

func (m Model) complete() (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	_, op, err := m.session.Complete(m.ctx, t.ID)
	if err != nil {
		cmd := m.setError(err)
		return m, cmd
	}
	m.refresh()
	return m, commands.Await(m.ctx, op, "complete")
}

func (m *Model) undoLatest() tea.Cmd {
	toks := m.session.Undoable()
	if len(toks) == 0 {
		return m.setStatus("Nothing to undo")
	}
	title := toks[len(toks)-1].Task.Title
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		restored, err := s.UndoLatest(ctx)
		return undoneMsg{title: title, restored: restored, err: err}
	}
}

// moveWithinSlot swaps the selected task with its neighbour in the slot.
func (m Model) moveWithinSlot(delta int) (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	tasks := m.selectedSlot().Tasks
	j := m.cursor.Index + delta
	if j < 0 || j >= len(tasks) {
		return m, nil
	}
	return m.drop(reorder.Drop{TaskID: t.ID, Target: reorder.OnTask(tasks[j].ID)})
}

// moveHour moves the selected task to the end of the adjacent hour.
func (m Model) moveHour(delta int) (tea.Model, tea.Cmd) {
	c := m.selectedSlot().Coord
	if c.IsZero() {
		return m, nil
	}
	h := c.Hour.Clock() + delta
	if h < task.FirstHour || h >= task.FirstHour+task.HoursPerDay {
		return m, nil
	}
	return m.moveTo(task.Coord{Date: c.Date, Hour: task.HourOf(h)})
}

// moveDay moves the selected task to the same hour of the adjacent day
// and follows it there.
func (m Model) moveDay(delta int) (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	c := m.selectedSlot().Coord
	if c.IsZero() {
		return m, nil
	}
	day, err := dateutil.AddDays(c.Date, delta)
	if err != nil {
		cmd := m.setError(err)
		return m, cmd
	}
	op, err := m.session.Move(m.ctx, reorder.Drop{
		TaskID: t.ID,
		Target: reorder.OnSlot(task.Coord{Date: day, Hour: c.Hour}),
	})
	if err != nil {
		cmd := m.setError(err)
		return m, cmd
	}
	m.day = day
	m.refresh()
	m.focus(t.ID)
	return m, commands.Await(m.ctx, op, "move")
}

func (m Model) moveTo(c task.Coord) (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	return m.drop(reorder.Drop{TaskID: t.ID, Target: reorder.OnSlot(c)})
}

func (m Model) drop(d reorder.Drop) (tea.Model, tea.Cmd) {
	op, err := m.session.Move(m.ctx, d)
	if err != nil {
		cmd := m.setError(err)
		return m, cmd
	}
	m.refresh()
	m.focus(d.TaskID)
	return m, commands.Await(m.ctx, op, "move")
}

// slotLabel names a slot in prompts.
func slotLabel(c task.Coord) string {
	if c.IsZero() {
		return "the inbox"
	}
	return fmt.Sprintf("%s %s", c.Date, c.Hour)
}
