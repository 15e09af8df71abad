package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/javiermolinar/hourly/internal/dateutil"
	"github.com/javiermolinar/hourly/internal/scheduler"
	"github.com/javiermolinar/hourly/internal/store"
	"github.com/javiermolinar/hourly/internal/task"
)

const (
	defaultWidth = 80
	footerLines  = 3
	helpText     = "a add · r rename · x done · u undo · K/J reorder · [/] hour · H/L day · i inbox · y copy · h/l browse · q quit"
)

// View renders the model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	lines := m.renderSlots()
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) contentWidth() int {
	if m.width > 0 {
		return m.width
	}
	return defaultWidth
}

func (m Model) renderHeader() string {
	title := m.styles.TitleStyle.Render("hourly")
	day := m.styles.DayHeaderStyle.Render(dayHeading(m.day, dateutil.Day(m.now())))
	return title + " " + day
}

// dayHeading labels the shown day relative to today.
func dayHeading(day, today string) string {
	t, err := dateutil.Parse(day)
	if err != nil {
		return day
	}
	label := t.Format("Mon 2006-01-02")
	if day == today {
		return label + " · today"
	}
	if next, err := dateutil.AddDays(today, 1); err == nil && next == day {
		return label + " · tomorrow"
	}
	if prev, err := dateutil.AddDays(today, -1); err == nil && prev == day {
		return label + " · yesterday"
	}
	return label
}

// renderSlots renders every slot and crops the result around the cursor
// when the terminal is too short.
func (m Model) renderSlots() []string {
	var lines []string
	cursorLine := 0
	width := m.contentWidth()
	titleWidth := max(width-hourColWidth-8, 10)
	now := m.now()

	for r, s := range m.slots {
		label := m.renderHourLabel(s.Coord, now)
		blank := strings.Repeat(" ", hourColWidth)
		past := !s.Coord.IsZero() && scheduler.PhaseOf(s.Coord, now) == scheduler.Past

		if len(s.Tasks) == 0 {
			selected := r == m.cursor.Row
			if selected {
				cursorLine = len(lines)
			}
			lines = append(lines, label+m.cursorMark(selected)+m.styles.EmptyCellStyle.Render("·"))
			continue
		}
		for i, t := range s.Tasks {
			selected := r == m.cursor.Row && i == m.cursor.Index
			if selected {
				cursorLine = len(lines)
			}
			prefix := blank
			if i == 0 {
				prefix = label
			}
			lines = append(lines, prefix+m.cursorMark(selected)+m.renderTask(t, titleWidth, selected, past))
		}
	}

	if m.height <= 0 {
		return lines
	}
	visible := max(m.height-footerLines-3, 1)
	if len(lines) <= visible {
		return lines
	}
	start := min(max(cursorLine-visible/2, 0), len(lines)-visible)
	return lines[start : start+visible]
}

func (m Model) renderHourLabel(c task.Coord, now time.Time) string {
	if c.IsZero() {
		return m.styles.HourStyle.Render("inbox")
	}
	switch scheduler.PhaseOf(c, now) {
	case scheduler.Current:
		return m.styles.HourCurrentStyle.Render(string(c.Hour))
	case scheduler.Past:
		return m.styles.HourPastStyle.Render(string(c.Hour))
	default:
		return m.styles.HourStyle.Render(string(c.Hour))
	}
}

func (m Model) cursorMark(selected bool) string {
	if selected {
		return m.styles.CursorStyle.Render(" › ")
	}
	return "   "
}

func (m Model) renderTask(t task.Task, width int, selected, past bool) string {
	text := "○ " + ansi.Truncate(t.Title, width, "…")
	style := m.styles.TaskStyle
	switch {
	case selected:
		style = m.styles.TaskSelectedStyle
	case past:
		style = m.styles.TaskPastStyle
	}
	out := style.Render(text)

	switch m.marks[t.ID] {
	case store.StateInflight:
		out += " " + m.styles.PendingStyle.Render("…")
	case store.StateFailed:
		out += " " + m.styles.FailedStyle.Render("!")
	}
	return out
}

func (m Model) renderFooter() string {
	width := m.contentWidth()
	var lines []string

	switch {
	case m.mode != ModeNormal:
		lines = append(lines, m.input.View())
	case m.statusMsg != "":
		style := m.styles.StatusStyle
		if m.statusErr {
			style = m.styles.ErrorStyle
		}
		lines = append(lines, style.Render(ansi.Truncate(m.statusMsg, width, "…")))
	default:
		lines = append(lines, "")
	}

	lines = append(lines, m.renderToast())
	lines = append(lines, m.styles.HelpStyle.Render(ansi.Truncate(helpText, width, "…")))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderToast shows the latest completed task that can still be undone.
func (m Model) renderToast() string {
	toks := m.session.Undoable()
	if len(toks) == 0 {
		return ""
	}
	tok := toks[len(toks)-1]
	secs := int(math.Ceil(tok.Remaining().Seconds()))
	if secs <= 0 {
		return ""
	}
	title := ansi.Truncate(tok.Task.Title, 30, "…")
	msg := fmt.Sprintf("Done: %s · u to undo (%ds)", title, secs)
	if n := len(toks); n > 1 {
		msg += fmt.Sprintf(" · %d more", n-1)
	}
	return m.styles.ToastStyle.Render(msg)
}
