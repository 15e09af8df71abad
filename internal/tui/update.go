package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/hourly/internal/tui/commands"
)

// undoneMsg reports the outcome of an undo.
type undoneMsg struct {
	title    string
	restored bool
	err      error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-hourColWidth-12, 10)
		return m, nil

	case commands.RefreshMsg:
		id := ""
		if t, ok := m.selected(); ok {
			id = t.ID
		}
		m.refresh()
		if id != "" {
			m.focus(id)
		}
		return m, nil

	case commands.TickMsg:
		// Hours pass and undo windows close without store events.
		m.refresh()
		return m, commands.Tick(tickInterval)

	case commands.OpDoneMsg:
		m.refresh()
		if msg.Err == nil {
			return m, nil
		}
		m.log.Warnf("%s failed: %v", msg.Action, msg.Err)
		cmd := m.setError(fmt.Errorf("%s not saved: %w", msg.Action, msg.Err))
		return m, cmd

	case undoneMsg:
		m.refresh()
		switch {
		case msg.err != nil:
			cmd := m.setError(fmt.Errorf("undo failed: %w", msg.err))
			return m, cmd
		case !msg.restored:
			cmd := m.setStatus("Too late to undo")
			return m, cmd
		}
		cmd := m.setStatus(fmt.Sprintf("Restored %q", msg.title))
		return m, cmd

	case commands.CopiedMsg:
		if msg.Err != nil {
			cmd := m.setError(fmt.Errorf("clipboard: %w", msg.Err))
			return m, cmd
		}
		cmd := m.setStatus(fmt.Sprintf("Copied %q", msg.Text))
		return m, cmd

	case commands.StatusMsgCmd:
		cmd := m.setStatus(msg.Msg)
		return m, cmd

	case commands.ClearStatusMsg:
		if msg.Seq == m.statusSeq {
			m.statusMsg = ""
			m.statusErr = false
		}
		return m, nil
	}

	if m.mode != ModeNormal {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}
