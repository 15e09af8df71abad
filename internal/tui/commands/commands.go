// Package commands provides TUI command constructors and message types.
package commands

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/hourly/internal/remote"
)

// RefreshMsg is sent when the task store published a new view.
type RefreshMsg struct{}

// OpDoneMsg is sent when a mutation settled against the document store.
type OpDoneMsg struct {
	Action string
	Err    error
}

// TickMsg drives the undo countdown.
type TickMsg time.Time

// StatusMsgCmd is sent for temporary status messages.
type StatusMsgCmd struct {
	Msg string
}

// ClearStatusMsg is sent to clear the status message set at Seq.
type ClearStatusMsg struct {
	Seq int
}

// CopiedMsg is sent after a clipboard write.
type CopiedMsg struct {
	Text string
	Err  error
}

// Await waits for op in the background. A nil op yields no command.
func Await(ctx context.Context, op *remote.Op, action string) tea.Cmd {
	if op == nil {
		return nil
	}
	return func() tea.Msg {
		return OpDoneMsg{Action: action, Err: op.Wait(ctx)}
	}
}

// Tick schedules the next countdown tick.
func Tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// ClearStatusAfter clears the status message set at seq after d.
func ClearStatusAfter(d time.Duration, seq int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}

// Copy writes text with the given clipboard writer.
func Copy(text string, write func(string) error) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Text: text, Err: write(text)}
	}
}
