package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/javiermolinar/hourly/internal/tui/theme"
)

// Styles holds all lipgloss styles for the TUI, derived from a theme.
type Styles struct {
	TitleStyle     lipgloss.Style
	DayHeaderStyle lipgloss.Style
	UserStyle      lipgloss.Style

	// Hour column, by phase
	HourStyle        lipgloss.Style
	HourCurrentStyle lipgloss.Style
	HourPastStyle    lipgloss.Style

	TaskStyle         lipgloss.Style
	TaskPastStyle     lipgloss.Style
	TaskSelectedStyle lipgloss.Style
	EmptyCellStyle    lipgloss.Style
	CursorStyle       lipgloss.Style

	// Sync markers
	PendingStyle lipgloss.Style
	FailedStyle  lipgloss.Style

	StatusStyle lipgloss.Style
	ErrorStyle  lipgloss.Style
	ToastStyle  lipgloss.Style
	HelpStyle   lipgloss.Style
	PromptStyle lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t *theme.Theme) *Styles {
	if t == nil {
		t, _ = theme.Load(theme.DefaultName)
	}
	fg := theme.Color(t.Fg)
	muted := theme.Color(t.FgMuted)
	accent := theme.Color(t.Accent)
	current := theme.Color(t.Current)
	warning := theme.Color(t.Warning)
	selection := theme.Color(t.BgSelection)

	return &Styles{
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Color(t.TextOn(t.Accent))).
			Background(accent).
			Padding(0, 1),
		DayHeaderStyle: lipgloss.NewStyle().Bold(true).Foreground(fg),
		UserStyle:      lipgloss.NewStyle().Foreground(muted),

		HourStyle:        lipgloss.NewStyle().Foreground(fg).Width(hourColWidth).Align(lipgloss.Right),
		HourCurrentStyle: lipgloss.NewStyle().Foreground(current).Bold(true).Width(hourColWidth).Align(lipgloss.Right),
		HourPastStyle:    lipgloss.NewStyle().Foreground(muted).Width(hourColWidth).Align(lipgloss.Right),

		TaskStyle:     lipgloss.NewStyle().Foreground(fg),
		TaskPastStyle: lipgloss.NewStyle().Foreground(muted),
		TaskSelectedStyle: lipgloss.NewStyle().
			Foreground(theme.Color(t.TextOn(t.BgSelection))).
			Background(selection),
		EmptyCellStyle: lipgloss.NewStyle().Foreground(muted),
		CursorStyle:    lipgloss.NewStyle().Foreground(accent).Bold(true),

		PendingStyle: lipgloss.NewStyle().Foreground(theme.Color(t.Pending)),
		FailedStyle:  lipgloss.NewStyle().Foreground(warning).Bold(true),

		StatusStyle: lipgloss.NewStyle().Foreground(muted),
		ErrorStyle:  lipgloss.NewStyle().Foreground(warning),
		ToastStyle: lipgloss.NewStyle().
			Foreground(theme.Color(t.TextOn(t.Current))).
			Background(current).
			Padding(0, 1),
		HelpStyle:   lipgloss.NewStyle().Foreground(muted),
		PromptStyle: lipgloss.NewStyle().Foreground(accent),
	}
}
