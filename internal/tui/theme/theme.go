// Package theme provides color themes for the TUI.
package theme

import (
	"embed"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
)

// DefaultName is the theme used when none is configured.
const DefaultName = "mocha"

//go:embed embedded/*.toml
var embeddedThemes embed.FS

// Theme holds all colors for a TUI theme.
type Theme struct {
	Name        string `toml:"name"`
	Bg          string `toml:"bg"`
	BgSelection string `toml:"bg_selection"` // cursor row
	Fg          string `toml:"fg"`
	FgMuted     string `toml:"fg_muted"` // past hours, hints
	Accent      string `toml:"accent"`   // title, borders
	Current     string `toml:"current"`  // the hour in progress
	Warning     string `toml:"warning"`  // failed sync, errors
	Pending     string `toml:"pending"`  // mutations awaiting the store
}

// Color returns a lipgloss.Color for the given hex string.
func Color(hex string) lipgloss.Color {
	return lipgloss.Color(hex)
}

// Load loads a theme by name from embedded files.
// Falls back to mocha if the theme is not found.
func Load(name string) (*Theme, error) {
	if name == "" {
		name = DefaultName
	}
	name = strings.ToLower(name)

	data, err := embeddedThemes.ReadFile("embedded/" + name + ".toml")
	if err != nil {
		if name != DefaultName {
			return Load(DefaultName)
		}
		return nil, fmt.Errorf("loading theme %q: %w", name, err)
	}

	var t Theme
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing theme %q: %w", name, err)
	}
	t.applyDefaults()

	return &t, nil
}

func (t *Theme) applyDefaults() {
	if t.BgSelection == "" {
		t.BgSelection = t.Accent
	}
	if t.FgMuted == "" {
		t.FgMuted = t.Fg
	}
	if t.Pending == "" {
		t.Pending = t.FgMuted
	}
	if t.Warning == "" {
		t.Warning = t.Accent
	}
}

// IsLight reports whether the theme has a light background.
func (t *Theme) IsLight() bool {
	return relativeLuminance(t.Bg) > 0.55
}

// TextOn picks the foreground that reads best on the given background.
func (t *Theme) TextOn(bg string) string {
	if relativeLuminance(bg) > 0.55 {
		if t.IsLight() {
			return t.Fg
		}
		return t.Bg
	}
	if t.IsLight() {
		return t.Bg
	}
	return t.Fg
}

// Available returns a list of available theme names.
func Available() []string {
	return []string{"mocha", "latte"}
}

// IsAvailable reports whether a theme name is available.
func IsAvailable(name string) bool {
	return slices.Contains(Available(), strings.ToLower(name))
}

func relativeLuminance(hex string) float64 {
	if len(hex) != 7 || hex[0] != '#' {
		return 0
	}
	r := channel(hex[1:3])
	g := channel(hex[3:5])
	b := channel(hex[5:7])
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// channel parses a 2-character hex string into [0,1].
func channel(s string) float64 {
	var v int
	for i := 0; i < len(s); i++ {
		v *= 16
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			v += int(c - '0')
		case c >= 'a' && c <= 'f':
			v += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			v += int(c - 'A' + 10)
		}
	}
	return float64(v) / 255
}
