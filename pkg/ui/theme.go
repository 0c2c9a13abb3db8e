package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor

	// Plot glyph colours for overlays. Series markers take their colour
	// from the surface colour scale.
	Marked    lipgloss.AdaptiveColor
	Trace     lipgloss.AdaptiveColor
	Separator lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Header   lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Status   lipgloss.Style
	ErrorMsg lipgloss.Style
	Pane     lipgloss.Style
	Focused  lipgloss.Style
}

// DefaultTheme returns the dashboard theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Error:     lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},

		Marked:    lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF0000"},
		Trace:     lipgloss.AdaptiveColor{Light: "#007700", Dark: "#00FF00"},
		Separator: lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF0000"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})
	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)
	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Bold(true)
	t.Muted = r.NewStyle().Foreground(t.Secondary)
	t.Status = r.NewStyle().Foreground(t.Subtext).Italic(true)
	t.ErrorMsg = r.NewStyle().Foreground(t.Error).Bold(true)
	t.Pane = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border)
	t.Focused = t.Pane.BorderForeground(t.Primary)

	return t
}

// PaneStyle returns the border style for a pane.
func (t Theme) PaneStyle(focused bool) lipgloss.Style {
	if focused {
		return t.Focused
	}
	return t.Pane
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
