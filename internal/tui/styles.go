// Package tui renders the cooldown strip as a bubbletea + lipgloss program.
package tui

import "github.com/charmbracelet/lipgloss"

// defaultAccentColor is the default accent color (indigo).
const defaultAccentColor = "#7D56F4"

// Placeholder stands in for a name or zone the overlay has not reported yet.
const Placeholder = "—"

// OrPlaceholder returns s, or Placeholder when s is empty.
func OrPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

var (
	colorWhite  = lipgloss.Color("#FAFAFA")
	colorGray   = lipgloss.Color("#888888")
	colorGreen  = lipgloss.Color("#6BCB77")
	colorYellow = lipgloss.Color("#FFD93D")
	colorRed    = lipgloss.Color("#FF6B6B")
)

// Styles that do not depend on the accent color. Accent-dependent styles live
// on Theme.
var (
	footerStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	nameStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Bold(true)

	placeholderStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(colorGray)
)

// remainingStyle colors the remaining-seconds label by how soon the ability
// is ready.
func remainingStyle(seconds int) lipgloss.Style {
	switch {
	case seconds <= 10:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case seconds <= 30:
		return lipgloss.NewStyle().Foreground(colorYellow)
	default:
		return lipgloss.NewStyle().Foreground(colorRed)
	}
}
