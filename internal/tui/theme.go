package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// cellWidth is the outer width of one strip cell, border included.
const cellWidth = 16

// Theme holds accent-color-derived styles.
type Theme struct {
	accentStyle lipgloss.Style // header bar
	cellStyle   lipgloss.Style // one ability cell
	bar         progress.Model
}

// NewTheme creates a Theme from a hex accent color string (e.g. "#7D56F4").
// If accentColor is empty, the default accent color is used.
func NewTheme(accentColor string) Theme {
	color := defaultAccentColor
	if accentColor != "" {
		color = accentColor
	}
	c := lipgloss.Color(color)
	return Theme{
		accentStyle: lipgloss.NewStyle().
			Background(c).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true),
		cellStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c).
			Width(cellWidth - 2).
			Padding(0, 1),
		bar: progress.New(
			progress.WithSolidFill(color),
			progress.WithoutPercentage(),
			progress.WithWidth(cellWidth-4),
		),
	}
}

// AccentHeaderStyle returns the style for the header bar.
func (t Theme) AccentHeaderStyle() lipgloss.Style {
	return t.accentStyle
}

// CellStyle returns the bordered style of one strip cell.
func (t Theme) CellStyle() lipgloss.Style {
	return t.cellStyle
}

// Bar renders a progress bar filled to fraction.
func (t Theme) Bar(fraction float64) string {
	return t.bar.ViewAs(fraction)
}
