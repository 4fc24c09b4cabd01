package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/spellbook"
)

// View renders the TUI: header bar, cooldown strip, footer.
func (m Model) View() string {
	return m.renderHeader() + "\n" + m.renderStrip() + "\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	parts := []string{
		"📖 Spellbook",
		fmt.Sprintf("you: %s", OrPlaceholder(m.frame.You)),
		fmt.Sprintf("zone: %s", OrPlaceholder(m.frame.Zone)),
		fmt.Sprintf("party: %d", m.frame.PartySize),
		fmt.Sprintf("resting: %d", m.frame.Resting),
	}
	return m.theme.AccentHeaderStyle().Width(m.width).Render(strings.Join(parts, "  │  "))
}

func (m Model) renderStrip() string {
	if m.reveal == 0 || len(m.shown) == 0 {
		return idleStyle.Render("nothing resting")
	}

	cells := make([]string, 0, len(m.shown))
	for _, r := range m.shown {
		cells = append(cells, m.renderCell(r))
	}
	strip := lipgloss.JoinHorizontal(lipgloss.Top, cells...)

	// Partially revealed strips are clipped from the right.
	width := lipgloss.Width(strip)
	if m.reveal < revealSteps {
		width = width * m.reveal / revealSteps
	}
	if m.width > 0 && width > m.width {
		width = m.width
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(strip)
}

func (m Model) renderCell(r spellbook.Resting) string {
	name := truncate(r.DisplayName(), cellWidth-4)
	if r.Resolved {
		name = nameStyle.Render(name)
	} else {
		name = placeholderStyle.Render(name)
	}

	secs := remainingSeconds(r)
	label := remainingStyle(secs).Render(fmt.Sprintf("%ds", secs))
	body := name + "\n" + label + "\n" + m.theme.Bar(r.Fraction())
	return m.theme.CellStyle().Render(body)
}

func (m Model) renderFooter() string {
	left := fmt.Sprintf("showing %d", len(m.frame.Abilities))
	if m.done {
		left = "overlay closed"
	}
	right := keys.helpText()

	gap := m.width - len(left) - len(right)
	if gap < 2 {
		gap = 2
	}
	return footerStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// remainingSeconds rounds up so a cell never reads 0s while still shown.
func remainingSeconds(r spellbook.Resting) int {
	return int(math.Ceil(r.Remaining.Seconds()))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
