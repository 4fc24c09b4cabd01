package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/loop"
)

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case frameMsg:
		return m.handleFrame(loop.Frame(msg))

	case revealMsg:
		return m.handleReveal()

	case sourceDoneMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleFrame(f loop.Frame) (tea.Model, tea.Cmd) {
	m.frame = f
	if f.Visible {
		m.shown = f.Abilities
	}

	cmds := []tea.Cmd{waitForFrame(m.frames)}
	if !m.animating && m.reveal != m.revealTarget() {
		m.animating = true
		cmds = append(cmds, revealCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleReveal() (tea.Model, tea.Cmd) {
	target := m.revealTarget()
	switch {
	case m.reveal < target:
		m.reveal++
	case m.reveal > target:
		m.reveal--
	}
	if m.reveal == target {
		m.animating = false
		if target == 0 {
			m.shown = nil
		}
		return m, nil
	}
	return m, revealCmd()
}
