package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/loop"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/spellbook"
)

// Reveal animation timing: the strip slides in or out over revealDuration.
const (
	revealDuration = 375 * time.Millisecond
	revealSteps    = 5
)

// Model is the bubbletea model for the cooldown strip.
type Model struct {
	frames <-chan loop.Frame

	frame loop.Frame
	// shown is the last non-empty strip, kept while the hide animation runs.
	shown     []spellbook.Resting
	reveal    int
	animating bool

	theme  Theme
	width  int
	height int
	done   bool
}

// New creates a Model that renders frames from the given channel.
func New(frames <-chan loop.Frame, accentColor string) Model {
	return Model{
		frames: frames,
		theme:  NewTheme(accentColor),
		width:  80,
		height: 24,
	}
}

// Init returns the initial command: start listening for frames.
func (m Model) Init() tea.Cmd {
	return waitForFrame(m.frames)
}

// waitForFrame returns a command that blocks on the frame channel.
func waitForFrame(ch <-chan loop.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return sourceDoneMsg{}
		}
		return frameMsg(f)
	}
}

// revealCmd schedules the next animation step.
func revealCmd() tea.Cmd {
	return tea.Tick(revealDuration/revealSteps, func(t time.Time) tea.Msg {
		return revealMsg(t)
	})
}

// revealTarget is the step the animation is heading for.
func (m Model) revealTarget() int {
	if m.frame.Visible {
		return revealSteps
	}
	return 0
}
