package tui

import (
	"time"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/loop"
)

// frameMsg wraps a loop.Frame as a bubbletea message.
type frameMsg loop.Frame

// sourceDoneMsg signals the frame channel has closed.
type sourceDoneMsg struct{}

// revealMsg advances the show/hide animation by one step.
type revealMsg time.Time
