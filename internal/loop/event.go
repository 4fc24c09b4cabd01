package loop

import (
	"time"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/spellbook"
)

// Frame is a render snapshot published by the loop after every event, metadata
// result and tick. When the Loop.Frames channel is full the frame is dropped;
// the next one supersedes it.
type Frame struct {
	At time.Time

	// Abilities is the displayable resting set, soonest ready first.
	Abilities []spellbook.Resting
	// Visible is true while Abilities is non-empty.
	Visible bool
	// Resting counts every tracked entry, including hidden ones.
	Resting int

	You       string
	Zone      string
	PartySize int
}
