package spellbook

import (
	"maps"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/overlay"
)

// Member is a party roster entry.
type Member struct {
	ID  string `json:"id"`
	Job int    `json:"job"`
}

// Roster maps member name to member.
type Roster map[string]Member

// State is the persisted form of a Book.
type State struct {
	You     string           `json:"you"`
	Party   Roster           `json:"party"`
	Resting []TrackedAbility `json:"resting"`
}

// Book holds the primary player identity, the party roster and the resting
// set. Only the event loop mutates it.
type Book struct {
	you     string
	party   Roster
	tracker *Tracker
	rev     uint64
}

// NewBook creates a Book around tracker.
func NewBook(tracker *Tracker) *Book {
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Book{party: Roster{}, tracker: tracker}
}

// Tracker returns the resting set.
func (b *Book) Tracker() *Tracker {
	return b.tracker
}

// You returns the tracked player name; empty until the first identity event.
func (b *Book) You() string {
	return b.you
}

// SetYou replaces the tracked player name.
func (b *Book) SetYou(name string) {
	b.rev++
	b.you = name
}

// IsYou reports whether name is the tracked player. An absent or empty name
// never matches, nor does anything before the identity is known.
func (b *Book) IsYou(name string, present bool) bool {
	return present && name != "" && b.you != "" && name == b.you
}

// SetParty rebuilds the roster from members, discarding the previous one.
// Later duplicates of a name win.
func (b *Book) SetParty(members []overlay.Member) {
	b.rev++
	roster := make(Roster, len(members))
	for _, m := range members {
		roster[m.Name] = Member{ID: m.ID, Job: m.Job}
	}
	b.party = roster
}

// Party returns a copy of the roster.
func (b *Book) Party() Roster {
	return maps.Clone(b.party)
}

// Rev increases on every command applied to the book or its tracker.
func (b *Book) Rev() uint64 {
	return b.rev + b.tracker.Rev()
}

// Snapshot returns the persisted form of the book.
func (b *Book) Snapshot() State {
	return State{
		You:     b.you,
		Party:   b.Party(),
		Resting: b.tracker.Entries(),
	}
}

// Restore replaces the book's contents with s.
func (b *Book) Restore(s State) {
	b.rev++
	b.you = s.You
	b.party = maps.Clone(s.Party)
	if b.party == nil {
		b.party = Roster{}
	}
	b.tracker.Restore(s.Resting)
}
