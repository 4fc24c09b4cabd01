// Package bestiary records the battle NPCs seen in combatant-added log lines.
package bestiary

import (
	"maps"
	"time"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/overlay"
)

// HandlerName is the dispatcher registration name for the bestiary.
const HandlerName = "bestiary"

// Entry is one recorded battle NPC.
type Entry struct {
	ID     string    `json:"id"`
	BNpcID string    `json:"bnpc_id"`
	SeenAt time.Time `json:"seen_at"`
}

// Bestiary maps combatant name to the last sighting. Only the event loop
// mutates it.
type Bestiary struct {
	entries map[string]Entry
	rev     uint64
	now     func() time.Time
}

// New creates an empty Bestiary. A nil clock uses time.Now.
func New(now func() time.Time) *Bestiary {
	if now == nil {
		now = time.Now
	}
	return &Bestiary{entries: make(map[string]Entry), now: now}
}

// Register subscribes the bestiary to log lines on d.
func (b *Bestiary) Register(d *overlay.Dispatcher) {
	d.On(overlay.EventLogLine, HandlerName, func(ev overlay.Event) {
		b.Observe(ev.Line)
	})
}

// Observe records the combatant of an add-combatant line when it is a
// battle NPC, and reports whether it did.
func (b *Bestiary) Observe(line overlay.Fields) bool {
	if op, ok := line.Opcode(); !ok || op != overlay.OpAddCombatant {
		return false
	}
	name, ok := line.Source()
	if !ok || name == "" {
		return false
	}
	bnpc, ok := line.BNpcID()
	if !ok || bnpc == "" || bnpc == "0" {
		return false
	}
	id, _ := line.CombatantID()

	b.rev++
	b.entries[name] = Entry{ID: id, BNpcID: bnpc, SeenAt: b.now()}
	return true
}

// Get returns the entry recorded for name.
func (b *Bestiary) Get(name string) (Entry, bool) {
	e, ok := b.entries[name]
	return e, ok
}

// Len returns the number of recorded names.
func (b *Bestiary) Len() int { return len(b.entries) }

// Rev increases on every recorded sighting or restore.
func (b *Bestiary) Rev() uint64 { return b.rev }

// Snapshot returns a copy of the entries.
func (b *Bestiary) Snapshot() map[string]Entry {
	return maps.Clone(b.entries)
}

// Restore replaces the entries.
func (b *Bestiary) Restore(entries map[string]Entry) {
	b.rev++
	b.entries = maps.Clone(entries)
	if b.entries == nil {
		b.entries = make(map[string]Entry)
	}
}
