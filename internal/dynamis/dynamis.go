// Package dynamis holds the dynamic world state: the zone the player is in.
package dynamis

import (
	"time"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/overlay"
)

// HandlerName is the dispatcher registration name for dynamis.
const HandlerName = "dynamis"

// State is the current zone.
type State struct {
	ZoneID    int       `json:"zone_id"`
	ZoneName  string    `json:"zone_name"`
	EnteredAt time.Time `json:"entered_at"`
}

// World tracks zone changes. Only the event loop mutates it.
type World struct {
	state State
	rev   uint64
	now   func() time.Time
}

// New creates an empty World. A nil clock uses time.Now.
func New(now func() time.Time) *World {
	if now == nil {
		now = time.Now
	}
	return &World{now: now}
}

// Register subscribes to zone changes on d.
func (w *World) Register(d *overlay.Dispatcher) {
	d.On(overlay.EventZoneChanged, HandlerName, func(ev overlay.Event) {
		w.Enter(ev.ZoneID, ev.ZoneName)
	})
}

// Enter records a zone change.
func (w *World) Enter(id int, name string) {
	w.rev++
	w.state = State{ZoneID: id, ZoneName: name, EnteredAt: w.now()}
}

// State returns the current zone.
func (w *World) State() State { return w.state }

// Rev increases on every zone change or restore.
func (w *World) Rev() uint64 { return w.rev }

// Restore replaces the state.
func (w *World) Restore(s State) {
	w.rev++
	w.state = s
}
