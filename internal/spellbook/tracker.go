// Package spellbook tracks the abilities the primary player has recently
// used and derives the cooldown strip shown by the overlay.
//
// The Tracker owns the resting set: one entry per ability id, refreshed in
// place when the ability is used again. Remaining recast is always derived
// from the clock, so there are no per-entry timers. Ingest filters overlay
// events down to the ones about the primary player and turns them into
// tracker commands.
package spellbook

import (
	"slices"
	"time"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/tome"
)

// DefaultThreshold hides abilities whose remaining recast is at or below it.
const DefaultThreshold = 3 * time.Second

// DefaultFallbackRecast is the duration used while an ability's metadata is
// unresolved.
const DefaultFallbackRecast = 60 * time.Second

// TrackedAbility is one entry of the resting set.
type TrackedAbility struct {
	ID        string        `json:"id"`
	Name      string        `json:"name,omitempty"`
	Icon      string        `json:"icon,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Resolved  bool          `json:"resolved"`
	// Seq is the first-insertion order, kept across refreshes.
	Seq uint64 `json:"seq"`
}

// Remaining returns the recast left at now, clamped to [0, Duration].
func (a TrackedAbility) Remaining(now time.Time) time.Duration {
	elapsed := now.Sub(a.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	left := a.Duration - elapsed
	if left < 0 {
		return 0
	}
	return left
}

// Tracker is the resting set. It is not safe for concurrent use; the event
// loop owns it.
type Tracker struct {
	entries   map[string]*TrackedAbility
	nextSeq   uint64
	rev       uint64
	threshold time.Duration
	fallback  time.Duration
	now       func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithThreshold sets the display threshold.
func WithThreshold(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.threshold = d }
}

// WithFallbackRecast sets the duration used before metadata resolves.
func WithFallbackRecast(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.fallback = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates an empty resting set.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		entries:   make(map[string]*TrackedAbility),
		threshold: DefaultThreshold,
		fallback:  DefaultFallbackRecast,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Now returns the tracker clock's current time.
func (t *Tracker) Now() time.Time {
	return t.now()
}

// Threshold returns the display threshold.
func (t *Tracker) Threshold() time.Duration {
	return t.threshold
}

// StartOrRefresh starts the cooldown for id at the current time. An existing
// entry is refreshed in place: started_at resets and its position in the set
// is kept. When known is false the fallback duration and a placeholder are
// used until Resolve fills them in.
func (t *Tracker) StartOrRefresh(id string, meta tome.Action, known bool) {
	now := t.now()
	t.rev++

	entry, ok := t.entries[id]
	if !ok {
		entry = &TrackedAbility{ID: id, Seq: t.nextSeq}
		t.nextSeq++
		t.entries[id] = entry
	}
	entry.StartedAt = now

	switch {
	case known:
		entry.Name = meta.Name
		entry.Icon = meta.Icon
		entry.Duration = meta.Recast
		entry.Resolved = true
	case !entry.Resolved:
		entry.Duration = t.fallback
	}
}

// Resolve fills in metadata for an entry started before it was known. The
// entry's started_at and position are kept. It reports whether an
// unresolved entry was updated.
func (t *Tracker) Resolve(id string, meta tome.Action) bool {
	entry, ok := t.entries[id]
	if !ok || entry.Resolved {
		return false
	}
	t.rev++
	entry.Name = meta.Name
	entry.Icon = meta.Icon
	entry.Duration = meta.Recast
	entry.Resolved = true
	return true
}

// ClearAll empties the resting set.
func (t *Tracker) ClearAll() {
	t.rev++
	clear(t.entries)
}

// Prune removes entries whose recast has run out and returns how many were
// removed.
func (t *Tracker) Prune() int {
	now := t.now()
	removed := 0
	for id, entry := range t.entries {
		if entry.Remaining(now) == 0 {
			delete(t.entries, id)
			removed++
		}
	}
	if removed > 0 {
		t.rev++
	}
	return removed
}

// Get returns the entry for id.
func (t *Tracker) Get(id string) (TrackedAbility, bool) {
	entry, ok := t.entries[id]
	if !ok {
		return TrackedAbility{}, false
	}
	return *entry, true
}

// Len returns the number of resting entries, displayable or not.
func (t *Tracker) Len() int {
	return len(t.entries)
}

// Rev increases on every command applied to the set.
func (t *Tracker) Rev() uint64 {
	return t.rev
}

// Entries returns a copy of the resting set in first-insertion order.
func (t *Tracker) Entries() []TrackedAbility {
	out := make([]TrackedAbility, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, *entry)
	}
	slices.SortFunc(out, func(a, b TrackedAbility) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return out
}

// Restore replaces the resting set with entries, e.g. from persisted state.
func (t *Tracker) Restore(entries []TrackedAbility) {
	clear(t.entries)
	t.nextSeq = 0
	for _, e := range entries {
		entry := e
		t.entries[entry.ID] = &entry
		if entry.Seq >= t.nextSeq {
			t.nextSeq = entry.Seq + 1
		}
	}
	t.rev++
}

// Displayable returns the entries worth showing right now.
func (t *Tracker) Displayable() []Resting {
	return Compute(t.Entries(), t.now(), t.threshold)
}
