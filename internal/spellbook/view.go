package spellbook

import (
	"slices"
	"time"
)

// Resting is one cell of the cooldown strip.
type Resting struct {
	ID        string
	Name      string
	Icon      string
	Resolved  bool
	Remaining time.Duration
	Duration  time.Duration
}

// DisplayName returns the ability name, or a placeholder while its metadata
// is unresolved.
func (r Resting) DisplayName() string {
	if r.Name == "" {
		return "#" + r.ID
	}
	return r.Name
}

// Fraction returns remaining/duration in [0, 1].
func (r Resting) Fraction() float64 {
	if r.Duration <= 0 {
		return 0
	}
	f := float64(r.Remaining) / float64(r.Duration)
	return min(max(f, 0), 1)
}

// Compute derives the strip from a resting set: entries with more than
// threshold remaining, ascending by remaining. Ties keep the order of
// entries, which callers pass in first-insertion order.
func Compute(entries []TrackedAbility, now time.Time, threshold time.Duration) []Resting {
	out := make([]Resting, 0, len(entries))
	for _, e := range entries {
		left := e.Remaining(now)
		if left <= threshold {
			continue
		}
		out = append(out, Resting{
			ID:        e.ID,
			Name:      e.Name,
			Icon:      e.Icon,
			Resolved:  e.Resolved,
			Remaining: left,
			Duration:  e.Duration,
		})
	}
	slices.SortStableFunc(out, func(a, b Resting) int {
		switch {
		case a.Remaining < b.Remaining:
			return -1
		case a.Remaining > b.Remaining:
			return 1
		}
		return 0
	})
	return out
}
