package spellbook

import (
	"context"
	"log/slog"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/logging"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/overlay"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/tome"
)

// HandlerName is the dispatcher registration name for the spellbook.
const HandlerName = "spellbook"

// Metadata is the part of the ability metadata cache Ingest needs.
// *tome.Cache satisfies it.
type Metadata interface {
	Lookup(id string) (tome.Action, bool)
	Ensure(ctx context.Context, id string) bool
}

// Ingest turns overlay events into Book commands, ignoring everything not
// about the tracked player.
type Ingest struct {
	book   *Book
	meta   Metadata
	logger *slog.Logger
}

// NewIngest creates an Ingest for book.
func NewIngest(book *Book, meta Metadata, logger *slog.Logger) *Ingest {
	return &Ingest{
		book:   book,
		meta:   meta,
		logger: logging.NewComponentLogger(logger, "spellbook"),
	}
}

// Register subscribes the ingest handlers on d. ctx bounds metadata fetches
// started by ability events.
func (in *Ingest) Register(ctx context.Context, d *overlay.Dispatcher) {
	d.On(overlay.EventPrimaryPlayer, HandlerName, func(ev overlay.Event) {
		in.PrimaryPlayer(ev.CharID, ev.CharName)
	})
	d.On(overlay.EventPartyChanged, HandlerName, func(ev overlay.Event) {
		in.PartyChanged(ev.Party)
	})
	d.On(overlay.EventLogLine, HandlerName, func(ev overlay.Event) {
		in.LogLine(ctx, ev.Line)
	})
}

// PrimaryPlayer records the tracked player.
func (in *Ingest) PrimaryPlayer(charID, charName string) {
	in.logger.Info("primary player changed", slog.String("char_id", charID), slog.String("char_name", charName))
	in.book.SetYou(charName)
}

// PartyChanged rebuilds the roster.
func (in *Ingest) PartyChanged(members []overlay.Member) {
	in.book.SetParty(members)
}

// LogLine routes a log line by opcode and reports whether it changed state.
func (in *Ingest) LogLine(ctx context.Context, line overlay.Fields) bool {
	op, ok := line.Opcode()
	if !ok {
		return false
	}
	switch op {
	case overlay.OpAddCombatant:
		return in.ClassChange(line)
	case overlay.OpAbility, overlay.OpAbilityAOE:
		return in.AbilityUse(ctx, line)
	}
	return false
}

// AbilityUse starts or refreshes the cooldown of an ability the tracked
// player used. Unknown abilities get a background metadata fetch and start
// with placeholder metadata.
func (in *Ingest) AbilityUse(ctx context.Context, line overlay.Fields) bool {
	if !in.book.IsYou(line.Source()) {
		return false
	}
	id, ok := line.AbilityID()
	if !ok || id == "" {
		return false
	}

	meta, known := in.meta.Lookup(id)
	if !known && in.meta.Ensure(ctx, id) {
		in.logger.Debug("resolving ability", slog.String(logging.FieldAbility, id))
	}
	in.book.Tracker().StartOrRefresh(id, meta, known)
	return true
}

// ClassChange clears every resting ability when the tracked player's
// combatant is re-added, which happens on a class or job change.
func (in *Ingest) ClassChange(line overlay.Fields) bool {
	if !in.book.IsYou(line.Source()) {
		return false
	}
	in.book.Tracker().ClearAll()
	return true
}
