// Package overlay connects to the OverlayPlugin websocket, decodes its event
// envelopes and dispatches them to registered handlers.
package overlay

import (
	"strconv"
	"strings"
	"time"
)

// EventType identifies the kind of overlay event. Values are the wire names.
type EventType string

const (
	EventPrimaryPlayer EventType = "ChangePrimaryPlayer"
	EventPartyChanged  EventType = "PartyChanged"
	EventLogLine       EventType = "LogLine"
	EventZoneChanged   EventType = "ChangeZone"
)

// SubscribedEvents lists the events requested in the subscribe call.
var SubscribedEvents = []EventType{
	EventPrimaryPlayer,
	EventPartyChanged,
	EventLogLine,
	EventZoneChanged,
}

// Event is a decoded overlay message.
type Event struct {
	Type      EventType
	Timestamp time.Time

	// ChangePrimaryPlayer fields
	CharID   string
	CharName string

	// PartyChanged fields
	Party []Member

	// LogLine fields
	Line    Fields
	RawLine string

	// ChangeZone fields
	ZoneID   int
	ZoneName string
}

// Member is one entry of a PartyChanged payload.
type Member struct {
	ID      string
	Name    string
	Job     int
	InParty bool
}

// Log line opcodes consulted by the overlay.
const (
	OpAddCombatant   = 3
	OpAbility        = 21
	OpAbilityAOE     = 22
	fieldOpcode      = 0
	fieldSourceName  = 3
	fieldAbilityID   = 4
	fieldBNpcID      = 10
	fieldCombatantID = 2
)

// Fields is the positional field array of a LogLine. Lookups past the end
// report absence instead of panicking.
type Fields []string

// At returns field i and whether it exists.
func (f Fields) At(i int) (string, bool) {
	if i < 0 || i >= len(f) {
		return "", false
	}
	return f[i], true
}

// Opcode parses field 0 as an integer opcode.
func (f Fields) Opcode() (int, bool) {
	raw, ok := f.At(fieldOpcode)
	if !ok {
		return 0, false
	}
	op, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return op, true
}

// Source returns the acting combatant name (field 3).
func (f Fields) Source() (string, bool) { return f.At(fieldSourceName) }

// AbilityID returns the ability id (field 4) of an ability line.
func (f Fields) AbilityID() (string, bool) { return f.At(fieldAbilityID) }

// CombatantID returns the combatant id (field 2) of an add-combatant line.
func (f Fields) CombatantID() (string, bool) { return f.At(fieldCombatantID) }

// BNpcID returns the battle NPC base id (field 10) of an add-combatant line.
func (f Fields) BNpcID() (string, bool) { return f.At(fieldBNpcID) }

// PrimaryPlayerEvent creates a ChangePrimaryPlayer event.
func PrimaryPlayerEvent(charID, charName string) Event {
	return Event{
		Type:      EventPrimaryPlayer,
		Timestamp: time.Now(),
		CharID:    charID,
		CharName:  charName,
	}
}

// PartyChangedEvent creates a PartyChanged event.
func PartyChangedEvent(party []Member) Event {
	return Event{
		Type:      EventPartyChanged,
		Timestamp: time.Now(),
		Party:     party,
	}
}

// LogLineEvent creates a LogLine event.
func LogLineEvent(line Fields, raw string) Event {
	return Event{
		Type:      EventLogLine,
		Timestamp: time.Now(),
		Line:      line,
		RawLine:   raw,
	}
}

// ZoneChangedEvent creates a ChangeZone event.
func ZoneChangedEvent(id int, name string) Event {
	return Event{
		Type:      EventZoneChanged,
		Timestamp: time.Now(),
		ZoneID:    id,
		ZoneName:  name,
	}
}
