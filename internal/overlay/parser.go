package overlay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// envelope is the top-level JSON object of every OverlayPlugin message.
type envelope struct {
	Type EventType `json:"type"`

	// Receive time, present only in captures written by Encode.
	TS *time.Time `json:"ts,omitempty"`

	// ChangePrimaryPlayer
	CharID   flexString `json:"charID"`
	CharName string     `json:"charName"`

	// PartyChanged
	Party []partyMember `json:"party"`

	// LogLine
	Line    []flexString `json:"line"`
	RawLine string       `json:"rawLine"`

	// ChangeZone
	ZoneID   int    `json:"zoneID"`
	ZoneName string `json:"zoneName"`
}

type partyMember struct {
	ID      flexString `json:"id"`
	Name    string     `json:"name"`
	Job     int        `json:"job"`
	InParty bool       `json:"inParty"`
}

// flexString accepts a JSON string or number. OverlayPlugin sends ids as
// either depending on the event and plugin version.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("overlay: expected string or number, got %s", data)
	}
	*s = flexString(num.String())
	return nil
}

// subscribeCall is the request sent after connecting.
type subscribeCall struct {
	Call   string      `json:"call"`
	Events []EventType `json:"events"`
}

// Decode parses a single overlay message. ok is false for well-formed
// messages of a type the overlay does not consume. Events carry the "ts"
// field as their timestamp when present, and the decode time otherwise.
func Decode(data []byte) (ev Event, ok bool, err error) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{}, false, fmt.Errorf("overlay: decode: %w", err)
	}

	ev, ok = decodeEnvelope(msg)
	if ok && msg.TS != nil {
		ev.Timestamp = *msg.TS
	}
	return ev, ok, nil
}

func decodeEnvelope(msg envelope) (Event, bool) {
	switch msg.Type {
	case EventPrimaryPlayer:
		return PrimaryPlayerEvent(string(msg.CharID), msg.CharName), true
	case EventPartyChanged:
		party := make([]Member, 0, len(msg.Party))
		for _, m := range msg.Party {
			party = append(party, Member{
				ID:      string(m.ID),
				Name:    m.Name,
				Job:     m.Job,
				InParty: m.InParty,
			})
		}
		return PartyChangedEvent(party), true
	case EventLogLine:
		line := make(Fields, len(msg.Line))
		for i, f := range msg.Line {
			line[i] = string(f)
		}
		return LogLineEvent(line, msg.RawLine), true
	case EventZoneChanged:
		return ZoneChangedEvent(msg.ZoneID, msg.ZoneName), true
	}
	return Event{}, false
}

// Encode serializes an event back to its wire envelope, adding the event
// timestamp as "ts". Decode(Encode(ev)) yields ev.
func Encode(ev Event) ([]byte, error) {
	out := map[string]any{"type": ev.Type}
	if !ev.Timestamp.IsZero() {
		out["ts"] = ev.Timestamp.Format(time.RFC3339Nano)
	}
	switch ev.Type {
	case EventPrimaryPlayer:
		if id, err := strconv.ParseInt(ev.CharID, 10, 64); err == nil {
			out["charID"] = id
		} else {
			out["charID"] = ev.CharID
		}
		out["charName"] = ev.CharName
	case EventPartyChanged:
		party := make([]map[string]any, 0, len(ev.Party))
		for _, m := range ev.Party {
			party = append(party, map[string]any{"id": m.ID, "name": m.Name, "job": m.Job, "inParty": m.InParty})
		}
		out["party"] = party
	case EventLogLine:
		line := ev.Line
		if line == nil {
			line = Fields{}
		}
		out["line"] = []string(line)
		out["rawLine"] = ev.RawLine
	case EventZoneChanged:
		out["zoneID"] = ev.ZoneID
		out["zoneName"] = ev.ZoneName
	default:
		return nil, fmt.Errorf("overlay: encode: unknown event type %q", ev.Type)
	}
	return json.Marshal(out)
}

// ParseStream reads newline-delimited overlay messages from r (a capture
// file) and sends decoded events on the returned channel. Undecodable and
// unknown lines are skipped. The channel is closed at EOF.
func ParseStream(r io.Reader) <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		// Raw log lines for large AoE hits can be long.
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			ev, ok, err := Decode(line)
			if err != nil || !ok {
				continue
			}
			ch <- ev
		}
	}()
	return ch
}
