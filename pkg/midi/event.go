// Package midi defines the semantic MIDI events the rest of lumen consumes,
// plus the input adapter that produces them from a hardware port. Raw status
// bytes never cross this boundary: a NoteOn with velocity zero is already
// normalized to NoteOff here.
package midi

import "fmt"

// EventType tags an Event.
type EventType uint8

// Event kinds lumen reacts to.
const (
	NoteOn EventType = iota
	NoteOff
	ControlChange
)

// String returns the conventional name of the event type.
func (t EventType) String() string {
	switch t {
	case NoteOn:
		return "note_on"
	case NoteOff:
		return "note_off"
	case ControlChange:
		return "control_change"
	default:
		return fmt.Sprintf("event_type(%d)", uint8(t))
	}
}

// MarshalText encodes the type as its conventional name, so persisted
// documents stay readable.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes the conventional name.
func (t *EventType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "note_on":
		*t = NoteOn
	case "note_off":
		*t = NoteOff
	case "control_change":
		*t = ControlChange
	default:
		return fmt.Errorf("unknown midi event type %q", b)
	}
	return nil
}

// Event is one semantic MIDI event. Note holds the note number for
// NoteOn/NoteOff and the controller number for ControlChange; Value holds
// velocity or controller value.
type Event struct {
	Type    EventType
	Channel uint8 // 0–15
	Note    uint8 // 0–127
	Value   uint8 // 0–127
}

// String renders the event for logs and the CLI, e.g. "Note On Ch0 N60 (C) V100".
func (e Event) String() string {
	switch e.Type {
	case NoteOn:
		return fmt.Sprintf("Note On Ch%d N%d (%s) V%d", e.Channel, e.Note, NoteName(e.Note), e.Value)
	case NoteOff:
		return fmt.Sprintf("Note Off Ch%d N%d (%s) V%d", e.Channel, e.Note, NoteName(e.Note), e.Value)
	case ControlChange:
		return fmt.Sprintf("CC%d Ch%d = %d", e.Note, e.Channel, e.Value)
	default:
		return fmt.Sprintf("%s ch%d %d/%d", e.Type, e.Channel, e.Note, e.Value)
	}
}

// Raw status nibbles.
const (
	statusNoteOff       = 0x80
	statusNoteOn        = 0x90
	statusControlChange = 0xB0
)

// FromRaw decodes a status/data1/data2 triplet into an Event. It reports
// false for message kinds lumen does not react to (program change, pitch
// bend, sysex, ...). NoteOn with velocity 0 is a NoteOff per MIDI running
// convention.
func FromRaw(data []byte) (Event, bool) {
	if len(data) < 3 {
		return Event{}, false
	}
	channel := data[0] & 0x0F

	switch data[0] & 0xF0 {
	case statusNoteOn:
		typ := NoteOn
		if data[2] == 0 {
			typ = NoteOff
		}
		return Event{Type: typ, Channel: channel, Note: data[1], Value: data[2]}, true
	case statusNoteOff:
		return Event{Type: NoteOff, Channel: channel, Note: data[1], Value: data[2]}, true
	case statusControlChange:
		return Event{Type: ControlChange, Channel: channel, Note: data[1], Value: data[2]}, true
	default:
		return Event{}, false
	}
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the pitch-class name of a note number.
func NoteName(note uint8) string {
	return noteNames[note%12]
}
