package preset

import (
	"fmt"

	"lumen/pkg/midi"
)

// Trigger is a MIDI event pattern. It mirrors midi.Event's shape except
// that a ControlChange trigger may leave Value nil to match any value.
type Trigger struct {
	Type    midi.EventType `json:"type"`
	Channel uint8          `json:"channel"`
	Note    uint8          `json:"note"`
	Value   *uint8         `json:"value,omitempty"` // ControlChange only; nil = wildcard
}

// TriggerFromEvent seeds a trigger from a live event ("MIDI learn").
// ControlChange triggers start out wildcard; the value can be pinned
// afterwards by the editing layer.
func TriggerFromEvent(ev midi.Event) Trigger {
	return Trigger{Type: ev.Type, Channel: ev.Channel, Note: ev.Note}
}

// Matches reports whether ev activates this trigger. Note triggers compare
// channel and note number only; velocity never matters. ControlChange
// triggers additionally compare the value unless it is wildcard.
func (t Trigger) Matches(ev midi.Event) bool {
	if t.Type != ev.Type || t.Channel != ev.Channel || t.Note != ev.Note {
		return false
	}
	if t.Type == midi.ControlChange && t.Value != nil {
		return *t.Value == ev.Value
	}
	return true
}

// Equal reports structural equality, for duplicate suppression in editing
// layers.
func (t Trigger) Equal(other Trigger) bool {
	if t.Type != other.Type || t.Channel != other.Channel || t.Note != other.Note {
		return false
	}
	switch {
	case t.Value == nil && other.Value == nil:
		return true
	case t.Value != nil && other.Value != nil:
		return *t.Value == *other.Value
	default:
		return false
	}
}

// String renders the trigger the way the preset editor displays it.
func (t Trigger) String() string {
	switch t.Type {
	case midi.NoteOn:
		return fmt.Sprintf("Note On Ch%d N%d (%s)", t.Channel, t.Note, midi.NoteName(t.Note))
	case midi.NoteOff:
		return fmt.Sprintf("Note Off Ch%d N%d (%s)", t.Channel, t.Note, midi.NoteName(t.Note))
	case midi.ControlChange:
		if t.Value != nil {
			return fmt.Sprintf("CC%d Ch%d = %d", t.Note, t.Channel, *t.Value)
		}
		return fmt.Sprintf("CC%d Ch%d (any)", t.Note, t.Channel)
	default:
		return fmt.Sprintf("%s ch%d %d", t.Type, t.Channel, t.Note)
	}
}
