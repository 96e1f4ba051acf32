// Package preset defines the user-facing mapping model: presets bind MIDI
// triggers to ordered sequences of remote button actions. Matching is pure;
// execution belongs to the executor package.
package preset

import (
	"github.com/google/uuid"

	"lumen/pkg/midi"
)

// Preset maps one or more triggers (any-match) to an ordered action sequence
// (sequential execution) with an overall pre-delay.
type Preset struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Triggers    []Trigger `json:"triggers"`
	Actions     []Action  `json:"actions"`
	DelaySecs   float64   `json:"delay_secs"`
}

// New creates an empty preset with a fresh identity.
func New(name, description string) Preset {
	return Preset{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
	}
}

// Clone returns a deep copy. Presets are cloned whenever they cross from the
// editing side to matching or execution, so an in-flight run never aliases a
// preset the user is mutating.
func (p Preset) Clone() Preset {
	out := p
	out.Triggers = make([]Trigger, len(p.Triggers))
	copy(out.Triggers, p.Triggers)
	out.Actions = make([]Action, len(p.Actions))
	copy(out.Actions, p.Actions)
	return out
}

// Match returns every preset whose trigger set matches ev, cloned, in
// declaration order. Within a preset the first matching trigger settles it;
// across presets all matches are returned so each can be dispatched
// independently.
func Match(ev midi.Event, presets []Preset) []Preset {
	var out []Preset
	for _, p := range presets {
		for _, trig := range p.Triggers {
			if trig.Matches(ev) {
				out = append(out, p.Clone())
				break
			}
		}
	}
	return out
}
