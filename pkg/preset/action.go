package preset

import "fmt"

// ActionKind selects the wire command an action maps to.
type ActionKind string

// Action kinds. Toggle maps to the controller's CUE command.
const (
	Press   ActionKind = "press"
	Release ActionKind = "release"
	Toggle  ActionKind = "toggle"
)

// Valid reports whether k is a known kind. Unknown kinds can appear in
// documents written by newer versions.
func (k ActionKind) Valid() bool {
	switch k {
	case Press, Release, Toggle:
		return true
	default:
		return false
	}
}

// Action targets a remote button by display name. Names are the stable
// cross-session key; catalog indices are not guaranteed stable across
// connects.
type Action struct {
	ButtonName string     `json:"button_name"`
	Kind       ActionKind `json:"kind"`
	DelaySecs  float64    `json:"delay_secs"` // wait before dispatch, >= 0
}

// String renders the action for logs and the CLI.
func (a Action) String() string {
	if a.DelaySecs > 0 {
		return fmt.Sprintf("%s %q after %.2fs", a.Kind, a.ButtonName, a.DelaySecs)
	}
	return fmt.Sprintf("%s %q", a.Kind, a.ButtonName)
}
