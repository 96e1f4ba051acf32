// Package protocol implements the wire codec for the lighting controller's
// line protocol: CRLF-delimited text frames with pipe-separated fields, plus
// an XML button-catalog payload that may arrive inline or length-prefixed.
// The codec is transport-agnostic; feed it bytes, drain messages.
package protocol

import "fmt"

// Separator joins fields within a frame.
const Separator = "|"

// Terminator ends every frame.
const Terminator = "\r\n"

// MessageType identifies a decoded frame.
type MessageType string

// Message type constants, one per frame keyword the controller emits.
const (
	MsgConnected       MessageType = "connected"        // HELLO handshake ack
	MsgError           MessageType = "error"            // ERROR|<message>
	MsgBeatOn          MessageType = "beat_on"          // BEAT_ON
	MsgBeatOff         MessageType = "beat_off"         // BEAT_OFF
	MsgButtonList      MessageType = "button_list"      // BUTTON_LIST|<catalog>
	MsgButtonPress     MessageType = "button_press"     // BUTTON_PRESS|<name>
	MsgButtonRelease   MessageType = "button_release"   // BUTTON_RELEASE|<name>
	MsgFaderChange     MessageType = "fader_change"     // FADER_CHANGE|<index>|<value>
	MsgInterfaceChange MessageType = "interface_change" // INTERFACE_CHANGE|<data>
	MsgBPM             MessageType = "bpm"              // BPM|<value>, heartbeat request
	MsgOK              MessageType = "ok"               // OK, generic ack
	MsgUnknown         MessageType = "unknown"          // anything else, passed through
)

// Outbound command verbs.
const (
	CmdHello         = "HELLO"
	CmdButtonList    = "BUTTON_LIST"
	CmdButtonPress   = "BUTTON_PRESS"
	CmdButtonRelease = "BUTTON_RELEASE"
	CmdButtonToggle  = "CUE"
	CmdBPM           = "BPM"
)

// Button is one entry of the remote device's catalog. The list is replaced
// wholesale on every refresh; Index is not stable across sessions, Name is.
type Button struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// FaderChange carries fader telemetry.
type FaderChange struct {
	Index int
	Value int
}

// Message is one decoded frame. Type selects which payload fields are set:
// Text for Connected (server name), Error, ButtonPress/Release (button
// name), InterfaceChange (raw data) and Unknown (the whole line); Buttons
// for ButtonList; Fader for FaderChange; BPM for BPM.
type Message struct {
	Type    MessageType
	Text    string
	Buttons []Button
	Fader   FaderChange
	BPM     float64
}

// String renders a short human-readable form for logs.
func (m Message) String() string {
	switch m.Type {
	case MsgConnected:
		return fmt.Sprintf("connected to %q", m.Text)
	case MsgError:
		return fmt.Sprintf("error: %s", m.Text)
	case MsgButtonList:
		return fmt.Sprintf("button list (%d buttons)", len(m.Buttons))
	case MsgButtonPress, MsgButtonRelease:
		return fmt.Sprintf("%s %q", m.Type, m.Text)
	case MsgFaderChange:
		return fmt.Sprintf("fader %d = %d", m.Fader.Index, m.Fader.Value)
	case MsgBPM:
		return fmt.Sprintf("bpm %g", m.BPM)
	case MsgUnknown:
		return fmt.Sprintf("unknown frame %q", m.Text)
	default:
		return string(m.Type)
	}
}
