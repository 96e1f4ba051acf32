package protocol

import (
	"bytes"
	"strconv"
	"strings"
)

// Parser converts a byte stream into Messages. Feed it arbitrary chunks;
// partial frames stay buffered until their remaining bytes arrive, so the
// decoded sequence is independent of chunk boundaries.
type Parser struct {
	buf  []byte
	msgs []Message
}

// NewParser returns an empty Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Feed appends data and decodes every complete frame it now holds.
func (p *Parser) Feed(data []byte) {
	p.buf = append(p.buf, data...)

	for {
		// Length-prefixed catalog: "BUTTON_LIST|<digits>" directly followed
		// by that many payload bytes and the terminator. Must be checked
		// against the raw buffer before line extraction, because the payload
		// may itself contain CRLF.
		if n, header, ok := p.lengthPrefixHeader(); ok {
			total := header + n + len(Terminator)
			if len(p.buf) < total {
				return // withhold until payload + terminator arrive
			}
			payload := p.buf[header : header+n]
			p.msgs = append(p.msgs, Message{Type: MsgButtonList, Buttons: ParseCatalog(payload)})
			p.buf = p.buf[total:]
			continue
		}

		i := bytes.Index(p.buf, []byte(Terminator))
		if i < 0 {
			return
		}
		line := string(p.buf[:i])
		p.buf = p.buf[i+len(Terminator):]
		p.msgs = append(p.msgs, parseLine(line))
	}
}

// Next returns the oldest decoded message, if any.
func (p *Parser) Next() (Message, bool) {
	if len(p.msgs) == 0 {
		return Message{}, false
	}
	m := p.msgs[0]
	p.msgs = p.msgs[1:]
	return m, true
}

// lengthPrefixHeader reports whether the buffer starts a length-prefixed
// catalog frame. It returns the declared payload length and the header size
// ("BUTTON_LIST|<digits>"). A digit right after the separator selects this
// form; the inline form always continues with markup.
func (p *Parser) lengthPrefixHeader() (n, header int, ok bool) {
	prefix := CmdButtonList + Separator
	if len(p.buf) < len(prefix) || !bytes.HasPrefix(p.buf, []byte(prefix)) {
		return 0, 0, false
	}
	i := len(prefix)
	j := i
	for j < len(p.buf) && p.buf[j] >= '0' && p.buf[j] <= '9' {
		j++
	}
	if j == i {
		return 0, 0, false // inline form (or empty list)
	}
	if j == len(p.buf) {
		// All digits so far; need another byte to tell "...|12" + payload
		// from an inline payload that cannot start with a digit anyway.
		return 0, 0, false
	}
	// Digits followed by CRLF would be a malformed inline line; let the line
	// path emit it as a best-effort empty catalog.
	if bytes.HasPrefix(p.buf[j:], []byte(Terminator)) {
		return 0, 0, false
	}
	n, err := strconv.Atoi(string(p.buf[i:j]))
	if err != nil {
		return 0, 0, false
	}
	return n, j, true
}

// parseLine decodes one terminator-stripped line. Unrecognized keywords
// become Unknown rather than errors so protocol additions pass through.
func parseLine(line string) Message {
	keyword, rest, _ := strings.Cut(line, Separator)

	switch keyword {
	case CmdHello:
		return Message{Type: MsgConnected, Text: rest}
	case "ERROR":
		return Message{Type: MsgError, Text: rest}
	case "BEAT_ON":
		return Message{Type: MsgBeatOn}
	case "BEAT_OFF":
		return Message{Type: MsgBeatOff}
	case CmdButtonList:
		return Message{Type: MsgButtonList, Buttons: ParseCatalog([]byte(rest))}
	case CmdButtonPress:
		return Message{Type: MsgButtonPress, Text: rest}
	case CmdButtonRelease:
		return Message{Type: MsgButtonRelease, Text: rest}
	case "FADER_CHANGE":
		idxStr, valStr, ok := strings.Cut(rest, Separator)
		if ok {
			idx, err1 := strconv.Atoi(idxStr)
			val, err2 := strconv.Atoi(valStr)
			if err1 == nil && err2 == nil {
				return Message{Type: MsgFaderChange, Fader: FaderChange{Index: idx, Value: val}}
			}
		}
		return Message{Type: MsgUnknown, Text: line}
	case "INTERFACE_CHANGE":
		return Message{Type: MsgInterfaceChange, Text: rest}
	case CmdBPM:
		if bpm, err := strconv.ParseFloat(rest, 64); err == nil {
			return Message{Type: MsgBPM, BPM: bpm}
		}
		return Message{Type: MsgUnknown, Text: line}
	case "OK":
		return Message{Type: MsgOK}
	default:
		return Message{Type: MsgUnknown, Text: line}
	}
}
