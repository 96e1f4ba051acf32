package protocol

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
)

// ParseCatalog extracts buttons from a BUTTON_LIST markup fragment.
//
// Parsing is best-effort and partial: entries missing a numeric index
// attribute or a non-empty name are dropped, and a malformed tail truncates
// rather than fails. The controller is the source of truth for names; a
// partially readable catalog is more useful than no catalog.
func ParseCatalog(fragment []byte) []Button {
	buttons := []Button{}

	dec := xml.NewDecoder(bytes.NewReader(fragment))
	dec.Strict = false

	var (
		inButton bool
		index    int
		indexOK  bool
		name     strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			break // EOF or malformed tail
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !strings.EqualFold(t.Name.Local, "button") {
				continue
			}
			inButton = true
			indexOK = false
			name.Reset()
			for _, attr := range t.Attr {
				if strings.EqualFold(attr.Name.Local, "index") {
					v, err := strconv.Atoi(strings.TrimSpace(attr.Value))
					if err == nil {
						index = v
						indexOK = true
					}
				}
			}
		case xml.CharData:
			if inButton {
				name.Write(t)
			}
		case xml.EndElement:
			if !strings.EqualFold(t.Name.Local, "button") {
				continue
			}
			trimmed := strings.TrimSpace(name.String())
			if inButton && indexOK && trimmed != "" {
				buttons = append(buttons, Button{Index: index, Name: trimmed})
			}
			inButton = false
		}
	}

	return buttons
}
