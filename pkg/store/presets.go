package store

import (
	"encoding/json"
	"fmt"

	"lumen/pkg/preset"
)

// PresetsVersion is the schema version this build writes for the presets
// document.
const PresetsVersion = 1

// PresetsDocument is the on-disk shape of the preset set.
type PresetsDocument struct {
	Version int             `json:"version"`
	Presets []preset.Preset `json:"presets"`
}

// wrapPresetsV1 lifts the legacy bare preset array into the v1 envelope.
type wrapPresetsV1 struct{}

func (wrapPresetsV1) TargetVersion() int { return 1 }

func (wrapPresetsV1) Apply(data json.RawMessage) (json.RawMessage, error) {
	// v0 is an unversioned array; anything else is not a presets document.
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("legacy presets document is not an array: %w", err)
	}
	out, err := json.Marshal(struct {
		Version int               `json:"version"`
		Presets []json.RawMessage `json:"presets"`
	}{Version: 1, Presets: arr})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PresetMigrations is the ordered chain for the presets document.
func PresetMigrations() []Migration {
	return []Migration{wrapPresetsV1{}}
}

// DecodePresets loads a presets document at any supported version.
func DecodePresets(data []byte) ([]preset.Preset, *int, error) {
	doc, migratedFrom, err := LoadDocument[PresetsDocument](data, PresetsVersion, PresetMigrations())
	if err != nil {
		return nil, nil, err
	}
	return doc.Presets, migratedFrom, nil
}

// EncodePresets writes the current-version presets document.
func EncodePresets(presets []preset.Preset) ([]byte, error) {
	if presets == nil {
		presets = []preset.Preset{}
	}
	return SaveDocument(PresetsDocument{Version: PresetsVersion, Presets: presets})
}
