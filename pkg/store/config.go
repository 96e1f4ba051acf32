package store

import (
	"encoding/json"
	"fmt"

	"lumen/pkg/preset"
)

// ConfigVersion is the schema version this build writes for the app config
// document.
const ConfigVersion = 1

// AppConfig remembers the operator's last choices so the next launch starts
// where the previous one stopped. Field names predate version tagging and
// must not change; legacy documents carry them.
type AppConfig struct {
	LastMIDIPort             *string            `json:"last_midi_port"`
	LastControllerAddress    *string            `json:"last_controller_address"`
	LastControllerCredential *string            `json:"last_controller_password"`
	LastActionKind           *preset.ActionKind `json:"last_action_type"`
}

// DefaultConfig mirrors a fresh install: local controller, toggle actions.
func DefaultConfig() AppConfig {
	addr := "127.0.0.1:7348"
	kind := preset.Toggle
	return AppConfig{
		LastControllerAddress: &addr,
		LastActionKind:        &kind,
	}
}

// ConfigDocument is the on-disk shape: the version tag flattened alongside
// the AppConfig fields.
type ConfigDocument struct {
	Version int `json:"version"`
	AppConfig
}

// wrapConfigV1 lifts a legacy unversioned config object into the v1
// envelope.
type wrapConfigV1 struct{}

func (wrapConfigV1) TargetVersion() int { return 1 }

func (wrapConfigV1) Apply(data json.RawMessage) (json.RawMessage, error) {
	// Prove the payload is a config object before tagging it.
	var cfg AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("legacy config document: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("legacy config document: %w", err)
	}
	fields["version"] = json.RawMessage("1")
	return json.Marshal(fields)
}

// ConfigMigrations is the ordered chain for the config document.
func ConfigMigrations() []Migration {
	return []Migration{wrapConfigV1{}}
}

// DecodeConfig loads a config document at any supported version.
func DecodeConfig(data []byte) (AppConfig, *int, error) {
	doc, migratedFrom, err := LoadDocument[ConfigDocument](data, ConfigVersion, ConfigMigrations())
	if err != nil {
		return AppConfig{}, nil, err
	}
	return doc.AppConfig, migratedFrom, nil
}

// EncodeConfig writes the current-version config document.
func EncodeConfig(cfg AppConfig) ([]byte, error) {
	return SaveDocument(ConfigDocument{Version: ConfigVersion, AppConfig: cfg})
}
