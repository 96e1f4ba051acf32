package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"lumen/pkg/session"
)

// Settings is the operator-editable runtime tuning, probed from
// settings.yaml then settings.toml under the lumen home. Both files absent
// means defaults; a present but unreadable file is an error.
type Settings struct {
	// AppName is the identity announced in the controller handshake.
	AppName string `yaml:"app_name" toml:"app_name"`

	// ReplyBPM answers the controller's tempo heartbeat.
	ReplyBPM float64 `yaml:"reply_bpm" toml:"reply_bpm"`

	// RefreshSecs spaces the background button-catalog refreshes.
	RefreshSecs float64 `yaml:"refresh_secs" toml:"refresh_secs"`

	// HandshakeTimeoutSecs bounds the wait for the handshake ack.
	HandshakeTimeoutSecs float64 `yaml:"handshake_timeout_secs" toml:"handshake_timeout_secs"`

	// ReadTimeoutSecs is the per-read socket deadline.
	ReadTimeoutSecs float64 `yaml:"read_timeout_secs" toml:"read_timeout_secs"`

	// RequestTimeoutSecs bounds a whole request/response exchange.
	RequestTimeoutSecs float64 `yaml:"request_timeout_secs" toml:"request_timeout_secs"`

	// Debug enables development-level logging.
	Debug bool `yaml:"debug" toml:"debug"`
}

// DefaultSettings returns the tuning used when no settings file exists.
func DefaultSettings() Settings {
	return Settings{
		AppName:              "Lumen",
		ReplyBPM:             120,
		RefreshSecs:          10,
		HandshakeTimeoutSecs: 5,
		ReadTimeoutSecs:      5,
		RequestTimeoutSecs:   10,
	}
}

// LoadSettings probes home for settings.yaml, then settings.toml. Fields
// left zero in the file keep their defaults.
func LoadSettings(home string) (Settings, error) {
	s := DefaultSettings()

	yamlPath := filepath.Join(home, "settings.yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse %s: %w", yamlPath, err)
		}
		return s.withDefaults(), nil
	} else if !os.IsNotExist(err) {
		return s, fmt.Errorf("read %s: %w", yamlPath, err)
	}

	tomlPath := filepath.Join(home, "settings.toml")
	if data, err := os.ReadFile(tomlPath); err == nil {
		if err := toml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse %s: %w", tomlPath, err)
		}
		return s.withDefaults(), nil
	} else if !os.IsNotExist(err) {
		return s, fmt.Errorf("read %s: %w", tomlPath, err)
	}

	return s, nil
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.AppName == "" {
		s.AppName = def.AppName
	}
	if s.ReplyBPM <= 0 {
		s.ReplyBPM = def.ReplyBPM
	}
	if s.RefreshSecs <= 0 {
		s.RefreshSecs = def.RefreshSecs
	}
	if s.HandshakeTimeoutSecs <= 0 {
		s.HandshakeTimeoutSecs = def.HandshakeTimeoutSecs
	}
	if s.ReadTimeoutSecs <= 0 {
		s.ReadTimeoutSecs = def.ReadTimeoutSecs
	}
	if s.RequestTimeoutSecs <= 0 {
		s.RequestTimeoutSecs = def.RequestTimeoutSecs
	}
	return s
}

// SessionConfig translates the settings into session tuning.
func (s Settings) SessionConfig() session.Config {
	return session.Config{
		AppName:          s.AppName,
		HandshakeTimeout: secsToDuration(s.HandshakeTimeoutSecs),
		ReadTimeout:      secsToDuration(s.ReadTimeoutSecs),
		RequestTimeout:   secsToDuration(s.RequestTimeoutSecs),
		ReplyBPM:         s.ReplyBPM,
	}
}

// RefreshInterval is RefreshSecs as a duration.
func (s Settings) RefreshInterval() time.Duration {
	return secsToDuration(s.RefreshSecs)
}

func secsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
