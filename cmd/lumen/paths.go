package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// lumenDir is the state directory name under the user's home.
const lumenDir = ".lumen"

// Paths holds all resolved lumen state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	LumenHome    string // ~/.lumen or LUMEN_HOME
	PresetsPath  string // presets.json or LUMEN_PRESETS_PATH
	ConfigPath   string // config.json or LUMEN_CONFIG_PATH
	EventsDBPath string // events.db or LUMEN_EVENTS_DB
}

// ResolvePaths returns all lumen paths, respecting env var overrides.
// Environment variables:
//   - LUMEN_HOME: base directory for all lumen state (default: ~/.lumen)
//   - LUMEN_PRESETS_PATH: presets document (default: $LUMEN_HOME/presets.json)
//   - LUMEN_CONFIG_PATH: app config document (default: $LUMEN_HOME/config.json)
//   - LUMEN_EVENTS_DB: telemetry event log (default: $LUMEN_HOME/events.db)
//
// Specific env vars override both the default and the LUMEN_HOME base.
func ResolvePaths() (*Paths, error) {
	home, err := resolveLumenHome()
	if err != nil {
		return nil, err
	}

	return &Paths{
		LumenHome:    home,
		PresetsPath:  resolvePathWithEnv("LUMEN_PRESETS_PATH", home, "presets.json"),
		ConfigPath:   resolvePathWithEnv("LUMEN_CONFIG_PATH", home, "config.json"),
		EventsDBPath: resolvePathWithEnv("LUMEN_EVENTS_DB", home, "events.db"),
	}, nil
}

// resolveLumenHome returns the lumen home directory from LUMEN_HOME or ~/.lumen.
func resolveLumenHome() (string, error) {
	if v := os.Getenv("LUMEN_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, lumenDir), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
