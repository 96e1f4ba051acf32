package main

import (
	"path/filepath"
	"testing"
)

func TestResolvePaths_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("LUMEN_HOME", home)

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("ResolvePaths: %v", err)
	}
	if paths.LumenHome != home {
		t.Errorf("LumenHome = %q, want %q", paths.LumenHome, home)
	}
	if paths.PresetsPath != filepath.Join(home, "presets.json") {
		t.Errorf("PresetsPath = %q", paths.PresetsPath)
	}
	if paths.ConfigPath != filepath.Join(home, "config.json") {
		t.Errorf("ConfigPath = %q", paths.ConfigPath)
	}
	if paths.EventsDBPath != filepath.Join(home, "events.db") {
		t.Errorf("EventsDBPath = %q", paths.EventsDBPath)
	}
}

func TestResolvePaths_SpecificOverridesWin(t *testing.T) {
	t.Setenv("LUMEN_HOME", t.TempDir())
	t.Setenv("LUMEN_PRESETS_PATH", "/elsewhere/presets.json")
	t.Setenv("LUMEN_EVENTS_DB", "/elsewhere/events.db")

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("ResolvePaths: %v", err)
	}
	if paths.PresetsPath != "/elsewhere/presets.json" {
		t.Errorf("PresetsPath = %q", paths.PresetsPath)
	}
	if paths.EventsDBPath != "/elsewhere/events.db" {
		t.Errorf("EventsDBPath = %q", paths.EventsDBPath)
	}
}
