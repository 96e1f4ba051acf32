package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeCommand runs the root command with the given args and returns stdout, stderr, and error.
func executeCommand(args ...string) (stdout string, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func TestCLICommands(t *testing.T) {
	t.Run("root --help lists subcommands", func(t *testing.T) {
		out, _, err := executeCommand("--help")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, sub := range []string{"run", "buttons", "send", "presets", "ports", "events"} {
			if !strings.Contains(out, sub) {
				t.Errorf("expected root help to list %q, got:\n%s", sub, out)
			}
		}
	})

	t.Run("root --version prints version", func(t *testing.T) {
		out, _, err := executeCommand("--version")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "lumen") {
			t.Errorf("expected version output to contain 'lumen', got: %s", out)
		}
	})

	t.Run("run --help shows flags", func(t *testing.T) {
		out, _, err := executeCommand("run", "--help")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, flag := range []string{"--address", "--password", "--port"} {
			if !strings.Contains(out, flag) {
				t.Errorf("expected run help to show %s, got:\n%s", flag, out)
			}
		}
	})

	t.Run("send requires a button argument", func(t *testing.T) {
		_, _, err := executeCommand("send")
		if err == nil {
			t.Fatal("expected error when no button argument provided")
		}
	})

	t.Run("send rejects an unknown kind", func(t *testing.T) {
		_, _, err := executeCommand("send", "Wash", "--kind", "wiggle")
		if err == nil || !strings.Contains(err.Error(), "unknown action kind") {
			t.Fatalf("got %v, want unknown action kind error", err)
		}
	})

	t.Run("presets lists an empty home", func(t *testing.T) {
		t.Setenv("LUMEN_HOME", t.TempDir())
		out, _, err := executeCommand("presets")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "no presets") {
			t.Errorf("got:\n%s", out)
		}
	})

	t.Run("presets renders a saved document", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("LUMEN_HOME", home)
		doc := `{
		  "version": 1,
		  "presets": [{
		    "id": "8c2e9c1e-9a1f-4e9e-8f43-3d0a8de56c55",
		    "name": "chorus",
		    "description": "full wash",
		    "triggers": [{"type": "note_on", "channel": 0, "note": 40}],
		    "actions": [{"button_name": "Wash", "kind": "press", "delay_secs": 0}],
		    "delay_secs": 0
		  }]
		}`
		if err := os.WriteFile(filepath.Join(home, "presets.json"), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}

		out, _, err := executeCommand("presets")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "chorus") || !strings.Contains(out, "Wash") {
			t.Errorf("got:\n%s", out)
		}
	})

	t.Run("events reports a missing log", func(t *testing.T) {
		t.Setenv("LUMEN_HOME", t.TempDir())
		_, _, err := executeCommand("events")
		if err == nil || !strings.Contains(err.Error(), "event log not found") {
			t.Fatalf("got %v, want event log not found", err)
		}
	})

	t.Run("unknown command returns error", func(t *testing.T) {
		_, _, err := executeCommand("nonexistent")
		if err == nil {
			t.Fatal("expected error for unknown command")
		}
	})
}
