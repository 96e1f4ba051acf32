package store

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatch_FiresOnRenameOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, path, nil, func() { fired.Add(1) })
	}()

	// Give the watcher time to arm before writing.
	time.Sleep(200 * time.Millisecond)

	// Replace the file the way Storage does: temp write then rename.
	tmp := filepath.Join(dir, "presets.json.tmp")
	if err := os.WriteFile(tmp, []byte(`{"version":1,"presets":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for fired.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("watcher never fired")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	<-done
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, path, nil, func() { fired.Add(1) })
	}()

	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	// Longer than the debounce window; nothing should arrive.
	time.Sleep(400 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Fatalf("watcher fired %d times for a sibling file", n)
	}

	cancel()
	<-done
}
