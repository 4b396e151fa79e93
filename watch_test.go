// ABOUTME: Tests for watch mode event filtering and debounced re-runs
// ABOUTME: Uses a real fsnotify watcher over a temp directory

package main

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"m3u-dump/config"
)

func watchFixture(t *testing.T) (config.Config, string) {
	t.Helper()

	root := t.TempDir()
	src := filepath.Join(root, "lists")
	dst := filepath.Join(src, "out")

	if err := os.MkdirAll(dst, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(src, "a.m3u"), []byte("a.mp3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.SourcePath = src
	cfg.DestinationDir = dst

	return cfg, src
}

func TestWatcherRelevant(t *testing.T) {
	cfg, src := watchFixture(t)

	w := newPlaylistWatcher(cfg, nil)
	if err := w.resolvePaths(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"playlist write", fsnotify.Event{Name: filepath.Join(src, "a.m3u"), Op: fsnotify.Write}, true},
		{"nested playlist create", fsnotify.Event{Name: filepath.Join(src, "sub", "b.m3u8"), Op: fsnotify.Create}, true},
		{"media file", fsnotify.Event{Name: filepath.Join(src, "a.mp3"), Op: fsnotify.Write}, false},
		{"chmod only", fsnotify.Event{Name: filepath.Join(src, "a.m3u"), Op: fsnotify.Chmod}, false},
		{"destination playlist", fsnotify.Event{Name: filepath.Join(src, "out", "a.m3u"), Op: fsnotify.Create}, false},
	}

	for _, tt := range tests {
		if got := w.relevant(tt.ev); got != tt.want {
			t.Errorf("%s: relevant = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWatcherRelevantFileSource(t *testing.T) {
	cfg, src := watchFixture(t)
	cfg.SourcePath = filepath.Join(src, "a.m3u")

	w := newPlaylistWatcher(cfg, nil)
	if err := w.resolvePaths(); err != nil {
		t.Fatal(err)
	}

	if !w.relevant(fsnotify.Event{Name: cfg.SourcePath, Op: fsnotify.Create}) {
		t.Error("replacing the watched playlist should trigger")
	}

	if w.relevant(fsnotify.Event{Name: filepath.Join(src, "other.m3u"), Op: fsnotify.Write}) {
		t.Error("siblings of a file source should not trigger")
	}
}

func TestWatcherRerunsAfterChange(t *testing.T) {
	cfg, src := watchFixture(t)

	var runs atomic.Int32

	rerun := make(chan struct{}, 4)

	w := newPlaylistWatcher(cfg, func(context.Context) error {
		runs.Add(1)
		rerun <- struct{}{}

		return nil
	})
	w.debounce = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx) }()

	waitRun := func() {
		t.Helper()

		select {
		case <-rerun:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a run")
		}
	}

	waitRun() // initial run

	// Writes into the destination must not retrigger
	if err := os.WriteFile(filepath.Join(cfg.DestinationDir, "a.m3u"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(src, "a.m3u"), []byte("b.mp3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitRun()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	if got := runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
}

func TestWatcherConfigError(t *testing.T) {
	cfg := config.DefaultConfig()

	w := newPlaylistWatcher(cfg, func(context.Context) error {
		t.Error("run must not start without a valid config")

		return nil
	})

	if err := w.Run(context.Background()); exitCode(err) != exitConfigError {
		t.Errorf("Run = %v, want a config error", err)
	}
}
