// ABOUTME: Watch mode that re-runs the engine when source playlists change
// ABOUTME: Monitors the playlist source with fsnotify and debounces bursts of writes

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"m3u-dump/config"
	"m3u-dump/playlist"
)

// defaultWatchDebounce lets atomic writes and editors' save sequences settle before re-running
const defaultWatchDebounce = 500 * time.Millisecond

// playlistWatcher re-runs a full engine run after playlist changes under the source
type playlistWatcher struct {
	cfg      config.Config
	debounce time.Duration
	runOnce  func(context.Context) error

	source string // absolute source path
	dest   string // absolute destination, ignored so our own writes don't retrigger
	isFile bool
}

func newPlaylistWatcher(cfg config.Config, runOnce func(context.Context) error) *playlistWatcher {
	return &playlistWatcher{
		cfg:      cfg,
		debounce: defaultWatchDebounce,
		runOnce:  runOnce,
	}
}

// Run performs one run, then re-runs after every debounced change until ctx is cancelled.
// Run failures are logged and watching continues; configuration errors stop the watcher.
func (w *playlistWatcher) Run(ctx context.Context) error {
	if err := w.cfg.Validate(); err != nil {
		return err
	}

	if err := w.resolvePaths(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	defer func() {
		if err := watcher.Close(); err != nil {
			debugf("[WATCHER] close: %v", err)
		}
	}()

	if w.isFile {
		// Watch the parent so atomic replaces of the playlist are still seen
		err = watcher.Add(filepath.Dir(w.source))
	} else {
		err = w.addTree(watcher, w.source)
	}

	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.source, err)
	}

	w.runLogged(ctx)

	log.Printf("Watching %s for changes (Ctrl+C to stop)", w.source)

	var fire <-chan time.Time

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if ev.Has(fsnotify.Create) && !w.isFile && !w.ignored(ev.Name) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(watcher, ev.Name); err != nil {
						debugf("[WATCHER] failed to watch new directory %s: %v", ev.Name, err)
					}
				}
			}

			if !w.relevant(ev) {
				continue
			}

			debugf("[WATCHER] %s", ev)

			timer.Reset(w.debounce)
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Log error but continue watching
			debugf("[WATCHER] Error: %v", err)

		case <-fire:
			fire = nil

			w.runLogged(ctx)
		}
	}
}

// runLogged performs one run; failures other than cancellation are logged, not returned
func (w *playlistWatcher) runLogged(ctx context.Context) {
	err := w.runOnce(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Run error: %v", err)
	}
}

// resolvePaths records the absolute source and destination paths
func (w *playlistWatcher) resolvePaths() error {
	src, err := filepath.Abs(w.cfg.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to resolve source path: %w", err)
	}

	dst, err := filepath.Abs(w.cfg.DestinationDir)
	if err != nil {
		return fmt.Errorf("failed to resolve destination path: %w", err)
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}

	w.source = src
	w.dest = dst
	w.isFile = !info.IsDir()

	return nil
}

// addTree watches root and every directory below it, skipping the destination
func (w *playlistWatcher) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if w.ignored(path) {
			return filepath.SkipDir
		}

		return watcher.Add(path)
	})
}

// relevant reports whether an event should trigger a re-run
func (w *playlistWatcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Clean(ev.Name)

	if w.isFile {
		return name == w.source
	}

	if w.ignored(name) {
		return false
	}

	return playlist.MatchesAny(filepath.Base(name), w.cfg.PlaylistPatterns)
}

// ignored reports whether path is the destination directory or inside it
func (w *playlistWatcher) ignored(path string) bool {
	path = filepath.Clean(path)

	return path == w.dest || strings.HasPrefix(path, w.dest+string(filepath.Separator))
}
