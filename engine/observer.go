// ABOUTME: Events emitted by the engine and the observer interface that receives them
// ABOUTME: The engine never prints; shells decide how to show progress

package engine

import (
	"fmt"
	"time"

	"m3u-dump/report"
)

// EventKind identifies a point in the run
type EventKind int

const (
	RunStarted EventKind = iota
	IndexBuilt
	PlaylistStarted
	EntryFixed
	EntryUnresolved
	URLProbed
	EntryPlaced
	PlaylistWritten
	PlaylistFailed
	RunFinished
)

func (k EventKind) String() string {
	switch k {
	case RunStarted:
		return "run_started"
	case IndexBuilt:
		return "index_built"
	case PlaylistStarted:
		return "playlist_started"
	case EntryFixed:
		return "entry_fixed"
	case EntryUnresolved:
		return "entry_unresolved"
	case URLProbed:
		return "url_probed"
	case EntryPlaced:
		return "entry_placed"
	case PlaylistWritten:
		return "playlist_written"
	case PlaylistFailed:
		return "playlist_failed"
	case RunFinished:
		return "run_finished"
	default:
		return "unknown"
	}
}

// Event describes one step; fields not relevant to Kind are zero
type Event struct {
	Kind     EventKind
	Time     time.Time
	Playlist string
	Index    int // 1-based position of Playlist
	Total    int // playlists discovered
	Src      string
	Dst      string
	Outcome  string // detail type for EntryPlaced
	DryRun   bool
	Files    int // indexed files for IndexBuilt
	Err      error
	Counters report.Counters // snapshot for PlaylistWritten, PlaylistFailed and RunFinished
}

// String renders the event as a single human-readable line
func (ev Event) String() string {
	prefix := ""
	if ev.DryRun {
		prefix = "(dry-run) "
	}

	switch ev.Kind {
	case RunStarted:
		return fmt.Sprintf("%sfound %d playlist(s)", prefix, ev.Total)
	case IndexBuilt:
		return fmt.Sprintf("indexed %d file(s) under %s", ev.Files, ev.Src)
	case PlaylistStarted:
		return fmt.Sprintf("[%d/%d] %s", ev.Index, ev.Total, ev.Playlist)
	case EntryFixed:
		return fmt.Sprintf("fixed %s -> %s", ev.Src, ev.Dst)
	case EntryUnresolved:
		return fmt.Sprintf("not found in search path: %s", ev.Src)
	case URLProbed:
		return fmt.Sprintf("url %s -> %s", ev.Src, ev.Dst)
	case EntryPlaced:
		if ev.Outcome == "skip_missing" {
			return fmt.Sprintf("skip_missing %s", ev.Src)
		}

		return fmt.Sprintf("%s%s %s -> %s", prefix, ev.Outcome, ev.Src, ev.Dst)
	case PlaylistWritten:
		if ev.Dst == "" {
			return fmt.Sprintf("done %s", ev.Playlist)
		}

		return fmt.Sprintf("%swrote playlist %s", prefix, ev.Dst)
	case PlaylistFailed:
		return fmt.Sprintf("FAILED %s: %v", ev.Playlist, ev.Err)
	case RunFinished:
		c := ev.Counters
		s := fmt.Sprintf("%sprocessed %d playlist(s): copied %d, linked %d, fixed %d, unresolved %d, skipped %d existing / %d missing",
			prefix, c.PlaylistsProcessed, c.Copied, c.Linked, c.FixedPaths, c.UnresolvedPaths, c.CopySkippedExisting, c.CopySkippedMissing)
		if ev.Err != nil {
			s += fmt.Sprintf(" (error: %v)", ev.Err)
		}

		return s
	default:
		return ev.Kind.String()
	}
}

// Observer receives engine events synchronously on the engine goroutine
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

// OnEvent calls f(ev)
func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// MultiObserver fans events out to every non-nil observer in order
type MultiObserver []Observer

// OnEvent forwards ev to each observer
func (m MultiObserver) OnEvent(ev Event) {
	for _, o := range m {
		if o != nil {
			o.OnEvent(ev)
		}
	}
}

type nopObserver struct{}

func (nopObserver) OnEvent(Event) {}
