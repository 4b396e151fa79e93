// ABOUTME: Rendering and display functions for the TUI
// ABOUTME: Implements the Bubble Tea View() function and all render helpers

package tui

import (
	"fmt"
	"runtime/debug"
	"time"
)

// View renders the TUI
func (m model) View() string {
	defer func() {
		if r := recover(); r != nil {
			m.debugf("[PANIC] View panic: %v", r)
			m.debugf("[PANIC] Stack trace: %s", string(debug.Stack()))
			panic(r) // Re-panic so Bubble Tea can handle it
		}
	}()

	if m.quitting {
		if m.finished {
			return ""
		}

		return "Stopping after the current playlist...\n"
	}

	return m.renderHeader() + "\n" +
		m.renderCounters() + "\n\n" +
		m.viewport.View() + "\n" +
		m.renderStatus() + "\n" +
		m.renderHelp()
}

// renderHeader renders the title, paths and playlist progress
func (m model) renderHeader() string {
	title := titleStyle.Render("m3u-dump")
	if m.opts.DryRun {
		title += " " + dryRunStyle.Render("[DRY RUN]")
	}

	width := m.width - 4
	if width < minViewportWidth {
		width = minViewportWidth
	}

	paths := pathStyle.Render(fmt.Sprintf("%s → %s", truncate(m.opts.Source, width/2), truncate(m.opts.Destination, width/2)))

	var progress string

	switch {
	case m.finished:
		progress = fmt.Sprintf("Finished %d/%d playlists", m.counters.PlaylistsProcessed, m.total)
	case m.total == 0:
		progress = m.spinner.View() + " Discovering playlists..."
	default:
		progress = fmt.Sprintf("%s Playlist %d/%d: %s", m.spinner.View(), m.index, m.total, truncate(m.current, width-24))
	}

	return title + "\n" + paths + "\n" + progress
}

// renderCounters renders the running report totals
func (m model) renderCounters() string {
	c := m.counters

	line := fmt.Sprintf("copied %d  linked %d  fixed %d  unresolved %d  collisions %d  skipped %d/%d  urls %d",
		c.Copied, c.Linked, c.FixedPaths, c.UnresolvedPaths, c.CollisionsResolved,
		c.CopySkippedExisting, c.CopySkippedMissing, c.URLEntriesDetected)

	if m.failures > 0 {
		return countersStyle.Render(line) + "  " + errorStyle.Render(fmt.Sprintf("failed %d", m.failures))
	}

	return countersStyle.Render(line)
}

// renderStatus renders the status bar
func (m model) renderStatus() string {
	elapsed := m.elapsed.Round(time.Second)

	var status string

	switch {
	case m.finished && m.runErr != nil:
		status = fmt.Sprintf("Run failed after %s", elapsed)
	case m.finished:
		status = fmt.Sprintf("Run complete in %s", elapsed)
		if m.rep != nil {
			status += " | run " + m.rep.RunID
		}
	default:
		status = fmt.Sprintf("Running for %s", elapsed)
	}

	if !m.follow {
		status += " | scrolled"
	}

	return statusStyle.Width(m.width).Render(status)
}

// renderHelp renders the help text
func (m model) renderHelp() string {
	quit := "q: stop"
	if m.finished {
		quit = "q: exit"
	}

	return helpStyle.Render(fmt.Sprintf("%s | %s/%s: scroll | %s: %s | %s: %s",
		quit,
		keys.Up.Help().Key, keys.Down.Help().Key,
		keys.Home.Help().Key, keys.Home.Help().Desc,
		keys.End.Help().Key, keys.End.Help().Desc,
	))
}
