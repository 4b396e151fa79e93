// ABOUTME: Update function and message handlers for the TUI
// ABOUTME: Folds engine events into progress state and handles scrolling and quit keys

package tui

import (
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"m3u-dump/engine"
)

// Update handles messages and updates the model
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			m.debugf("[PANIC] Update panic: %v", r)
			m.debugf("[PANIC] Stack trace: %s", string(debug.Stack()))
			panic(r) // Re-panic so Bubble Tea can handle it
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)

		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.elapsed = time.Since(m.startedAt)

		return m, cmd

	case eventMsg:
		m.applyEvent(engine.Event(msg))

		return m, waitForEvent(m.events, m.state)

	case doneMsg:
		m.finished = true
		m.rep = msg.rep
		m.runErr = msg.err
		m.elapsed = time.Since(m.startedAt)

		if msg.rep != nil {
			m.counters = msg.rep.Counters()
		}

		if msg.err != nil {
			m.appendLine(errorStyle.Render("run failed: " + msg.err.Error()))
		}

		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleResize sizes the log viewport to the space left by the chrome
func (m *model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	w := msg.Width
	if w < minViewportWidth {
		w = minViewportWidth
	}

	h := msg.Height - totalUIChrome
	if h < minViewportHeight {
		h = minViewportHeight
	}

	m.viewport.Width = w
	m.viewport.Height = h
	m.refreshViewport()
}

// handleKey handles quit and log scrolling keys
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		m.cancel()

		return m, tea.Quit

	case key.Matches(msg, keys.Home):
		m.follow = false
		m.viewport.GotoTop()

	case key.Matches(msg, keys.End):
		m.follow = true
		m.viewport.GotoBottom()

	case key.Matches(msg, keys.Up, keys.Down, keys.PageUp, keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()

		return m, cmd
	}

	return m, nil
}

// applyEvent folds one engine event into the progress state and log
func (m *model) applyEvent(ev engine.Event) {
	switch ev.Kind {
	case engine.RunStarted:
		m.total = ev.Total

	case engine.PlaylistStarted:
		m.index = ev.Index
		m.total = ev.Total
		m.current = ev.Playlist

	case engine.PlaylistWritten, engine.RunFinished:
		m.counters = ev.Counters

	case engine.PlaylistFailed:
		m.counters = ev.Counters
		m.failures++
		m.appendLine(errorStyle.Render(ev.String()))

		return
	}

	m.appendLine(ev.String())
}

// appendLine adds a log line, trimming the oldest beyond maxLogLines
func (m *model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}

	m.refreshViewport()
}

// refreshViewport sets the viewport content and keeps following the tail when enabled
func (m *model) refreshViewport() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))

	if m.follow {
		m.viewport.GotoBottom()
	}
}
