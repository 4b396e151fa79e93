// ABOUTME: Terminal UI model and core state management
// ABOUTME: Bubble Tea model that follows a running engine through its event stream

// Package tui provides a live terminal progress view for m3u-dump runs.
package tui

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"m3u-dump/engine"
	"m3u-dump/report"
)

// Layout constants for UI dimensions
const (
	// UI chrome heights (elements that reduce available viewport space)
	headerHeight    = 3 // Title, paths and progress line
	countersHeight  = 2 // Counter summary and blank line
	statusBarHeight = 1 // Bottom status bar
	helpHeight      = 1 // Help text line
	totalUIChrome   = headerHeight + countersHeight + statusBarHeight + helpHeight

	minViewportWidth  = 20
	minViewportHeight = 5
)

const (
	eventBufferSize = 64  // Events queued between engine and UI
	maxLogLines     = 500 // Oldest log lines are dropped beyond this
)

// eventMsg carries one engine event into Update
type eventMsg engine.Event

// doneMsg signals that the run returned
type doneMsg struct {
	rep *report.Report
	err error
}

// runState is shared between the engine goroutine and Run; fields are read only after done is closed
type runState struct {
	done chan struct{}
	rep  *report.Report
	err  error
}

// model holds the TUI state
type model struct {
	// Dependencies
	run    RunFunc
	debugf func(string, ...interface{})

	// Run lifecycle
	// Framework exception: Bubble Tea owns the model lifecycle, so the run's
	// context lives in the struct to let the quit key cancel it.
	ctx    context.Context    //nolint:containedctx // See framework exception above
	cancel context.CancelFunc // Cancels the engine run
	events chan engine.Event  // Engine events, closed when the run returns
	state  *runState

	// Run progress
	opts      Options
	total     int
	index     int
	current   string
	counters  report.Counters
	failures  int
	finished  bool
	runErr    error
	rep       *report.Report
	startedAt time.Time
	elapsed   time.Duration

	// UI state
	width    int
	height   int
	quitting bool
	follow   bool // Keep the log scrolled to the newest line
	lines    []string
	spinner  spinner.Model
	viewport viewport.Model
}

// Key bindings
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "scroll"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "scroll"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("home/g", "oldest"),
	),
	End: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("end/G", "follow"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	countersStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))

	dryRunStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// Run starts the TUI, drives one engine run and returns its result.
// Quitting early cancels the run and waits for the engine to stop.
func Run(opts Options, run RunFunc, debugf func(string, ...interface{})) (*report.Report, error) {
	m := initModel(opts, run, debugf)

	go m.launch()

	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		m.cancel()
		<-m.state.done

		return m.state.rep, fmt.Errorf("TUI error: %w", err)
	}

	// The engine may still be finishing its current playlist after an early quit
	m.cancel()
	<-m.state.done

	return m.state.rep, m.state.err
}

// initModel creates the initial model with injected dependencies
func initModel(opts Options, run RunFunc, debugf func(string, ...interface{})) model {
	if debugf == nil {
		debugf = func(string, ...interface{}) {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return model{
		run:       run,
		debugf:    debugf,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan engine.Event, eventBufferSize),
		state:     &runState{done: make(chan struct{})},
		opts:      opts,
		startedAt: time.Now(),
		follow:    true,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		viewport:  viewport.New(0, 0), // Width and height set on first WindowSizeMsg
	}
}

// Init starts the spinner and the event pump
func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForEvent(m.events, m.state),
	)
}

// launch runs the engine and publishes the result through state
func (m model) launch() {
	defer func() {
		if r := recover(); r != nil {
			m.debugf("[PANIC] engine run panic: %v", r)
			m.debugf("[PANIC] Stack trace: %s", string(debug.Stack()))
			panic(r) // Re-panic after logging
		}
	}()

	obs := engine.ObserverFunc(func(ev engine.Event) {
		select {
		case m.events <- ev:
		case <-m.ctx.Done():
			// UI is gone, drop the event
		}
	})

	rep, err := m.run(m.ctx, obs)

	m.state.rep = rep
	m.state.err = err
	close(m.events)
	close(m.state.done)
}

// waitForEvent waits for the next engine event, or the final result once the stream closes
func waitForEvent(events <-chan engine.Event, state *runState) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			<-state.done

			return doneMsg{rep: state.rep, err: state.err}
		}

		return eventMsg(ev)
	}
}

// ========== Helpers ==========

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	if len(s) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return s[:maxLen]
	}

	return "..." + s[len(s)-maxLen+3:]
}
