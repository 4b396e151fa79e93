// ABOUTME: CLI mode implementation for non-interactive runs
// ABOUTME: Handles progress display, the final summary, and signal handling for command-line usage

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"m3u-dump/config"
	"m3u-dump/engine"
	"m3u-dump/report"
)

// isTTY checks if the given file is a terminal
func isTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}

		signal.Stop(stop)
	}()

	return ctx, cancel
}

// logObserver prints engine events for the CLI.
// On a terminal, per-entry placements overwrite a single status line; otherwise every event gets its own line.
type logObserver struct {
	out        io.Writer
	isTerminal bool
	statusOpen bool
}

func newLogObserver(out io.Writer, isTerminal bool) *logObserver {
	return &logObserver{out: out, isTerminal: isTerminal}
}

// OnEvent prints one event
func (o *logObserver) OnEvent(ev engine.Event) {
	if o.isTerminal && ev.Kind == engine.EntryPlaced {
		_, _ = fmt.Fprintf(o.out, "\r\033[K%s", truncate(ev.String(), statusLineWidth))
		o.statusOpen = true

		return
	}

	if o.statusOpen {
		// Clear status line before printing progress
		_, _ = fmt.Fprint(o.out, "\r\033[K")
		o.statusOpen = false
	}

	if ev.Kind == engine.RunFinished {
		// The summary table replaces the one-line summary
		return
	}

	_, _ = fmt.Fprintf(o.out, "%s %s\n", ev.Time.Format("15:04:05"), ev.String())
}

const statusLineWidth = 100

// RunCLI executes one run, printing progress and a summary to stdout
func RunCLI(ctx context.Context, cfg config.Config) (*report.Report, error) {
	start := time.Now()

	if cfg.DryRun {
		fmt.Println("--dry-run mode: destination will not be modified")
	}

	obs := engine.MultiObserver{newLogObserver(os.Stdout, isTTY(os.Stdout)), debugObserver{}}

	rep, err := engine.New(cfg, engine.WithObserver(obs)).Run(ctx)
	if rep == nil {
		return nil, err
	}

	printSummary(os.Stdout, rep, time.Since(start))

	return rep, err
}

// printSummary writes the final counters as an aligned table
func printSummary(out io.Writer, rep *report.Report, elapsed time.Duration) {
	c := rep.Counters()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	rows := []struct {
		name  string
		value int
	}{
		{"Playlists processed", c.PlaylistsProcessed},
		{"Playlists failed", c.PlaylistsFailed},
		{"Paths fixed", c.FixedPaths},
		{"Paths unresolved", c.UnresolvedPaths},
		{"Collisions resolved", c.CollisionsResolved},
		{"URL entries", c.URLEntriesDetected},
		{"Origins saved", c.URLOriginSaved},
		{"Copied", c.Copied},
		{"Linked", c.Linked},
		{"Skipped (existing)", c.CopySkippedExisting},
		{"Skipped (missing)", c.CopySkippedMissing},
	}

	_, _ = fmt.Fprintf(w, "\nRun %s\n", rep.RunID)

	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", r.name, r.value)
	}

	if err := w.Flush(); err != nil {
		debugf("[CLI] failed to flush summary: %v", err)
	}

	_, _ = fmt.Fprintf(out, "\nCompleted in %v\n", elapsed.Round(time.Millisecond))
}
