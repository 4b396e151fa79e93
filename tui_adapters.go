// ABOUTME: Adapter between the engine and the TUI
// ABOUTME: Builds the tui.RunFunc that drives one engine run with the TUI's observer attached

package main

import (
	"context"

	"m3u-dump/config"
	"m3u-dump/engine"
	"m3u-dump/report"
	"m3u-dump/tui"
)

// engineRunFunc adapts an engine run to the tui.RunFunc contract.
// Events go to the TUI and, when enabled, the debug log.
func engineRunFunc(cfg config.Config) tui.RunFunc {
	return func(ctx context.Context, obs engine.Observer) (*report.Report, error) {
		e := engine.New(cfg, engine.WithObserver(engine.MultiObserver{debugObserver{}, obs}))

		return e.Run(ctx)
	}
}

// RunVisual executes one run inside the progress TUI
func RunVisual(cfg config.Config) (*report.Report, error) {
	opts := tui.Options{
		Source:      cfg.SourcePath,
		Destination: cfg.DestinationDir,
		DryRun:      cfg.DryRun,
	}

	return tui.Run(opts, engineRunFunc(cfg), debugf)
}
