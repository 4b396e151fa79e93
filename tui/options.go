// ABOUTME: TUI mode configuration and injected dependencies
// ABOUTME: Defines what the progress view shows and how it starts a run

package tui

import (
	"context"

	"m3u-dump/engine"
	"m3u-dump/report"
)

// Options contains configuration for running the TUI
type Options struct {
	Source      string // Playlist file or directory being processed
	Destination string // Destination directory
	DryRun      bool   // Shown in the header; the run itself is configured by RunFunc
}

// RunFunc executes one engine run, delivering events to obs
type RunFunc func(ctx context.Context, obs engine.Observer) (*report.Report, error)
