// ABOUTME: Entry point for m3u-dump
// ABOUTME: Handles command-line parsing, config merging, and routing to CLI, TUI or watch modes

// Package main provides the entry point for m3u-dump, which repairs playlist
// entries and gathers the referenced media into a destination directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"m3u-dump/config"
	"m3u-dump/report"
)

// Exit codes
const (
	exitOK          = 0
	exitRunFailed   = 1
	exitConfigError = 2
)

const debugLogFile = "m3u-dump-debug.log"

// cliOptions holds the parsed command line: the merged config plus mode switches
type cliOptions struct {
	cfg        config.Config
	configPath string
	savePreset string
	visual     bool
	watch      bool
	debug      bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}

		log.Printf("Config error: %v", err)

		return exitConfigError
	}

	if opts.savePreset != "" {
		if err := config.SaveConfig(opts.savePreset, opts.cfg); err != nil {
			log.Printf("Failed to save preset: %v", err)

			return exitRunFailed
		}

		fmt.Printf("Preset saved to %s\n", opts.savePreset)

		return exitOK
	}

	if opts.debug {
		if err := SetupDebugLog(debugLogFile); err != nil {
			log.Printf("Failed to setup debug log: %v", err)

			return exitRunFailed
		}
	}

	for _, field := range opts.cfg.Normalize() {
		log.Printf("Warning: invalid %s, using default", field)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if opts.watch {
		w := newPlaylistWatcher(opts.cfg, func(ctx context.Context) error {
			_, err := RunCLI(ctx, opts.cfg)

			return err
		})

		if err := w.Run(ctx); err != nil {
			log.Printf("Watch error: %v", err)

			return exitCode(err)
		}

		return exitOK
	}

	var rep *report.Report

	if opts.visual && isTTY(os.Stdout) {
		rep, err = RunVisual(opts.cfg)
	} else {
		rep, err = RunCLI(ctx, opts.cfg)
	}

	if err != nil {
		log.Printf("Run error: %v", err)

		return exitCode(err)
	}

	debugf("[RUN] %s finished: %+v", rep.RunID, rep.Counters())

	return exitOK
}

// exitCode maps a run error to the process exit code
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return exitConfigError
	}

	return exitRunFailed
}

// parseArgs parses flags, loads the config file and applies explicitly set flags on top.
// Up to two positional arguments set the source and destination.
func parseArgs(args []string, output io.Writer) (cliOptions, error) {
	fs := flag.NewFlagSet("m3u-dump", flag.ContinueOnError)
	fs.SetOutput(output)

	var opts cliOptions

	// Flag values start from the defaults; only visited flags are copied into the loaded config
	fv := config.DefaultConfig()
	patterns := strings.Join(fv.PlaylistPatterns, ",")

	fs.StringVar(&opts.configPath, "config", "", "load settings from this TOML file (default: ./m3u-dump.toml or ~/.config/m3u-dump/config.toml)")
	fs.StringVar(&opts.savePreset, "save-preset", "", "write the effective settings to this TOML file and exit")
	fs.BoolVar(&opts.visual, "visual", false, "show live progress in a terminal UI")
	fs.BoolVar(&opts.watch, "watch", false, "re-run whenever a source playlist changes")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging to "+debugLogFile)

	fs.StringVar(&fv.SourcePath, "source", fv.SourcePath, "playlist file or directory of playlists")
	fs.StringVar(&fv.DestinationDir, "dest", fv.DestinationDir, "destination directory for media and rewritten playlists")
	fs.BoolVar(&fv.DryRun, "dry-run", fv.DryRun, "report what would happen without touching the destination")
	fs.BoolVar(&fv.WritePlaylist, "write-playlist", fv.WritePlaylist, "write the rewritten playlist into the destination")
	fs.StringVar(&fv.SearchPath, "search-path", fv.SearchPath, "directory searched for entries that no longer exist")
	fs.StringVar(&patterns, "patterns", patterns, "comma-separated playlist file patterns for directory sources")
	fs.StringVar(&fv.CollisionStrategy, "collision", fv.CollisionStrategy, "basename collision strategy: "+strings.Join(config.CollisionStrategies, ", "))
	fs.StringVar(&fv.ReportJSONPath, "report-json", fv.ReportJSONPath, "write the run report as JSON to this file")
	fs.StringVar(&fv.ReportCSVPath, "report-csv", fv.ReportCSVPath, "write the run details as CSV to this file")
	fs.StringVar(&fv.OriginLinksCSVPath, "origin-links-csv", fv.OriginLinksCSVPath, "write resolved URL origins as CSV to this file")
	fs.BoolVar(&fv.SkipExisting, "skip-existing", fv.SkipExisting, "leave files already present in the destination alone")
	fs.StringVar(&fv.LinkMode, "link-mode", fv.LinkMode, "how media is placed: "+strings.Join(config.LinkModes, ", "))
	fs.BoolVar(&fv.ResolveURLFinal, "resolve-url", fv.ResolveURLFinal, "follow redirects of URL entries and record their origin")
	fs.DurationVar(&fv.URLTimeout.Duration, "url-timeout", fv.URLTimeout.Duration, "timeout for each URL probe")
	fs.Float64Var(&fv.URLProbeRate, "url-rate", fv.URLProbeRate, "maximum URL probes per second (0 for unlimited)")
	fs.StringVar(&fv.MetricsPath, "metrics", fv.MetricsPath, "write Prometheus metrics in textfile format to this file")
	fs.BoolVar(&fv.ContinueOnError, "continue-on-error", fv.ContinueOnError, "keep going with the next playlist after a failure")

	fs.Usage = func() {
		_, _ = fmt.Fprintln(output, "Usage: m3u-dump [flags] [source] [destination]")
		_, _ = fmt.Fprintln(output, "Example: m3u-dump -search-path /Volumes/music ~/playlists /Volumes/usb")
		_, _ = fmt.Fprintln(output, "\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	path := opts.configPath
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return opts, &config.Error{Code: config.ErrCodeInvalidValue, Field: "config", Err: err}
	}

	fv.PlaylistPatterns = splitPatterns(patterns)

	fs.Visit(func(f *flag.Flag) {
		applyFlag(&cfg, fv, f.Name)
	})

	rest := fs.Args()
	if len(rest) > 2 {
		fs.Usage()

		return opts, &config.Error{Code: config.ErrCodeInvalidValue, Field: "args", Err: fmt.Errorf("expected at most 2 arguments, got %d", len(rest))}
	}

	if len(rest) > 0 {
		cfg.SourcePath = rest[0]
	}

	if len(rest) > 1 {
		cfg.DestinationDir = rest[1]
	}

	opts.cfg = cfg

	return opts, nil
}

// applyFlag copies one explicitly set flag value from fv into cfg
func applyFlag(cfg *config.Config, fv config.Config, name string) {
	switch name {
	case "source":
		cfg.SourcePath = fv.SourcePath
	case "dest":
		cfg.DestinationDir = fv.DestinationDir
	case "dry-run":
		cfg.DryRun = fv.DryRun
	case "write-playlist":
		cfg.WritePlaylist = fv.WritePlaylist
	case "search-path":
		cfg.SearchPath = fv.SearchPath
	case "patterns":
		cfg.PlaylistPatterns = fv.PlaylistPatterns
	case "collision":
		cfg.CollisionStrategy = fv.CollisionStrategy
	case "report-json":
		cfg.ReportJSONPath = fv.ReportJSONPath
	case "report-csv":
		cfg.ReportCSVPath = fv.ReportCSVPath
	case "origin-links-csv":
		cfg.OriginLinksCSVPath = fv.OriginLinksCSVPath
	case "skip-existing":
		cfg.SkipExisting = fv.SkipExisting
	case "link-mode":
		cfg.LinkMode = fv.LinkMode
	case "resolve-url":
		cfg.ResolveURLFinal = fv.ResolveURLFinal
	case "url-timeout":
		cfg.URLTimeout = fv.URLTimeout
	case "url-rate":
		cfg.URLProbeRate = fv.URLProbeRate
	case "metrics":
		cfg.MetricsPath = fv.MetricsPath
	case "continue-on-error":
		cfg.ContinueOnError = fv.ContinueOnError
	}
}

// splitPatterns splits a comma-separated pattern list, dropping empty items
func splitPatterns(s string) []string {
	var out []string

	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
