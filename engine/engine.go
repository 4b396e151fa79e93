// ABOUTME: Run engine that resolves, materializes and rewrites every discovered playlist
// ABOUTME: Sequential by design; optional stages are switched on by configuration

// Package engine drives one m3u-dump run from configuration to finished report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"m3u-dump/config"
	"m3u-dump/materialize"
	"m3u-dump/playlist"
	"m3u-dump/report"
	"m3u-dump/resolve"
	"m3u-dump/urlorigin"
)

// PlaylistError names the playlist that stopped a run
type PlaylistError struct {
	Playlist string
	Err      error
}

func (e *PlaylistError) Error() string {
	return fmt.Sprintf("failed to process playlist %s: %v", e.Playlist, e.Err)
}

func (e *PlaylistError) Unwrap() error { return e.Err }

// Option customizes an Engine
type Option func(*Engine)

// WithObserver sets the event receiver
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.obs = o
		}
	}
}

// WithHTTPClient sets the client used for URL probes
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// WithClock replaces time.Now for report timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine runs one configuration; Run may be called repeatedly and each call starts from scratch
type Engine struct {
	cfg    config.Config
	obs    Observer
	client *http.Client
	now    func() time.Time
}

// New creates an engine; the configuration is normalized immediately
func New(cfg config.Config, opts ...Option) *Engine {
	cfg.Normalize()

	e := &Engine{
		cfg: cfg,
		obs: nopObserver{},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Config returns the normalized configuration
func (e *Engine) Config() config.Config {
	return e.cfg
}

// run holds the per-invocation state
type run struct {
	*Engine

	rep      *report.Report
	resolver *resolve.Resolver
	origins  *urlorigin.Resolver
	mat      *materialize.Materializer
	total    int
}

// Run processes every playlist and returns the finalized report. A configuration
// error returns a nil report. Otherwise the report is always returned, along with
// any playlist failures or a context error.
func (e *Engine) Run(ctx context.Context) (*report.Report, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	rep := report.New(e.cfg.CollisionStrategy, e.cfg.LinkMode, e.cfg.DryRun)
	rep.Begin(e.now())

	r := &run{
		Engine: e,
		rep:    rep,
		mat: materialize.New(materialize.Options{
			Mode:         materialize.LinkMode(e.cfg.LinkMode),
			SkipExisting: e.cfg.SkipExisting,
			DryRun:       e.cfg.DryRun,
		}),
	}

	err := r.execute(ctx)

	rep.Finalize(e.now())

	if werr := e.writeOutputs(rep); werr != nil {
		err = errors.Join(err, werr)
	}

	e.emit(Event{Kind: RunFinished, DryRun: e.cfg.DryRun, Err: err, Counters: rep.Counters()})

	return rep, err
}

func (r *run) execute(ctx context.Context) error {
	lists, err := playlist.DiscoverPlaylists(r.cfg.SourcePath, r.cfg.PlaylistPatterns)
	if err != nil {
		return err
	}

	r.total = len(lists)
	r.emit(Event{Kind: RunStarted, Total: r.total, DryRun: r.cfg.DryRun})

	strategy := resolve.Strategy(r.cfg.CollisionStrategy)

	if r.cfg.SearchPath != "" {
		idx, err := resolve.BuildIndex(r.cfg.SearchPath)
		if err != nil {
			return err
		}

		r.resolver = resolve.NewResolver(idx, strategy)
		r.emit(Event{Kind: IndexBuilt, Src: r.cfg.SearchPath, Files: idx.Files()})
	} else {
		// Without an index every missing entry is unresolved
		r.resolver = resolve.NewResolver(nil, strategy)
	}

	if r.cfg.ResolveURLFinal {
		r.origins = urlorigin.New(urlorigin.Options{
			Timeout: r.cfg.URLTimeout.Duration,
			Rate:    r.cfg.URLProbeRate,
			Client:  r.client,
		})
	}

	if !r.cfg.DryRun {
		if err := os.MkdirAll(r.cfg.DestinationDir, 0o755); err != nil {
			return fmt.Errorf("failed to create destination directory: %w", err)
		}
	}

	var errs []error

	for i, path := range lists {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)

			break
		}

		r.emit(Event{Kind: PlaylistStarted, Playlist: path, Index: i + 1, Total: r.total})

		if err := r.processPlaylist(ctx, path, i+1); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				errs = append(errs, err)

				break
			}

			r.rep.PlaylistFailed(path, err)
			r.emit(Event{Kind: PlaylistFailed, Playlist: path, Index: i + 1, Total: r.total, Err: err, Counters: r.rep.Counters()})

			errs = append(errs, &PlaylistError{Playlist: path, Err: err})
			if !r.cfg.ContinueOnError {
				break
			}
		}
	}

	return errors.Join(errs...)
}

func (r *run) processPlaylist(ctx context.Context, path string, index int) error {
	entries, err := playlist.LoadPlaylist(path)
	if err != nil {
		return err
	}

	out, err := r.rewrite(ctx, filepath.Dir(path), entries)
	if err != nil {
		return err
	}

	for _, entry := range out {
		if entry.Kind != playlist.KindLocalPath {
			continue
		}

		if err := r.place(entry.Raw); err != nil {
			return err
		}
	}

	var target string
	if r.cfg.WritePlaylist {
		target, err = playlist.WritePlaylist(r.cfg.DestinationDir, filepath.Base(path), out, r.cfg.DryRun)
		if err != nil {
			return err
		}
	}

	r.rep.PlaylistProcessed()
	r.emit(Event{Kind: PlaylistWritten, Playlist: path, Index: index, Total: r.total, Dst: target, DryRun: r.cfg.DryRun, Counters: r.rep.Counters()})

	return nil
}

// rewrite builds the output entries: local paths are resolved, unresolved ones are
// dropped together with a directly preceding comment, URLs are probed but kept as is
func (r *run) rewrite(ctx context.Context, baseDir string, entries []playlist.Entry) ([]playlist.Entry, error) {
	out := make([]playlist.Entry, 0, len(entries))

	for _, entry := range entries {
		switch entry.Kind {
		case playlist.KindComment:
			out = append(out, entry)

		case playlist.KindURL:
			r.rep.URLDetected()

			if r.origins != nil {
				link, err := r.origins.Resolve(ctx, entry.Raw)
				if err != nil {
					return nil, err
				}

				r.rep.OriginSaved(report.OriginLink{
					OriginalURL:  link.OriginalURL,
					FinalURL:     link.FinalURL,
					OriginServer: link.OriginServer,
				})
				r.emit(Event{Kind: URLProbed, Src: link.OriginalURL, Dst: link.FinalURL})
			}

			out = append(out, entry)

		default:
			src := localSource(baseDir, entry.Raw)
			res := r.resolver.ResolveRef(src, entry.Raw)

			switch res.Status {
			case resolve.Unchanged:
				out = append(out, entry.WithRaw(src))

			case resolve.Resolved:
				r.rep.PathFixed()

				if res.Collision() {
					r.rep.Collision(res.Basename, string(r.resolver.Strategy()), res.Candidates, res.Selected)
				}

				r.emit(Event{Kind: EntryFixed, Src: entry.Original, Dst: res.Selected})
				out = append(out, entry.WithRaw(res.Selected))

			default:
				r.rep.Unresolved(entry.Original, res.Basename)
				r.emit(Event{Kind: EntryUnresolved, Src: entry.Original})

				if n := len(out); n > 0 && out[n-1].Kind == playlist.KindComment {
					out = out[:n-1]
				}
			}
		}
	}

	return out, nil
}

func (r *run) place(src string) error {
	outcome, dst, err := r.mat.Materialize(src, r.cfg.DestinationDir)
	if err != nil {
		return err
	}

	switch outcome {
	case materialize.Copied:
		r.rep.Copied(src, dst)
	case materialize.HardLinked, materialize.SymLinked:
		r.rep.Linked(outcome.String(), src, dst)
	case materialize.SkippedExisting:
		r.rep.SkippedExisting(src, dst)
	case materialize.SkippedMissing:
		r.rep.SkippedMissing(src)
	case materialize.DryRun:
		r.rep.DryRunPlanned(src, dst)
	}

	r.emit(Event{Kind: EntryPlaced, Src: src, Dst: dst, Outcome: outcome.String(), DryRun: r.cfg.DryRun})

	return nil
}

// writeOutputs writes every configured report file; all are attempted
func (e *Engine) writeOutputs(rep *report.Report) error {
	var errs []error

	if e.cfg.ReportJSONPath != "" {
		errs = append(errs, rep.WriteJSON(e.cfg.ReportJSONPath))
	}

	if e.cfg.ReportCSVPath != "" {
		errs = append(errs, rep.WriteCSV(e.cfg.ReportCSVPath))
	}

	if e.cfg.OriginLinksCSVPath != "" {
		errs = append(errs, rep.WriteOriginLinksCSV(e.cfg.OriginLinksCSVPath))
	}

	if e.cfg.MetricsPath != "" {
		errs = append(errs, report.WriteMetricsTextfile(e.cfg.MetricsPath, rep))
	}

	return errors.Join(errs...)
}

func (e *Engine) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = e.now()
	}

	e.obs.OnEvent(ev)
}

// localSource interprets relative entries against the playlist's directory.
// Drive-letter and UNC paths are left alone so they resolve by basename.
func localSource(baseDir, raw string) string {
	if filepath.IsAbs(raw) || isWindowsAbs(raw) {
		return raw
	}

	return filepath.Join(baseDir, raw)
}

func isWindowsAbs(p string) bool {
	if strings.HasPrefix(p, `\\`) {
		return true
	}

	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}
