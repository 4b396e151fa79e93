// ABOUTME: Run report accumulating counters, detail records and URL origin links
// ABOUTME: Moves from empty to accumulating to finalized and is serialized once at the end

// Package report aggregates the outcome of one m3u-dump run.
package report

import (
	"time"

	"github.com/google/uuid"
)

// State tracks the report lifecycle
type State int

const (
	Empty State = iota
	Accumulating
	Finalized
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Accumulating:
		return "accumulating"
	default:
		return "finalized"
	}
}

// Detail types written to the report
const (
	TypeCollision    = "collision"
	TypeUnresolved   = "unresolved"
	TypeCopied       = "copied"
	TypeHardlink     = "hardlink"
	TypeSymlink      = "symlink"
	TypeSkipExisting = "skip_existing"
	TypeSkipMissing  = "skip_missing"
	TypeDryRun       = "dryrun"
	TypeURLOrigin    = "url_origin"
	TypeError        = "error"
)

// Detail is one notable event; unused fields stay empty
type Detail struct {
	Type       string   `json:"type"`
	Playlist   string   `json:"playlist,omitempty"`
	Src        string   `json:"src,omitempty"`
	Dst        string   `json:"dst,omitempty"`
	Basename   string   `json:"basename,omitempty"`
	Strategy   string   `json:"strategy,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
	Selected   string   `json:"selected,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// OriginLink records where a URL entry finally pointed
type OriginLink struct {
	OriginalURL  string `json:"original_url"`
	FinalURL     string `json:"final_url"`
	OriginServer string `json:"origin_server"`
}

// Counters are the monotonically increasing totals of a run
type Counters struct {
	PlaylistsProcessed  int `json:"playlists_processed"`
	PlaylistsFailed     int `json:"playlists_failed"`
	Copied              int `json:"copied"`
	Linked              int `json:"linked"`
	CopySkippedMissing  int `json:"copy_skipped_missing"`
	CopySkippedExisting int `json:"copy_skipped_existing"`
	FixedPaths          int `json:"fixed_paths"`
	UnresolvedPaths     int `json:"unresolved_paths"`
	CollisionsResolved  int `json:"collisions_resolved"`
	URLEntriesDetected  int `json:"url_entries_detected"`
	URLOriginSaved      int `json:"url_origin_saved"`
}

// Report is owned by a single engine run; it is not safe for concurrent use
type Report struct {
	RunID             string
	DryRun            bool
	CollisionStrategy string
	LinkMode          string
	StartedAt         time.Time
	FinishedAt        time.Time

	counters    Counters
	details     []Detail
	originLinks []OriginLink
	state       State
}

// New creates an empty report with a fresh run id
func New(collisionStrategy, linkMode string, dryRun bool) *Report {
	return &Report{
		RunID:             uuid.NewString(),
		DryRun:            dryRun,
		CollisionStrategy: collisionStrategy,
		LinkMode:          linkMode,
	}
}

// Begin stamps the start time and moves the report to accumulating
func (r *Report) Begin(now time.Time) {
	r.mutate()

	if r.StartedAt.IsZero() {
		r.StartedAt = now.UTC()
	}
}

// Finalize stamps the finish time; any later mutation panics
func (r *Report) Finalize(now time.Time) {
	if r.state == Finalized {
		return
	}

	if r.StartedAt.IsZero() {
		r.StartedAt = now.UTC()
	}

	r.FinishedAt = now.UTC()
	r.state = Finalized
}

// State returns the lifecycle state
func (r *Report) State() State {
	return r.state
}

func (r *Report) mutate() {
	if r.state == Finalized {
		panic("report: mutation after Finalize")
	}

	r.state = Accumulating
}

// Counters returns a snapshot of the totals
func (r *Report) Counters() Counters {
	return r.counters
}

// Details returns the detail records in the order they were added
func (r *Report) Details() []Detail {
	return r.details
}

// OriginLinks returns the origin links in the order they were added
func (r *Report) OriginLinks() []OriginLink {
	return r.originLinks
}

// AddDetail appends a detail record
func (r *Report) AddDetail(d Detail) {
	r.mutate()
	r.details = append(r.details, d)
}

// OriginSaved appends an origin link with its url_origin detail and counts it
func (r *Report) OriginSaved(l OriginLink) {
	r.mutate()
	r.originLinks = append(r.originLinks, l)
	r.counters.URLOriginSaved++
	r.details = append(r.details, Detail{Type: TypeURLOrigin, Src: l.OriginalURL, Dst: l.FinalURL})
}

// PlaylistProcessed counts a playlist that completed
func (r *Report) PlaylistProcessed() {
	r.mutate()
	r.counters.PlaylistsProcessed++
}

// PlaylistFailed counts a playlist that stopped on an error and records why
func (r *Report) PlaylistFailed(playlist string, err error) {
	r.mutate()
	r.counters.PlaylistsFailed++
	r.details = append(r.details, Detail{Type: TypeError, Playlist: playlist, Error: err.Error()})
}

// PathFixed counts a resolved entry
func (r *Report) PathFixed() {
	r.mutate()
	r.counters.FixedPaths++
}

// Collision records a resolution that had to choose between candidates
func (r *Report) Collision(basename, strategy string, candidates []string, selected string) {
	r.mutate()
	r.counters.CollisionsResolved++
	r.details = append(r.details, Detail{
		Type:       TypeCollision,
		Basename:   basename,
		Strategy:   strategy,
		Candidates: append([]string(nil), candidates...),
		Selected:   selected,
	})
}

// Unresolved records an entry no file could be found for
func (r *Report) Unresolved(original, basename string) {
	r.mutate()
	r.counters.UnresolvedPaths++
	r.details = append(r.details, Detail{Type: TypeUnresolved, Src: original, Basename: basename})
}

// URLDetected counts a URL entry
func (r *Report) URLDetected() {
	r.mutate()
	r.counters.URLEntriesDetected++
}

// Copied records a byte copy
func (r *Report) Copied(src, dst string) {
	r.mutate()
	r.counters.Copied++
	r.details = append(r.details, Detail{Type: TypeCopied, Src: src, Dst: dst})
}

// Linked records a hard or symbolic link; kind is TypeHardlink or TypeSymlink
func (r *Report) Linked(kind, src, dst string) {
	r.mutate()
	r.counters.Linked++
	r.details = append(r.details, Detail{Type: kind, Src: src, Dst: dst})
}

// SkippedExisting records a destination left untouched
func (r *Report) SkippedExisting(src, dst string) {
	r.mutate()
	r.counters.CopySkippedExisting++
	r.details = append(r.details, Detail{Type: TypeSkipExisting, Src: src, Dst: dst})
}

// SkippedMissing records a source that does not exist
func (r *Report) SkippedMissing(src string) {
	r.mutate()
	r.counters.CopySkippedMissing++
	r.details = append(r.details, Detail{Type: TypeSkipMissing, Src: src})
}

// DryRunPlanned records a placement that dry-run suppressed
func (r *Report) DryRunPlanned(src, dst string) {
	r.mutate()
	r.details = append(r.details, Detail{Type: TypeDryRun, Src: src, Dst: dst})
}
