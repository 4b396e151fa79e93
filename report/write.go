// ABOUTME: Serializes a run report to JSON, detail CSV and origin-links CSV
// ABOUTME: Every output file is written atomically through a temp file

package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"m3u-dump/fsx"
)

// document is the JSON layout: counters at top level followed by run metadata
type document struct {
	RunID  string `json:"run_id"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Counters

	CollisionStrategy string       `json:"collision_strategy"`
	LinkMode          string       `json:"link_mode"`
	Details           []Detail     `json:"details"`
	OriginLinks       []OriginLink `json:"origin_links"`
}

// MarshalJSON encodes the report with non-nil slices so empty lists serialize as []
func (r *Report) MarshalJSON() ([]byte, error) {
	doc := document{
		RunID:             r.RunID,
		DryRun:            r.DryRun,
		StartedAt:         r.StartedAt.UTC(),
		FinishedAt:        r.FinishedAt.UTC(),
		Counters:          r.counters,
		CollisionStrategy: r.CollisionStrategy,
		LinkMode:          r.LinkMode,
		Details:           r.details,
		OriginLinks:       r.originLinks,
	}

	if doc.Details == nil {
		doc.Details = []Detail{}
	}

	if doc.OriginLinks == nil {
		doc.OriginLinks = []OriginLink{}
	}

	return json.Marshal(doc)
}

// WriteJSON writes the indented JSON report to path
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return writeFile(path, append(data, '\n'))
}

// detailHeader is the column layout of the detail CSV
var detailHeader = []string{"type", "src", "dst", "basename", "strategy", "selected"}

// WriteCSV writes one row per detail record to path
func (r *Report) WriteCSV(path string) error {
	rows := make([][]string, 0, len(r.details))
	for _, d := range r.details {
		rows = append(rows, []string{d.Type, d.Src, d.Dst, d.Basename, d.Strategy, d.Selected})
	}

	return writeCSV(path, detailHeader, rows)
}

// WriteOriginLinksCSV writes one row per origin link to path
func (r *Report) WriteOriginLinksCSV(path string) error {
	rows := make([][]string, 0, len(r.originLinks))
	for _, l := range r.originLinks {
		rows = append(rows, []string{l.OriginalURL, l.FinalURL, l.OriginServer})
	}

	return writeCSV(path, []string{"original_url", "final_url", "origin_server"}, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to encode csv header: %w", err)
	}

	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to encode csv rows: %w", err)
	}

	return writeFile(path, buf.Bytes())
}

func writeFile(path string, data []byte) error {
	if err := fsx.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
