// ABOUTME: Prometheus metrics for a finished run
// ABOUTME: Exported as a node_exporter textfile so cron and watch runs can be scraped

package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds one registry per run so repeated runs never share state
type Metrics struct {
	registry *prometheus.Registry

	playlists   *prometheus.CounterVec
	entries     *prometheus.CounterVec
	placements  *prometheus.CounterVec
	collisions  prometheus.Counter
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// NewMetrics registers the m3u_dump_* collectors on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		playlists: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "m3u_dump_playlists_total",
				Help: "Playlists handled in the last run",
			},
			[]string{"status"}, // "processed", "failed"
		),
		entries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "m3u_dump_entries_total",
				Help: "Playlist entries by resolution result",
			},
			[]string{"result"}, // "fixed", "unresolved", "url", "url_origin"
		),
		placements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "m3u_dump_placements_total",
				Help: "Materialization outcomes",
			},
			[]string{"outcome"},
		),
		collisions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "m3u_dump_collisions_resolved_total",
				Help: "Basenames found in more than one directory",
			},
		),
		duration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "m3u_dump_run_duration_seconds",
				Help: "Wall time of the last run",
			},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "m3u_dump_last_run_success",
				Help: "1 if the last run finished without a failed playlist",
			},
		),
	}
}

// Observe copies the totals of a finalized report into the collectors
func (m *Metrics) Observe(r *Report) {
	c := r.Counters()

	m.playlists.WithLabelValues("processed").Add(float64(c.PlaylistsProcessed))
	m.playlists.WithLabelValues("failed").Add(float64(c.PlaylistsFailed))

	m.entries.WithLabelValues("fixed").Add(float64(c.FixedPaths))
	m.entries.WithLabelValues("unresolved").Add(float64(c.UnresolvedPaths))
	m.entries.WithLabelValues("url").Add(float64(c.URLEntriesDetected))
	m.entries.WithLabelValues("url_origin").Add(float64(c.URLOriginSaved))

	m.placements.WithLabelValues(TypeCopied).Add(float64(c.Copied))
	m.placements.WithLabelValues("linked").Add(float64(c.Linked))
	m.placements.WithLabelValues(TypeSkipExisting).Add(float64(c.CopySkippedExisting))
	m.placements.WithLabelValues(TypeSkipMissing).Add(float64(c.CopySkippedMissing))

	m.collisions.Add(float64(c.CollisionsResolved))

	if !r.FinishedAt.IsZero() {
		m.duration.Set(r.FinishedAt.Sub(r.StartedAt).Seconds())
	}

	if c.PlaylistsFailed == 0 {
		m.lastSuccess.Set(1)
	} else {
		m.lastSuccess.Set(0)
	}
}

// Registry exposes the underlying registry for tests and custom exporters
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteMetricsTextfile writes the report's metrics in the Prometheus text format
func WriteMetricsTextfile(path string, r *Report) error {
	m := NewMetrics()
	m.Observe(r)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics %s: %w", path, err)
	}

	return nil
}
