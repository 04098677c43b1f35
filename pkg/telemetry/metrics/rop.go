package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ROPMetrics tracks file generation.
//
// Per-ROP gauges describe the most recent successful cycle:
//   - <ns>_rop_renamed_files: links published by a bootstrap or rotated by a rotation
//   - <ns>_rop_renamed_files_by_category: the same split by category
//   - <ns>_rop_rename_duration_ms: time the cycle took
//   - <ns>_rop_uploaded_files, <ns>_rop_upload_duration_ms: last template upload
//
// Counters accumulate over the process lifetime.
type ROPMetrics struct {
	renamedPerROP      prometheus.Gauge
	renamedPerCategory *prometheus.GaugeVec
	renameDurationMs   prometheus.Gauge
	uploadedPerROP     prometheus.Gauge
	uploadDurationMs   prometheus.Gauge
	livePaths          prometheus.Gauge
	templates          *prometheus.GaugeVec
	lastSuccess        prometheus.Gauge

	symlinksTotal       prometheus.Counter
	uploadedTotal       prometheus.Counter
	deletedTotal        prometheus.Counter
	deleteFailuresTotal prometheus.Counter
	skippedTotal        prometheus.Counter
	generations         *prometheus.CounterVec
	generationDuration  *prometheus.HistogramVec
}

// NewROPMetrics creates and registers generation metrics.
func NewROPMetrics(namespace string, registry *prometheus.Registry) *ROPMetrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}

	m := &ROPMetrics{
		renamedPerROP:    gauge("rop_renamed_files", "Links published by the last bootstrap or rotated by the last rotation"),
		renameDurationMs: gauge("rop_rename_duration_ms", "Duration of the last successful ROP generation in milliseconds"),
		uploadedPerROP:   gauge("rop_uploaded_files", "Template files uploaded by the last upload"),
		uploadDurationMs: gauge("rop_upload_duration_ms", "Duration of the last template upload in milliseconds"),
		livePaths:        gauge("live_paths", "Number of live published paths"),
		lastSuccess:      gauge("rop_last_success_timestamp_seconds", "Unix time of the last successful generation"),

		renamedPerCategory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rop_renamed_files_by_category",
			Help:      "Links published or rotated in the last successful ROP by category",
		}, []string{"category"}),
		templates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "templates",
			Help:      "Uploaded templates by category",
		}, []string{"category"}),

		symlinksTotal:       counter("symlinks_created_total", "Total links published or rotated"),
		uploadedTotal:       counter("files_uploaded_total", "Total template files uploaded"),
		deletedTotal:        counter("expired_files_deleted_total", "Total expired paths deleted"),
		deleteFailuresTotal: counter("expired_file_delete_failures_total", "Total failed deletes of expired paths"),
		skippedTotal:        counter("rotation_skipped_total", "Total live paths left in place after a naming error"),

		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation triggers by source, outcome and failure reason",
		}, []string{"source", "outcome", "reason"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of generation triggers",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.renamedPerROP,
		m.renamedPerCategory,
		m.renameDurationMs,
		m.uploadedPerROP,
		m.uploadDurationMs,
		m.livePaths,
		m.templates,
		m.lastSuccess,
		m.symlinksTotal,
		m.uploadedTotal,
		m.deletedTotal,
		m.deleteFailuresTotal,
		m.skippedTotal,
		m.generations,
		m.generationDuration,
	)
	return m
}
