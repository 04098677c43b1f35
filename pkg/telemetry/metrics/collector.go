package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mercator-hq/ropsim/pkg/config"
	"mercator-hq/ropsim/pkg/generator"
	"mercator-hq/ropsim/pkg/templates"
)

// Collector owns the simulator's Prometheus registry. It observes generation
// cycles, template uploads and HTTP requests.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	rop  *ROPMetrics
	http *HTTPMetrics
}

// NewCollector creates a collector registering into registry. A nil registry
// gets a fresh one with the Go and process collectors attached.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		rop:      NewROPMetrics(cfg.Namespace, registry),
		http:     NewHTTPMetrics(cfg.Namespace, registry),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveCycle records one finished generation. It satisfies
// generator.Observer.
func (c *Collector) ObserveCycle(r generator.Result) {
	if !c.config.Enabled {
		return
	}

	m := c.rop
	m.generations.WithLabelValues(string(r.Source), string(r.Outcome), string(r.Reason)).Inc()
	m.generationDuration.WithLabelValues(string(r.Outcome)).Observe(r.Stats.Duration.Seconds())
	m.livePaths.Set(float64(r.Stats.Live))
	m.deletedTotal.Add(float64(r.Stats.Deleted))
	m.deleteFailuresTotal.Add(float64(r.Stats.DeleteFailures))
	m.skippedTotal.Add(float64(r.Stats.Skipped))

	if !r.OK() {
		return
	}

	renamed := r.Stats.Rotated
	if r.Outcome == generator.OutcomeBootstrapped {
		renamed = r.Stats.Published
	}
	m.renamedPerROP.Set(float64(renamed))
	m.renameDurationMs.Set(float64(r.Stats.Duration.Milliseconds()))
	m.symlinksTotal.Add(float64(r.Stats.Published + r.Stats.Rotated))
	for _, cat := range templates.Categories {
		m.renamedPerCategory.WithLabelValues(cat.String()).Set(float64(r.Stats.PerCategory[cat]))
	}
	m.lastSuccess.SetToCurrentTime()
}

// RecordUpload records a template upload.
func (c *Collector) RecordUpload(stats templates.UploadStats) {
	if !c.config.Enabled {
		return
	}
	c.rop.uploadedPerROP.Set(float64(stats.Files))
	c.rop.uploadDurationMs.Set(float64(stats.Duration.Milliseconds()))
	c.rop.uploadedTotal.Add(float64(stats.Files))
	for cat, n := range stats.Counts {
		c.rop.templates.WithLabelValues(cat.String()).Set(float64(n))
	}
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(route string, code int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.http.requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	c.http.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
