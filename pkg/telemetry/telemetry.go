package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/ropsim/pkg/config"
	"mercator-hq/ropsim/pkg/telemetry/health"
	"mercator-hq/ropsim/pkg/telemetry/logging"
	"mercator-hq/ropsim/pkg/telemetry/metrics"
	"mercator-hq/ropsim/pkg/telemetry/tracing"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Telemetry bundles the simulator's logger, metrics collector, tracer and
// health checker.
type Telemetry struct {
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
	build   BuildInfo
}

// New builds every telemetry component from cfg and installs the logger as
// the slog default.
func New(cfg *config.TelemetryConfig, build BuildInfo) (*Telemetry, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	slog.SetDefault(logger.Slog())

	tracer, err := tracing.New(&cfg.Tracing, build.Version)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	return &Telemetry{
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Metrics, nil),
		tracer:  tracer,
		health:  health.New(2 * time.Second),
		build:   build,
	}, nil
}

// Logger returns the structured logger.
func (t *Telemetry) Logger() *logging.Logger { return t.logger }

// Metrics returns the metrics collector.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// Build returns the build information.
func (t *Telemetry) Build() BuildInfo { return t.build }

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.tracer.Shutdown(ctx)
}
