// Package telemetry wires the simulator's observability: structured logging
// with secret redaction, Prometheus metrics, OpenTelemetry tracing and health
// endpoints.
//
//	tel, err := telemetry.New(&cfg.Telemetry, telemetry.BuildInfo{Version: version})
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	gen := generator.New(genCfg, eng, conn,
//		generator.WithObserver(tel.Metrics()),
//		generator.WithLogger(tel.Logger().Slog()),
//	)
//
// Subpackages:
//
//   - logging: slog handlers adding trigger and request context, with redaction
//   - metrics: per-ROP gauges and lifetime counters
//   - tracing: OTLP export and HTTP trace propagation
//   - health: liveness, readiness and version endpoints
package telemetry
