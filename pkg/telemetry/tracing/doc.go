// Package tracing configures OpenTelemetry tracing for the simulator.
//
// When enabled, New installs a global tracer provider exporting over OTLP gRPC
// and the W3C trace context propagator. The generator and engine create their
// spans through otel.Tracer, so each trigger produces a trace of the shape:
//
//	GET /generateRop
//	└── generator.trigger   ropsim.trigger.id, ropsim.trigger.source
//	    └── engine.rotate   ropsim.rop.window, ropsim.rop.rotated, ...
//
// Configuration:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio
//	    sample_ratio: 1.0
//	    endpoint: localhost:4317
//	    insecure: true
package tracing
