// Package metrics exposes generation and HTTP metrics in Prometheus format.
//
// The Collector is registered as a generator observer so every trigger
// updates the per-ROP gauges and lifetime counters:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	gen := generator.New(genCfg, eng, conn, generator.WithObserver(collector))
//	mux.Handle("/metrics", collector.Handler())
package metrics
