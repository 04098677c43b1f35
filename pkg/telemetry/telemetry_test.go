package telemetry

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/ropsim/pkg/config"
)

func TestNew(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := config.Default().Telemetry
	tel, err := New(&cfg, BuildInfo{Version: "1.0.0"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tel.Shutdown(context.Background())

	if tel.Logger() == nil || tel.Metrics() == nil || tel.Tracer() == nil || tel.Health() == nil {
		t.Fatal("expected every component")
	}
	if tel.Tracer().Enabled() {
		t.Error("tracing should be disabled by default")
	}
	if slog.Default() != tel.Logger().Slog() {
		t.Error("logger was not installed as the default")
	}
	if tel.Build().Version != "1.0.0" {
		t.Errorf("Build() = %+v", tel.Build())
	}
}

func TestNew_InvalidLogging(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.Logging.Level = "loud"
	if _, err := New(&cfg, BuildInfo{}); err == nil || !strings.Contains(err.Error(), "logging") {
		t.Errorf("New() error = %v, want logging error", err)
	}
}

func TestNew_InvalidTracing(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := config.Default().Telemetry
	cfg.Logging.Format = "text"
	cfg.Tracing.Enabled = true
	cfg.Tracing.Sampler = "sometimes"
	_, err := New(&cfg, BuildInfo{})
	if err == nil || !strings.Contains(err.Error(), "tracing") {
		t.Errorf("New() error = %v, want tracing error", err)
	}
}
