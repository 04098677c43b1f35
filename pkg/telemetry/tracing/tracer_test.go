package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/ropsim/pkg/config"
)

// useRecorder installs a recording provider globally for the test.
func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		config      *config.TracingConfig
		wantErr     bool
		wantEnabled bool
	}{
		{name: "nil config", wantErr: true},
		{name: "disabled", config: &config.TracingConfig{Enabled: false, ServiceName: "ropsim"}},
		{
			name:    "unknown sampler",
			config:  &config.TracingConfig{Enabled: true, Sampler: "sometimes", Endpoint: "localhost:4317"},
			wantErr: true,
		},
		{
			name:    "ratio out of range",
			config:  &config.TracingConfig{Enabled: true, Sampler: SamplerRatio, SampleRatio: 1.5, Endpoint: "localhost:4317"},
			wantErr: true,
		},
		{
			name: "enabled",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     SamplerAlways,
				Endpoint:    "localhost:4317",
				Insecure:    true,
				Timeout:     time.Second,
				ServiceName: "ropsim",
			},
			wantEnabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := otel.GetTracerProvider()
			t.Cleanup(func() { otel.SetTracerProvider(prev) })

			tracer, err := New(tt.config, "test")
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tracer.Enabled() != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.wantEnabled)
			}

			_, span := tracer.Start(context.Background(), "generator.trigger")
			span.End()

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = tracer.Shutdown(ctx)
		})
	}
}

func TestTraceAndSpanID(t *testing.T) {
	if TraceID(context.Background()) != "" || SpanID(context.Background()) != "" {
		t.Error("expected empty IDs without a span")
	}

	useRecorder(t)
	ctx, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	if got := TraceID(ctx); len(got) != 32 {
		t.Errorf("TraceID() = %q, want 32 hex digits", got)
	}
	if got := SpanID(ctx); len(got) != 16 {
		t.Errorf("SpanID() = %q, want 16 hex digits", got)
	}
}

func TestSetStatus(t *testing.T) {
	rec := useRecorder(t)
	tracer := otel.Tracer("test")

	_, ok := tracer.Start(context.Background(), "ok")
	SetStatus(ok, nil)
	ok.End()

	_, failed := tracer.Start(context.Background(), "failed")
	SetStatus(failed, errors.New("remote store unreachable"))
	failed.End()

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("ok span status = %v", spans[0].Status())
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != "remote store unreachable" {
		t.Errorf("failed span status = %v", spans[1].Status())
	}
	if len(spans[1].Events()) != 1 {
		t.Errorf("failed span has %d events, want the recorded error", len(spans[1].Events()))
	}
}

func TestSetCounts(t *testing.T) {
	rec := useRecorder(t)
	_, span := otel.Tracer("test").Start(context.Background(), "engine.rotate", TriggerAttrs("t-1", "manual"))
	SetCounts(span, Counts{Rotated: 12, Deleted: 12, Live: 12})
	span.End()

	attrs := map[string]int64{}
	var source string
	for _, kv := range rec.Ended()[0].Attributes() {
		switch string(kv.Key) {
		case AttrTriggerSource:
			source = kv.Value.AsString()
		case AttrRotated, AttrDeleted, AttrLive, AttrPublished, AttrSkipped:
			attrs[string(kv.Key)] = kv.Value.AsInt64()
		}
	}
	if source != "manual" {
		t.Errorf("trigger source = %q, want manual", source)
	}
	if attrs[AttrRotated] != 12 || attrs[AttrPublished] != 0 || len(attrs) != 5 {
		t.Errorf("count attributes = %v", attrs)
	}
}
