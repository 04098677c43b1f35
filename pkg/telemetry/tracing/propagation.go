package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/ropsim/pkg/telemetry/logging"
)

// TraceIDHeader carries the trace ID of a served request back to the caller.
const TraceIDHeader = "X-Trace-ID"

// Extract returns ctx with the W3C trace context found in headers.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes the trace context of ctx into headers.
func Inject(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// HTTPMiddleware extracts the caller's trace context, starts a server span
// named after the route and stores the trace ID for logging.
func HTTPMiddleware(route string, next http.Handler) http.Handler {
	tracer := otel.Tracer(instrumentationName + "/pkg/server")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)
		ctx, span := tracer.Start(ctx, route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		if id := TraceID(ctx); id != "" {
			w.Header().Set(TraceIDHeader, id)
			ctx = logging.WithTraceID(ctx, id)
		}
		if id := logging.GetRequestID(ctx); id != "" {
			span.SetAttributes(attribute.String(AttrRequestID, id))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
