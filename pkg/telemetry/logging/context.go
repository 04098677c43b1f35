package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for HTTP request IDs.
	RequestIDKey contextKey = "request_id"

	// TriggerIDKey is the context key for generation trigger IDs.
	TriggerIDKey contextKey = "trigger_id"

	// TriggerSourceKey is the context key for what fired a trigger.
	TriggerSourceKey contextKey = "trigger_source"

	// ROPWindowKey is the context key for the ROP window being produced.
	ROPWindowKey contextKey = "rop_window"

	// CategoryKey is the context key for file categories.
	CategoryKey contextKey = "category"

	// TraceIDKey is the context key for trace IDs.
	TraceIDKey contextKey = "trace_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// WithTriggerID adds a trigger ID to the context.
func WithTriggerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TriggerIDKey, id)
}

// GetTriggerID retrieves the trigger ID from the context.
func GetTriggerID(ctx context.Context) string {
	return stringValue(ctx, TriggerIDKey)
}

// WithTriggerSource adds the trigger source to the context.
func WithTriggerSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, TriggerSourceKey, source)
}

// GetTriggerSource retrieves the trigger source from the context.
func GetTriggerSource(ctx context.Context) string {
	return stringValue(ctx, TriggerSourceKey)
}

// WithROPWindow adds a ROP window label to the context.
func WithROPWindow(ctx context.Context, window string) context.Context {
	return context.WithValue(ctx, ROPWindowKey, window)
}

// GetROPWindow retrieves the ROP window label from the context.
func GetROPWindow(ctx context.Context) string {
	return stringValue(ctx, ROPWindowKey)
}

// WithCategory adds a file category to the context.
func WithCategory(ctx context.Context, category string) context.Context {
	return context.WithValue(ctx, CategoryKey, category)
}

// GetCategory retrieves the file category from the context.
func GetCategory(ctx context.Context) string {
	return stringValue(ctx, CategoryKey)
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// extractContextFields extracts the known fields from ctx as key-value pairs
// suitable for slog.Logger.With.
func extractContextFields(ctx context.Context) []any {
	var fields []any
	for _, key := range []contextKey{RequestIDKey, TriggerIDKey, TriggerSourceKey, ROPWindowKey, CategoryKey, TraceIDKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}

// FromContext returns logger enriched with the fields carried by ctx.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if fields := extractContextFields(ctx); len(fields) > 0 {
		return logger.With(fields...)
	}
	return logger
}
