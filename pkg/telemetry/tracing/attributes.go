package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrTriggerID      = "ropsim.trigger.id"
	AttrTriggerSource  = "ropsim.trigger.source"
	AttrTriggerOutcome = "ropsim.trigger.outcome"
	AttrTriggerReason  = "ropsim.trigger.reason"

	AttrWindow    = "ropsim.rop.window"
	AttrPublished = "ropsim.rop.published"
	AttrRotated   = "ropsim.rop.rotated"
	AttrSkipped   = "ropsim.rop.skipped"
	AttrDeleted   = "ropsim.rop.deleted"
	AttrLive      = "ropsim.rop.live"

	AttrRemoteBackend = "ropsim.remote.backend"
	AttrRemotePath    = "ropsim.remote.path"
	AttrRequestID     = "ropsim.request_id"
)

// WindowAttr labels a span with the ROP window it produces.
func WindowAttr(window string) attribute.KeyValue {
	return attribute.String(AttrWindow, window)
}

// Counts holds the per-cycle counters recorded on engine spans.
type Counts struct {
	Published int
	Rotated   int
	Skipped   int
	Deleted   int
	Live      int
}

// SetCounts records c on span.
func SetCounts(span trace.Span, c Counts) {
	span.SetAttributes(
		attribute.Int(AttrPublished, c.Published),
		attribute.Int(AttrRotated, c.Rotated),
		attribute.Int(AttrSkipped, c.Skipped),
		attribute.Int(AttrDeleted, c.Deleted),
		attribute.Int(AttrLive, c.Live),
	)
}

// TriggerAttrs labels a generator span.
func TriggerAttrs(id, source string) trace.SpanStartEventOption {
	return trace.WithAttributes(
		attribute.String(AttrTriggerID, id),
		attribute.String(AttrTriggerSource, source),
	)
}
