package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		with func(context.Context, string) context.Context
		get  func(context.Context) string
	}{
		{"request id", WithRequestID, GetRequestID},
		{"trigger id", WithTriggerID, GetTriggerID},
		{"trigger source", WithTriggerSource, GetTriggerSource},
		{"rop window", WithROPWindow, GetROPWindow},
		{"category", WithCategory, GetCategory},
		{"trace id", WithTraceID, GetTraceID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.get(ctx); got != "" {
				t.Errorf("empty context returned %q", got)
			}
			if got := tt.get(tt.with(ctx, "value-1")); got != "value-1" {
				t.Errorf("got %q, want value-1", got)
			}
		})
	}
}

func TestExtractContextFields(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithTriggerID(ctx, "trig-1")
	ctx = WithTriggerSource(ctx, "manual")

	want := []any{"request_id", "req-1", "trigger_id", "trig-1", "trigger_source", "manual"}
	if diff := cmp.Diff(want, extractContextFields(ctx)); diff != "" {
		t.Errorf("extractContextFields() mismatch (-want +got):\n%s", diff)
	}
	if got := extractContextFields(context.Background()); len(got) != 0 {
		t.Errorf("empty context fields = %v", got)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	FromContext(WithROPWindow(context.Background(), "w1"), base).Info("hello")
	if !strings.Contains(buf.String(), "rop_window=w1") {
		t.Errorf("output = %q", buf.String())
	}

	if FromContext(context.Background(), base) != base {
		t.Error("FromContext() without fields should return the same logger")
	}
	if FromContext(context.Background(), nil) == nil {
		t.Error("FromContext() with nil logger returned nil")
	}
}
