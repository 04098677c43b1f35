package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/ropsim/pkg/config"
)

func TestConfigError(t *testing.T) {
	tests := []struct {
		err  *ConfigError
		want string
	}{
		{err: NewConfigError("remote.host", "host is required"), want: "config error in remote.host: host is required"},
		{err: NewConfigError("", "open config.yaml: no such file"), want: "config error: open config.yaml: no such file"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestCommandError(t *testing.T) {
	underlying := errors.New("remote store unreachable")
	err := NewCommandError("run", underlying)

	if got, want := err.Error(), "command run failed: remote store unreachable"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, underlying) {
		t.Error("CommandError should unwrap to the underlying error")
	}
}

func TestConfigErrors(t *testing.T) {
	verr := config.ValidationError{Errors: []config.FieldError{
		{Field: "remote.host", Message: "host is required"},
		{Field: "rop.period_minutes", Message: "must be positive"},
	}}

	got := ConfigErrors(fmt.Errorf("load: %w", verr))
	want := []*ConfigError{
		{Field: "remote.host", Message: "host is required"},
		{Field: "rop.period_minutes", Message: "must be positive"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ConfigErrors() mismatch (-want +got):\n%s", diff)
	}

	if got := ConfigErrors(errors.New("bad yaml")); len(got) != 1 || got[0].Field != "" {
		t.Errorf("plain error converted to %+v", got)
	}
	if ConfigErrors(nil) != nil {
		t.Error("nil error should yield nil")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "config error", err: NewConfigError("x", "y"), want: ExitConfig},
		{name: "validation error", err: fmt.Errorf("wrapped: %w", config.ValidationError{}), want: ExitConfig},
		{name: "command error", err: NewCommandError("run", errors.New("boom")), want: ExitFailure},
		{name: "command wrapping config", err: NewCommandError("run", NewConfigError("a", "b")), want: ExitConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
