package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/ropsim/pkg/remote"
)

type fakeProgress struct {
	live, expected int
}

func (p fakeProgress) IsComplete() bool { return p.live >= p.expected }
func (p fakeProgress) Live() int        { return p.live }
func (p fakeProgress) Expected() int    { return p.expected }

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{name: "default timeout", timeout: 0, want: 5 * time.Second},
		{name: "custom timeout", timeout: 10 * time.Second, want: 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.timeout).checkTimeout; got != tt.want {
				t.Errorf("checkTimeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegisterAndListChecks(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("b", func(context.Context) error { return nil })
	c.RegisterCheck("a", func(context.Context) error { return nil })
	c.RegisterCheck("c", func(context.Context) error { return nil })
	c.UnregisterCheck("c")

	if diff := cmp.Diff([]string{"a", "b"}, c.ListChecks()); diff != "" {
		t.Errorf("ListChecks() mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
		failed []string
	}{
		{name: "no checks", want: StatusReady},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"a": func(context.Context) error { return nil },
				"b": func(context.Context) error { return nil },
			},
			want: StatusReady,
		},
		{
			name: "one unhealthy",
			checks: map[string]CheckFunc{
				"a": func(context.Context) error { return nil },
				"b": func(context.Context) error { return errors.New("down") },
			},
			want:   StatusDegraded,
			failed: []string{"b"},
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					<-ctx.Done()
					time.Sleep(10 * time.Millisecond)
					return nil
				},
			},
			want:   StatusDegraded,
			failed: []string{"slow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(50 * time.Millisecond)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}

			got := c.CheckReadiness(context.Background())
			if got.Status != tt.want {
				t.Errorf("Status = %q, want %q", got.Status, tt.want)
			}
			if len(got.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(got.Checks), len(tt.checks))
			}
			for _, name := range tt.failed {
				if got.Checks[name].Status != StatusUnhealthy {
					t.Errorf("check %q status = %q, want unhealthy", name, got.Checks[name].Status)
				}
			}
		})
	}
}

func TestRemoteStoreCheck(t *testing.T) {
	store := remote.NewMemoryStore()
	check := RemoteStoreCheck(store)

	if err := check(context.Background()); err != nil {
		t.Errorf("connected store: %v", err)
	}
	store.SetConnected(false, false)
	if err := check(context.Background()); !errors.Is(err, ErrRemoteDisconnected) {
		t.Errorf("disconnected store: err = %v, want ErrRemoteDisconnected", err)
	}
}

func TestBootstrapCheck(t *testing.T) {
	if err := BootstrapCheck(fakeProgress{live: 12, expected: 12})(context.Background()); err != nil {
		t.Errorf("complete bootstrap: %v", err)
	}

	err := BootstrapCheck(fakeProgress{live: 4, expected: 12})(context.Background())
	if !errors.Is(err, ErrBootstrapPending) {
		t.Fatalf("err = %v, want ErrBootstrapPending", err)
	}
	if !strings.Contains(err.Error(), "4 of 12") {
		t.Errorf("error %q does not mention progress", err)
	}
}

func TestHandlers(t *testing.T) {
	live := fakeProgress{live: 0, expected: 2}
	store := remote.NewMemoryStore()

	c := New(time.Second)
	c.RegisterCheck(CheckRemoteStore, RemoteStoreCheck(store))
	c.RegisterCheck(CheckBootstrap, func(ctx context.Context) error { return BootstrapCheck(live)(ctx) })

	mux := http.NewServeMux()
	Register(mux, c, "1.2.3", "abc123", "2026-01-01")

	tests := []struct {
		name     string
		method   string
		path     string
		setup    func()
		wantCode int
		wantBody string
	}{
		{name: "liveness", method: http.MethodGet, path: "/health", wantCode: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "not ready during bootstrap", method: http.MethodGet, path: "/ready", wantCode: http.StatusServiceUnavailable, wantBody: "bootstrap not complete"},
		{
			name:     "ready",
			method:   http.MethodGet,
			path:     "/ready",
			setup:    func() { live.live = 2 },
			wantCode: http.StatusOK,
			wantBody: `"status":"ready"`,
		},
		{
			name:     "not ready when disconnected",
			method:   http.MethodGet,
			path:     "/ready",
			setup:    func() { store.SetConnected(false, false) },
			wantCode: http.StatusServiceUnavailable,
			wantBody: "remote store not connected",
		},
		{name: "version", method: http.MethodGet, path: "/version", wantCode: http.StatusOK, wantBody: `"version":"1.2.3"`},
		{name: "head has no body", method: http.MethodHead, path: "/health", wantCode: http.StatusOK},
		{name: "post rejected", method: http.MethodPost, path: "/health", wantCode: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
			if tt.method == http.MethodHead && rec.Body.Len() != 0 {
				t.Errorf("HEAD returned a body")
			}
		})
	}
}

func TestVersionHandler_GoVersion(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("dev", "none", "unknown")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.GoVersion == "" || info.Commit != "none" {
		t.Errorf("unexpected version info %+v", info)
	}
}
