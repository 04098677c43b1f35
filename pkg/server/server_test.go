package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"mercator-hq/ropsim/pkg/config"
	"mercator-hq/ropsim/pkg/generator"
	"mercator-hq/ropsim/pkg/history"
	"mercator-hq/ropsim/pkg/notification"
	"mercator-hq/ropsim/pkg/telemetry/health"
)

type fakeGenerator struct {
	result generator.Result

	mu      sync.Mutex
	sources []generator.Source
	ctxErr  error
}

func (g *fakeGenerator) Trigger(ctx context.Context, source generator.Source) generator.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sources = append(g.sources, source)
	g.ctxErr = ctx.Err()
	return g.result
}

func (g *fakeGenerator) Message(r generator.Result) string {
	return fmt.Sprintf("MANUAL generation: Status = %s\n", r.Status())
}

type fakeCycles struct {
	cycles []history.Cycle
	err    error
	limit  int
}

func (c *fakeCycles) List(_ context.Context, limit int) ([]history.Cycle, error) {
	c.limit = limit
	return c.cycles, c.err
}

type failingNotifications struct{}

func (failingNotifications) Query(context.Context, notification.Filter) ([]notification.Record, error) {
	return nil, errors.New("database is locked")
}

type observed struct {
	route string
	code  int
}

type fakeObserver struct {
	mu   sync.Mutex
	seen []observed
}

func (o *fakeObserver) RecordHTTPRequest(route string, code int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observed{route, code})
}

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		ListenAddress:   "127.0.0.1:0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		IdleTimeout:     time.Second,
		ShutdownTimeout: time.Second,
	}
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGenerateRop(t *testing.T) {
	tests := []struct {
		name        string
		result      generator.Result
		wantCode    int
		wantFailure string
		wantBody    string
	}{
		{
			name:     "rotated",
			result:   generator.Result{Outcome: generator.OutcomeRotated},
			wantCode: http.StatusOK,
			wantBody: "Status = OK\n",
		},
		{
			name:     "bootstrapped",
			result:   generator.Result{Outcome: generator.OutcomeBootstrapped},
			wantCode: http.StatusOK,
			wantBody: "Status = OK\n",
		},
		{
			name:        "no connection",
			result:      generator.Result{Outcome: generator.OutcomeFailed, Reason: generator.ReasonNoConnection},
			wantCode:    http.StatusTeapot,
			wantFailure: "no_connection",
			wantBody:    "Status = NOT_OK\n",
		},
		{
			name:        "rotation failed",
			result:      generator.Result{Outcome: generator.OutcomeFailed, Reason: generator.ReasonRotationFailed},
			wantCode:    http.StatusTeapot,
			wantFailure: "rotation_failed",
			wantBody:    "Status = NOT_OK\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{result: tt.result}
			obs := &fakeObserver{}
			s := New(testServerConfig(), Deps{Generator: gen, Observer: obs}, nil)

			rec := do(t, s.Handler(), "/generateRop")

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := rec.Header().Get(FailureHeader); got != tt.wantFailure {
				t.Errorf("%s = %q, want %q", FailureHeader, got, tt.wantFailure)
			}
			if !strings.HasSuffix(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want suffix %q", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get(RequestIDHeader) == "" {
				t.Error("missing request id header")
			}
			if diff := cmp.Diff([]generator.Source{generator.SourceManual}, gen.sources); diff != "" {
				t.Errorf("trigger sources mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]observed{{"/generateRop", tt.wantCode}}, obs.seen, cmp.AllowUnexported(observed{})); diff != "" {
				t.Errorf("observed requests mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateRop_DetachedFromClient(t *testing.T) {
	gen := &fakeGenerator{result: generator.Result{Outcome: generator.OutcomeRotated}}
	s := New(testServerConfig(), Deps{Generator: gen}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/generateRop", nil).WithContext(ctx)
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)

	if gen.ctxErr != nil {
		t.Errorf("trigger context error = %v, want a live context", gen.ctxErr)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	s := New(testServerConfig(), Deps{Generator: &fakeGenerator{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/generateRop", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "req-42" {
		t.Errorf("%s = %q, want req-42", RequestIDHeader, got)
	}
}

func TestFiles(t *testing.T) {
	sink := notification.NewMemorySinkWithSeed(100)
	ctx := context.Background()
	for _, n := range []notification.Notice{
		{NodeName: "NodeA0001", DataType: "PM_STATISTICAL", NodeType: "RadioNode", FileLocation: "/a"},
		{NodeName: "NodeA0002", DataType: "PM_CELLTRACE_DU", NodeType: "RadioNode", FileLocation: "/b"},
		{NodeName: "NodeA0003", DataType: "PM_CELLTRACE_CUUP", NodeType: "RadioNode", FileLocation: "/c"},
		{NodeName: "NodeB0001", DataType: "PM_CELLTRACE", NodeType: "ERBS", FileLocation: "/d"},
	} {
		if _, err := sink.Append(ctx, n); err != nil {
			t.Fatal(err)
		}
	}
	s := New(testServerConfig(), Deps{Notifications: sink}, nil)

	tests := []struct {
		name     string
		target   string
		wantCode int
		wantIDs  []int64
	}{
		{name: "all", target: "/file/v1/files", wantCode: http.StatusOK, wantIDs: []int64{101, 102, 103, 104}},
		{
			name:     "glob data type and node type",
			target:   "/file/v1/files?filter=dataType==PM_CELLTRACE*;nodeType==RadioNode;",
			wantCode: http.StatusOK,
			wantIDs:  []int64{102, 103},
		},
		{name: "after id", target: "/file/v1/files?filter=id=gt=102", wantCode: http.StatusOK, wantIDs: []int64{103, 104}},
		{name: "limit", target: "/file/v1/files?limit=1", wantCode: http.StatusOK, wantIDs: []int64{101}},
		{name: "no match", target: "/file/v1/files?filter=nodeType==Router6672;", wantCode: http.StatusOK, wantIDs: []int64{}},
		{name: "bad limit", target: "/file/v1/files?limit=many", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), tt.target)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantIDs == nil {
				return
			}
			var resp FilesResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			ids := []int64{}
			for _, r := range resp.Files {
				ids = append(ids, r.ID)
			}
			if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFiles_EmptyListIsArray(t *testing.T) {
	s := New(testServerConfig(), Deps{Notifications: notification.NewMemorySinkWithSeed(0)}, nil)
	rec := do(t, s.Handler(), "/file/v1/files")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"files":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestFiles_QueryError(t *testing.T) {
	s := New(testServerConfig(), Deps{Notifications: failingNotifications{}}, nil)
	if rec := do(t, s.Handler(), "/file/v1/files"); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestPMFile(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "XML", "NodeA0001")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "<measCollecFile/>"
	if err := os.WriteFile(filepath.Join(nested, "A20220510.0930+0100-0945+0100_NodeA0001_statsfile.xml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(testServerConfig(), Deps{TemplatesDir: dir}, nil)

	tests := []struct {
		name     string
		target   string
		wantCode int
	}{
		{name: "substring match", target: "/getcENMPMfile?fileName=statsfile", wantCode: http.StatusOK},
		{name: "no match", target: "/getcENMPMfile?fileName=celltrace", wantCode: http.StatusNotFound},
		{name: "missing name", target: "/getcENMPMfile", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), tt.target)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if rec.Body.String() != content {
				t.Errorf("body = %q, want %q", rec.Body.String(), content)
			}
			if got := rec.Header().Get("Content-Disposition"); got != "attachment;filename=statsfile" {
				t.Errorf("Content-Disposition = %q", got)
			}
			if got := rec.Header().Get("Content-Type"); got != "application/octet-stream" {
				t.Errorf("Content-Type = %q", got)
			}
		})
	}
}

func TestPMFile_MissingDirectory(t *testing.T) {
	s := New(testServerConfig(), Deps{TemplatesDir: filepath.Join(t.TempDir(), "absent")}, nil)
	if rec := do(t, s.Handler(), "/getcENMPMfile?fileName=x"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCycles(t *testing.T) {
	cycles := &fakeCycles{cycles: []history.Cycle{{ID: 2, Outcome: "rotated"}, {ID: 1, Outcome: "bootstrapped"}}}
	s := New(testServerConfig(), Deps{Cycles: cycles}, nil)

	rec := do(t, s.Handler(), "/v1/cycles?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cycles.limit != 5 {
		t.Errorf("limit = %d, want 5", cycles.limit)
	}
	var resp CyclesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Cycles) != 2 || resp.Cycles[0].Outcome != "rotated" {
		t.Errorf("cycles = %+v", resp.Cycles)
	}

	do(t, s.Handler(), "/v1/cycles")
	if cycles.limit != defaultCycleLimit {
		t.Errorf("default limit = %d, want %d", cycles.limit, defaultCycleLimit)
	}
	if rec := do(t, s.Handler(), "/v1/cycles?limit=0"); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", rec.Code)
	}
}

func TestCycles_Disabled(t *testing.T) {
	s := New(testServerConfig(), Deps{}, nil)
	if rec := do(t, s.Handler(), "/v1/cycles"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	checker := health.New(time.Second)
	checker.RegisterCheck(health.CheckBootstrap, func(context.Context) error { return errors.New("pending") })
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ropsim_live_paths 0\n"))
	})

	s := New(testServerConfig(), Deps{
		Health:      checker,
		Version:     health.VersionInfo{Version: "1.0.0"},
		Metrics:     metrics,
		MetricsPath: "/metrics",
	}, nil)

	tests := []struct {
		target   string
		wantCode int
		wantBody string
	}{
		{target: "/health", wantCode: http.StatusOK, wantBody: `"status":"ok"`},
		{target: "/ready", wantCode: http.StatusServiceUnavailable, wantBody: "pending"},
		{target: "/version", wantCode: http.StatusOK, wantBody: `"version":"1.0.0"`},
		{target: "/metrics", wantCode: http.StatusOK, wantBody: "ropsim_live_paths"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, s.Handler(), tt.target)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	s := New(testServerConfig(), Deps{Generator: panicGenerator{}}, nil)
	if rec := do(t, s.Handler(), "/generateRop"); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

type panicGenerator struct{}

func (panicGenerator) Trigger(context.Context, generator.Source) generator.Result { panic("boom") }
func (panicGenerator) Message(generator.Result) string                          { return "" }

func TestServe_ShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New(testServerConfig(), Deps{Generator: &fakeGenerator{result: generator.Result{Outcome: generator.OutcomeRotated}}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/generateRop"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if !s.IsRunning() || s.Addr() == nil {
		t.Error("server should report running with an address")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if s.IsRunning() {
		t.Error("server still running after shutdown")
	}
	http.DefaultClient.CloseIdleConnections()
}
