package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/ropsim/pkg/config"
	"mercator-hq/ropsim/pkg/generator"
	"mercator-hq/ropsim/pkg/history"
	"mercator-hq/ropsim/pkg/notification"
	"mercator-hq/ropsim/pkg/telemetry/health"
	"mercator-hq/ropsim/pkg/telemetry/tracing"
)

// Generator runs manual triggers.
type Generator interface {
	Trigger(ctx context.Context, source generator.Source) generator.Result
	Message(r generator.Result) string
}

// Notifications answers file listing queries.
type Notifications interface {
	Query(ctx context.Context, f notification.Filter) ([]notification.Record, error)
}

// Cycles lists recorded generation cycles.
type Cycles interface {
	List(ctx context.Context, limit int) ([]history.Cycle, error)
}

// RequestObserver is told about every served request.
type RequestObserver interface {
	RecordHTTPRequest(route string, code int, duration time.Duration)
}

// Deps are the components the HTTP surface exposes. Cycles, Health and
// Metrics are optional.
type Deps struct {
	Generator     Generator
	Notifications Notifications
	Cycles        Cycles

	// TemplatesDir is searched by the PM file download endpoint.
	TemplatesDir string

	Health  *health.Checker
	Version health.VersionInfo

	// Metrics serves MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
	Observer    RequestObserver
}

// Server is the simulator's HTTP server.
type Server struct {
	config     *config.ServerConfig
	deps       Deps
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server

	mu        sync.RWMutex
	isRunning bool
	addr      net.Addr
}

// New creates a server. A nil logger uses slog.Default.
func New(cfg *config.ServerConfig, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config: cfg,
		deps:   deps,
		logger: logger.With("component", "server"),
	}
	s.handler = s.setupRoutes()
	return s
}

// Handler returns the routed handler with its middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.addr = ln.Addr()
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	srv := s.httpServer
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	s.logger.Info("starting http server", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server", "timeout", s.config.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-errCh
	s.logger.Info("http server stopped")
	return nil
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /generateRop", "/generateRop", http.HandlerFunc(s.handleGenerate))
	s.route(mux, "GET /file/v1/files", "/file/v1/files", http.HandlerFunc(s.handleFiles))
	s.route(mux, "GET /getcENMPMfile", "/getcENMPMfile", http.HandlerFunc(s.handlePMFile))
	s.route(mux, "GET /v1/cycles", "/v1/cycles", http.HandlerFunc(s.handleCycles))

	if s.deps.Health != nil {
		s.route(mux, "/health", "/health", s.deps.Health.LivenessHandler())
		s.route(mux, "/ready", "/ready", s.deps.Health.ReadinessHandler())
		v := s.deps.Version
		s.route(mux, "/version", "/version", health.VersionHandler(v.Version, v.Commit, v.BuildTime))
	}
	if s.deps.Metrics != nil {
		path := s.deps.MetricsPath
		if path == "" {
			path = config.DefaultMetricsPath
		}
		mux.Handle("GET "+path, s.deps.Metrics)
	}

	var handler http.Handler = mux
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	return handler
}

// route registers h under pattern with tracing, logging and metrics labelled
// by route.
func (s *Server) route(mux *http.ServeMux, pattern, route string, h http.Handler) {
	mux.Handle(pattern, s.instrument(route, tracing.HTTPMiddleware(route, h)))
}
