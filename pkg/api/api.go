// Package api serves the rocketboy workbench over HTTP for the UI.
//
// Tabs, sends, scans, history, settings, collections, imports and keys are
// exposed as JSON resources. Scan progress is streamed over a websocket.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rocketboy/rocketboy/pkg/keystore"
	"github.com/rocketboy/rocketboy/pkg/logging"
	"github.com/rocketboy/rocketboy/pkg/metrics"
	"github.com/rocketboy/rocketboy/pkg/requestlog"
	"github.com/rocketboy/rocketboy/pkg/scan"
	"github.com/rocketboy/rocketboy/pkg/store"
	"github.com/rocketboy/rocketboy/pkg/tabs"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:4300"

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Deps are the components the server exposes.
type Deps struct {
	Workbench *tabs.Workbench
	Scans     *scan.Manager
	History   requestlog.Store
	Files     store.Store
	Keys      keystore.Store
}

// Server is the HTTP API.
type Server struct {
	workbench *tabs.Workbench
	scans     *scan.Manager
	history   requestlog.Store
	files     store.Store
	keys      keystore.Store

	metrics   *metrics.Metrics
	log       *slog.Logger
	version   string
	addr      string
	cors      CORSConfig
	startTime time.Time

	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.log = logging.Component(logger, "api")
	}
}

// WithMetrics records API metrics and serves them on GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithVersion sets the version reported by GET /health.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithCORS sets the browser origins allowed to call the API and to open
// scan streams.
func WithCORS(cfg CORSConfig) Option {
	return func(s *Server) {
		s.cors = cfg
	}
}

// New builds the server. Missing Deps fields disable their routes with
// 503 responses.
func New(deps Deps, opts ...Option) *Server {
	s := &Server{
		workbench: deps.Workbench,
		scans:     deps.Scans,
		history:   deps.History,
		files:     deps.Files,
		keys:      deps.Keys,
		log:       logging.Nop(),
		version:   "dev",
		addr:      DefaultAddr,
		cors:      DefaultCORSConfig(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.handler = s.withMiddleware(mux)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully. ready, when non-nil, receives the bound address once the
// listener is open.
func (s *Server) ListenAndServe(ctx context.Context, ready func(addr string)) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, ready)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener, ready func(addr string)) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Sends may take up to the executor timeout and scan streams stay
		// open for the whole scan, so writes are not bounded here.
		IdleTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.log.Info("API listening", "addr", ln.Addr().String())
	if ready != nil {
		ready(ln.Addr().String())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.scans != nil {
		s.scans.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("API stopped")
	return nil
}
