package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

// DefaultAddr is the listen address used without WithAddr.
const DefaultAddr = "127.0.0.1:9120"

var log = commonlog.GetLogger("intcode.metrics")

// Server exposes /metrics, /health and /ready over HTTP.
type Server struct {
	metrics *Metrics
	health  *HealthChecker
	addr    string

	mu  sync.RWMutex
	srv *http.Server
	ln  net.Listener
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetrics sets the metrics to expose.
func WithMetrics(m *Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHealthChecker sets the health checker backing /health and /ready.
func WithHealthChecker(h *HealthChecker) ServerOption {
	return func(s *Server) {
		s.health = h
	}
}

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(s *Server) {
		s.addr = addr
	}
}

// NewServer creates a metrics server. Without WithMetrics it exposes
// DefaultMetrics.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		metrics: DefaultMetrics(),
		addr:    DefaultAddr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the server's routes. Only GET is routed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", s.serveMetrics)
	mux.HandleFunc("GET /health", s.serveHealth)
	mux.HandleFunc("GET /ready", s.serveReady)
	return mux
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return errors.New("metrics server already running")
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       time.Minute,
	}
	s.ln, s.srv = ln, srv

	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %s", err)
		}
	}()
	log.Infof("metrics server listening on %s", ln.Addr())
	return nil
}

// Stop shuts the server down, honouring ctx for in-flight scrapes.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv, s.ln = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ln != nil
}

func (s *Server) serveMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if s.metrics != nil {
		io.WriteString(w, s.metrics.Format())
	}
}

// serveHealth reports the last health check, 503 when unhealthy.
func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, HealthStatus{Healthy: true, Ready: true, Timestamp: time.Now().UTC()})
		return
	}
	status := s.health.GetStatus()
	writeJSON(w, statusCode(status.Healthy), status)
}

func (s *Server) serveReady(w http.ResponseWriter, _ *http.Request) {
	ready := s.health == nil || s.health.IsReady()
	writeJSON(w, statusCode(ready), map[string]any{"ready": ready, "timestamp": time.Now().UTC()})
}

func statusCode(ok bool) int {
	if ok {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warningf("failed to encode response: %s", err)
	}
}
