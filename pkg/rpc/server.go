package rpc

import (
	"bytes"
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

var log = commonlog.GetLogger("intcode.rpc")

// ServerConfig configures the HTTP side of the RPC service.
type ServerConfig struct {
	Address string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// RequestTimeout bounds handler execution. Zero disables it.
	RequestTimeout time.Duration

	// MaxRequestSize caps the request body, in bytes.
	MaxRequestSize int64

	// MaxBatchSize caps the number of calls in one batch. Zero is unlimited.
	MaxBatchSize int

	// AllowedOrigins lists CORS origins; empty or "*" allows any.
	AllowedOrigins []string

	// Per client IP token bucket.
	EnableRateLimit bool
	RateLimitRPS    float64
	RateLimitBurst  float64

	LogRequests bool

	// SessionIdle is how long a session may go unused before it is swept.
	// Zero disables sweeping.
	SessionIdle time.Duration
}

// DefaultServerConfig listens on the loopback interface.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:        "127.0.0.1:8920",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		RequestTimeout: 0,
		MaxRequestSize: 16 * 1024 * 1024,
		MaxBatchSize:   64,
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   100,
		RateLimitBurst: 200,
		SessionIdle:    10 * time.Minute,
	}
}

// Server is a JSON-RPC 2.0 server exposing the Intcode engine.
type Server struct {
	config   *ServerConfig
	handlers *Handlers

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
	running  bool
}

// NewServer creates a new RPC server. A nil config uses the defaults.
func NewServer(config *ServerConfig, handlers *Handlers) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		config:   config,
		handlers: handlers,
	}
}

// Handlers returns the method table.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Handler returns the request handler wrapped in the configured middleware.
func (s *Server) Handler() http.Handler {
	middlewares := []Middleware{
		RecoveryMiddleware(log),
		ContentTypeMiddleware(),
		CORSMiddleware(s.config.AllowedOrigins),
	}
	if s.config.LogRequests {
		middlewares = append(middlewares, LoggingMiddleware(log))
	}
	if s.config.EnableRateLimit {
		middlewares = append(middlewares, RateLimitMiddleware(s.config.RateLimitRPS, s.config.RateLimitBurst))
	}
	if s.config.RequestTimeout > 0 {
		middlewares = append(middlewares, TimeoutMiddleware(s.config.RequestTimeout))
	}

	return Chain(http.HandlerFunc(s.handleRequest), middlewares...)
}

const shutdownTimeout = 5 * time.Second

// Start serves until ctx is cancelled or the listener fails. Idle sessions
// are swept while it runs.
func (s *Server) Start(ctx context.Context) error {
	srv, listener, err := s.listen()
	if err != nil {
		return err
	}
	log.Infof("rpc server listening on %s", listener.Addr())

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if s.config.SessionIdle > 0 {
		go s.sweepSessions(sweepCtx)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

func (s *Server) listen() (*http.Server, net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil, nil, errors.New("server already running")
	}
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.running = true
	return s.server, listener, nil
}

// Stop shuts the server down, waiting briefly for in-flight calls.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.server
	wasRunning := s.running
	s.running = false
	s.server = nil
	s.mu.Unlock()

	if !wasRunning || srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Addr returns the listen address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

// IsRunning reports whether Start is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Server) sweepSessions(ctx context.Context) {
	interval := s.config.SessionIdle / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.handlers.Sessions().Sweep(s.config.SessionIdle); n > 0 {
				log.Debugf("swept %d idle sessions", n)
			}
		}
	}
}

// handleRequest reads one call or a batch and writes the response.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.write(w, errorResponse(nil, NewRPCError(InvalidRequest, "only POST method is allowed")))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize))
	if err != nil {
		s.write(w, errorResponse(nil, NewRPCError(ParseError, "failed to read request body")))
		return
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		s.write(w, s.dispatch(body))
		return
	}

	var calls []json.RawMessage
	if err := json.Unmarshal(body, &calls); err != nil {
		s.write(w, errorResponse(nil, NewRPCError(ParseError, "invalid JSON")))
		return
	}
	if rpcErr := s.checkBatch(len(calls)); rpcErr != nil {
		s.write(w, errorResponse(nil, rpcErr))
		return
	}

	// Calls run in order; notifications get no response.
	out := make([]RPCResponse, 0, len(calls))
	for _, call := range calls {
		if resp := s.dispatch(call); resp.ID != nil {
			out = append(out, resp)
		}
	}
	if len(out) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.write(w, out)
}

func (s *Server) checkBatch(n int) *RPCError {
	switch {
	case n == 0:
		return NewRPCError(InvalidRequest, "empty batch")
	case s.config.MaxBatchSize > 0 && n > s.config.MaxBatchSize:
		return NewRPCError(InvalidRequest, fmt.Sprintf("batch exceeds %d calls", s.config.MaxBatchSize))
	}
	return nil
}

// dispatch decodes a single call and runs its handler.
func (s *Server) dispatch(body []byte) RPCResponse {
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResponse(nil, NewRPCError(ParseError, "invalid JSON"))
	}
	if req.JSONRPC != JSONRPCVersion {
		return errorResponse(req.ID, NewRPCError(InvalidRequest, "invalid jsonrpc version"))
	}

	handler := s.handlers.GetHandler(req.Method)
	if handler == nil {
		return errorResponse(req.ID, NewRPCError(MethodNotFound, "method not found: "+req.Method))
	}

	result, rpcErr := handler(req.Params)
	if rpcErr != nil {
		log.Debugf("%s failed: %s", req.Method, rpcErr.Message)
		return errorResponse(req.ID, rpcErr)
	}
	return RPCResponse{JSONRPC: JSONRPCVersion, Result: result, ID: req.ID}
}

func errorResponse(id interface{}, rpcErr *RPCError) RPCResponse {
	return RPCResponse{JSONRPC: JSONRPCVersion, Error: rpcErr, ID: id}
}

// write encodes v as the response body.
func (s *Server) write(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to write response: %s", err)
	}
}
