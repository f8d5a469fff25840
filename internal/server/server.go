package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/mpsm/bsprof/internal/errors"
	"github.com/mpsm/bsprof/internal/logging"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// MetricsWriter serves a metrics registry.
type MetricsWriter interface {
	WritePrometheus(w http.ResponseWriter, r *http.Request)
}

// Server serves metrics while a profiling session runs.
type Server struct {
	addr     string
	metrics  MetricsWriter
	logger   logging.Logger
	security SecurityConfig

	httpServer *http.Server
	listener   net.Listener
	done       chan error
	closeOnce  sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSecurityConfig replaces DefaultSecurityConfig.
func WithSecurityConfig(c SecurityConfig) Option {
	return func(s *Server) { s.security = c }
}

// New creates a server for addr. Nothing is bound until Start.
func New(addr string, metrics MetricsWriter, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		metrics:  metrics,
		logger:   logging.Nop(),
		security: DefaultSecurityConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", SecurityMiddleware(s.security, s.logRequests(s.handleMetrics)))
	mux.HandleFunc("/healthz", SecurityMiddleware(s.security, s.handleHealth))
	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Start binds the listen address and serves in the background. Bind errors
// are returned synchronously as configuration errors.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return apperrors.NewConfigError("cannot listen on metrics address %q: %v", s.addr, err)
	}
	s.listener = ln
	s.done = make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	s.logger.Info("serving metrics", logging.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops accepting requests and waits for in-flight ones, bounded by
// ctx and an internal timeout. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.done == nil {
		return nil
	}
	var err error
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err = s.httpServer.Shutdown(ctx); err != nil {
			return
		}
		err = <-s.done
	})
	return err
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.logger.Warn("rejected metrics request", logging.String("method", r.Method))
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.metrics.WritePrometheus(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) logRequests(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		s.logger.Debug("metrics request",
			logging.String("method", r.Method),
			logging.String("remote", r.RemoteAddr),
			logging.Duration("duration", time.Since(start)))
	}
}
