// Package monitor serves health, status and Prometheus endpoints.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/soyeahso/cpbot/internal/config"
	"github.com/soyeahso/cpbot/internal/logging"
	"github.com/soyeahso/cpbot/internal/metrics"
)

// StatusFunc returns a snapshot of the running bot.
type StatusFunc func() Status

// Server is the monitor HTTP server.
type Server struct {
	cfg     config.MonitorConfig
	log     *logging.Logger
	metrics *metrics.Metrics
	status  StatusFunc

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// New creates a monitor server. A nil status func reports an empty snapshot.
func New(cfg config.MonitorConfig, log *logging.Logger, m *metrics.Metrics, status StatusFunc) *Server {
	if status == nil {
		status = func() Status { return Status{} }
	}
	return &Server{
		cfg:     cfg,
		log:     log.Sub("monitor"),
		metrics: m,
		status:  status,
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.MonitorConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return withMiddleware(mux, s.log)
}

// Start listens and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Bind).
		Msg("monitor server ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down monitor server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound listen address, or empty string if not started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
