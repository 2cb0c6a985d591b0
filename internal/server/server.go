// Package server owns the HTTP listener lifecycle: one Server per port, each
// constructed independently with its own handler, plus RunAll to serve a
// group of them until the first failure or shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matiasleandrokruk/zigmirror/internal/api"
)

// defaultShutdownTimeout bounds how long in-flight artifact transfers may
// keep a listener alive after shutdown starts.
const defaultShutdownTimeout = 5 * time.Second

// Config holds HTTP server configuration.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// ShutdownTimeout is the grace period for in-flight requests. Connections
	// still open when it expires are closed.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns default HTTP server configuration. WriteTimeout is
// disabled so large artifacts can stream to slow clients.
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         3000,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    0,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// Server wraps one HTTP listener.
type Server struct {
	name   string
	config Config
	http   *http.Server
	logger *zap.Logger

	mu    sync.Mutex
	addr  net.Addr
	ready chan struct{}
}

// NewServer creates a server named name serving handler.
func NewServer(name string, handler http.Handler, config Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
		ErrorLog:     zap.NewStdLog(logger),
	}

	return &Server{
		name:   name,
		config: config,
		http:   httpServer,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// ForListeners creates one Server per listener, each on the listener's port
// and wrapped in the router from api.NewRouter.
func ForListeners(listeners []api.Listener, base Config, deps api.Deps) []*Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	servers := make([]*Server, 0, len(listeners))
	for _, l := range listeners {
		cfg := base
		cfg.Port = l.Port
		servers = append(servers, NewServer(l.Name, api.NewRouter(l, deps), cfg, logger.Named(l.Name)))
	}
	return servers
}

// Name returns the listener name.
func (s *Server) Name() string {
	return s.name
}

// Ready is closed once the server is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before the server is listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the listener and serves until ctx is done, then shuts down
// gracefully. Transfers that outlive the shutdown timeout are cut off, and
// Start still returns nil.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listener %s: %w", s.name, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	close(s.ready)

	port := 0
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	s.logger.Info("running", zap.String("listener", s.name), zap.Int("port", port))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.http.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listener %s: %w", s.name, err)
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err = s.Shutdown(shutdownCtx)
	if !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	s.logger.Warn("shutdown timeout exceeded, closing active connections",
		zap.String("listener", s.name),
		zap.Duration("timeout", timeout),
	)
	if err := s.http.Close(); err != nil {
		return fmt.Errorf("listener %s close: %w", s.name, err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down", zap.String("listener", s.name))

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("listener %s shutdown: %w", s.name, err)
	}

	s.logger.Info("shutdown complete", zap.String("listener", s.name))
	return nil
}

// RunAll serves every server concurrently. When one fails the others are
// shut down and its error is returned.
func RunAll(ctx context.Context, servers ...*Server) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		s := s
		g.Go(func() error {
			return s.Start(gctx)
		})
	}
	return g.Wait()
}
