// Package server owns the HTTP listener lifecycle and graceful shutdown.
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
)

// ShutdownFunc releases a component once the listener has stopped.
type ShutdownFunc func(ctx context.Context) error

type hook struct {
	name string
	fn   ShutdownFunc
}

type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger

	mu    sync.Mutex
	hooks []hook
	addr  net.Addr

	readyOnce sync.Once
	ready     chan struct{}
}

func New(handler http.Handler, port int, readTimeout, writeTimeout, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
		ready:           make(chan struct{}),
	}
}

// OnShutdown registers fn to run after the listener stops. Hooks run
// newest first, so a resource registered before its users outlives them.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook{name: name, fn: fn})
}

// Run serves until ctx is cancelled or the listener fails, then drains
// in-flight requests and runs the shutdown hooks.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.markReady(nil)
		return errors.Join(fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err), s.runHooks())
	}
	s.markReady(ln.Addr())
	s.logger.Info("listening", "addr", ln.Addr().String())

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.httpServer.Serve(ln) }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("serve: %w", err)
		}
		return errors.Join(err, s.runHooks())
	case <-ctx.Done():
		s.logger.Info("draining connections", "timeout", s.shutdownTimeout)
		return errors.Join(s.drain(), s.runHooks())
	}
}

// Addr blocks until Run has tried to listen. It is nil if listening failed.
func (s *Server) Addr() net.Addr {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) markReady(addr net.Addr) {
	s.readyOnce.Do(func() {
		s.mu.Lock()
		s.addr = addr
		s.mu.Unlock()
		close(s.ready)
	})
}

func (s *Server) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.httpServer.SetKeepAlivesEnabled(false)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("drain connections: %w", err)
	}
	return nil
}

// runHooks gives every hook a chance to run even if an earlier one failed.
func (s *Server) runHooks() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.mu.Lock()
	hooks := s.hooks
	s.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.fn(ctx); err != nil {
			s.logger.Error("shutdown hook failed", "name", h.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		s.logger.Debug("shutdown hook done", "name", h.name)
	}
	return errors.Join(errs...)
}
