// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/stacklok/mcpbridge/pkg/logger"
)

const (
	// defaultReadHeaderTimeout prevents slowloris attacks by limiting time to read request headers.
	defaultReadHeaderTimeout = 10 * time.Second

	// defaultIdleTimeout is the maximum amount of time to wait for the next request when keep-alive's are enabled.
	defaultIdleTimeout = 120 * time.Second

	// defaultMaxHeaderBytes is the maximum size of request headers in bytes (1 MB).
	defaultMaxHeaderBytes = 1 << 20

	// defaultShutdownTimeout bounds graceful shutdown.
	defaultShutdownTimeout = 10 * time.Second
)

// Server runs a Router's HTTP surface. There is no write timeout because
// SSE responses stay open for the life of the connection.
type Server struct {
	router *Router
	addr   string

	httpServer *http.Server

	listenerMu sync.RWMutex
	listener   net.Listener

	ready     chan struct{}
	readyOnce sync.Once
	stopOnce  sync.Once
	stopErr   error
}

// NewServer creates a server listening on host:port. Port 0 picks a free port.
func NewServer(router *Router, host string, port int) *Server {
	return &Server{
		router: router,
		addr:   net.JoinHostPort(host, fmt.Sprint(port)),
		ready:  make(chan struct{}),
	}
}

// Start serves until ctx is cancelled or the HTTP server fails, then stops.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()

	actualAddr := listener.Addr().String()
	logger.Infof("Starting MCP bridge at %s serving %v", actualAddr, s.router.registry.Names())
	logger.Infof("Health endpoints available at %s/health and %s/health_check", actualAddr, actualAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	s.readyOnce.Do(func() {
		close(s.ready)
	})

	select {
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down server")
		return s.Stop(context.Background())
	case err := <-errCh:
		logger.Errorf("HTTP server error: %v", err)
		if stopErr := s.Stop(context.Background()); stopErr != nil {
			return fmt.Errorf("server error: %w; stop error: %v", err, stopErr)
		}
		return err
	}
}

// Ready is closed once the listener accepts connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Address returns the bound address, or "" before Start.
func (s *Server) Address() string {
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes open streams, shuts the HTTP server down and closes every
// adapter instance. Later calls return the first result.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		logger.Info("Stopping MCP bridge")
		var errs []error

		// open SSE streams would otherwise hold Shutdown until its deadline
		s.router.hub.CloseAll()

		if s.httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
			defer cancel()
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
			}
		}

		if err := s.router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close adapter instances: %w", err))
		}
		s.stopErr = errors.Join(errs...)
	})
	return s.stopErr
}
