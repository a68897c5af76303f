// Package http provides the public HTTP listener of the dashboard gateway.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions
var ginModeOnce sync.Once

// Server represents the public HTTP server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
	logger     observability.Logger
	config     *ServerConfig
	mu         sync.RWMutex
	running    bool
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Port           int
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// DefaultServerConfig returns a ServerConfig with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           config.DefaultListenPort,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}
}

// ServerConfigFromListener builds a ServerConfig from the listener section,
// keeping defaults for unset timeouts.
func ServerConfigFromListener(l config.ListenerConfig) *ServerConfig {
	cfg := DefaultServerConfig()
	cfg.Address = l.Address
	if l.Port != 0 {
		cfg.Port = l.Port
	}
	if l.ReadTimeout > 0 {
		cfg.ReadTimeout = l.ReadTimeout.Duration()
	}
	if l.WriteTimeout > 0 {
		cfg.WriteTimeout = l.WriteTimeout.Duration()
	}
	if l.IdleTimeout > 0 {
		cfg.IdleTimeout = l.IdleTimeout.Duration()
	}
	return cfg
}

// NewServer creates a new HTTP server.
func NewServer(cfg *ServerConfig, logger observability.Logger) *Server {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	return &Server{
		engine: gin.New(),
		logger: logger,
		config: cfg,
	}
}

// Use adds middleware to the server.
func (s *Server) Use(middleware ...gin.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Use(middleware...)
}

// Engine returns the underlying gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the bound address once the server is running.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the listener and serves until Stop is called. It blocks.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	addr := net.JoinHostPort(s.config.Address, fmt.Sprintf("%d", s.config.Port))

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", ln.Addr().String()),
		observability.Duration("readTimeout", s.config.ReadTimeout),
		observability.Duration("writeTimeout", s.config.WriteTimeout),
	)

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
