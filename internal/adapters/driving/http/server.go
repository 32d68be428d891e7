package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sea-rag/internal/logger"
)

// APIPrefix is prepended to every route.
const APIPrefix = "/api/v1"

const shutdownTimeout = 10 * time.Second

// Ports holds the services the API drives. Routes whose service is nil
// answer 503.
type Ports struct {
	Chat   driving.ChatService
	Ingest driving.IngestService
	Files  driving.FileService
	Search driving.SearchService
}

// Config configures the server.
type Config struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string

	// CORSOrigins lists allowed origins. "*" or an empty list allows all.
	CORSOrigins []string

	// Version is reported by the health endpoint.
	Version string
}

// Server serves the API.
type Server struct {
	cfg    Config
	engine *gin.Engine
}

// NewServer builds the router for the given services.
func NewServer(cfg Config, ports Ports) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &Server{
		cfg:    cfg,
		engine: newRouter(cfg, &handler{ports: ports, version: cfg.Version}),
	}
}

// Addr returns the listen address after defaults are applied.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}
