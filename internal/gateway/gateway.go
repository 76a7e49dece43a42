// ABOUTME: Gateway orchestrator wiring auth, sessions, dispatcher, and transports.
// ABOUTME: Owns the HTTP server lifecycle including graceful shutdown.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/crestline/snowgate/internal/auth"
	"github.com/crestline/snowgate/internal/config"
	"github.com/crestline/snowgate/internal/mcp"
	"github.com/crestline/snowgate/internal/session"
	"github.com/crestline/snowgate/internal/stream"
)

const (
	serverName      = "snowgate"
	shutdownTimeout = 5 * time.Second
)

// Gateway exposes the tool-calling protocol over SSE and stateless HTTP.
type Gateway struct {
	config     *config.Config
	logger     *slog.Logger
	version    string
	gate       *auth.Gate
	sessions   *session.Store
	dispatcher *mcp.Dispatcher
	streams    *stream.Manager
	httpServer *http.Server
	listener   net.Listener
}

// New builds a gateway serving the given tool backend.
func New(cfg *config.Config, backend mcp.ToolBackend, version string, logger *slog.Logger) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("tool backend is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	sessions := session.NewStore(cfg.Sessions.MaxEntries, cfg.Sessions.TTL, logger)

	dispatcher, err := mcp.NewDispatcher(mcp.Config{
		Backend:       backend,
		Sessions:      sessions,
		Logger:        logger,
		ServerName:    serverName,
		ServerVersion: version,
	})
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	}
	gate := auth.NewGate(cfg.Auth.APIKey, verifier, logger)

	g := &Gateway{
		config:     cfg,
		logger:     logger,
		version:    version,
		gate:       gate,
		sessions:   sessions,
		dispatcher: dispatcher,
		streams:    stream.NewManager(dispatcher, messagesPath, logger),
	}
	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           g.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return g, nil
}

// Run serves HTTP until the context is cancelled or the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.config.Server.HTTPAddr, err)
	}
	g.listener = listener

	g.logger.Info("gateway listening",
		"addr", listener.Addr().String(),
		"auth_enabled", g.gate.Enabled(),
		"stream_auth", g.config.Auth.RequireAuthOnStream)

	errCh := make(chan error, 1)
	go func() {
		if err := g.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		g.logger.Info("shutdown signal received")
		return g.gracefulShutdown()
	case err := <-errCh:
		return err
	}
}

// Addr reports the bound listen address, or the configured address before Run.
func (g *Gateway) Addr() string {
	if g.listener != nil {
		return g.listener.Addr().String()
	}
	return g.config.Server.HTTPAddr
}

func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := g.httpServer.Shutdown(ctx); err != nil {
		g.logger.Error("http shutdown failed", "error", err)
		return fmt.Errorf("http shutdown: %w", err)
	}
	g.logger.Info("gateway stopped")
	return nil
}
