package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the mcp-go MCPServer exposing the assessment tools.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance. Every tool call is logged
// through a CallLogger.
func NewServer(name, version string, logger *zap.Logger) *Server {
	logger = logger.Named("mcp")
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(NewCallLogger(logger).Hooks()),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}

// Serve blocks until ctx is cancelled or the transport fails. An empty
// httpAddr serves JSON-RPC over stdin and stdout; otherwise the streamable
// HTTP transport listens on httpAddr.
func (s *Server) Serve(ctx context.Context, httpAddr string) error {
	if httpAddr == "" {
		return s.serveStdio(ctx)
	}
	return s.serveHTTP(ctx, httpAddr)
}

func (s *Server) serveStdio(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger.Named("stdio")))

	s.logger.Info("Serving MCP over stdio")
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp stdio transport failed: %w", err)
	}
	return nil
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.NewStreamableHTTPServer(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Serving MCP over HTTP", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mcp http transport failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down MCP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// Sessions are not tracked: every assessment tool call is self-contained.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}
