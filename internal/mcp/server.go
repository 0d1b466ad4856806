// ABOUTME: MCP server initialization and transport wiring for tern.
// ABOUTME: Exposes tweet-posting tools over stdio or streamable HTTP.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/tern/internal/models"
	"github.com/2389-research/tern/internal/poster"
)

// Server wraps the MCP server with the post orchestrator.
type Server struct {
	mcp      *gomcp.Server
	poster   *poster.Poster
	fallback *models.CallerContext
	logger   *slog.Logger
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithFallbackCaller sets credentials used when a request carries none,
// which is how stdio deployments supply their single identity.
func WithFallbackCaller(c *models.CallerContext) ServerOption {
	return func(s *Server) {
		s.fallback = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates an MCP server exposing the posting tools.
func NewServer(p *poster.Poster, opts ...ServerOption) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("poster is required")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "tern",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:    mcpServer,
		poster: p,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerTweetTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}

// HTTPHandler returns the streamable HTTP transport, wrapped so that caller
// credential headers are visible to tool handlers via the request context.
func (s *Server) HTTPHandler() http.Handler {
	handler := gomcp.NewStreamableHTTPHandler(func(*http.Request) *gomcp.Server {
		return s.mcp
	}, nil)
	return CallerHeaderMiddleware(handler)
}

// caller resolves the effective caller for a request: per-request headers
// first, then the process-configured fallback.
func (s *Server) caller(ctx context.Context) *models.CallerContext {
	if c := CallerFromContext(ctx); c != nil {
		return c
	}
	return s.fallback
}
