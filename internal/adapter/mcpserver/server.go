// Package mcpserver exposes domain tools over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"search-online-mcp/internal/domain"
	"search-online-mcp/internal/infra/middleware"
)

// Supported transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

const (
	shutdownTimeout = 5 * time.Second
	httpEndpoint    = "/mcp"
)

// Server wraps an mcp-go server with the registered domain tools.
type Server struct {
	mcp            *server.MCPServer
	logger         *slog.Logger
	allowedOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins lists non-loopback browser origins accepted by the HTTP
// transport.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// New creates a server advertising every tool in tools.
func New(name, version string, tools []domain.Tool, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		mcp: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, t := range tools {
		if err := s.register(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

func (s *Server) register(t domain.Tool) error {
	schema := t.Schema()
	if !json.Valid(schema.Parameters) {
		return fmt.Errorf("tool %q: input schema is not valid JSON", t.Name())
	}
	s.mcp.AddTool(mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema.Parameters), s.handler(t))
	s.logger.Debug("mcp tool registered", "tool", t.Name())
	return nil
}

// handler adapts a domain.Tool to an mcp-go tool handler. Tool failures are
// reported as error-flagged results, never as protocol errors.
func (s *Server) handler(t domain.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		res, err := t.Execute(ctx, raw)
		if err != nil {
			s.logger.Error("tool execution failed", "tool", t.Name(), "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toCallResult(res), nil
	}
}

func toCallResult(res *domain.ToolResult) *mcp.CallToolResult {
	out := &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(res.Content)},
		IsError: res.IsError,
	}
	if !res.IsError && res.Structured != nil {
		out.StructuredContent = res.Structured
	}
	return out
}

// Serve runs the chosen transport until ctx is cancelled or the transport
// fails.
func (s *Server) Serve(ctx context.Context, transport, addr string, stdin io.Reader, stdout io.Writer) error {
	switch transport {
	case TransportStdio, "":
		return s.ServeStdio(ctx, stdin, stdout)
	case TransportHTTP:
		return s.ServeHTTP(ctx, addr)
	default:
		return fmt.Errorf("unsupported transport %q", transport)
	}
}

// ServeStdio speaks newline-delimited JSON-RPC over the given streams.
func (s *Server) ServeStdio(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	std := server.NewStdioServer(s.mcp)
	std.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("mcp server listening", "transport", TransportStdio)
	err := std.Listen(ctx, stdin, stdout)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)) {
		return nil
	}
	return err
}

// HTTPHandler returns the streamable HTTP transport mounted at /mcp behind
// the security middleware.
func (s *Server) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(httpEndpoint, server.NewStreamableHTTPServer(s.mcp))
	return middleware.SecurityHeaders(middleware.OriginGuard(s.allowedOrigins)(mux))
}

// ServeHTTP serves the streamable HTTP transport at /mcp on addr.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening", "transport", TransportHTTP, "addr", addr, "path", httpEndpoint)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http transport: %w", err)
		}
		return nil
	}
}
