package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// HTTPServer wraps an MCP server with the streamable HTTP transport and
// health check endpoints on a single listener.
type HTTPServer struct {
	mcpServer     *mcpserver.MCPServer
	healthChecker *HealthChecker
	httpServer    *http.Server
	stateless     bool
}

// HTTPServerOption configures an HTTPServer.
type HTTPServerOption func(*HTTPServer)

// WithHealthChecker attaches a health checker whose endpoints are served
// alongside /mcp.
func WithHealthChecker(hc *HealthChecker) HTTPServerOption {
	return func(s *HTTPServer) {
		s.healthChecker = hc
	}
}

// WithStateless disables session state, allowing any node in a replicated
// deployment to serve any request.
func WithStateless(stateless bool) HTTPServerOption {
	return func(s *HTTPServer) {
		s.stateless = stateless
	}
}

// NewHTTPServer creates a new HTTP server exposing the MCP server on /mcp.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, opts ...HTTPServerOption) *HTTPServer {
	s := &HTTPServer{
		mcpServer: mcpServer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts the HTTP server in a blocking manner.
// Call this in a goroutine if you need non-blocking operation.
func (s *HTTPServer) Start(addr string) error {
	mux := http.NewServeMux()

	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath("/mcp"),
		mcpserver.WithStateLess(s.stateless),
	)
	mux.Handle("/mcp", streamable)

	if s.healthChecker != nil {
		s.healthChecker.RegisterHealthEndpoints(mux)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("starting streamable HTTP server", "addr", addr, "stateless", s.stateless)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server. The health checker is flipped to
// not-ready first so load balancers drain traffic before connections close.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.healthChecker != nil {
		s.healthChecker.SetReady(false)
	}
	if s.httpServer != nil {
		slog.Info("shutting down streamable HTTP server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
