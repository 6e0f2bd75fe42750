// Package server provides the MCP server context, health checks, and the
// HTTP transport for the feishu-tasks application.
//
// # Key Components
//
// ServerContext manages the Feishu API client with lazy initialization and
// caching. The client is bound to a single app credential pair (app_id and
// app_secret) and refreshes its tenant access token automatically.
//
// HTTPServer wraps an MCP server with the streamable HTTP transport on /mcp
// together with Kubernetes-style health endpoints (/healthz, /readyz).
//
// HealthChecker provides liveness and readiness probes. Readiness reflects
// the server lifecycle so load balancers stop routing traffic during
// shutdown.
//
// MetricsServer serves Prometheus metrics on a dedicated port, isolated from
// the main MCP traffic.
package server
