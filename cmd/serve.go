package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/larkmcp/feishu-tasks/internal/instrumentation"
	"github.com/larkmcp/feishu-tasks/internal/server"
	"github.com/larkmcp/feishu-tasks/internal/tools/contact_tools"
	"github.com/larkmcp/feishu-tasks/internal/tools/task_tools"
)

// FeishuConfig holds the app credentials and time zone used for all
// Feishu API calls.
type FeishuConfig struct {
	AppID     string
	AppSecret string
	TimeZone  string
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode        bool
		transport        string
		httpAddr         string
		yolo             bool
		appID            string
		appSecret        string
		timeZone         string
		disableStreaming bool
		// Metrics server configuration
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide Feishu task and
contact tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Safety Mode:
  By default, the server operates in read-only mode: only task creation and
  contact lookup are exposed. Use --yolo to enable destructive operations
  (task update, task deletion, member changes).

Credentials:
  --app-id and --app-secret flags
  OR FEISHU_APP_ID and FEISHU_APP_SECRET env vars
  A .env file in the working directory is loaded if present.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			feishuConfig, err := resolveFeishuConfig(appID, appSecret, timeZone)
			if err != nil {
				return err
			}

			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}

			return runServe(transport, debugMode, httpAddr, yolo, disableStreaming, feishuConfig, metricsConfig)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable write operations (task update, deletion, member changes). Default is read-only mode.")
	cmd.Flags().StringVar(&appID, "app-id", "", "Feishu app ID. Can also use FEISHU_APP_ID env var.")
	cmd.Flags().StringVar(&appSecret, "app-secret", "", "Feishu app secret. Can also use FEISHU_APP_SECRET env var.")
	cmd.Flags().StringVar(&timeZone, "time-zone", "", "IANA time zone for date-time parameters (default: Asia/Shanghai). Can also use FEISHU_TIME_ZONE env var.")
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", false, "Run the HTTP transport stateless so replicated deployments can serve any request")

	// Metrics server flags
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// resolveFeishuConfig merges credential flags with their environment
// fallbacks. A .env file is loaded first so local development does not
// need exported variables.
func resolveFeishuConfig(appID, appSecret, timeZone string) (FeishuConfig, error) {
	// Missing .env is the common case and not an error
	_ = godotenv.Load()

	if appID == "" {
		appID = os.Getenv("FEISHU_APP_ID")
	}
	if appSecret == "" {
		appSecret = os.Getenv("FEISHU_APP_SECRET")
	}
	if timeZone == "" {
		timeZone = os.Getenv("FEISHU_TIME_ZONE")
	}

	if appID == "" || appSecret == "" {
		return FeishuConfig{}, fmt.Errorf("feishu app credentials are required: set --app-id/--app-secret or FEISHU_APP_ID/FEISHU_APP_SECRET")
	}

	return FeishuConfig{
		AppID:     appID,
		AppSecret: appSecret,
		TimeZone:  timeZone,
	}, nil
}

// setupLogging configures the default slog logger. Logs always go to stderr
// because stdout is the MCP channel on the stdio transport.
func setupLogging(debugMode bool) {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func runServe(transport string, debugMode bool, httpAddr string, yolo bool, disableStreaming bool, feishuConfig FeishuConfig, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	setupLogging(debugMode)

	// Load metrics config from environment if not set via flags
	if !metricsConfig.Enabled {
		if os.Getenv("METRICS_ENABLED") == "true" {
			metricsConfig.Enabled = true
		}
	}
	if metricsConfig.Addr == "" || metricsConfig.Addr == server.DefaultMetricsAddr {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			metricsConfig.Addr = addr
		}
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("instrumentation shutdown failed", "error", err)
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if transport != "stdio" && metricsConfig.Enabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		slog.Info("metrics server started", "addr", metricsServer.Addr())
	}

	// Create server context
	serverContext, err := server.NewServerContext(shutdownCtx, feishuConfig.AppID, feishuConfig.AppSecret, feishuConfig.TimeZone)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging))
	}
	defer func() {
		// Shutdown metrics server first
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			slog.Error("server context shutdown failed", "error", err)
		}
	}()

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("feishu-tasks", version,
		mcpserver.WithToolCapabilities(true),
	)

	// readOnly is the inverse of yolo
	readOnly := !yolo

	// Log the mode for visibility (only for non-stdio transports)
	if transport != "stdio" {
		if readOnly {
			slog.Info("starting server in READ-ONLY mode (use --yolo to enable write operations)")
		} else {
			slog.Info("starting server with WRITE operations enabled (--yolo flag is set)")
		}
	}

	// Register all tools
	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	// Start the appropriate server based on transport type
	switch transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, httpAddr, disableStreaming, metricsConfig)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools.
// Extracted so serve and generate-docs stay in sync.
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Tasks",
			register: func() error {
				return task_tools.RegisterTaskTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Contacts",
			register: func() error {
				return contact_tools.RegisterContactTools(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, addr string, disableStreaming bool, metricsConfig MetricsConfig) error {
	healthChecker := server.NewHealthChecker(serverContext)

	httpServer := server.NewHTTPServer(mcpSrv,
		server.WithHealthChecker(healthChecker),
		server.WithStateless(disableStreaming),
	)

	slog.Info("streamable HTTP server starting",
		"addr", addr,
		"mcp_endpoint", "/mcp",
		"health_endpoints", "/healthz /readyz")
	if metricsConfig.Enabled {
		slog.Info("metrics endpoint available", "addr", metricsConfig.Addr+"/metrics")
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	slog.Info("HTTP server gracefully stopped")
	return nil
}
