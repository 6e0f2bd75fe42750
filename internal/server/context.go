package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/larkmcp/feishu-tasks/internal/feishu"
	"github.com/larkmcp/feishu-tasks/internal/instrumentation"
)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx       context.Context
	cancel    context.CancelFunc
	appID     string
	appSecret string
	timeZone  string
	client    *feishu.Client // Lazily created from app credentials
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
	mu        sync.RWMutex
	shutdown  bool
}

// NewServerContext creates a new server context bound to a Feishu app
// credential pair. The Feishu client is created lazily on first use so the
// server can start before credentials are validated.
func NewServerContext(ctx context.Context, appID, appSecret, timeZone string) (*ServerContext, error) {
	if appID == "" || appSecret == "" {
		return nil, fmt.Errorf("app_id and app_secret are required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		appID:     appID,
		appSecret: appSecret,
		timeZone:  timeZone,
		shutdown:  false,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// FeishuClient returns the Feishu client, creating and caching it on first
// use. Returns an error if the client cannot be constructed from the
// configured credentials.
func (sc *ServerContext) FeishuClient() (*feishu.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.client != nil {
		return sc.client, nil
	}

	client, err := feishu.NewClient(sc.appID, sc.appSecret, sc.timeZone,
		feishu.WithTokenRefreshHook(sc.recordTokenRefresh))
	if err != nil {
		return nil, fmt.Errorf("failed to create Feishu client: %w", err)
	}

	sc.client = client
	return client, nil
}

// recordTokenRefresh feeds tenant token fetch outcomes into the token refresh
// counter. No-op when metrics are not configured.
func (sc *ServerContext) recordTokenRefresh(success bool) {
	metrics := sc.Metrics()
	if metrics == nil {
		return
	}
	result := instrumentation.TokenResultSuccess
	if !success {
		result = instrumentation.TokenResultFailure
	}
	metrics.RecordTokenRefresh(sc.Context(), result)
}

// SetFeishuClient sets the Feishu client. Used by tests to inject a client
// bound to a fake API.
func (sc *ServerContext) SetFeishuClient(client *feishu.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.client = client
}

// HasClient reports whether a Feishu client has been created.
func (sc *ServerContext) HasClient() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.client != nil
}

// TimeZone returns the configured IANA time zone for wall-clock inputs.
func (sc *ServerContext) TimeZone() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.timeZone
}

// SetMetrics sets the metrics recorder used by tool handlers.
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
}

// Metrics returns the metrics recorder, or nil when instrumentation is not
// configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger used by tool handlers.
func (sc *ServerContext) SetAuditLogger(audit *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.audit = audit
}

// AuditLogger returns the audit logger, or nil when audit logging is not
// configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.audit
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
