// Package common provides shared helpers for MCP tool registrations.
//
// InstrumentedToolHandler and InstrumentedToolHandlerWithService wrap tool
// handlers with metrics recording and audit logging. They are no-ops when the
// server context has no instrumentation configured, so tool packages can wrap
// every handler unconditionally.
package common
