// Package logging provides shared structured-logging helpers built on
// log/slog.
//
// It defines the canonical attribute keys used across the codebase
// (operation, service, tool, status, error) together with helpers for
// PII-safe logging: contact identifiers (emails, phone numbers) are hashed
// before they reach log output, and tokens are reduced to a length
// indicator.
package logging
