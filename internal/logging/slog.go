package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation   = "operation"
	KeyService     = "service"
	KeyTool        = "tool"
	KeyTaskGUID    = "task_guid"
	KeyContactHash = "contact_hash"
	KeyDuration    = "duration"
	KeyStatus      = "status"
	KeyError       = "error"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Service returns a slog attribute for the service name.
func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// TaskGUID returns a slog attribute for a task identifier.
func TaskGUID(guid string) slog.Attr {
	return slog.String(KeyTaskGUID, guid)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from
// output. This allows safely passing Err(maybeNilErr) without adding empty
// attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		// Return an empty Group that slog will omit from output
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeContact returns a hashed representation of an email address or
// phone number for logging purposes. This allows correlation of log entries
// without exposing PII.
func AnonymizeContact(contact string) string {
	if contact == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(contact))
	return "contact:" + hex.EncodeToString(hash[:8])
}

// Contact returns a slog attribute with the anonymized contact identifier.
// This is a convenience function to reduce repetition in logging calls and
// ensure consistent attribute naming across the codebase.
//
// Usage:
//
//	logger.Info("user lookup", logging.Contact(email))
func Contact(contact string) slog.Attr {
	return slog.String(KeyContactHash, AnonymizeContact(contact))
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content,
// as even partial token prefixes can aid attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// ExtractDomain extracts the domain part from an email address.
// This is useful for lower-cardinality logging where the full address would
// create too many unique values. Phone numbers have no domain and yield "".
func ExtractDomain(email string) string {
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// Domain returns a slog attribute for the email domain (lower cardinality
// than the full address).
func Domain(email string) slog.Attr {
	return slog.String("contact_domain", ExtractDomain(email))
}
