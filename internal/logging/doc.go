// Package logging provides structured logging utilities for the
// instagram-dms-mcp application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (username anonymization)
//   - Consistent attribute naming across the codebase
//   - Logger adapter interface for flexibility
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "gateway.threads")
//	logger.Info("listing threads",
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("user operation",
//	    logging.UserHash(username))
//
// # Security Considerations
//
// This package is designed with security in mind:
//   - Usernames are hashed to prevent PII leakage while allowing correlation
//   - Session cookies are never logged directly
package logging
