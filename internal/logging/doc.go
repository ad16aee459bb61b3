// Package logging provides structured logging utilities for calendar-assistant.
//
// Everything logs through log/slog. This package keeps attribute names
// consistent across packages and builds the handler selected on the
// command line.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calendar.freebusy")
//	logger.Info("querying busy intervals",
//	    logging.Calendar(calendarID),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
//   - Calendar IDs that look like email addresses are hashed
//   - Tokens are never logged directly, only their length
//
// In stdio mode the MCP protocol owns stdout, so the CLI always writes logs
// to stderr.
package logging
