// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the calendar-assistant MCP server.
//
// # Metrics
//
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: per tool and status
//   - calendar_api_calls_total, calendar_api_call_duration_seconds: per
//     Calendar API operation, status and provider error kind
//   - calendar_api_retries_total: retried attempts per operation
//   - free_slots_returned: slots produced per get_free_slots call
//   - oauth_token_refresh_total: token refreshes by result
//   - http_requests_total, http_request_duration_seconds: streamable HTTP transport
//
// # Tracing
//
// Tool handlers run inside a "tool.<name>" server span; every Calendar API
// call gets a "google.calendar.<operation>" client span beneath it.
//
// # Configuration
//
// Environment variables:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: calendar-assistant)
//   - METRICS_DETAILED_LABELS (default: false)
//   - AUDIT_LOGGING_ENABLED (default: true)
//   - AUDIT_LOGGING_INCLUDE_ARGUMENTS (default: false)
//
// Stdout exporters write to stderr, since stdout carries the stdio transport.
package instrumentation
