// Package server holds the state and HTTP plumbing of the calendar MCP
// server.
//
// ServerContext owns one calendar client per account, created lazily from
// the configured token provider, together with the metrics recorder, the
// audit logger and the read-only switch that tool handlers consult.
//
// For the streamable HTTP transport, HTTPServer mounts the MCP endpoint at
// /mcp next to /healthz, /readyz and /healthz/detailed. MetricsServer serves
// Prometheus metrics on a separate address.
package server
