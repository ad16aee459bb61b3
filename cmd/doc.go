// Package cmd implements the command-line interface for calendar-assistant.
//
// This package provides the following commands:
//   - serve: Start the MCP server (stdio or streamable HTTP)
//   - auth: Authorize a Google account and store its OAuth token
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
// A .env file in the working directory is loaded before any command runs.
package cmd
