// Package common holds helpers shared by the MCP tool packages: argument
// extraction and the instrumentation wrapper every tool handler runs under.
package common
