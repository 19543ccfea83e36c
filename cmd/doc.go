// Package cmd implements the command-line interface for instagram-dms-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server, launching and supervising the Instagram gateway
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
