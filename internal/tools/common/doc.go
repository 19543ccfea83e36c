// Package common provides shared helpers for the MCP tool implementations:
// argument extraction from tool requests, username normalization, and the
// instrumentation wrapper applied to every registered tool handler.
package common
