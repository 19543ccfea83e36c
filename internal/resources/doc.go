// Package resources provides MCP resources for exposing account and session
// data. Resources are read-only data sources that MCP clients can fetch, such
// as the connected Instagram account and the current DM inbox.
package resources
