// Package dm_tools provides MCP tools for Instagram direct messages.
//
// This package implements MCP (Model Context Protocol) tools that wrap the
// Instagram gateway client, exposing DM capabilities for AI assistants.
//
// # Available Tools
//
// Read tools (always registered):
//   - get_account_info: Current account info and connection status
//   - get_inbox: List DM conversations with participant and preview info
//   - get_messages: Message history for a specific thread
//   - search_user: Look up an Instagram user by username
//   - get_user_info: Fetch a user profile by user ID
//
// Write tools (registered only when read-only mode is disabled):
//   - send_message: Send a text message to an existing thread
//   - react_to_message: Add an emoji reaction to a message
//   - send_dm: Message a user by username, creating the thread if needed
//   - mark_as_read: Mark a conversation as seen
//
// # Response Shapes
//
// Gateway responses are reshaped before they reach the caller: millisecond
// timestamps become RFC3339 strings, thread participants are nested under a
// participant object, and list responses carry an explicit count.
//
// # Errors
//
// Missing or invalid arguments and gateway failures are reported as tool
// errors via mcp.NewToolResultError, never as Go errors, so MCP clients
// receive a structured error result instead of a protocol failure.
package dm_tools
