// Package gateway provides a client for the Instagram gateway HTTP API.
//
// The gateway is a separate process that holds the authenticated Instagram
// connection and exposes a small local HTTP API for DM operations. This
// package wraps that API with typed requests and responses for:
//   - Health/connection status (used as the readiness probe)
//   - Listing inbox threads and fetching message history
//   - Sending messages and reactions, marking threads seen
//   - Looking up users by username or ID
//
// # Error contract
//
// Any response with status >= 400 is returned as an *APIError carrying the
// status code and the raw response body. Request timeouts are reported as
// ErrTimeout; a gateway that cannot be reached at all produces a connection
// error naming the configured address. Transport failures never panic and
// are always local to the call that hit them.
package gateway
