package instrumentation

import "strconv"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// # Warning
//
// High cardinality in metrics can cause:
// - Increased memory usage in Prometheus/metrics backends
// - Slower query performance
// - Higher storage costs
//
// Always use these helpers when recording metrics with unbounded values.

// BucketAttempts reduces a probe attempt count to a range label.
func BucketAttempts(attempts int) string {
	switch {
	case attempts <= 1:
		return "1"
	case attempts <= 5:
		return "2-5"
	case attempts <= 15:
		return "6-15"
	default:
		return "16+"
	}
}

// StatusFromBool converts a success flag to the standard status label.
func StatusFromBool(success bool) string {
	if success {
		return StatusSuccess
	}
	return StatusError
}

// StatusCodeClass reduces an HTTP status code to its class ("2xx", "4xx", ...).
// Individual codes are too fine-grained for the request metrics.
func StatusCodeClass(code int) string {
	if code < 100 || code > 599 {
		return StatusUnknown
	}
	return strconv.Itoa(code/100) + "xx"
}

// Common operation types for gateway metrics.
// Status constants are defined in config.go.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationSend   = "send"
	OperationSearch = "search"
	OperationReact  = "react"
	OperationSeen   = "seen"
)
