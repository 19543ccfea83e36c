package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/igdms/instagram-dms-mcp/internal/instrumentation"
	"github.com/igdms/instagram-dms-mcp/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with metrics and audit logging.
// It records tool invocation metrics and logs the invocation for audit purposes.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(
	toolName string,
	sc *server.ServerContext,
	handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error),
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Get metrics and audit logger (may be nil if not configured)
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		// If no instrumentation configured, just call the handler
		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		// Start timing and create invocation record
		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx)

		// Extract target identifiers from request arguments
		args := request.GetArguments()
		if thread := ThreadFromArgs(args); thread != "" {
			invocation.WithThread(thread)
		}
		if username := UsernameFromArgs(args); username != "" {
			invocation.WithUser(username)
		}

		// Call the actual handler
		result, err := handler(ctx, request)
		duration := time.Since(start)

		// Determine status
		succeeded := err == nil && (result == nil || !result.IsError)
		status := instrumentation.StatusFromBool(succeeded)
		if succeeded {
			invocation.CompleteSuccess()
		} else if err != nil {
			invocation.CompleteWithError(err)
		} else {
			invocation.Complete(false, nil)
		}

		// Record metrics
		if metrics != nil {
			metrics.RecordToolInvocation(ctx, toolName, status, duration)
		}

		// Log audit
		if auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}

// InstrumentedToolHandlerWithEndpoint is like InstrumentedToolHandler but also
// records the gateway endpoint and operation type for more detailed metrics.
//
// This handler records both:
// - MCP tool invocation metrics (mcp_tool_invocations_total, mcp_tool_duration_seconds)
// - Gateway request metrics (gateway_requests_total, gateway_request_duration_seconds)
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandlerWithEndpoint("my_tool", "/threads", "list", sc, handler))
func InstrumentedToolHandlerWithEndpoint(
	toolName string,
	endpoint string,
	operation string,
	sc *server.ServerContext,
	handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error),
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Get metrics and audit logger (may be nil if not configured)
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		// If no instrumentation configured, just call the handler
		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		// Start timing and create invocation record
		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithEndpoint(endpoint, operation)

		// Extract target identifiers from request arguments
		args := request.GetArguments()
		if thread := ThreadFromArgs(args); thread != "" {
			invocation.WithThread(thread)
		}
		if username := UsernameFromArgs(args); username != "" {
			invocation.WithUser(username)
		}

		// Call the actual handler
		result, err := handler(ctx, request)
		duration := time.Since(start)

		// Determine status
		succeeded := err == nil && (result == nil || !result.IsError)
		status := instrumentation.StatusFromBool(succeeded)
		if succeeded {
			invocation.CompleteSuccess()
		} else if err != nil {
			invocation.CompleteWithError(err)
		} else {
			invocation.Complete(false, nil)
		}

		// Record metrics
		if metrics != nil {
			// Record MCP tool invocation metrics
			metrics.RecordToolInvocation(ctx, toolName, status, duration)

			// Record gateway request metrics for endpoint-level observability.
			// This provides insight into which gateway endpoints are used most
			// and their performance characteristics
			metrics.RecordGatewayRequest(ctx, endpoint, operation, status, duration)
		}

		// Log audit
		if auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}
