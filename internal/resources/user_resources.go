package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/igdms/instagram-dms-mcp/internal/server"
)

// RegisterUserResources registers session-specific user resources.
// These resources provide information about the connected Instagram account.
func RegisterUserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Register account resource
	accountResource := mcp.NewResource(
		"instagram://account",
		"Instagram Account",
		mcp.WithResourceDescription("The connected Instagram account and gateway status"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(accountResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleAccount(ctx, request, sc)
	})

	// Register inbox resource
	inboxResource := mcp.NewResource(
		"instagram://inbox",
		"Instagram DM Inbox",
		mcp.WithResourceDescription("The current DM conversation list"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(inboxResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleInbox(ctx, request, sc)
	})

	return nil
}

// handleAccount returns the connected account and gateway status.
func handleAccount(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	status, err := sc.GatewayClient().Health(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account status: %w", err)
	}

	accountData := map[string]interface{}{
		"status":   status.Status,
		"username": status.Username,
		"user_id":  status.UserID,
		"gateway":  sc.GatewayClient().Addr(),
	}

	jsonData, err := json.MarshalIndent(accountData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// handleInbox returns the current conversation list.
func handleInbox(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	threads, err := sc.GatewayClient().Threads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox: %w", err)
	}

	inboxData := map[string]interface{}{
		"count":   len(threads),
		"threads": threads,
	}

	jsonData, err := json.MarshalIndent(inboxData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inbox data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
