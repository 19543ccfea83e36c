package dm_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/igdms/instagram-dms-mcp/internal/instrumentation"
	"github.com/igdms/instagram-dms-mcp/internal/server"
	"github.com/igdms/instagram-dms-mcp/internal/tools/common"
)

const (
	defaultInboxLimit   = 20
	defaultHistoryLimit = 30
	maxHistoryLimit     = 100
)

// formatTimestamp converts a millisecond epoch timestamp to RFC3339 in UTC.
// A zero timestamp formats as the empty string.
func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// participantInfo is the nested participant object in inbox conversations.
type participantInfo struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// conversationInfo is one inbox conversation as presented to the caller.
type conversationInfo struct {
	ThreadID        string          `json:"thread_id"`
	Participant     participantInfo `json:"participant"`
	LastMessage     string          `json:"last_message"`
	LastMessageTime string          `json:"last_message_time"`
	MessageCount    int             `json:"message_count"`
}

type inboxResult struct {
	Count         int                `json:"count"`
	Conversations []conversationInfo `json:"conversations"`
}

type attachmentInfo struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// messageInfo is one DM as presented to the caller, with the gateway's
// millisecond timestamp replaced by an RFC3339 string.
type messageInfo struct {
	MessageID   string           `json:"message_id"`
	SenderID    string           `json:"sender_id"`
	Text        string           `json:"text"`
	Timestamp   string           `json:"timestamp"`
	Attachments []attachmentInfo `json:"attachments"`
}

type historyResult struct {
	ThreadID string        `json:"thread_id"`
	Count    int           `json:"count"`
	HasMore  bool          `json:"has_more"`
	Messages []messageInfo `json:"messages"`
}

type accountInfoResult struct {
	Status   string `json:"status"`
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

type userLookupResult struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
}

type userInfoResult struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	ProfilePicURL string `json:"profile_pic_url"`
}

type sendDMResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
	UserID   string `json:"user_id"`
}

// toolHandler is the signature mcp-go expects for tool handlers.
type toolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// RegisterDMTools registers all Instagram DM tools with the MCP server.
// Write tools (send_message, react_to_message, send_dm, mark_as_read) are
// only registered when readOnly is false.
func RegisterDMTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := registerReadTools(s, sc); err != nil {
		return fmt.Errorf("failed to register read tools: %w", err)
	}

	if !readOnly {
		if err := registerWriteTools(s, sc); err != nil {
			return fmt.Errorf("failed to register write tools: %w", err)
		}
	}

	return nil
}

// registerReadTools registers the tools that only read Instagram state.
func registerReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	accountInfoTool := mcp.NewTool("get_account_info",
		mcp.WithDescription("Get the current Instagram account info and connection status"),
	)

	s.AddTool(accountInfoTool, common.InstrumentedToolHandlerWithEndpoint(
		"get_account_info", "/health", instrumentation.OperationGet, sc,
		accountInfoHandler(sc)))

	inboxTool := mcp.NewTool("get_inbox",
		mcp.WithDescription("Get your Instagram DM inbox - lists all conversations with recent messages"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of conversations to return (default: 20)"),
		),
	)

	s.AddTool(inboxTool, common.InstrumentedToolHandlerWithEndpoint(
		"get_inbox", "/threads", instrumentation.OperationList, sc,
		inboxHandler(sc)))

	messagesTool := mcp.NewTool("get_messages",
		mcp.WithDescription("Get messages from a specific Instagram DM thread"),
		mcp.WithString("thread_id",
			mcp.Required(),
			mcp.Description("The thread ID to fetch messages from"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of messages to return (default: 30, max: 100)"),
		),
	)

	s.AddTool(messagesTool, common.InstrumentedToolHandlerWithEndpoint(
		"get_messages", "/history", instrumentation.OperationGet, sc,
		messagesHandler(sc)))

	searchUserTool := mcp.NewTool("search_user",
		mcp.WithDescription("Search for an Instagram user by username"),
		mcp.WithString("username",
			mcp.Required(),
			mcp.Description("The Instagram username to search for (with or without @)"),
		),
	)

	s.AddTool(searchUserTool, common.InstrumentedToolHandlerWithEndpoint(
		"search_user", "/lookup_user", instrumentation.OperationSearch, sc,
		searchUserHandler(sc)))

	userInfoTool := mcp.NewTool("get_user_info",
		mcp.WithDescription("Get user info by their user ID"),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("The Instagram user ID"),
		),
	)

	s.AddTool(userInfoTool, common.InstrumentedToolHandlerWithEndpoint(
		"get_user_info", "/user", instrumentation.OperationGet, sc,
		userInfoHandler(sc)))

	return nil
}

// registerWriteTools registers the tools that modify Instagram state.
func registerWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	sendMessageTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send a text message to an Instagram DM thread"),
		mcp.WithString("thread_id",
			mcp.Required(),
			mcp.Description("The thread ID to send the message to"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The message text to send"),
		),
		mcp.WithString("reply_to",
			mcp.Description("Optional message ID to reply to"),
		),
	)

	s.AddTool(sendMessageTool, common.InstrumentedToolHandlerWithEndpoint(
		"send_message", "/send", instrumentation.OperationSend, sc,
		sendMessageHandler(sc)))

	reactTool := mcp.NewTool("react_to_message",
		mcp.WithDescription("React to a message with an emoji"),
		mcp.WithString("thread_id",
			mcp.Required(),
			mcp.Description("The thread containing the message"),
		),
		mcp.WithString("message_id",
			mcp.Required(),
			mcp.Description("The message ID to react to"),
		),
		mcp.WithString("emoji",
			mcp.Required(),
			mcp.Description("The emoji to react with"),
		),
	)

	s.AddTool(reactTool, common.InstrumentedToolHandlerWithEndpoint(
		"react_to_message", "/react", instrumentation.OperationReact, sc,
		reactHandler(sc)))

	sendDMTool := mcp.NewTool("send_dm",
		mcp.WithDescription("Send a DM to a user by their username (starts new conversation if needed)"),
		mcp.WithString("username",
			mcp.Required(),
			mcp.Description("The Instagram username to message (with or without @)"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The message text to send"),
		),
	)

	s.AddTool(sendDMTool, common.InstrumentedToolHandlerWithEndpoint(
		"send_dm", "/dm_username", instrumentation.OperationSend, sc,
		sendDMHandler(sc)))

	markAsReadTool := mcp.NewTool("mark_as_read",
		mcp.WithDescription("Mark a conversation as read/seen"),
		mcp.WithString("thread_id",
			mcp.Required(),
			mcp.Description("The thread ID to mark as read"),
		),
	)

	s.AddTool(markAsReadTool, common.InstrumentedToolHandlerWithEndpoint(
		"mark_as_read", "/seen", instrumentation.OperationSeen, sc,
		markAsReadHandler(sc)))

	return nil
}

// accountInfoHandler returns the handler for get_account_info.
func accountInfoHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, err := sc.GatewayClient().Health(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, _ := json.MarshalIndent(accountInfoResult{
			Status:   status.Status,
			Username: status.Username,
			UserID:   status.UserID,
		}, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}
}

// inboxHandler returns the handler for get_inbox. The gateway returns the
// full thread list; the limit is applied client-side with no upper bound.
func inboxHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		limit := common.LimitFromArgs(args, "limit", defaultInboxLimit, 0)

		threads, err := sc.GatewayClient().Threads(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch inbox: %v", err)), nil
		}

		if len(threads) > limit {
			threads = threads[:limit]
		}

		conversations := make([]conversationInfo, 0, len(threads))
		for _, thread := range threads {
			conversations = append(conversations, conversationInfo{
				ThreadID: thread.ThreadID,
				Participant: participantInfo{
					Username: thread.ParticipantUsername,
					Name:     thread.ParticipantName,
				},
				LastMessage:     thread.LastMessagePreview,
				LastMessageTime: formatTimestamp(thread.LastMessageTime),
				MessageCount:    thread.MessageCount,
			})
		}

		result, _ := json.MarshalIndent(inboxResult{
			Count:         len(conversations),
			Conversations: conversations,
		}, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}
}

// messagesHandler returns the handler for get_messages.
func messagesHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		threadID := common.ThreadFromArgs(args)
		if threadID == "" {
			return mcp.NewToolResultError("thread_id is required"), nil
		}
		limit := common.LimitFromArgs(args, "limit", defaultHistoryLimit, maxHistoryLimit)

		hist, err := sc.GatewayClient().History(ctx, threadID, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch messages: %v", err)), nil
		}

		messages := make([]messageInfo, 0, len(hist.Messages))
		for _, msg := range hist.Messages {
			attachments := make([]attachmentInfo, 0, len(msg.Attachments))
			for _, att := range msg.Attachments {
				attachments = append(attachments, attachmentInfo{
					Type:     att.Type,
					URL:      att.URL,
					Filename: att.Filename,
				})
			}
			messages = append(messages, messageInfo{
				MessageID:   msg.MessageID,
				SenderID:    msg.SenderID,
				Text:        msg.Text,
				Timestamp:   formatTimestamp(msg.TimestampMS),
				Attachments: attachments,
			})
		}

		result, _ := json.MarshalIndent(historyResult{
			ThreadID: threadID,
			Count:    len(messages),
			HasMore:  hist.HasMore,
			Messages: messages,
		}, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}
}

// searchUserHandler returns the handler for search_user.
func searchUserHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		username := common.UsernameFromArgs(args)
		if username == "" {
			return mcp.NewToolResultError("username is required"), nil
		}

		lookup, err := sc.GatewayClient().LookupUser(ctx, username)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("User @%s not found: %v", username, err)), nil
		}

		result, _ := json.MarshalIndent(userLookupResult{
			Username: lookup.Username,
			UserID:   lookup.UserID,
			ThreadID: lookup.ThreadID,
		}, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}
}

// userInfoHandler returns the handler for get_user_info.
func userInfoHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		userID, ok := args["user_id"].(string)
		if !ok || userID == "" {
			return mcp.NewToolResultError("user_id is required"), nil
		}

		user, err := sc.GatewayClient().User(ctx, userID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("User not found: %v", err)), nil
		}

		result, _ := json.MarshalIndent(userInfoResult{
			UserID:        user.ID,
			Username:      user.Username,
			Name:          user.Name,
			ProfilePicURL: user.ProfilePicURL,
		}, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}
}

// sendMessageHandler returns the handler for send_message.
func sendMessageHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		threadID := common.ThreadFromArgs(args)
		if threadID == "" {
			return mcp.NewToolResultError("thread_id is required"), nil
		}

		text, ok := args["text"].(string)
		if !ok || text == "" {
			return mcp.NewToolResultError("text is required"), nil
		}

		replyTo, _ := args["reply_to"].(string)

		if err := sc.GatewayClient().Send(ctx, threadID, text, replyTo); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to send message: %v", err)), nil
		}

		return mcp.NewToolResultText("Message sent successfully"), nil
	}
}

// reactHandler returns the handler for react_to_message.
func reactHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		threadID := common.ThreadFromArgs(args)
		if threadID == "" {
			return mcp.NewToolResultError("thread_id is required"), nil
		}

		messageID, ok := args["message_id"].(string)
		if !ok || messageID == "" {
			return mcp.NewToolResultError("message_id is required"), nil
		}

		emoji, ok := args["emoji"].(string)
		if !ok || emoji == "" {
			return mcp.NewToolResultError("emoji is required"), nil
		}

		if err := sc.GatewayClient().React(ctx, threadID, messageID, emoji); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to add reaction: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Reacted with %s", emoji)), nil
	}
}

// sendDMHandler returns the handler for send_dm. This call can take longer
// than the other write operations because the gateway resolves the username
// before sending; the gateway client applies the extended timeout.
func sendDMHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		username := common.UsernameFromArgs(args)
		if username == "" {
			return mcp.NewToolResultError("username is required"), nil
		}

		text, ok := args["text"].(string)
		if !ok || text == "" {
			return mcp.NewToolResultError("text is required"), nil
		}

		dm, err := sc.GatewayClient().DMUsername(ctx, username, text)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to send DM to @%s: %v", username, err)), nil
		}

		result, _ := json.MarshalIndent(sendDMResult{
			Success:  true,
			Message:  fmt.Sprintf("Message sent to @%s", username),
			ThreadID: dm.ThreadID,
			UserID:   dm.UserID,
		}, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}
}

// markAsReadHandler returns the handler for mark_as_read.
func markAsReadHandler(sc *server.ServerContext) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		threadID := common.ThreadFromArgs(args)
		if threadID == "" {
			return mcp.NewToolResultError("thread_id is required"), nil
		}

		if err := sc.GatewayClient().Seen(ctx, threadID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to mark as read: %v", err)), nil
		}

		return mcp.NewToolResultText("Marked as read"), nil
	}
}
