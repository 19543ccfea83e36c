package dm_tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/igdms/instagram-dms-mcp/internal/gateway"
	"github.com/igdms/instagram-dms-mcp/internal/server"
)

// newTestContext builds a ServerContext whose gateway client targets the
// given fake gateway.
func newTestContext(t *testing.T, gw http.Handler) *server.ServerContext {
	t.Helper()
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	sc := server.NewServerContext(context.Background(), gateway.NewClient(srv.URL), nil)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

// callRequest builds a tool call request with the given arguments.
func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text payload from a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		ms       int64
		expected string
	}{
		{name: "zero", ms: 0, expected: ""},
		{name: "epoch second", ms: 1000, expected: "1970-01-01T00:00:01Z"},
		{name: "recent", ms: 1700000000000, expected: "2023-11-14T22:13:20Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatTimestamp(tt.ms); got != tt.expected {
				t.Errorf("formatTimestamp(%d) = %q, want %q", tt.ms, got, tt.expected)
			}
		})
	}
}

func TestRegisterDMTools(t *testing.T) {
	sc := newTestContext(t, http.NotFoundHandler())

	for _, readOnly := range []bool{true, false} {
		s := mcpserver.NewMCPServer("test", "0.0.0")
		if err := RegisterDMTools(s, sc, readOnly); err != nil {
			t.Errorf("RegisterDMTools(readOnly=%v) returned error: %v", readOnly, err)
		}
	}
}

func TestAccountInfoHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gateway.HealthStatus{
			Status:   "connected",
			Username: "alice",
			UserID:   "1234",
		})
	})
	sc := newTestContext(t, mux)

	result, err := accountInfoHandler(sc)(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", resultText(t, result))
	}

	var info accountInfoResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &info); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if info.Status != "connected" || info.Username != "alice" || info.UserID != "1234" {
		t.Errorf("unexpected account info: %+v", info)
	}
}

func TestAccountInfoHandler_GatewayDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	sc := server.NewServerContext(context.Background(), gateway.NewClient(srv.URL), nil)
	t.Cleanup(func() { _ = sc.Shutdown() })

	result, err := accountInfoHandler(sc)(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result when gateway is unreachable")
	}
	if !strings.Contains(resultText(t, result), "could not connect to gateway") {
		t.Errorf("expected connection error, got: %s", resultText(t, result))
	}
}

func TestInboxHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/threads", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"threads": []gateway.Thread{
				{
					ThreadID:            "t1",
					ParticipantUsername: "bob",
					ParticipantName:     "Bob",
					LastMessagePreview:  "hey",
					LastMessageTime:     1700000000000,
					MessageCount:        5,
				},
				{
					ThreadID:            "t2",
					ParticipantUsername: "carol",
					ParticipantName:     "Carol",
					MessageCount:        2,
				},
			},
		})
	})
	sc := newTestContext(t, mux)

	result, err := inboxHandler(sc)(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", resultText(t, result))
	}

	var inbox inboxResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &inbox); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if inbox.Count != 2 {
		t.Errorf("expected 2 conversations, got %d", inbox.Count)
	}
	first := inbox.Conversations[0]
	if first.ThreadID != "t1" {
		t.Errorf("expected thread t1, got %s", first.ThreadID)
	}
	if first.Participant.Username != "bob" || first.Participant.Name != "Bob" {
		t.Errorf("unexpected participant: %+v", first.Participant)
	}
	if first.LastMessageTime != "2023-11-14T22:13:20Z" {
		t.Errorf("expected RFC3339 timestamp, got %q", first.LastMessageTime)
	}
	// Threads without a last message format to an empty timestamp
	if inbox.Conversations[1].LastMessageTime != "" {
		t.Errorf("expected empty timestamp, got %q", inbox.Conversations[1].LastMessageTime)
	}
}

func TestInboxHandler_Limit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/threads", func(w http.ResponseWriter, r *http.Request) {
		threads := make([]gateway.Thread, 150)
		for i := range threads {
			threads[i] = gateway.Thread{ThreadID: "t"}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"threads": threads})
	})
	sc := newTestContext(t, mux)

	// Explicit limit
	result, err := inboxHandler(sc)(context.Background(), callRequest(map[string]interface{}{
		"limit": float64(3),
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	var inbox inboxResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &inbox); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if inbox.Count != 3 {
		t.Errorf("expected 3 conversations, got %d", inbox.Count)
	}

	// Default limit of 20
	result, err = inboxHandler(sc)(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &inbox); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if inbox.Count != 20 {
		t.Errorf("expected default limit of 20 conversations, got %d", inbox.Count)
	}

	// The inbox limit has no upper bound
	result, err = inboxHandler(sc)(context.Background(), callRequest(map[string]interface{}{
		"limit": float64(120),
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &inbox); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if inbox.Count != 120 {
		t.Errorf("expected 120 conversations for a limit above 100, got %d", inbox.Count)
	}
}

func TestMessagesHandler(t *testing.T) {
	var gotLimit string
	mux := http.NewServeMux()
	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		json.NewEncoder(w).Encode(gateway.History{
			Messages: []gateway.Message{
				{
					MessageID:   "m1",
					SenderID:    "1234",
					Text:        "hello",
					TimestampMS: 1700000000000,
					Attachments: []gateway.Attachment{
						{Type: "image", URL: "https://example.com/a.jpg", Filename: "a.jpg"},
					},
				},
				{MessageID: "m2", SenderID: "5678", Text: "hi"},
			},
			HasMore: true,
		})
	})
	sc := newTestContext(t, mux)

	result, err := messagesHandler(sc)(context.Background(), callRequest(map[string]interface{}{
		"thread_id": "t1",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", resultText(t, result))
	}
	if gotLimit != "30" {
		t.Errorf("expected default limit 30, gateway saw %q", gotLimit)
	}

	var hist historyResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &hist); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if hist.ThreadID != "t1" || hist.Count != 2 || !hist.HasMore {
		t.Errorf("unexpected history envelope: %+v", hist)
	}
	if hist.Messages[0].Timestamp != "2023-11-14T22:13:20Z" {
		t.Errorf("expected RFC3339 timestamp, got %q", hist.Messages[0].Timestamp)
	}
	if len(hist.Messages[0].Attachments) != 1 || hist.Messages[0].Attachments[0].Type != "image" {
		t.Errorf("unexpected attachments: %+v", hist.Messages[0].Attachments)
	}
	// A message without attachments serializes as an empty list, not null
	if hist.Messages[1].Attachments == nil {
		t.Error("expected empty attachment list, got null")
	}
}

func TestMessagesHandler_LimitCap(t *testing.T) {
	var gotLimit string
	mux := http.NewServeMux()
	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		json.NewEncoder(w).Encode(gateway.History{})
	})
	sc := newTestContext(t, mux)

	_, err := messagesHandler(sc)(context.Background(), callRequest(map[string]interface{}{
		"thread_id": "t1",
		"limit":     float64(500),
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if gotLimit != "100" {
		t.Errorf("expected limit capped at 100, gateway saw %q", gotLimit)
	}
}

func TestMessagesHandler_MissingThreadID(t *testing.T) {
	sc := newTestContext(t, http.NotFoundHandler())

	result, err := messagesHandler(sc)(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for missing thread_id")
	}
	if !strings.Contains(resultText(t, result), "thread_id is required") {
		t.Errorf("unexpected error text: %s", resultText(t, result))
	}
}

func TestSearchUserHandler(t *testing.T) {
	var gotUsername string
	mux := http.NewServeMux()
	mux.HandleFunc("/lookup_user", func(w http.ResponseWriter, r *http.Request) {
		gotUsername = r.URL.Query().Get("username")
		json.NewEncoder(w).Encode(gateway.UserLookup{
			Username: "jane_doe",
			UserID:   "9999",
			ThreadID: "9999",
		})
	})
	sc := newTestContext(t, mux)

	// Leading @ is stripped before the gateway sees the username
	result, err := searchUserHandler(sc)(context.Background(), callRequest(map[string]interface{}{
		"username": "@jane_doe",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", resultText(t, result))
	}
	if gotUsername != "jane_doe" {
		t.Errorf("expected @-stripped username, gateway saw %q", gotUsername)
	}

	var lookup userLookupResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &lookup); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if lookup.UserID != "9999" || lookup.ThreadID != "9999" {
		t.Errorf("unexpected lookup result: %+v", lookup)
	}
}

func TestSearchUserHandler_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/lookup_user", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "user not found", http.StatusNotFound)
	})
	sc := newTestContext(t, mux)

	result, err := searchUserHandler(sc)(context.Background(), callRequest(map[string]interface{}{
		"username": "nobody",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for unknown user")
	}
	if !strings.Contains(resultText(t, result), "@nobody") {
		t.Errorf("expected username in error, got: %s", resultText(t, result))
	}
}

func TestUserInfoHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "9999" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(gateway.User{
			ID:            "9999",
			Username:      "jane_doe",
			Name:          "Jane Doe",
			ProfilePicURL: "https://example.com/p.jpg",
		})
	})
	sc := newTestContext(t, mux)

	result, err := userInfoHandler(sc)(context.Background(), callRequest(map[string]interface{}{
		"user_id": "9999",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", resultText(t, result))
	}

	var user userInfoResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &user); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if user.UserID != "9999" || user.Username != "jane_doe" || user.Name != "Jane Doe" {
		t.Errorf("unexpected user info: %+v", user)
	}
}

func TestUserInfoHandler_MissingUserID(t *testing.T) {
	sc := newTestContext(t, http.NotFoundHandler())

	result, err := userInfoHandler(sc)(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for missing user_id")
	}
}

func TestSendMessageHandler(t *testing.T) {
	var gotBody map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})
	sc := newTestContext(t, mux)

	result, err := sendMessageHandler(sc)(context.Background(), callRequest(map[string]interface{}{
		"thread_id": "t1",
		"text":      "hello",
		"reply_to":  "m1",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", resultText(t, result))
	}
	if resultText(t, result) != "Message sent successfully" {
		t.Errorf("unexpected result text: %s", resultText(t, result))
	}
	if gotBody["thread_id"] != "t1" || gotBody["text"] != "hello" || gotBody["reply_to"] != "m1" {
		t.Errorf("unexpected send payload: %v", gotBody)
	}
}

func TestSendMessageHandler_MissingArgs(t *testing.T) {
	sc := newTestContext(t, http.NotFoundHandler())

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "missing thread_id", args: map[string]interface{}{"text": "hi"}, want: "thread_id is required"},
		{name: "missing text", args: map[string]interface{}{"thread_id": "t1"}, want: "text is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := sendMessageHandler(sc)(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected error result")
			}
			if !strings.Contains(resultText(t, result), tt.want) {
				t.Errorf("expected %q in error, got: %s", tt.want, resultText(t, result))
			}
		})
	}
}

func TestReactHandler(t *testing.T) {
	var gotBody map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/react", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})
	sc := newTestContext(t, mux)

	result, err := reactHandler(sc)(context.Background(), callRequest(map[string]interface{}{
		"thread_id":  "t1",
		"message_id": "m1",
		"emoji":      "❤️",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", resultText(t, result))
	}
	if gotBody["message_id"] != "m1" || gotBody["emoji"] != "❤️" {
		t.Errorf("unexpected react payload: %v", gotBody)
	}
}

func TestReactHandler_MissingEmoji(t *testing.T) {
	sc := newTestContext(t, http.NotFoundHandler())

	result, err := reactHandler(sc)(context.Background(), callRequest(map[string]interface{}{
		"thread_id":  "t1",
		"message_id": "m1",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for missing emoji")
	}
}

func TestSendDMHandler(t *testing.T) {
	var gotBody map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/dm_username", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(gateway.DMResult{ThreadID: "t9", UserID: "9999"})
	})
	sc := newTestContext(t, mux)

	result, err := sendDMHandler(sc)(context.Background(), callRequest(map[string]interface{}{
		"username": "@jane_doe",
		"text":     "hello there",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", resultText(t, result))
	}
	if gotBody["username"] != "jane_doe" {
		t.Errorf("expected @-stripped username in payload, got %q", gotBody["username"])
	}

	var dm sendDMResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &dm); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
	if !dm.Success || dm.ThreadID != "t9" || dm.UserID != "9999" {
		t.Errorf("unexpected DM result: %+v", dm)
	}
}

func TestMarkAsReadHandler(t *testing.T) {
	var gotBody map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/seen", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})
	sc := newTestContext(t, mux)

	result, err := markAsReadHandler(sc)(context.Background(), callRequest(map[string]interface{}{
		"thread_id": "t1",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %s", resultText(t, result))
	}
	if resultText(t, result) != "Marked as read" {
		t.Errorf("unexpected result text: %s", resultText(t, result))
	}
	if gotBody["thread_id"] != "t1" {
		t.Errorf("unexpected seen payload: %v", gotBody)
	}
}
