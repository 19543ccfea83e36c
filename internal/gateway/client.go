package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/igdms/instagram-dms-mcp/internal/logging"
)

const (
	// DefaultAddr is the gateway's well-known loopback address.
	DefaultAddr = "http://127.0.0.1:29391"

	// EnvAddr overrides the gateway address.
	EnvAddr = "IG_GATEWAY_ADDR"

	// DefaultTimeout bounds ordinary gateway requests.
	DefaultTimeout = 30 * time.Second

	// DMByUsernameTimeout bounds POST /dm_username, which performs a user
	// search before sending and routinely takes longer than other calls.
	DMByUsernameTimeout = 60 * time.Second
)

// Addr returns the gateway address from the environment, falling back to the
// default loopback address. A trailing slash is trimmed so paths join cleanly.
func Addr() string {
	if addr := os.Getenv(EnvAddr); addr != "" {
		return strings.TrimRight(addr, "/")
	}
	return DefaultAddr
}

// Client talks to the Instagram gateway HTTP API.
type Client struct {
	addr       string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a gateway client for the given address. An empty addr
// selects the environment-configured address.
func NewClient(addr string) *Client {
	if addr == "" {
		addr = Addr()
	}
	return &Client{
		addr: strings.TrimRight(addr, "/"),
		// Per-request deadlines come from the context; the client itself
		// carries no timeout so the 60s dm_username path is not cut short.
		httpClient: &http.Client{},
	}
}

// Addr returns the address this client targets.
func (c *Client) Addr() string {
	return c.addr
}

// SetLogger enables per-request debug logging. A nil logger disables it.
func (c *Client) SetLogger(logger logging.Logger) {
	c.logger = logger
}

// Health fetches the gateway's health/connection status.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.get(ctx, "/health", nil, DefaultTimeout, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Probe reports whether a gateway answers healthily at the client's address
// within the given timeout. Used for the idempotent-start check.
func (c *Client) Probe(ctx context.Context, timeout time.Duration) bool {
	var status HealthStatus
	return c.get(ctx, "/health", nil, timeout, &status) == nil
}

// Threads lists the inbox conversations.
func (c *Client) Threads(ctx context.Context) ([]Thread, error) {
	var resp threadsResponse
	if err := c.get(ctx, "/threads", nil, DefaultTimeout, &resp); err != nil {
		return nil, err
	}
	return resp.Threads, nil
}

// History fetches up to limit messages from a thread.
func (c *Client) History(ctx context.Context, threadID string, limit int) (*History, error) {
	query := url.Values{
		"thread_id": {threadID},
		"limit":     {strconv.Itoa(limit)},
	}
	var hist History
	if err := c.get(ctx, "/history", query, DefaultTimeout, &hist); err != nil {
		return nil, err
	}
	return &hist, nil
}

// LookupUser resolves a username to a user and thread ID.
func (c *Client) LookupUser(ctx context.Context, username string) (*UserLookup, error) {
	query := url.Values{"username": {username}}
	var lookup UserLookup
	if err := c.get(ctx, "/lookup_user", query, DefaultTimeout, &lookup); err != nil {
		return nil, err
	}
	return &lookup, nil
}

// User fetches a profile by user ID.
func (c *Client) User(ctx context.Context, userID string) (*User, error) {
	query := url.Values{"id": {userID}}
	var user User
	if err := c.get(ctx, "/user", query, DefaultTimeout, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Send posts a text message to an existing thread. replyTo may be empty.
func (c *Client) Send(ctx context.Context, threadID, text, replyTo string) error {
	payload := sendRequest{ThreadID: threadID, Text: text, ReplyTo: replyTo}
	return c.post(ctx, "/send", payload, DefaultTimeout, nil)
}

// React adds an emoji reaction to a message.
func (c *Client) React(ctx context.Context, threadID, messageID, emoji string) error {
	payload := reactRequest{ThreadID: threadID, MessageID: messageID, Emoji: emoji}
	return c.post(ctx, "/react", payload, DefaultTimeout, nil)
}

// DMUsername sends a message to a user by username, creating the thread if
// none exists yet.
func (c *Client) DMUsername(ctx context.Context, username, text string) (*DMResult, error) {
	payload := dmUsernameRequest{Username: username, Text: text}
	var result DMResult
	if err := c.post(ctx, "/dm_username", payload, DMByUsernameTimeout, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Seen marks a thread as read.
func (c *Client) Seen(ctx context.Context, threadID string) error {
	payload := seenRequest{ThreadID: threadID}
	return c.post(ctx, "/seen", payload, DefaultTimeout, nil)
}

// get performs a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqURL := c.addr + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}

	return c.do(req, out)
}

// post performs a POST request with a JSON payload. A 204 response, or any
// success response with a non-JSON body, is treated as success with out left
// untouched.
func (c *Client) post(ctx context.Context, path string, payload any, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// do executes the request and applies the gateway error contract.
func (c *Client) do(req *http.Request, out any) error {
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("gateway request failed",
				"method", req.Method,
				"path", req.URL.Path,
				"error", err.Error())
		}
		return wrapTransportError(err, c.addr)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Debug("gateway request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"duration", time.Since(started))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapTransportError(err, c.addr)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		// Success responses with unparseable bodies are treated as empty
		// on write paths; read paths pass a typed out and report it.
		if req.Method == http.MethodPost {
			return nil
		}
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
