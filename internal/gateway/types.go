package gateway

// HealthStatus is the gateway's response to GET /health. It doubles as the
// readiness confirmation during startup and as the account-info payload.
type HealthStatus struct {
	Status   string `json:"status"`
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

// Thread is one inbox conversation as reported by GET /threads.
type Thread struct {
	ThreadID            string `json:"thread_id"`
	ParticipantUsername string `json:"participant_username"`
	ParticipantName     string `json:"participant_name"`
	LastMessagePreview  string `json:"last_message_preview"`
	LastMessageTime     int64  `json:"last_message_time"` // milliseconds since epoch
	MessageCount        int    `json:"message_count"`
}

// threadsResponse wraps the thread list returned by GET /threads.
type threadsResponse struct {
	Threads []Thread `json:"threads"`
}

// Attachment is a media item attached to a message.
type Attachment struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Message is a single DM as reported by GET /history.
type Message struct {
	MessageID   string       `json:"message_id"`
	SenderID    string       `json:"sender_id"`
	Text        string       `json:"text"`
	TimestampMS int64        `json:"timestamp_ms"`
	Attachments []Attachment `json:"attachments"`
}

// History is the message history for one thread.
type History struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

// UserLookup is the result of resolving a username via GET /lookup_user.
// ThreadID equals UserID for one-to-one DM threads.
type UserLookup struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
}

// User is a profile fetched by ID via GET /user.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	ProfilePicURL string `json:"profile_pic_url"`
}

// DMResult is the gateway's response to POST /dm_username: the thread that
// was created or reused for the conversation.
type DMResult struct {
	ThreadID string `json:"thread_id"`
	UserID   string `json:"user_id"`
}

// sendRequest is the payload for POST /send.
type sendRequest struct {
	ThreadID string `json:"thread_id"`
	Text     string `json:"text"`
	ReplyTo  string `json:"reply_to,omitempty"`
}

// reactRequest is the payload for POST /react.
type reactRequest struct {
	ThreadID  string `json:"thread_id"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// dmUsernameRequest is the payload for POST /dm_username.
type dmUsernameRequest struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

// seenRequest is the payload for POST /seen.
type seenRequest struct {
	ThreadID string `json:"thread_id"`
}
