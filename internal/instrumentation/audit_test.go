package instrumentation

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/igdms/instagram-dms-mcp/internal/logging"
)

// Test constants to reduce string repetition and satisfy goconst
const (
	testUsername    = "jane_doe"
	testThreadID    = "340282366841710300949128"
	testTraceID     = "abc123def456"
	testSpanID      = "span789"
	testToolInbox   = "get_inbox"
	testToolSend    = "send_message"
	testToolSearch  = "search_user"
	sendEndpoint    = "/send"
	threadsEndpoint = "/threads"
)

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation(testToolInbox)

	// Verify initial state
	if ti.Tool != testToolInbox {
		t.Errorf("Tool = %q, want %q", ti.Tool, testToolInbox)
	}
	if ti.InvocationID == "" {
		t.Error("InvocationID should not be empty")
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	// Complete the invocation - duration should be calculated from StartTime
	ti.CompleteSuccess()

	if !ti.Success {
		t.Error("Success should be true")
	}
	// Duration is calculated from StartTime, so it should be >= 0
	// We don't check for > 0 as the test may complete instantly
	if ti.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if ti.Error != "" {
		t.Errorf("Error should be empty, got %q", ti.Error)
	}
}

func TestToolInvocation_UniqueInvocationIDs(t *testing.T) {
	a := NewToolInvocation(testToolInbox)
	b := NewToolInvocation(testToolInbox)

	if a.InvocationID == b.InvocationID {
		t.Error("Expected distinct invocation IDs")
	}
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation(testToolSend)
	err := errors.New("gateway returned status 403: forbidden")

	ti.CompleteWithError(err)

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "gateway returned status 403: forbidden" {
		t.Errorf("Error = %q, want %q", ti.Error, "gateway returned status 403: forbidden")
	}
}

func TestToolInvocation_WithUser(t *testing.T) {
	ti := NewToolInvocation(testToolSearch)
	ti.WithUser(testUsername)

	if ti.Username != testUsername {
		t.Errorf("Username = %q, want %q", ti.Username, testUsername)
	}
}

func TestToolInvocation_WithThread(t *testing.T) {
	ti := NewToolInvocation(testToolSend)
	ti.WithThread(testThreadID)

	if ti.ThreadID != testThreadID {
		t.Errorf("ThreadID = %q, want %q", ti.ThreadID, testThreadID)
	}
}

func TestToolInvocation_WithEndpoint(t *testing.T) {
	ti := NewToolInvocation(testToolSend)
	ti.WithEndpoint(sendEndpoint, OperationSend)

	if ti.Endpoint != sendEndpoint {
		t.Errorf("Endpoint = %q, want %q", ti.Endpoint, sendEndpoint)
	}
	if ti.Operation != OperationSend {
		t.Errorf("Operation = %q, want %q", ti.Operation, OperationSend)
	}
}

func TestToolInvocation_UserHash(t *testing.T) {
	ti := NewToolInvocation("test")
	ti.Username = testUsername

	if got := ti.UserHash(); got != logging.AnonymizeUsername(testUsername) {
		t.Errorf("UserHash() = %q, want %q", got, logging.AnonymizeUsername(testUsername))
	}
}

func TestToolInvocation_Status(t *testing.T) {
	ti := NewToolInvocation("test")

	ti.Success = true
	if status := ti.Status(); status != StatusSuccess {
		t.Errorf("Status() = %q, want %q", status, StatusSuccess)
	}

	ti.Success = false
	if status := ti.Status(); status != StatusError {
		t.Errorf("Status() = %q, want %q", status, StatusError)
	}
}

func TestToolInvocation_LogAttrs(t *testing.T) {
	ti := NewToolInvocation(testToolInbox)
	ti.WithUser(testUsername).
		WithThread(testThreadID).
		WithEndpoint(threadsEndpoint, OperationList).
		CompleteSuccess()
	ti.TraceID = testTraceID

	attrs := ti.LogAttrs()

	// Verify we have the expected attributes
	attrMap := make(map[string]slog.Attr)
	for _, attr := range attrs {
		attrMap[attr.Key] = attr
	}

	// Check required attributes
	requiredKeys := []string{"invocation_id", "tool", "duration", "success"}
	for _, key := range requiredKeys {
		if _, ok := attrMap[key]; !ok {
			t.Errorf("Missing required attribute: %s", key)
		}
	}

	// Check cardinality-controlled values: hashed, not the plain username
	if hash := attrMap["user_hash"].Value.String(); hash == testUsername {
		t.Error("user_hash must not contain the plain username")
	}
	if _, ok := attrMap["user"]; ok {
		t.Error("plain user must not be present in standard log attrs")
	}

	// Check endpoint-related attributes
	if endpoint := attrMap["endpoint"].Value.String(); endpoint != threadsEndpoint {
		t.Errorf("endpoint = %q, want %q", endpoint, threadsEndpoint)
	}
	if operation := attrMap["operation"].Value.String(); operation != OperationList {
		t.Errorf("operation = %q, want %q", operation, OperationList)
	}
}

func TestToolInvocation_LogAttrs_WithError(t *testing.T) {
	ti := NewToolInvocation(testToolSend)
	ti.WithUser(testUsername).
		WithThread(testThreadID).
		CompleteWithError(errors.New("test error"))

	attrs := ti.LogAttrs()

	attrMap := make(map[string]slog.Attr)
	for _, attr := range attrs {
		attrMap[attr.Key] = attr
	}

	// Check error attribute is present
	if _, ok := attrMap["error"]; !ok {
		t.Error("Missing error attribute")
	}
	if errVal := attrMap["error"].Value.String(); errVal != "test error" {
		t.Errorf("error = %q, want %q", errVal, "test error")
	}
}

func TestToolInvocation_LogAttrs_MinimalFields(t *testing.T) {
	ti := NewToolInvocation(testToolInbox)
	ti.CompleteSuccess()

	attrs := ti.LogAttrs()

	// Verify minimal attributes are present
	attrMap := make(map[string]slog.Attr)
	for _, attr := range attrs {
		attrMap[attr.Key] = attr
	}

	// These should NOT be present when not set
	if _, ok := attrMap["endpoint"]; ok {
		t.Error("endpoint should not be present when empty")
	}
	if _, ok := attrMap["operation"]; ok {
		t.Error("operation should not be present when empty")
	}
	if _, ok := attrMap["thread"]; ok {
		t.Error("thread should not be present when empty")
	}
	if _, ok := attrMap["trace_id"]; ok {
		t.Error("trace_id should not be present when empty")
	}
}

func TestToolInvocation_LogAuditAttrs(t *testing.T) {
	ti := NewToolInvocation(testToolInbox)
	ti.WithUser(testUsername).
		WithThread(testThreadID).
		WithEndpoint(threadsEndpoint, OperationList).
		CompleteSuccess()
	ti.TraceID = testTraceID
	ti.SpanID = testSpanID

	attrs := ti.LogAuditAttrs()

	// Verify we have the expected attributes
	attrMap := make(map[string]slog.Attr)
	for _, attr := range attrs {
		attrMap[attr.Key] = attr
	}

	// Check that full values are present (not cardinality-controlled)
	if user := attrMap["user"].Value.String(); user != testUsername {
		t.Errorf("user = %q, want %q", user, testUsername)
	}
	if thread := attrMap["thread"].Value.String(); thread != testThreadID {
		t.Errorf("thread = %q, want %q", thread, testThreadID)
	}

	// Check trace context
	if traceID := attrMap["trace_id"].Value.String(); traceID != testTraceID {
		t.Errorf("trace_id = %q, want %q", traceID, testTraceID)
	}
	if spanID := attrMap["span_id"].Value.String(); spanID != testSpanID {
		t.Errorf("span_id = %q, want %q", spanID, testSpanID)
	}
}

func TestToolInvocation_LogAuditAttrs_WithError(t *testing.T) {
	ti := NewToolInvocation(testToolSend)
	ti.WithUser(testUsername).
		WithThread(testThreadID).
		CompleteWithError(errors.New("audit error"))

	attrs := ti.LogAuditAttrs()

	attrMap := make(map[string]slog.Attr)
	for _, attr := range attrs {
		attrMap[attr.Key] = attr
	}

	// Check error attribute is present
	if _, ok := attrMap["error"]; !ok {
		t.Error("Missing error attribute")
	}
}

func TestToolInvocation_LogAuditAttrs_MinimalFields(t *testing.T) {
	ti := NewToolInvocation(testToolInbox)
	ti.CompleteSuccess()

	attrs := ti.LogAuditAttrs()

	attrMap := make(map[string]slog.Attr)
	for _, attr := range attrs {
		attrMap[attr.Key] = attr
	}

	// These should NOT be present when not set
	if _, ok := attrMap["endpoint"]; ok {
		t.Error("endpoint should not be present when empty")
	}
	if _, ok := attrMap["operation"]; ok {
		t.Error("operation should not be present when empty")
	}
}

func TestToolInvocation_MethodChaining(t *testing.T) {
	ti := NewToolInvocation(testToolSend).
		WithUser("some_user").
		WithThread(testThreadID).
		WithEndpoint(sendEndpoint, OperationSend).
		CompleteSuccess()

	if ti.Tool != testToolSend {
		t.Errorf("Tool = %q, want %q", ti.Tool, testToolSend)
	}
	if ti.Username != "some_user" {
		t.Errorf("Username = %q, want %q", ti.Username, "some_user")
	}
	if ti.ThreadID != testThreadID {
		t.Errorf("ThreadID = %q, want %q", ti.ThreadID, testThreadID)
	}
	if ti.Endpoint != sendEndpoint {
		t.Errorf("Endpoint = %q, want %q", ti.Endpoint, sendEndpoint)
	}
	if !ti.Success {
		t.Error("Success should be true")
	}
}

func TestAuditLogger_New(t *testing.T) {
	// Test with nil logger (should use default)
	al := NewAuditLogger(nil)
	if al.logger == nil {
		t.Error("logger should not be nil when created with nil")
	}

	// Test with custom logger
	logger := slog.Default()
	al = NewAuditLogger(logger)
	if al.logger != logger {
		t.Error("logger should be the provided logger")
	}
}

func TestAuditLogger_LogToolInvocation_Success(t *testing.T) {
	// This test verifies the method runs without panic
	al := NewAuditLogger(slog.Default())
	ti := NewToolInvocation(testToolInbox).
		WithUser(testUsername).
		WithThread(testThreadID).
		CompleteSuccess()

	// Should not panic
	al.LogToolInvocation(ti)
}

func TestAuditLogger_LogToolInvocation_Failure(t *testing.T) {
	// This test verifies the method runs without panic for failures
	al := NewAuditLogger(slog.Default())
	ti := NewToolInvocation(testToolSend).
		WithUser(testUsername).
		WithThread(testThreadID).
		CompleteWithError(errors.New("test error"))

	// Should not panic
	al.LogToolInvocation(ti)
}

func TestAuditLogger_LogToolAudit(t *testing.T) {
	// This test verifies the method runs without panic
	al := NewAuditLogger(slog.Default())
	ti := NewToolInvocation(testToolSearch).
		WithUser(testUsername).
		WithEndpoint("/search", OperationSearch).
		CompleteSuccess()
	ti.TraceID = testTraceID

	// Should not panic
	al.LogToolAudit(ti)
}

func TestAuditLogger_Disabled(t *testing.T) {
	al := NewAuditLoggerWithConfig(slog.Default(), AuditLoggingConfig{Enabled: false})
	ti := NewToolInvocation(testToolInbox).CompleteSuccess()

	// Should be a no-op without panic
	al.LogToolInvocation(ti)
	al.LogToolAudit(ti)
}

func TestToolInvocation_WithSpanContext_NoSpan(t *testing.T) {
	ctx := context.Background()
	ti := NewToolInvocation("test").WithSpanContext(ctx)

	if ti.TraceID != "" {
		t.Errorf("TraceID = %q, want empty string", ti.TraceID)
	}
	if ti.SpanID != "" {
		t.Errorf("SpanID = %q, want empty string", ti.SpanID)
	}
}

func TestToolInvocation_Complete_NilError(t *testing.T) {
	ti := NewToolInvocation("test")
	ti.Complete(true, nil)

	if ti.Error != "" {
		t.Errorf("Error = %q, want empty string", ti.Error)
	}
}

func TestToolInvocation_Complete_WithError(t *testing.T) {
	ti := NewToolInvocation("test")
	ti.Complete(false, errors.New("some error"))

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "some error" {
		t.Errorf("Error = %q, want %q", ti.Error, "some error")
	}
}
