package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const (
	testRecipient      = "team@example.com"
	testDomain         = "example.com"
	testAccount        = "work"
	testTriggerCLI     = "cli"
	testTriggerWebhook = "webhook"
	testOutcomeReplied = "replied"
	testThreadID       = "18c2f9a7b3d4e5f6"
)

func attrsByKey(attrs []slog.Attr) map[string]slog.Attr {
	m := make(map[string]slog.Attr, len(attrs))
	for _, attr := range attrs {
		m[attr.Key] = attr
	}
	return m
}

func TestDeliveryRecord_Lifecycle(t *testing.T) {
	dr := NewDeliveryRecord(testTriggerCLI).
		WithRecipient(testRecipient).
		WithAccount(testAccount).
		WithOutcome(testOutcomeReplied).
		WithThread(testThreadID)

	if dr.Trigger != testTriggerCLI {
		t.Errorf("Trigger = %q, want %q", dr.Trigger, testTriggerCLI)
	}
	if dr.StartTime.IsZero() {
		t.Error("StartTime should be set by NewDeliveryRecord")
	}
	if dr.Recipient != testRecipient || dr.Account != testAccount {
		t.Errorf("record = %+v, recipient/account not carried", dr)
	}
	if dr.Outcome != testOutcomeReplied || dr.ThreadID != testThreadID {
		t.Errorf("record = %+v, outcome/thread not carried", dr)
	}

	dr.CompleteSuccess()

	if !dr.Success {
		t.Error("CompleteSuccess() should set Success")
	}
	if dr.Duration < 0 {
		t.Errorf("Duration = %v, want >= 0", dr.Duration)
	}
	if dr.Error != "" {
		t.Errorf("Error = %q, want empty", dr.Error)
	}
}

func TestDeliveryRecord_CompleteWithError(t *testing.T) {
	dr := NewDeliveryRecord(testTriggerWebhook).
		CompleteWithError(errors.New("permission denied"))

	if dr.Success {
		t.Error("Success should be false")
	}
	if dr.Error != "permission denied" {
		t.Errorf("Error = %q, want %q", dr.Error, "permission denied")
	}
}

func TestDeliveryRecord_Complete_NilError(t *testing.T) {
	dr := NewDeliveryRecord(testTriggerCLI).Complete(true, nil)

	if dr.Error != "" {
		t.Errorf("Error = %q, want empty", dr.Error)
	}
}

func TestDeliveryRecord_RecipientDomain(t *testing.T) {
	dr := NewDeliveryRecord(testTriggerCLI).WithRecipient(testRecipient)

	if domain := dr.RecipientDomain(); domain != testDomain {
		t.Errorf("RecipientDomain() = %q, want %q", domain, testDomain)
	}
}

func TestDeliveryRecord_Status(t *testing.T) {
	dr := NewDeliveryRecord(testTriggerCLI)

	dr.Success = true
	if status := dr.Status(); status != StatusSuccess {
		t.Errorf("Status() = %q, want %q", status, StatusSuccess)
	}

	dr.Success = false
	if status := dr.Status(); status != StatusError {
		t.Errorf("Status() = %q, want %q", status, StatusError)
	}
}

func TestDeliveryRecord_LogAttrs(t *testing.T) {
	dr := NewDeliveryRecord(testTriggerWebhook).
		WithRecipient(testRecipient).
		WithAccount(testAccount).
		WithOutcome(testOutcomeReplied).
		WithThread(testThreadID).
		CompleteSuccess()
	dr.TraceID = "abc123def456"

	m := attrsByKey(dr.LogAttrs())

	for _, key := range []string{"trigger", "recipient_domain", "duration", "success"} {
		if _, ok := m[key]; !ok {
			t.Errorf("LogAttrs() missing %q", key)
		}
	}

	if domain := m["recipient_domain"].Value.String(); domain != testDomain {
		t.Errorf("recipient_domain = %q, want %q", domain, testDomain)
	}

	// The full address must not leak into general logs.
	if _, ok := m["recipient"]; ok {
		t.Error("LogAttrs() must not contain the full recipient")
	}

	if outcome := m["outcome"].Value.String(); outcome != testOutcomeReplied {
		t.Errorf("outcome = %q, want %q", outcome, testOutcomeReplied)
	}
	if threadID := m["thread_id"].Value.String(); threadID != testThreadID {
		t.Errorf("thread_id = %q, want %q", threadID, testThreadID)
	}
	if traceID := m["trace_id"].Value.String(); traceID != "abc123def456" {
		t.Errorf("trace_id = %q, want %q", traceID, "abc123def456")
	}
}

func TestDeliveryRecord_LogAttrs_Error(t *testing.T) {
	dr := NewDeliveryRecord(testTriggerCLI).
		WithRecipient(testRecipient).
		CompleteWithError(errors.New("test error"))

	m := attrsByKey(dr.LogAttrs())

	if errVal := m["error"].Value.String(); errVal != "test error" {
		t.Errorf("error = %q, want %q", errVal, "test error")
	}
}

func TestDeliveryRecord_LogAttrs_SkipsEmptyFields(t *testing.T) {
	dr := NewDeliveryRecord(testTriggerCLI).CompleteSuccess()

	m := attrsByKey(dr.LogAttrs())

	for _, key := range []string{"outcome", "thread_id", "trace_id", "error", "account"} {
		if _, ok := m[key]; ok {
			t.Errorf("LogAttrs() contains %q, want it absent when unset", key)
		}
	}
}

func TestDeliveryRecord_LogAttrs_DefaultAccount(t *testing.T) {
	dr := NewDeliveryRecord(testTriggerCLI).WithAccount("default").CompleteSuccess()

	if _, ok := attrsByKey(dr.LogAttrs())["account"]; ok {
		t.Error("LogAttrs() should drop the account when it is 'default'")
	}
}

func TestDeliveryRecord_LogAuditAttrs(t *testing.T) {
	dr := NewDeliveryRecord(testTriggerWebhook).
		WithRecipient(testRecipient).
		WithAccount("default").
		WithOutcome(testOutcomeReplied).
		WithThread(testThreadID).
		CompleteSuccess()
	dr.TraceID = "abc123def456"
	dr.SpanID = "span789"

	m := attrsByKey(dr.LogAuditAttrs())

	if recipient := m["recipient"].Value.String(); recipient != testRecipient {
		t.Errorf("recipient = %q, want %q", recipient, testRecipient)
	}
	// The audit form keeps every account name, "default" included.
	if account := m["account"].Value.String(); account != "default" {
		t.Errorf("account = %q, want %q", account, "default")
	}
	if traceID := m["trace_id"].Value.String(); traceID != "abc123def456" {
		t.Errorf("trace_id = %q, want %q", traceID, "abc123def456")
	}
	if spanID := m["span_id"].Value.String(); spanID != "span789" {
		t.Errorf("span_id = %q, want %q", spanID, "span789")
	}
}

func TestDeliveryRecord_LogAuditAttrs_SkipsEmptyFields(t *testing.T) {
	dr := NewDeliveryRecord(testTriggerCLI).CompleteSuccess()

	m := attrsByKey(dr.LogAuditAttrs())

	for _, key := range []string{"outcome", "thread_id", "span_id", "error"} {
		if _, ok := m[key]; ok {
			t.Errorf("LogAuditAttrs() contains %q, want it absent when unset", key)
		}
	}
}

func TestDeliveryRecord_WithSpanContext_NoSpan(t *testing.T) {
	dr := NewDeliveryRecord(testTriggerCLI).WithSpanContext(context.Background())

	if dr.TraceID != "" || dr.SpanID != "" {
		t.Errorf("TraceID/SpanID = %q/%q, want empty without a span", dr.TraceID, dr.SpanID)
	}
}

// capturedAuditLogger returns an AuditLogger writing to the returned buffer.
func capturedAuditLogger(config AuditLoggingConfig) (*AuditLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return NewAuditLoggerWithConfig(logger, config), &buf
}

func TestAuditLogger_New(t *testing.T) {
	if al := NewAuditLogger(nil); al.logger == nil {
		t.Error("NewAuditLogger(nil) should fall back to the default logger")
	}

	logger := slog.Default()
	if al := NewAuditLogger(logger); al.logger != logger {
		t.Error("NewAuditLogger should keep the provided logger")
	}
}

func TestAuditLogger_LogDelivery_Success(t *testing.T) {
	al, buf := capturedAuditLogger(AuditLoggingConfig{Enabled: true, LogLevel: "info"})

	al.LogDelivery(NewDeliveryRecord(testTriggerCLI).
		WithRecipient(testRecipient).
		CompleteSuccess())

	out := buf.String()
	if !strings.Contains(out, "delivery_completed") {
		t.Errorf("output = %q, want delivery_completed", out)
	}
	if !strings.Contains(out, "recipient_domain="+testDomain) {
		t.Errorf("output = %q, want anonymized recipient", out)
	}
	if strings.Contains(out, "recipient="+testRecipient) {
		t.Errorf("output = %q, full recipient must not appear without IncludePII", out)
	}
}

func TestAuditLogger_LogDelivery_Failure(t *testing.T) {
	al, buf := capturedAuditLogger(AuditLoggingConfig{Enabled: true, LogLevel: "info"})

	al.LogDelivery(NewDeliveryRecord(testTriggerWebhook).
		WithRecipient(testRecipient).
		CompleteWithError(errors.New("send failed")))

	out := buf.String()
	if !strings.Contains(out, "delivery_failed") {
		t.Errorf("output = %q, want delivery_failed", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("output = %q, failures should log at warn", out)
	}
}

func TestAuditLogger_LogDelivery_IncludePII(t *testing.T) {
	al, buf := capturedAuditLogger(AuditLoggingConfig{
		Enabled:    true,
		IncludePII: true,
		LogLevel:   "info",
	})

	al.LogDelivery(NewDeliveryRecord(testTriggerCLI).
		WithRecipient(testRecipient).
		CompleteSuccess())

	if !strings.Contains(buf.String(), "recipient="+testRecipient) {
		t.Errorf("output = %q, want the full recipient with IncludePII", buf.String())
	}
}

func TestAuditLogger_LogDelivery_Level(t *testing.T) {
	al, buf := capturedAuditLogger(AuditLoggingConfig{Enabled: true, LogLevel: "debug"})

	al.LogDelivery(NewDeliveryRecord(testTriggerCLI).CompleteSuccess())

	if !strings.Contains(buf.String(), "level=DEBUG") {
		t.Errorf("output = %q, want the configured debug level", buf.String())
	}
}

func TestAuditLogger_LogDeliveryAudit(t *testing.T) {
	al, buf := capturedAuditLogger(AuditLoggingConfig{Enabled: true, LogLevel: "info"})

	al.LogDeliveryAudit(NewDeliveryRecord(testTriggerCLI).
		WithRecipient(testRecipient).
		WithOutcome(testOutcomeReplied).
		CompleteSuccess())

	out := buf.String()
	if !strings.Contains(out, "delivery_audit") {
		t.Errorf("output = %q, want delivery_audit", out)
	}
	if !strings.Contains(out, "recipient="+testRecipient) {
		t.Errorf("output = %q, audit output always carries the full recipient", out)
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	al, buf := capturedAuditLogger(AuditLoggingConfig{Enabled: false})
	dr := NewDeliveryRecord(testTriggerCLI).CompleteSuccess()

	al.LogDelivery(dr)
	al.LogDeliveryAudit(dr)

	if buf.Len() != 0 {
		t.Errorf("output = %q, want nothing from a disabled audit logger", buf.String())
	}
}

func TestAuditLogger_SetEnabled(t *testing.T) {
	al, buf := capturedAuditLogger(AuditLoggingConfig{Enabled: false})
	al.SetEnabled(true)
	al.SetIncludePII(true)

	al.LogDelivery(NewDeliveryRecord(testTriggerCLI).
		WithRecipient(testRecipient).
		CompleteSuccess())

	if !strings.Contains(buf.String(), "recipient="+testRecipient) {
		t.Errorf("output = %q, want output after SetEnabled/SetIncludePII", buf.String())
	}
}
