package instrumentation

import (
	"context"
	"log/slog"
	"time"
)

// DeliveryRecord is the audit trail entry for one delivery run. It is built
// up as the run progresses and logged once at the end.
//
// Recipient is PII. LogAttrs keeps it out of general logs by reducing it to
// the domain; the full address only appears through LogAuditAttrs.
type DeliveryRecord struct {
	// Trigger is what started the run ("cli" or "webhook").
	Trigger string

	// Recipient is the delivery target address.
	Recipient string

	// Account is the sending account name (default, work, personal).
	Account string

	// Outcome is how the delivery landed (replied, replied_degraded, created).
	Outcome string

	// ThreadID is the conversation the digest landed in.
	ThreadID string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewDeliveryRecord starts a record with the clock running. Complete or one
// of its wrappers fixes the duration.
func NewDeliveryRecord(trigger string) *DeliveryRecord {
	return &DeliveryRecord{
		Trigger:   trigger,
		StartTime: time.Now(),
	}
}

// WithRecipient sets the delivery target address.
func (dr *DeliveryRecord) WithRecipient(recipient string) *DeliveryRecord {
	dr.Recipient = recipient
	return dr
}

// WithAccount sets the sending account name.
func (dr *DeliveryRecord) WithAccount(account string) *DeliveryRecord {
	dr.Account = account
	return dr
}

// WithOutcome sets how the delivery landed.
func (dr *DeliveryRecord) WithOutcome(outcome string) *DeliveryRecord {
	dr.Outcome = outcome
	return dr
}

// WithThread sets the conversation the digest landed in.
func (dr *DeliveryRecord) WithThread(threadID string) *DeliveryRecord {
	dr.ThreadID = threadID
	return dr
}

// WithSpanContext copies the trace and span IDs from the span in ctx, when
// there is one.
func (dr *DeliveryRecord) WithSpanContext(ctx context.Context) *DeliveryRecord {
	dr.TraceID = GetTraceID(ctx)
	dr.SpanID = GetSpanID(ctx)
	return dr
}

// Complete fixes the duration and records the result.
func (dr *DeliveryRecord) Complete(success bool, err error) *DeliveryRecord {
	dr.Duration = time.Since(dr.StartTime)
	dr.Success = success
	if err != nil {
		dr.Error = err.Error()
	}
	return dr
}

// CompleteWithError marks the run failed with err.
func (dr *DeliveryRecord) CompleteWithError(err error) *DeliveryRecord {
	return dr.Complete(false, err)
}

// CompleteSuccess marks the run successful.
func (dr *DeliveryRecord) CompleteSuccess() *DeliveryRecord {
	return dr.Complete(true, nil)
}

// RecipientDomain returns the domain half of the recipient address, the
// low-cardinality stand-in for it in general logs.
func (dr *DeliveryRecord) RecipientDomain() string {
	return ExtractUserDomain(dr.Recipient)
}

// Status returns the metric status label for the run.
func (dr *DeliveryRecord) Status() string {
	if dr.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the record as slog attributes for general operational
// logs. The recipient appears as its domain only and the "default" account
// is left out as noise.
func (dr *DeliveryRecord) LogAttrs() []slog.Attr {
	return dr.fields(false)
}

// LogAuditAttrs returns the record as slog attributes for the audit stream,
// full recipient address and span ID included. Sinks receiving these need
// access controls to match.
func (dr *DeliveryRecord) LogAuditAttrs() []slog.Attr {
	return dr.fields(true)
}

func (dr *DeliveryRecord) fields(includePII bool) []slog.Attr {
	attrs := make([]slog.Attr, 0, 10)

	attrs = append(attrs, slog.String("trigger", dr.Trigger))
	if includePII {
		attrs = append(attrs, slog.String("recipient", dr.Recipient))
	} else {
		attrs = append(attrs, slog.String("recipient_domain", dr.RecipientDomain()))
	}
	attrs = append(attrs,
		slog.Duration("duration", dr.Duration),
		slog.Bool("success", dr.Success),
	)

	if dr.Account != "" && (includePII || dr.Account != "default") {
		attrs = append(attrs, slog.String("account", dr.Account))
	}
	if dr.Outcome != "" {
		attrs = append(attrs, slog.String("outcome", dr.Outcome))
	}
	if dr.ThreadID != "" {
		attrs = append(attrs, slog.String("thread_id", dr.ThreadID))
	}
	if dr.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", dr.TraceID))
	}
	if includePII && dr.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", dr.SpanID))
	}
	if dr.Error != "" {
		attrs = append(attrs, slog.String("error", dr.Error))
	}

	return attrs
}

// AuditLogger writes delivery records through a slog.Logger.
type AuditLogger struct {
	logger     *slog.Logger
	level      slog.Level
	includePII bool
	enabled    bool
}

// NewAuditLogger returns an enabled AuditLogger that anonymizes recipients
// and logs at info. A nil logger falls back to slog.Default.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{
		Enabled:  true,
		LogLevel: "info",
	})
}

// NewAuditLoggerWithConfig returns an AuditLogger configured from config.
// A nil logger falls back to slog.Default; an unparsable LogLevel falls
// back to info.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(config.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	return &AuditLogger{
		logger:     logger,
		level:      level,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII switches between full recipient addresses and anonymized
// identifiers in LogDelivery output.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled turns audit output on or off.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogDelivery writes the record once per run. Successes go out at the
// configured level, failures always at warn. Whether the recipient appears
// in full follows the IncludePII setting.
func (al *AuditLogger) LogDelivery(dr *DeliveryRecord) {
	if !al.enabled {
		return
	}

	attrs := dr.LogAttrs()
	if al.includePII {
		attrs = dr.LogAuditAttrs()
	}

	if dr.Success {
		al.logger.LogAttrs(context.Background(), al.level, "delivery_completed", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "delivery_failed", attrs...)
	}
}

// LogDeliveryAudit writes the full audit form of the record, PII included,
// regardless of the IncludePII setting. For callers feeding a dedicated
// audit stream.
func (al *AuditLogger) LogDeliveryAudit(dr *DeliveryRecord) {
	if !al.enabled {
		return
	}
	al.logger.LogAttrs(context.Background(), al.level, "delivery_audit", dr.LogAuditAttrs()...)
}
