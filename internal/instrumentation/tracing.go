package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for all spans this module creates.
const TracerName = "github.com/teemow/threadkeeper"

// Span attribute keys.
const (
	// SpanAttrTrigger is what started the delivery run ("cli" or "webhook").
	SpanAttrTrigger = "delivery.trigger"

	// SpanAttrService is the Google service a client span talks to.
	SpanAttrService = "google.service"

	// SpanAttrOperation is the API call type on a client span.
	SpanAttrOperation = "google.operation"

	// SpanAttrAccount is the sending account.
	SpanAttrAccount = "delivery.account"

	// SpanAttrOutcome is how the delivery landed (replied, replied_degraded, created).
	SpanAttrOutcome = "delivery.outcome"

	// SpanAttrTier is the continuity tier a fallback entered.
	SpanAttrTier = "delivery.tier"

	// SpanAttrThread is the conversation thread ID.
	SpanAttrThread = "delivery.thread_id"
)

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// SpanAttributeBuilder accumulates the attributes describing how a delivery
// landed. Empty values are skipped, so it can be fed straight from a result
// without guarding each field.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder returns an empty builder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{}
}

// WithAccount adds the sending account when non-empty.
func (b *SpanAttributeBuilder) WithAccount(account string) *SpanAttributeBuilder {
	return b.add(SpanAttrAccount, account)
}

// WithOutcome adds the delivery outcome when non-empty.
func (b *SpanAttributeBuilder) WithOutcome(outcome string) *SpanAttributeBuilder {
	return b.add(SpanAttrOutcome, outcome)
}

// WithTier adds the continuity tier when non-empty.
func (b *SpanAttributeBuilder) WithTier(tier string) *SpanAttributeBuilder {
	return b.add(SpanAttrTier, tier)
}

// WithThread adds the conversation thread ID when non-empty.
func (b *SpanAttributeBuilder) WithThread(threadID string) *SpanAttributeBuilder {
	return b.add(SpanAttrThread, threadID)
}

func (b *SpanAttributeBuilder) add(key, value string) *SpanAttributeBuilder {
	if value != "" {
		b.attrs = append(b.attrs, attribute.String(key, value))
	}
	return b
}

// Build returns the accumulated attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a span under the module tracer. The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartDeliverySpan starts the root server span for a delivery run, named
// after and tagged with the trigger.
func StartDeliverySpan(ctx context.Context, trigger string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		attribute.String(SpanAttrTrigger, trigger),
	}, attrs...)

	return tracer().Start(ctx, "deliver."+trigger,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGoogleAPISpan starts a client span for one Google API call.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)

	return tracer().Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records err on the span and marks it failed. A nil err is
// ignored.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks the span OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent attaches an event to the span in ctx. Without a span in ctx
// this is a no-op.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID of the span in ctx, or "" when ctx holds
// no recording span.
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID of the span in ctx, or "" when ctx holds no
// recording span.
func GetSpanID(ctx context.Context) string {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}
