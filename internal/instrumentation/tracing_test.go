package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordSpans installs a recording tracer provider for the duration of the
// test and returns its recorder.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})

	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	m := make(map[attribute.Key]string)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value.Emit()
	}
	return m
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithAccount("work").
		WithOutcome("replied").
		WithTier("reply_direct").
		WithThread("18c2f9a7b3d4e5f6").
		Build()

	if len(attrs) != 4 {
		t.Fatalf("Build() returned %d attributes, want 4", len(attrs))
	}

	m := make(map[attribute.Key]string)
	for _, kv := range attrs {
		m[kv.Key] = kv.Value.Emit()
	}

	want := map[string]string{
		SpanAttrAccount: "work",
		SpanAttrOutcome: "replied",
		SpanAttrTier:    "reply_direct",
		SpanAttrThread:  "18c2f9a7b3d4e5f6",
	}
	for key, value := range want {
		if m[attribute.Key(key)] != value {
			t.Errorf("attribute %s = %q, want %q", key, m[attribute.Key(key)], value)
		}
	}
}

func TestSpanAttributeBuilder_SkipsEmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithAccount("").
		WithOutcome("").
		WithTier("").
		WithThread("").
		Build()

	if len(attrs) != 0 {
		t.Errorf("Build() returned %d attributes, want none for empty values", len(attrs))
	}
}

func TestStartDeliverySpan(t *testing.T) {
	recorder := recordSpans(t)

	ctx, span := StartDeliverySpan(context.Background(), "webhook")

	if GetTraceID(ctx) == "" {
		t.Error("GetTraceID() empty inside a delivery span")
	}
	if GetSpanID(ctx) == "" {
		t.Error("GetSpanID() empty inside a delivery span")
	}

	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(ended))
	}
	if name := ended[0].Name(); name != "deliver.webhook" {
		t.Errorf("span name = %q, want %q", name, "deliver.webhook")
	}
	if kind := ended[0].SpanKind(); kind != trace.SpanKindServer {
		t.Errorf("span kind = %v, want server", kind)
	}
	if trigger := spanAttrs(ended[0])[SpanAttrTrigger]; trigger != "webhook" {
		t.Errorf("trigger attribute = %q, want %q", trigger, "webhook")
	}
}

func TestStartGoogleAPISpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartGoogleAPISpan(context.Background(), ServiceGmail, OperationGet)
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(ended))
	}
	if name := ended[0].Name(); name != "google.gmail.get" {
		t.Errorf("span name = %q, want %q", name, "google.gmail.get")
	}
	if kind := ended[0].SpanKind(); kind != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", kind)
	}

	m := spanAttrs(ended[0])
	if m[SpanAttrService] != ServiceGmail || m[SpanAttrOperation] != OperationGet {
		t.Errorf("service/operation attributes = %q/%q, want %q/%q",
			m[SpanAttrService], m[SpanAttrOperation], ServiceGmail, OperationGet)
	}
}

func TestStartSpan_PassesAttributes(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "test-span",
		attribute.String(SpanAttrAccount, "work"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(ended))
	}
	if account := spanAttrs(ended[0])[SpanAttrAccount]; account != "work" {
		t.Errorf("account attribute = %q, want %q", account, "work")
	}
}

func TestSetSpanError(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanError(span, errors.New("send failed"))
	span.End()

	ended := recorder.Ended()[0]
	if ended.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", ended.Status().Code)
	}
	if ended.Status().Description != "send failed" {
		t.Errorf("status description = %q, want %q", ended.Status().Description, "send failed")
	}
	if len(ended.Events()) != 1 {
		t.Errorf("recorded %d events, want the exception event", len(ended.Events()))
	}
}

func TestSetSpanError_NilError(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanError(span, nil)
	span.End()

	if code := recorder.Ended()[0].Status().Code; code != codes.Unset {
		t.Errorf("status = %v, want unset for a nil error", code)
	}
}

func TestSetSpanSuccess(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanSuccess(span)
	span.End()

	if code := recorder.Ended()[0].Status().Code; code != codes.Ok {
		t.Errorf("status = %v, want ok", code)
	}
}

func TestAddSpanEvent(t *testing.T) {
	recorder := recordSpans(t)

	ctx, span := StartSpan(context.Background(), "test-span")
	AddSpanEvent(ctx, "fallback", attribute.String(SpanAttrTier, "reply_search"))
	span.End()

	events := recorder.Ended()[0].Events()
	if len(events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(events))
	}
	if events[0].Name != "fallback" {
		t.Errorf("event name = %q, want %q", events[0].Name, "fallback")
	}
}

func TestAddSpanEvent_NoSpan(t *testing.T) {
	// Must be a no-op without a span in the context.
	AddSpanEvent(context.Background(), "fallback")
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if traceID := GetTraceID(context.Background()); traceID != "" {
		t.Errorf("GetTraceID() = %q, want empty without a span", traceID)
	}
}

func TestGetSpanID_NoSpan(t *testing.T) {
	if spanID := GetSpanID(context.Background()); spanID != "" {
		t.Errorf("GetSpanID() = %q, want empty without a span", spanID)
	}
}
