package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys shared by the metric families below.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrOutcome   = "outcome"
	attrTier      = "tier"
	attrAccount   = "account"
)

// Histogram buckets. HTTP requests are fast; delivery runs and Google API
// calls sit behind network round trips and get the wider set.
var (
	httpBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}
	slowBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}
)

// Metrics records the delivery pipeline's metric families. The zero value is
// a no-op recorder: every method checks its instrument before recording, so a
// disabled provider can hand out &Metrics{} instead of nil-checking at every
// call site.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	oauthAuthTotal         metric.Int64Counter
	oauthTokenRefreshTotal metric.Int64Counter

	deliveryRunsTotal      metric.Int64Counter
	deliveryRunDuration    metric.Float64Histogram
	deliveryFallbacksTotal metric.Int64Counter
	runsInFlight           metric.Int64UpDownCounter

	stateOperationsTotal metric.Int64Counter

	// detailedLabels opts in to high-cardinality labels such as the
	// account name
	detailedLabels bool
}

// NewMetrics registers all metric instruments on meter. detailedLabels opts
// in to high-cardinality labels; keep it off in production unless the label
// space is known to be small.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error
	counter := func(name, desc, unit string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name,
			metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			err = fmt.Errorf("failed to create %s counter: %w", name, err)
		}
		return c
	}
	histogram := func(name, desc string, buckets []float64) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = meter.Float64Histogram(name,
			metric.WithDescription(desc), metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(buckets...))
		if err != nil {
			err = fmt.Errorf("failed to create %s histogram: %w", name, err)
		}
		return h
	}

	m.httpRequestsTotal = counter("http_requests_total",
		"Total number of HTTP requests", "{request}")
	m.httpRequestDuration = histogram("http_request_duration_seconds",
		"HTTP request duration in seconds", httpBuckets)

	m.googleAPIOperationsTotal = counter("google_api_operations_total",
		"Total number of Google API operations", "{operation}")
	m.googleAPIOperationDuration = histogram("google_api_operation_duration_seconds",
		"Google API operation duration in seconds", slowBuckets)

	m.oauthAuthTotal = counter("oauth_auth_total",
		"Total number of OAuth authentication attempts", "{attempt}")
	m.oauthTokenRefreshTotal = counter("oauth_token_refresh_total",
		"Total number of OAuth token refresh attempts", "{attempt}")

	m.deliveryRunsTotal = counter("delivery_runs_total",
		"Total number of digest delivery runs", "{run}")
	m.deliveryRunDuration = histogram("delivery_run_duration_seconds",
		"Digest delivery run duration in seconds", slowBuckets)
	m.deliveryFallbacksTotal = counter("delivery_fallbacks_total",
		"Total number of thread continuity fallbacks by tier", "{fallback}")

	m.stateOperationsTotal = counter("state_store_operations_total",
		"Total number of thread state store operations", "{operation}")

	if err != nil {
		return nil, err
	}

	m.runsInFlight, err = meter.Int64UpDownCounter("delivery_runs_in_flight",
		metric.WithDescription("Number of delivery runs currently executing"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create delivery_runs_in_flight gauge: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records one handled HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)

	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGoogleAPIOperation records one Google API call. service is "gmail" or
// "sheets", operation the call type (get, search, send, send_draft), status
// "success" or "error" when the run errored out.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)

	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordOAuthAuth records an interactive authorization attempt. result is
// "success" or "failure".
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m.oauthAuthTotal == nil {
		return
	}
	m.oauthAuthTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordOAuthTokenRefresh records a stored-token load or refresh. result is
// "success", "failure" or "expired".
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m.oauthTokenRefreshTotal == nil {
		return
	}
	m.oauthTokenRefreshTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordDeliveryRun records a completed delivery run. outcome is how the
// delivery landed (replied, replied_degraded, created) or "failed" when the
// run errored out; status is "success" or "error".
func (m *Metrics) RecordDeliveryRun(ctx context.Context, outcome, status string, duration time.Duration) {
	m.RecordDeliveryRunWithAccount(ctx, outcome, status, "", duration)
}

// RecordDeliveryRunWithAccount records a delivery run, labelling it with the
// sending account when detailed labels are enabled. The account label is
// dropped otherwise; account names are unbounded user input.
func (m *Metrics) RecordDeliveryRunWithAccount(ctx context.Context, outcome, status, account string, duration time.Duration) {
	if m.deliveryRunsTotal == nil || m.deliveryRunDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOutcome, outcome),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.deliveryRunsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.deliveryRunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordFallback records that a delivery left the happy path and entered
// tier (reply_search, reply_degraded or create).
func (m *Metrics) RecordFallback(ctx context.Context, tier string) {
	if m.deliveryFallbacksTotal == nil {
		return
	}
	m.deliveryFallbacksTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String(attrTier, tier)))
}

// RecordStateOperation records a thread state store access. operation is
// "get" or "set".
func (m *Metrics) RecordStateOperation(ctx context.Context, operation, status string) {
	if m.stateOperationsTotal == nil {
		return
	}
	m.stateOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	))
}

// IncrementRunsInFlight marks a delivery run as started.
func (m *Metrics) IncrementRunsInFlight(ctx context.Context) {
	if m.runsInFlight == nil {
		return
	}
	m.runsInFlight.Add(ctx, 1)
}

// DecrementRunsInFlight marks a delivery run as finished.
func (m *Metrics) DecrementRunsInFlight(ctx context.Context) {
	if m.runsInFlight == nil {
		return
	}
	m.runsInFlight.Add(ctx, -1)
}
