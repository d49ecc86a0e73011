// Package instrumentation carries the observability surface of the delivery
// service: OpenTelemetry metrics and traces, the per-run audit record, and
// the label vocabulary shared between them.
//
// NewProvider builds the configured exporters and installs them as the otel
// globals. Metrics are exported through Prometheus (scraped from the metrics
// server), OTLP, or stdout; traces through OTLP or stdout, or not at all.
// DefaultConfig reads the selection from the environment, most importantly
// INSTRUMENTATION_ENABLED, METRICS_EXPORTER, TRACING_EXPORTER and
// OTEL_EXPORTER_OTLP_ENDPOINT.
//
// # Metric families
//
// HTTP handling:
//   - http_requests_total, http_request_duration_seconds
//
// Google API calls, by service and operation:
//   - google_api_operations_total, google_api_operation_duration_seconds
//
// OAuth flows:
//   - oauth_auth_total, oauth_token_refresh_total
//
// Delivery runs and the thread continuity chain:
//   - delivery_runs_total, delivery_run_duration_seconds
//   - delivery_fallbacks_total (by tier), delivery_runs_in_flight
//
// Thread state persistence:
//   - state_store_operations_total
//
// # Spans
//
// Each delivery run gets a root server span named deliver.<trigger>; every
// Google API call underneath it gets a client span named
// google.<service>.<operation>. Fallbacks appear as events on the run span.
//
// # Typical wiring
//
//	provider, err := instrumentation.NewProvider(ctx, config)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordDeliveryRun(ctx, "replied", instrumentation.StatusSuccess, time.Since(start))
//
// A disabled provider hands out no-op recorders and tracers, so callers
// never need to branch on whether instrumentation is on.
package instrumentation
