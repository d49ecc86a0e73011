// Package server provides the HTTP surfaces of the threadkeeper service:
// the trigger endpoint, health probes, and the Prometheus metrics endpoint.
//
// # Key Components
//
// ServerContext manages Google API clients with lazy initialization and
// caching. It supports multiple accounts and carries the shutdown state the
// health checker and trigger handler consult.
//
// TriggerServer accepts POST /trigger requests and starts a delivery run in
// the background. Runs are serialized; a trigger arriving while a run is in
// progress is rejected with 429 so overlapping runs can never race on the
// thread state. Health endpoints (/healthz, /readyz) are served on the same
// port for Kubernetes probes.
//
// MetricsServer serves Prometheus metrics on a dedicated port. This isolates
// metrics from trigger traffic so operational data is never exposed on the
// public listener.
package server
