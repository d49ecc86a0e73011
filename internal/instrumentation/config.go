package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls metrics, tracing and audit logging. DefaultConfig reads
// it from the environment; Validate catches bad combinations before any
// exporter is built.
type Config struct {
	// ServiceName identifies the service in exported telemetry (default: threadkeeper).
	ServiceName string

	// ServiceVersion is stamped on the telemetry resource.
	ServiceVersion string

	// ServiceInstanceID distinguishes replicas. Defaults to the hostname,
	// which under Kubernetes is the pod name.
	ServiceInstanceID string

	// K8sNamespace is the Kubernetes namespace, when running in one.
	K8sNamespace string

	// K8sPodName is the Kubernetes pod name, when running in one.
	K8sPodName string

	// Enabled turns instrumentation on (default: true). With it off the
	// provider hands out no-op recorders and tracers.
	Enabled bool

	// MetricsExporter selects "prometheus", "otlp" or "stdout"
	// (default: "prometheus").
	MetricsExporter string

	// TracingExporter selects "otlp", "stdout" or "none" (default: "none").
	TracingExporter string

	// OTLPEndpoint is the collector endpoint for the otlp exporters,
	// host:port without a scheme, e.g. "localhost:4318".
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP instead of TLS. Traces carry
	// message subjects and account hints, so this is for local collectors
	// only.
	OTLPInsecure bool

	// TraceSamplingRate is the head sampling ratio, 0.0 to 1.0 (default: 0.1).
	TraceSamplingRate float64

	// PrometheusEndpoint is the HTTP path the metrics server scrapes from
	// (default: "/metrics").
	PrometheusEndpoint string

	// DetailedLabels admits high-cardinality labels such as the sending
	// account. Label cardinality is unbounded user input, so this stays
	// off unless the label space is known to be small.
	DetailedLabels bool

	// AuditLogging configures the per-run audit record.
	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the structured audit record emitted once per
// delivery run.
type AuditLoggingConfig struct {
	// Enabled emits audit records (default: true).
	Enabled bool

	// IncludePII logs full recipient addresses instead of anonymized
	// identifiers. Audit sinks holding PII need access controls to match.
	IncludePII bool

	// LogLevel is the slog level successful delivery records are emitted
	// at (default: "info"). Failed deliveries always log at warn.
	LogLevel string
}

// DefaultConfig builds a Config from the environment, falling back to
// defaults suited for a single-replica deployment scraping Prometheus.
func DefaultConfig() Config {
	return Config{
		ServiceName:        getEnvOrDefault("OTEL_SERVICE_NAME", "threadkeeper"),
		ServiceVersion:     "unknown",
		ServiceInstanceID:  getEnvOrDefault("OTEL_SERVICE_INSTANCE_ID", ""),
		K8sNamespace:       getEnvOrDefault("K8S_NAMESPACE", getEnvOrDefault("POD_NAMESPACE", "")),
		K8sPodName:         getEnvOrDefault("K8S_POD_NAME", getEnvOrDefault("HOSTNAME", "")),
		Enabled:            getEnvBoolOrDefault("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:    getEnvOrDefault("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:    getEnvOrDefault("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:       getEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate:  getEnvFloatOrDefault("OTEL_TRACES_SAMPLER_ARG", 0.1),
		PrometheusEndpoint: getEnvOrDefault("PROMETHEUS_ENDPOINT", "/metrics"),
		DetailedLabels:     getEnvBoolOrDefault("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    getEnvBoolOrDefault("AUDIT_LOGGING_ENABLED", true),
			IncludePII: getEnvBoolOrDefault("AUDIT_LOGGING_INCLUDE_PII", false),
			LogLevel:   getEnvOrDefault("AUDIT_LOGGING_LEVEL", "info"),
		},
	}
}

// Validate reports the first invalid setting. Empty exporter names pass so
// that a partially filled Config can rely on the provider's zero behavior.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.TracingExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
	}
	if c.MetricsExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBoolOrDefault parses the variable with strconv.ParseBool. Unset or
// unparsable values fall back to the default.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvFloatOrDefault parses the variable as a float64. Unset or
// unparsable values fall back to the default.
func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Label values shared by the metric families and the audit record.
const (
	// Operation status.
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	// OAuth attempt results.
	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"
	OAuthResultExpired = "expired"

	// Google services the delivery pipeline talks to.
	ServiceGmail  = "gmail"
	ServiceSheets = "sheets"

	// What initiated a delivery run.
	TriggerCLI     = "cli"
	TriggerWebhook = "webhook"

	// OutcomeFailed labels a delivery run that errored out before any send
	// landed. Successful outcomes carry the thread package's outcome values.
	OutcomeFailed = "failed"

	// Exporter selector values for MetricsExporter and TracingExporter.
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	// DefaultMetricInterval is the push period for the OTLP and stdout
	// metric readers. Prometheus pulls on scrape instead.
	DefaultMetricInterval = 10 * time.Second
)
