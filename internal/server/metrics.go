package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teemow/threadkeeper/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is the default bind address for the metrics server.
	DefaultMetricsAddr = ":9090"

	// DefaultMetricsPath is the default scrape path.
	DefaultMetricsPath = "/metrics"

	DefaultMetricsReadTimeout  = 10 * time.Second
	DefaultMetricsWriteTimeout = 10 * time.Second
	DefaultMetricsIdleTimeout  = 60 * time.Second

	// DefaultShutdownTimeout bounds graceful server shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)

// MetricsServerConfig configures the Prometheus scrape endpoint.
type MetricsServerConfig struct {
	// Addr to bind, e.g. ":9090". Defaults to DefaultMetricsAddr.
	Addr string

	// Path the metrics are scraped from. Defaults to DefaultMetricsPath.
	Path string

	// Enabled gates whether the server starts at all.
	Enabled bool

	// InstrumentationProvider must be enabled; its prometheus exporter feeds
	// the registry this server exposes.
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer exposes Prometheus metrics on its own port so scrape
// traffic never shares a listener with the trigger endpoint.
type MetricsServer struct {
	httpServer *http.Server
	addr       string
	path       string

	// boundAddr is set before the ready signal fires
	boundAddr string
}

// NewMetricsServer validates the configuration and returns a server that
// is not yet listening.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.InstrumentationProvider == nil {
		return nil, fmt.Errorf("instrumentation provider is required for metrics server")
	}
	if !config.InstrumentationProvider.Enabled() {
		return nil, fmt.Errorf("instrumentation provider is not enabled")
	}

	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}
	if config.Path == "" {
		config.Path = DefaultMetricsPath
	}

	return &MetricsServer{
		addr: config.Addr,
		path: config.Path,
	}, nil
}

// Start runs the server until shutdown. Call in a goroutine for
// non-blocking operation.
func (s *MetricsServer) Start() error {
	return s.StartWithReadySignal(make(chan struct{}))
}

// StartWithReadySignal binds the listener, closes ready, then serves until
// shutdown. Closing ready after the bind lets callers distinguish "port
// taken" from a later serve failure.
func (s *MetricsServer) StartWithReadySignal(ready chan struct{}) error {
	mux := http.NewServeMux()

	// The otel prometheus exporter feeds the default registry, which
	// promhttp.Handler() serves.
	mux.Handle(s.path, promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: DefaultMetricsReadTimeout,
		WriteTimeout:      DefaultMetricsWriteTimeout,
		IdleTimeout:       DefaultMetricsIdleTimeout,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.boundAddr = listener.Addr().String()

	slog.Info("starting metrics server", "addr", s.boundAddr, "path", s.path)
	close(ready)
	return s.httpServer.Serve(listener)
}

// Shutdown stops the server, waiting for in-flight scrapes up to the
// context deadline.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		slog.Info("shutting down metrics server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the bound listener address once the server has started,
// and the configured address before that. With ":0" configured, the bound
// form carries the actual port.
func (s *MetricsServer) Addr() string {
	if s.boundAddr != "" {
		return s.boundAddr
	}
	return s.addr
}

// Path returns the configured scrape path.
func (s *MetricsServer) Path() string {
	return s.path
}
