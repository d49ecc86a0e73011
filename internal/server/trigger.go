package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/teemow/threadkeeper/internal/instrumentation"
	"github.com/teemow/threadkeeper/internal/logging"
)

const (
	// DefaultTriggerAddr is the default address for the trigger server.
	DefaultTriggerAddr = ":8080"

	// DefaultTriggerReadTimeout is the default read header timeout for the trigger server.
	DefaultTriggerReadTimeout = 10 * time.Second

	// DefaultTriggerWriteTimeout is the default write timeout for the trigger server.
	DefaultTriggerWriteTimeout = 10 * time.Second

	// DefaultTriggerIdleTimeout is the default idle timeout for the trigger server.
	DefaultTriggerIdleTimeout = 120 * time.Second
)

// RunFunc executes one delivery run.
type RunFunc func(ctx context.Context) error

// TriggerServerConfig holds configuration for the trigger server.
type TriggerServerConfig struct {
	// Addr is the address to bind the trigger server to (e.g., ":8080").
	Addr string

	// Run is called for each accepted trigger request.
	Run RunFunc

	// ServerContext carries the long-lived server state. Optional; used for
	// shutdown-aware request handling and health checks.
	ServerContext *ServerContext

	// Metrics records HTTP and in-flight run metrics. Optional.
	Metrics *instrumentation.Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// TriggerServer accepts delivery triggers over HTTP. POST /trigger starts a
// run in the background; runs never overlap, a trigger arriving while a run
// is in progress is rejected with 429. Health endpoints for Kubernetes
// probes are served on the same port.
type TriggerServer struct {
	httpServer    *http.Server
	addr          string
	run           RunFunc
	serverContext *ServerContext
	health        *HealthChecker
	metrics       *instrumentation.Metrics
	logger        *slog.Logger

	// runMu serializes delivery runs
	runMu sync.Mutex
}

// NewTriggerServer creates a new trigger server with the given configuration.
func NewTriggerServer(config TriggerServerConfig) (*TriggerServer, error) {
	if config.Run == nil {
		return nil, fmt.Errorf("run function is required for trigger server")
	}
	if config.Addr == "" {
		config.Addr = DefaultTriggerAddr
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TriggerServer{
		addr:          config.Addr,
		run:           config.Run,
		serverContext: config.ServerContext,
		health:        NewHealthChecker(config.ServerContext),
		metrics:       config.Metrics,
		logger:        logger,
	}, nil
}

// Health returns the health checker so callers can flip readiness during
// shutdown.
func (s *TriggerServer) Health() *HealthChecker {
	return s.health
}

// Start starts the trigger server in a blocking manner.
// Call this in a goroutine if you need non-blocking operation.
func (s *TriggerServer) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/trigger", s.instrument(http.HandlerFunc(s.handleTrigger)))
	s.health.RegisterHealthEndpoints(mux)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: DefaultTriggerReadTimeout,
		WriteTimeout:      DefaultTriggerWriteTimeout,
		IdleTimeout:       DefaultTriggerIdleTimeout,
	}

	s.logger.Info("Starting trigger server", slog.String("addr", s.addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the trigger server.
func (s *TriggerServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.logger.Info("Shutting down trigger server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured address for the trigger server.
func (s *TriggerServer) Addr() string {
	return s.addr
}

func (s *TriggerServer) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if s.serverContext != nil && s.serverContext.IsShutdown() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "shutting down"})
		return
	}

	if !s.runMu.TryLock() {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"status": "busy"})
		return
	}

	go s.runDelivery()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// runDelivery executes one run in the background. The caller must hold runMu;
// it is released when the run finishes.
func (s *TriggerServer) runDelivery() {
	defer s.runMu.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Delivery run panicked",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	ctx := context.Background()
	if s.serverContext != nil {
		ctx = s.serverContext.Context()
	}

	s.health.SetDelivering(true)
	defer s.health.SetDelivering(false)

	if s.metrics != nil {
		s.metrics.IncrementRunsInFlight(ctx)
		defer s.metrics.DecrementRunsInFlight(ctx)
	}

	if err := s.run(ctx); err != nil {
		s.logger.Error("Triggered delivery run failed", logging.Err(err))
	}
}

// statusRecorder captures the response status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument records an HTTP request metric for each handled request.
func (s *TriggerServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, recorder.status, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
