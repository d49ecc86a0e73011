package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/threadkeeper/internal/instrumentation"
	"github.com/teemow/threadkeeper/internal/logging"
	"github.com/teemow/threadkeeper/internal/server"
)

// MetricsConfig carries the serve-time settings for the scrape endpoint.
type MetricsConfig struct {
	// Enabled starts the dedicated metrics listener (default: true)
	Enabled bool

	// Addr the metrics listener binds, e.g. ":9090"
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		config         deliveryConfig
		debugMode      bool
		triggerAddr    string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger service",
		Long: `Start the HTTP trigger service for form-submission webhooks.

POST /trigger starts a delivery run in the background and returns 202.
A trigger arriving while a run is still in flight is rejected with 429,
so runs never overlap. Run outcomes are reported through logs and
metrics, not through the trigger response.

Health endpoints (/healthz, /readyz) are served on the trigger port.
Prometheus metrics are served on a dedicated port.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(debugMode)
			loadDeliveryEnvVars(cmd, &config)
			if err := config.validate(); err != nil {
				return err
			}

			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}
			loadMetricsEnvVars(cmd, &metricsConfig)

			if !cmd.Flags().Changed("trigger-addr") {
				if addr := os.Getenv("TRIGGER_ADDR"); addr != "" {
					triggerAddr = addr
				}
			}

			return runServe(config, triggerAddr, metricsConfig)
		},
	}

	registerDeliveryFlags(cmd, &config)
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&triggerAddr, "trigger-addr", server.DefaultTriggerAddr, "Trigger server address. Can also use TRIGGER_ADDR env var.")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics listener address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadMetricsEnvVars fills metrics settings from the environment for
// flags the user did not set explicitly.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		if os.Getenv("METRICS_ENABLED") == "false" {
			config.Enabled = false
		}
	}

	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

// startMetricsServer brings up the scrape endpoint and blocks until its
// listener is bound, so a taken port fails serve startup instead of
// surfacing minutes later on the first scrape.
func startMetricsServer(metricsConfig MetricsConfig, instrConfig instrumentation.Config, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    metricsConfig.Addr,
		Path:                    instrConfig.PrometheusEndpoint,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	ready := make(chan struct{})
	startErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(ready); err != nil && err != http.ErrServerClosed {
			startErr <- err
		}
		close(startErr)
	}()

	select {
	case <-ready:
		slog.Info("Metrics server started", slog.String("addr", metricsServer.Addr()))
		return metricsServer, nil
	case err := <-startErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runServe(config deliveryConfig, triggerAddr string, metricsConfig MetricsConfig) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, instrConfig, err := newInstrumentationProvider(shutdownCtx)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled && provider.Enabled() {
		metricsServer, err = startMetricsServer(metricsConfig, instrConfig, provider)
		if err != nil {
			return err
		}
	}

	// Google API clients come up lazily once the account's token is
	// present, so the service can start before the first authorization.
	serverContext, err := server.NewServerContext(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if metricsServer != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(stopCtx); err != nil {
				slog.Warn("Error during metrics server shutdown", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			slog.Warn("Error during server context shutdown", logging.Err(err))
		}
	}()

	runner := &deliveryRunner{
		config:  config,
		clients: contextClients(serverContext),
	}
	if provider.Enabled() {
		runner.metrics = provider.Metrics()
		runner.audit = instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging)
	}

	triggerServer, err := server.NewTriggerServer(server.TriggerServerConfig{
		Addr: triggerAddr,
		Run: func(ctx context.Context) error {
			_, err := runner.Run(ctx, instrumentation.TriggerWebhook)
			return err
		},
		ServerContext: serverContext,
		Metrics:       runner.metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create trigger server: %w", err)
	}

	slog.Info("Starting trigger service",
		logging.Account(config.Account),
		logging.UserHash(config.Recipient))

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := triggerServer.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		slog.Info("Shutdown signal received, stopping trigger server")
		triggerServer.Health().SetReady(false)
		stopCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := triggerServer.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("error shutting down trigger server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("trigger server stopped with error: %w", err)
		}
		slog.Info("Trigger server stopped normally")
	}

	slog.Info("Trigger server gracefully stopped")
	return nil
}
