package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teemow/threadkeeper/internal/instrumentation"
	"github.com/teemow/threadkeeper/internal/logging"
)

func newSendCmd() *cobra.Command {
	var (
		config    deliveryConfig
		debugMode bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Deliver the digest once and exit",
		Long: `Read the configured spreadsheet ranges, render the HTML digest and
deliver it into the ongoing conversation.

When no conversation is remembered, or the remembered one cannot be
continued, a new thread is started and its ID persisted for the next
run. The exit code is non-zero only when nothing could be delivered
at all.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(debugMode)
			loadDeliveryEnvVars(cmd, &config)
			if err := config.validate(); err != nil {
				return err
			}
			return runSend(config)
		},
	}

	registerDeliveryFlags(cmd, &config)
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	return cmd
}

func runSend(config deliveryConfig) error {
	ctx := context.Background()

	provider, instrConfig, err := newInstrumentationProvider(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			slog.Warn("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	runner := &deliveryRunner{
		config:  config,
		clients: directClients,
	}
	if provider.Enabled() {
		runner.metrics = provider.Metrics()
		runner.audit = instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging)
	}

	result, err := runner.Run(ctx, instrumentation.TriggerCLI)
	if err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	slog.Info("Delivery complete",
		logging.Outcome(result.Outcome),
		logging.Thread(result.ThreadID))
	return nil
}
