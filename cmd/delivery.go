package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/threadkeeper/internal/digest"
	"github.com/teemow/threadkeeper/internal/gmail"
	"github.com/teemow/threadkeeper/internal/google"
	"github.com/teemow/threadkeeper/internal/instrumentation"
	"github.com/teemow/threadkeeper/internal/logging"
	"github.com/teemow/threadkeeper/internal/server"
	"github.com/teemow/threadkeeper/internal/sheets"
	"github.com/teemow/threadkeeper/internal/state"
	"github.com/teemow/threadkeeper/internal/thread"
)

// deliveryConfig holds everything one delivery run needs: where the digest
// data lives, who receives it, and where the thread state is kept.
type deliveryConfig struct {
	Account       string
	SpreadsheetID string
	DataRange     string
	CommentRange  string
	Recipient     string
	Subject       string
	StateFile     string
}

// registerDeliveryFlags registers the delivery flags shared by the send and
// serve commands.
func registerDeliveryFlags(cmd *cobra.Command, config *deliveryConfig) {
	cmd.Flags().StringVar(&config.Account, "account", "default", "Google account name to use. Can also use THREADKEEPER_ACCOUNT env var.")
	cmd.Flags().StringVar(&config.SpreadsheetID, "spreadsheet-id", "", "ID of the spreadsheet holding the digest data. Can also use THREADKEEPER_SPREADSHEET_ID env var.")
	cmd.Flags().StringVar(&config.DataRange, "data-range", "", "A1 range of the table rows (e.g. 'Tracker!A2:D8'). Can also use THREADKEEPER_DATA_RANGE env var.")
	cmd.Flags().StringVar(&config.CommentRange, "comment-range", "", "A1 range of the form comments; the most recent non-empty cell is included. Can also use THREADKEEPER_COMMENT_RANGE env var.")
	cmd.Flags().StringVar(&config.Recipient, "recipient", "", "Address the digest is delivered to, typically a distribution list. Can also use THREADKEEPER_RECIPIENT env var.")
	cmd.Flags().StringVar(&config.Subject, "subject", "", "Subject used when a new conversation is started. Can also use THREADKEEPER_SUBJECT env var.")
	cmd.Flags().StringVar(&config.StateFile, "state-file", "", "Path of the thread state file. Defaults to the user cache directory. Can also use THREADKEEPER_STATE_FILE env var.")
}

// loadDeliveryEnvVars loads delivery configuration from environment variables.
// Environment variables only apply when the flag was not explicitly set.
func loadDeliveryEnvVars(cmd *cobra.Command, config *deliveryConfig) {
	envVars := []struct {
		flag   string
		env    string
		target *string
	}{
		{"account", "THREADKEEPER_ACCOUNT", &config.Account},
		{"spreadsheet-id", "THREADKEEPER_SPREADSHEET_ID", &config.SpreadsheetID},
		{"data-range", "THREADKEEPER_DATA_RANGE", &config.DataRange},
		{"comment-range", "THREADKEEPER_COMMENT_RANGE", &config.CommentRange},
		{"recipient", "THREADKEEPER_RECIPIENT", &config.Recipient},
		{"subject", "THREADKEEPER_SUBJECT", &config.Subject},
		{"state-file", "THREADKEEPER_STATE_FILE", &config.StateFile},
	}

	for _, ev := range envVars {
		if cmd.Flags().Changed(ev.flag) {
			continue
		}
		if value := os.Getenv(ev.env); value != "" {
			*ev.target = value
		}
	}
}

// validate checks that the required delivery settings are present.
// The comment range and state file are optional; the account defaults to
// "default".
func (c *deliveryConfig) validate() error {
	if c.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet ID is required (--spreadsheet-id or THREADKEEPER_SPREADSHEET_ID)")
	}
	if c.DataRange == "" {
		return fmt.Errorf("data range is required (--data-range or THREADKEEPER_DATA_RANGE)")
	}
	if c.Recipient == "" {
		return fmt.Errorf("recipient is required (--recipient or THREADKEEPER_RECIPIENT)")
	}
	if c.Subject == "" {
		return fmt.Errorf("subject is required (--subject or THREADKEEPER_SUBJECT)")
	}
	return nil
}

// clientSource resolves the Google API clients for an account.
type clientSource func(ctx context.Context, account string) (*gmail.Client, *sheets.Client, error)

// directClients builds fresh clients from the stored OAuth token. This is the
// CLI path: one run, no caching.
func directClients(ctx context.Context, account string) (*gmail.Client, *sheets.Client, error) {
	gmailClient, err := gmail.NewClientForAccount(ctx, account)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gmail client for account %s: %w", account, err)
	}

	sheetsClient, err := sheets.NewClientForAccount(ctx, account)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Sheets client for account %s: %w", account, err)
	}

	return gmailClient, sheetsClient, nil
}

// contextClients serves cached clients from the server context. This is the
// serve path: clients are created once and reused across triggered runs.
func contextClients(sc *server.ServerContext) clientSource {
	return func(ctx context.Context, account string) (*gmail.Client, *sheets.Client, error) {
		gmailClient := sc.GmailClientForAccount(account)
		sheetsClient := sc.SheetsClientForAccount(account)
		if gmailClient == nil || sheetsClient == nil {
			return nil, nil, errors.New(google.GetAuthenticationErrorMessage(account))
		}
		return gmailClient, sheetsClient, nil
	}
}

// deliveryRunner executes delivery runs wrapped in tracing, metrics and audit
// logging. The same runner serves both trigger surfaces; only the clients
// source and the trigger label differ.
type deliveryRunner struct {
	config  deliveryConfig
	clients clientSource
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
}

// Run executes one delivery run end to end: fetch, render, deliver.
// trigger names what started the run ("cli" or "webhook").
func (r *deliveryRunner) Run(ctx context.Context, trigger string) (*thread.SendResult, error) {
	ctx, span := instrumentation.StartDeliverySpan(ctx, trigger)
	defer span.End()

	record := instrumentation.NewDeliveryRecord(trigger).
		WithRecipient(r.config.Recipient).
		WithAccount(r.config.Account).
		WithSpanContext(ctx)

	logger := logging.WithAccount(slog.Default(), r.config.Account)

	result, err := r.deliver(ctx, logger)
	if err != nil {
		record.CompleteWithError(err)
		r.finish(ctx, record, instrumentation.OutcomeFailed)
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	record.WithOutcome(result.Outcome).WithThread(result.ThreadID).CompleteSuccess()
	r.finish(ctx, record, result.Outcome)
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithOutcome(result.Outcome).
		WithThread(result.ThreadID).
		Build()...)
	instrumentation.SetSpanSuccess(span)

	return result, nil
}

// finish records the run metric and writes the audit entry.
func (r *deliveryRunner) finish(ctx context.Context, record *instrumentation.DeliveryRecord, outcome string) {
	if r.metrics != nil {
		r.metrics.RecordDeliveryRunWithAccount(ctx, outcome, record.Status(), record.Account, record.Duration)
	}
	if r.audit != nil {
		r.audit.LogDelivery(record)
	}
}

// deliver performs the fetch-render-send pipeline for one run.
func (r *deliveryRunner) deliver(ctx context.Context, logger *slog.Logger) (*thread.SendResult, error) {
	gmailClient, sheetsClient, err := r.clients(ctx, r.config.Account)
	if err != nil {
		return nil, err
	}
	sheetsClient.SetLogger(logger)
	sheetsClient.SetMetrics(r.metrics)

	statePath := r.config.StateFile
	if statePath == "" {
		statePath, err = state.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	manager, err := thread.NewManager(
		thread.NewInstrumentedMailer(gmailClient, r.metrics),
		state.NewFileStore(statePath),
		thread.Config{Recipient: r.config.Recipient, Subject: r.config.Subject},
	)
	if err != nil {
		return nil, err
	}
	manager.SetLogger(logger)
	manager.SetMetrics(r.metrics)

	snapshot := sheetsClient.Fetch(ctx, sheets.Query{
		SpreadsheetID: r.config.SpreadsheetID,
		DataRange:     r.config.DataRange,
		CommentRange:  r.config.CommentRange,
	})

	body, err := digest.Build(digest.Data{
		Title:   r.config.Subject,
		Comment: snapshot.Comment,
		Rows:    snapshot.Rows,
	})
	if err != nil {
		return nil, err
	}

	return manager.Deliver(ctx, body)
}

// newInstrumentationProvider initializes OpenTelemetry with the binary
// version stamped on the resource. The returned config carries the audit
// logging settings for the audit logger.
func newInstrumentationProvider(ctx context.Context) (*instrumentation.Provider, instrumentation.Config, error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, instrConfig, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return provider, instrConfig, nil
}
