package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/teemow/threadkeeper/internal/google"
	"github.com/teemow/threadkeeper/internal/instrumentation"
)

// Client wraps the Sheets Spreadsheets service
type Client struct {
	svc     *sheets.SpreadsheetsService
	account string // The account this client is associated with
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// Account returns the account name this client authenticates as.
func (c *Client) Account() string {
	return c.account
}

// SetLogger sets the logger used for fetch degradations.
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetMetrics sets the metrics recorder. A nil recorder disables recording.
func (c *Client) SetMetrics(metrics *instrumentation.Metrics) {
	c.metrics = metrics
}

// HasTokenForAccount checks if a Google OAuth token exists for a specific account
func HasTokenForAccount(account string) bool {
	return google.HasTokenForAccount(account)
}

// NewClientForAccount creates a new Sheets client with OAuth2 authentication for a specific account
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	// Get HTTP client with OAuth token
	client, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	return &Client{
		svc:     svc.Spreadsheets,
		account: account,
		logger:  slog.Default(),
	}, nil
}

// NewClient creates a new Sheets client with OAuth2 authentication for the default account
func NewClient(ctx context.Context) (*Client, error) {
	return NewClientForAccount(ctx, "default")
}

// Rows reads a range and returns its cells as display-formatted strings,
// exactly as a user would see them in the sheet.
func (c *Client) Rows(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheetID is required")
	}
	if readRange == "" {
		return nil, fmt.Errorf("readRange is required")
	}

	resp, err := c.valuesGet(ctx, spreadsheetID, readRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", readRange, err)
	}

	return rowsFromValues(resp.Values), nil
}

// LatestComment reads a range and returns its last non-empty cell. Form
// responses append rows, so the last cell is the most recent submission.
func (c *Client) LatestComment(ctx context.Context, spreadsheetID, readRange string) (string, error) {
	if spreadsheetID == "" {
		return "", fmt.Errorf("spreadsheetID is required")
	}
	if readRange == "" {
		return "", fmt.Errorf("readRange is required")
	}

	resp, err := c.valuesGet(ctx, spreadsheetID, readRange)
	if err != nil {
		return "", fmt.Errorf("failed to read range %s: %w", readRange, err)
	}

	return lastNonEmpty(resp.Values), nil
}

// valuesGet runs one instrumented Values.Get call. Display-formatted cells
// are requested so the digest shows what the sheet shows.
func (c *Client) valuesGet(ctx context.Context, spreadsheetID, readRange string) (*sheets.ValueRange, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceSheets, instrumentation.OperationGet)
	defer span.End()

	start := time.Now()
	resp, err := c.svc.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	if c.metrics != nil {
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceSheets, instrumentation.OperationGet, status, duration)
	}

	return resp, err
}
