package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/threadkeeper/internal/google"
	"github.com/teemow/threadkeeper/internal/instrumentation"
	"github.com/teemow/threadkeeper/internal/logging"
)

func newAuthCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google API access for an account",
		Long: `Run the OAuth consent flow for the Gmail and Sheets scopes and store
the resulting token under the given account name.

The OAuth client credentials are read from the GOOGLE_CLIENT_ID and
GOOGLE_CLIENT_SECRET environment variables. Open the printed URL in a
browser, approve access, and paste the code back into the prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(account)
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to store the token under (default: 'default')")
	cmd.AddCommand(newAuthStatusCmd())

	return cmd
}

func runAuth(account string) error {
	ctx := context.Background()

	if !google.IsConfigured() {
		return fmt.Errorf("OAuth client credentials are not configured: set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")
	}

	if err := google.MigrateDefaultToken(); err != nil {
		slog.Warn("Could not migrate legacy token file", logging.Err(err))
	}

	provider, _, err := newInstrumentationProvider(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			slog.Warn("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	authURL := google.GetAuthURLForAccount(account)
	fmt.Printf("Go to the following link in your browser:\n\n  %v\n\n", authURL)
	fmt.Printf("Authorizing account: %s\n", account)
	io.WriteString(os.Stdout, "Enter code> ")

	bs := bufio.NewScanner(os.Stdin)
	if !bs.Scan() {
		return io.EOF
	}
	code := strings.TrimSpace(bs.Text())
	if code == "" {
		return fmt.Errorf("no authorization code entered")
	}

	saveErr := google.SaveTokenForAccount(ctx, account, code)
	if provider.Enabled() {
		result := instrumentation.OAuthResultSuccess
		if saveErr != nil {
			result = instrumentation.OAuthResultFailure
		}
		provider.Metrics().RecordOAuthAuth(ctx, result)
	}
	if saveErr != nil {
		return fmt.Errorf("failed to save token for account %s: %w", account, saveErr)
	}

	fmt.Printf("Token stored for account %q. You can now run \"threadkeeper send\".\n", account)
	return nil
}

func newAuthStatusCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether a usable token is stored for an account",
		Long: `Check whether a token is stored for the given account and whether it
still refreshes. A stored token that no longer refreshes has expired or
been revoked and needs a new authorization.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(account)
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to check (default: 'default')")

	return cmd
}

func runAuthStatus(account string) error {
	ctx := context.Background()

	provider, _, err := newInstrumentationProvider(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			slog.Warn("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var tokens google.TokenProvider = google.NewFileTokenProvider()
	if provider.Enabled() {
		tokens = google.NewFileTokenProviderWithMetrics(provider.Metrics())
	}

	if !tokens.HasTokenForAccount(account) {
		return fmt.Errorf("%s", google.GetAuthenticationErrorMessage(account))
	}

	token, err := tokens.GetTokenForAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("token for account %q is stored but no longer usable, run \"threadkeeper auth --account %s\" again: %w", account, account, err)
	}

	fmt.Printf("Token for account %q is valid (expires %s).\n", account, token.Expiry.Format("2006-01-02 15:04:05 MST"))
	return nil
}
