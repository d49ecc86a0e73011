package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/threadkeeper/internal/logging"
)

// cacheDirName is the subdirectory of the user cache dir holding token files.
const cacheDirName = "threadkeeper"

// accountNamePattern restricts account names to filesystem-safe tokens,
// since the account name becomes part of the token file name.
var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name must not be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return nil
}

func cacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine cache directory: %w", err)
	}
	return filepath.Join(base, cacheDirName), nil
}

// tokenFilePath returns the token file location for the given account.
func tokenFilePath(account string) (string, error) {
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "google-"+account+".token"), nil
}

// HasTokenForAccount reports whether a stored OAuth token exists for the
// account. It says nothing about whether that token still refreshes.
func HasTokenForAccount(account string) bool {
	if validateAccountName(account) != nil {
		return false
	}
	path, err := tokenFilePath(account)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// HasToken reports whether a stored OAuth token exists for the default account.
func HasToken() bool {
	return HasTokenForAccount("default")
}

// IsConfigured reports whether OAuth client credentials are present in the
// environment. Without them the authorization flow cannot run.
func IsConfigured() bool {
	return os.Getenv("GOOGLE_CLIENT_ID") != "" && os.Getenv("GOOGLE_CLIENT_SECRET") != ""
}

// GetAuthURLForAccount returns the OAuth URL for user authorization. The
// consent URL is the same for every account; the account only selects where
// the resulting token is stored.
func GetAuthURLForAccount(account string) string {
	return getOAuthConfig().AuthCodeURL("state")
}

// GetAuthURL returns the OAuth URL for authorizing the default account.
func GetAuthURL() string {
	return GetAuthURLForAccount("default")
}

// SaveTokenForAccount exchanges an authorization code for tokens and stores
// them under the account's token file.
func SaveTokenForAccount(ctx context.Context, account string, authCode string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}

	t, err := getOAuthConfig().Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	tokenFile, err := tokenFilePath(account)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(tokenFile), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Access and refresh token, space separated. GetTokenSourceForAccount
	// and the legacy-file migration both rely on this layout.
	tokenData := t.AccessToken + " " + t.RefreshToken
	if err := os.WriteFile(tokenFile, []byte(tokenData), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// SaveToken exchanges an authorization code and stores the tokens for the
// default account.
func SaveToken(ctx context.Context, authCode string) error {
	return SaveTokenForAccount(ctx, "default", authCode)
}

// getOAuthConfig returns the OAuth2 configuration for all Google services.
// Client credentials come from the environment so the binary does not embed
// a fixed OAuth client.
func getOAuthConfig() *oauth2.Config {
	const OOB = "urn:ietf:wg:oauth:2.0:oob"
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		Endpoint:     google.Endpoint,
		RedirectURL:  OOB,
		Scopes:       DefaultOAuthScopes,
	}
}

// GetTokenSourceForAccount returns a token source backed by the account's
// stored token. The stored token is refreshed once to prove it still works;
// a token that no longer refreshes is reported as an error rather than
// handed to a client that would fail on first use.
func GetTokenSourceForAccount(ctx context.Context, account string) (oauth2.TokenSource, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}

	path, err := tokenFilePath(account)
	if err != nil {
		return nil, err
	}
	slurp, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s", account)
	}

	f := strings.Fields(strings.TrimSpace(string(slurp)))
	if len(f) != 2 {
		return nil, fmt.Errorf("invalid token format")
	}

	// Expiry in the past forces the first Token() call to refresh.
	ts := getOAuthConfig().TokenSource(ctx, &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		Expiry:       time.Unix(1, 0),
	})

	tok, err := ts.Token()
	if err != nil {
		slog.Warn("Cached token no longer refreshes",
			logging.Account(account),
			logging.Err(err))
		return nil, fmt.Errorf("cached token is invalid: %w", err)
	}
	slog.Debug("Refreshed cached token",
		logging.Account(account),
		slog.String("access_token", logging.SanitizeToken(tok.AccessToken)))

	return ts, nil
}

// GetTokenSource returns a token source for the default account.
func GetTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	return GetTokenSourceForAccount(ctx, "default")
}

// GetHTTPClientForAccount returns an HTTP client that authenticates as the
// account. The transport pins HTTP/1.1; the Google API endpoints sporadically
// reset long-lived HTTP/2 streams.
func GetHTTPClientForAccount(ctx context.Context, account string) (*http.Client, error) {
	ts, err := GetTokenSourceForAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	client := oauth2.NewClient(ctx, ts)
	client.Transport.(*oauth2.Transport).Base = &http.Transport{
		ForceAttemptHTTP2: false,
	}

	return client, nil
}

// GetHTTPClient returns an authenticated HTTP client for the default account.
func GetHTTPClient(ctx context.Context) (*http.Client, error) {
	return GetHTTPClientForAccount(ctx, "default")
}

// MigrateDefaultToken moves a legacy single-account token file
// (google.token) to the account-suffixed layout (google-default.token).
// It is safe to call repeatedly.
func MigrateDefaultToken() error {
	dir, err := cacheDir()
	if err != nil {
		return err
	}
	oldFile := filepath.Join(dir, "google.token")
	newFile := filepath.Join(dir, "google-default.token")

	if _, err := os.Stat(oldFile); os.IsNotExist(err) {
		return nil
	}

	if _, err := os.Stat(newFile); err == nil {
		// Both layouts exist; keep the new one and drop the legacy file
		if err := os.Remove(oldFile); err != nil {
			return fmt.Errorf("failed to remove legacy token file: %w", err)
		}
		return nil
	}

	if err := os.Rename(oldFile, newFile); err != nil {
		return fmt.Errorf("failed to migrate token file: %w", err)
	}

	return nil
}

// GetAuthenticationErrorMessage returns instructions for authorizing the
// given account.
func GetAuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("no valid Google OAuth token found for account %q. "+
		"Run \"threadkeeper auth --account %s\" to authorize access", account, account)
}
