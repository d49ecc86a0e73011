package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/teemow/threadkeeper/internal/instrumentation"
)

// TokenProvider is an interface for providing OAuth tokens for Google APIs
// This abstraction allows different token sources (file-based, keychain, etc.)
type TokenProvider interface {
	// GetTokenForAccount retrieves an OAuth token for the specified account
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount checks if a token exists for the specified account
	HasTokenForAccount(account string) bool
}

// FileTokenProvider provides tokens from disk files (the CLI default)
type FileTokenProvider struct{}

// NewFileTokenProvider creates a new file-based token provider
func NewFileTokenProvider() *FileTokenProvider {
	return &FileTokenProvider{}
}

// GetTokenForAccount retrieves a token from disk for the specified account
func (p *FileTokenProvider) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	ts, err := GetTokenSourceForAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	token, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get token from file: %w", err)
	}

	return token, nil
}

// HasTokenForAccount checks if a token file exists for the specified account
func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	return HasTokenForAccount(account)
}

// FileTokenProviderWithMetrics is a FileTokenProvider that records an OAuth
// token refresh metric for every token retrieval.
type FileTokenProviderWithMetrics struct {
	FileTokenProvider
	metrics *instrumentation.Metrics
}

// NewFileTokenProviderWithMetrics creates a file-based token provider that
// records token refresh outcomes. metrics may be nil.
func NewFileTokenProviderWithMetrics(metrics *instrumentation.Metrics) *FileTokenProviderWithMetrics {
	return &FileTokenProviderWithMetrics{metrics: metrics}
}

// GetTokenForAccount retrieves a token from disk and records the refresh
// outcome. A stored token that no longer refreshes counts as expired; a
// missing token counts as a failure.
func (p *FileTokenProviderWithMetrics) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	token, err := p.FileTokenProvider.GetTokenForAccount(ctx, account)
	if p.metrics != nil {
		switch {
		case err == nil:
			p.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
		case p.HasTokenForAccount(account):
			p.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultExpired)
		default:
			p.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		}
	}
	return token, err
}
