package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teemow/threadkeeper/internal/gmail"
	"github.com/teemow/threadkeeper/internal/logging"
	"github.com/teemow/threadkeeper/internal/sheets"
)

// ServerContext owns the state shared across delivery runs: the shutdown
// context and the per-account Google API clients. Clients are created on
// first use so the service can start before any account is authorized.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.RWMutex
	gmailClients  map[string]*gmail.Client
	sheetsClients map[string]*sheets.Client
	shutdown      bool
}

// NewServerContext creates the shared server state and warms up the
// default account's clients when its token is already cached.
func NewServerContext(ctx context.Context) (*ServerContext, error) {
	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:           shutdownCtx,
		cancel:        cancel,
		gmailClients:  make(map[string]*gmail.Client),
		sheetsClients: make(map[string]*sheets.Client),
	}

	// Warmup failures are not fatal; the lazy getters retry on the next
	// delivery run.
	sc.GmailClientForAccount("default")
	sc.SheetsClientForAccount("default")

	return sc, nil
}

// Context returns the context that is cancelled on shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// GmailClientForAccount returns the cached Gmail client for the account,
// creating it when the account's token is present. Returns nil for
// unauthorized accounts.
func (sc *ServerContext) GmailClientForAccount(account string) *gmail.Client {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if client, ok := sc.gmailClients[account]; ok {
		return client
	}
	if !gmail.HasTokenForAccount(account) {
		return nil
	}

	client, err := gmail.NewClientForAccount(sc.ctx, account)
	if err != nil {
		slog.Warn("Failed to create Gmail client", logging.Account(account), logging.Err(err))
		return nil
	}
	sc.gmailClients[account] = client
	return client
}

// SheetsClientForAccount returns the cached Sheets client for the account,
// creating it when the account's token is present. Returns nil for
// unauthorized accounts.
func (sc *ServerContext) SheetsClientForAccount(account string) *sheets.Client {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if client, ok := sc.sheetsClients[account]; ok {
		return client
	}
	if !sheets.HasTokenForAccount(account) {
		return nil
	}

	client, err := sheets.NewClientForAccount(sc.ctx, account)
	if err != nil {
		slog.Warn("Failed to create Sheets client", logging.Account(account), logging.Err(err))
		return nil
	}
	sc.sheetsClients[account] = client
	return client
}

// IsShutdown reports whether Shutdown has been called.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. Safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
