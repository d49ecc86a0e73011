package thread

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/threadkeeper/internal/gmail"
	"github.com/teemow/threadkeeper/internal/instrumentation"
	"github.com/teemow/threadkeeper/internal/logging"
	"github.com/teemow/threadkeeper/internal/state"
)

// Config holds the delivery target for a Manager.
type Config struct {
	// Recipient is the address every digest goes to, typically a
	// distribution list.
	Recipient string

	// Subject is used verbatim when a new thread is started. Replies derive
	// their subject from the thread being continued instead.
	Subject string
}

// Manager delivers digests into one ongoing conversation. It remembers the
// conversation across runs through a state.Store and walks a fixed fallback
// chain when the remembered thread cannot be continued: direct lookup,
// search, degraded reply, and finally a fresh thread.
type Manager struct {
	mailer  Mailer
	store   state.Store
	cfg     Config
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewManager creates a Manager. The mailer, store, recipient and subject are
// all required.
func NewManager(mailer Mailer, store state.Store, cfg Config) (*Manager, error) {
	if mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if cfg.Recipient == "" {
		return nil, fmt.Errorf("recipient is required")
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	return &Manager{
		mailer: mailer,
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
	}, nil
}

// SetLogger sets the logger used by the manager.
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// SetMetrics sets the metrics recorder. A nil recorder disables recording.
func (m *Manager) SetMetrics(metrics *instrumentation.Metrics) {
	m.metrics = metrics
}

// Deliver sends htmlBody into the ongoing conversation. When a conversation
// is remembered it replies there, falling back through search and a degraded
// reply as needed. When no conversation is remembered, or the reply path
// fails for any reason, it starts a new thread and persists its ID. Only a
// failure to start that new thread fails the run.
func (m *Manager) Deliver(ctx context.Context, htmlBody string) (*SendResult, error) {
	if htmlBody == "" {
		return nil, fmt.Errorf("message body is required")
	}

	storedID, ok, err := m.store.Get(state.KeyThreadID)
	m.recordState(ctx, "get", err)
	if err != nil {
		return nil, fmt.Errorf("reading thread state: %w", err)
	}

	if ok && storedID != "" {
		result, err := m.reply(ctx, storedID, htmlBody)
		if err == nil {
			return result, nil
		}
		m.recordFallback(ctx, TierCreate)
		m.logger.Warn("Reply delivery failed, starting a new thread",
			logging.Thread(storedID),
			logging.Err(err))
	}

	return m.createThread(ctx, storedID, htmlBody)
}

// lookupStrategy is one way of locating the remembered conversation.
type lookupStrategy struct {
	tier   string
	lookup func(ctx context.Context) (*gmail.ThreadRef, error)
}

// lookupThread tries each strategy in order and returns the first hit along
// with the tier that produced it.
func (m *Manager) lookupThread(ctx context.Context, storedID string) (*gmail.ThreadRef, string, error) {
	strategies := []lookupStrategy{
		{TierReplyDirect, func(ctx context.Context) (*gmail.ThreadRef, error) {
			return m.mailer.FindThread(ctx, storedID)
		}},
		{TierReplySearch, func(ctx context.Context) (*gmail.ThreadRef, error) {
			return m.mailer.SearchThreadByToken(ctx, storedID)
		}},
	}

	var lastErr error
	for i, strategy := range strategies {
		if i > 0 {
			m.recordFallback(ctx, strategy.tier)
		}
		ref, err := strategy.lookup(ctx)
		if err == nil {
			return ref, strategy.tier, nil
		}
		lastErr = err
		m.logger.Warn("Thread lookup failed",
			logging.Tier(strategy.tier),
			logging.Thread(storedID),
			logging.Err(err))
	}

	return nil, "", lastErr
}

// reply delivers into the remembered conversation. When the anchor message's
// headers cannot be extracted it degrades to a reply without
// In-Reply-To/References: Gmail still threads it through ThreadId, but
// recipients reached via a distribution list may see it as a separate
// conversation.
func (m *Manager) reply(ctx context.Context, storedID, htmlBody string) (*SendResult, error) {
	ref, tier, err := m.lookupThread(ctx, storedID)
	if err != nil {
		return nil, fmt.Errorf("locating thread %s: %w", storedID, err)
	}

	msg := &gmail.OutgoingMessage{
		To:       []string{m.cfg.Recipient},
		Subject:  gmail.ReplySubject(ref.Subject),
		Body:     htmlBody,
		IsHTML:   true,
		ThreadID: ref.ID,
	}

	outcome := OutcomeReplied
	headers, err := m.mailer.ThreadingHeaders(ctx, ref.FirstMessageID)
	if err != nil {
		outcome = OutcomeRepliedDegraded
		m.recordFallback(ctx, TierReplyDegraded)
		m.logger.Warn("Threading headers unavailable, sending degraded reply",
			logging.Thread(ref.ID),
			logging.Err(err))
	} else {
		msg.InReplyTo = headers.MessageID
		msg.References = gmail.BuildReferences(headers.References, headers.MessageID)
	}

	sent, err := m.mailer.Send(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("sending reply: %w", err)
	}

	m.logger.Info("Replied to existing thread",
		logging.Thread(ref.ID),
		logging.Tier(tier),
		logging.Outcome(outcome))

	return &SendResult{Outcome: outcome, ThreadID: ref.ID, MessageID: sent.ID}, nil
}

// createThread starts a fresh conversation through the draft path and
// persists its ID. State is written only after the send succeeded, so a
// failed run never clobbers the remembered conversation.
func (m *Manager) createThread(ctx context.Context, oldID, htmlBody string) (*SendResult, error) {
	msg := &gmail.OutgoingMessage{
		To:      []string{m.cfg.Recipient},
		Subject: m.cfg.Subject,
		Body:    htmlBody,
		IsHTML:  true,
	}

	sent, err := m.mailer.SendViaDraft(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("creating thread: %w", err)
	}

	if oldID != "" {
		err := m.store.Set(state.KeyLastThreadID, oldID)
		m.recordState(ctx, "set", err)
		if err != nil {
			m.logger.Warn("Archiving previous thread id failed",
				logging.Thread(oldID),
				logging.Err(err))
		}
	}

	err = m.store.Set(state.KeyThreadID, sent.ThreadID)
	m.recordState(ctx, "set", err)
	if err != nil {
		return nil, fmt.Errorf("persisting thread id: %w", err)
	}

	m.logger.Info("Created new thread.", logging.Thread(sent.ThreadID))

	return &SendResult{Outcome: OutcomeCreated, ThreadID: sent.ThreadID, MessageID: sent.ID}, nil
}

func (m *Manager) recordFallback(ctx context.Context, tier string) {
	instrumentation.AddSpanEvent(ctx, "fallback",
		attribute.String(instrumentation.SpanAttrTier, tier))
	if m.metrics != nil {
		m.metrics.RecordFallback(ctx, tier)
	}
}

func (m *Manager) recordState(ctx context.Context, operation string, err error) {
	if m.metrics == nil {
		return
	}
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	m.metrics.RecordStateOperation(ctx, operation, status)
}
