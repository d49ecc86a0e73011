package thread

import (
	"context"

	"github.com/teemow/threadkeeper/internal/gmail"
)

// Lookup and fallback tiers, in the order they are tried. Recorded in logs
// and metrics.
const (
	TierReplyDirect   = "reply_direct"
	TierReplySearch   = "reply_search"
	TierReplyDegraded = "reply_degraded"
	TierCreate        = "create"
)

// Outcomes of a delivery run.
const (
	// OutcomeReplied means the digest joined the remembered conversation
	// with full threading headers.
	OutcomeReplied = "replied"

	// OutcomeRepliedDegraded means the digest joined the conversation but
	// without In-Reply-To/References, because the anchor message's
	// Message-ID could not be extracted. Some mail clients may not thread
	// it correctly.
	OutcomeRepliedDegraded = "replied_degraded"

	// OutcomeCreated means a new conversation was started and its id
	// persisted.
	OutcomeCreated = "created"
)

// SendResult reports how a delivery landed.
type SendResult struct {
	Outcome   string
	ThreadID  string
	MessageID string
}

// Mailer is the provider surface a delivery needs. *gmail.Client satisfies
// it; tests substitute a fake.
type Mailer interface {
	// FindThread retrieves a thread by its ID.
	FindThread(ctx context.Context, threadID string) (*gmail.ThreadRef, error)

	// SearchThreadByToken finds a thread by full-text search for token.
	SearchThreadByToken(ctx context.Context, token string) (*gmail.ThreadRef, error)

	// ThreadingHeaders extracts the reply headers from a message's raw form.
	ThreadingHeaders(ctx context.Context, messageID string) (*gmail.ThreadingHeaders, error)

	// Send sends a message directly.
	Send(ctx context.Context, msg *gmail.OutgoingMessage) (*gmail.SentMessage, error)

	// SendViaDraft sends a message through the draft path, which reliably
	// reports the resulting thread ID.
	SendViaDraft(ctx context.Context, msg *gmail.OutgoingMessage) (*gmail.SentMessage, error)
}
