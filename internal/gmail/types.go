package gmail

import "errors"

// Sentinel errors for thread lookup and header extraction.
var (
	// ErrThreadNotFound reports that no thread matched the lookup, either
	// because it was deleted or because the stored identifier is stale.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrNoMessageID reports that no Message-ID header could be extracted
	// from a message's raw content.
	ErrNoMessageID = errors.New("no Message-ID header found")
)

// ThreadRef identifies a conversation and the message whose transport
// headers anchor replies into it.
type ThreadRef struct {
	// ID is the provider-side thread identifier.
	ID string

	// FirstMessageID is the provider-side ID of the thread's first message.
	// Reply headers are derived from this message.
	FirstMessageID string

	// Subject is the first message's subject line.
	Subject string

	// MessageCount is the number of messages currently in the thread.
	MessageCount int
}

// ThreadingHeaders carries the transport-level identifiers a threaded reply
// needs: the anchor message's Message-ID and its accumulated References.
type ThreadingHeaders struct {
	MessageID  string
	References string
}

// SentMessage reports a successful send.
type SentMessage struct {
	ID       string
	ThreadID string
}
