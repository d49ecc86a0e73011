package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/threadkeeper/internal/google"
)

// Client wraps the Gmail Users service
type Client struct {
	svc     *gmail.UsersService
	account string // The account this client is associated with
}

// Account returns the account name this client authenticates as.
func (c *Client) Account() string {
	return c.account
}

// HasTokenForAccount reports whether an OAuth token is cached for the account.
func HasTokenForAccount(account string) bool {
	return google.HasTokenForAccount(account)
}

// NewClientForAccount builds a Gmail client authenticated as the given account.
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	client, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:     svc.Users,
		account: account,
	}, nil
}

// NewClient builds a Gmail client for the default account.
func NewClient(ctx context.Context) (*Client, error) {
	return NewClientForAccount(ctx, "default")
}

// FindThread retrieves a thread by its ID.
// Returns an error wrapping ErrThreadNotFound when no thread with that ID
// exists anymore, so callers can distinguish a vanished thread from a
// transport failure.
func (c *Client) FindThread(ctx context.Context, threadID string) (*ThreadRef, error) {
	if threadID == "" {
		return nil, fmt.Errorf("threadID is required")
	}

	thread, err := c.svc.Threads.Get("me", threadID).Format("full").Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 404 {
			return nil, fmt.Errorf("thread %s: %w", threadID, ErrThreadNotFound)
		}
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}

	return threadRef(thread)
}

// SearchThreadByToken finds a thread by full-text search for token. The
// token is quoted so Gmail matches it as a literal phrase; the first hit
// wins. Returns an error wrapping ErrThreadNotFound when nothing matches.
func (c *Client) SearchThreadByToken(ctx context.Context, token string) (*ThreadRef, error) {
	if token == "" {
		return nil, fmt.Errorf("search token is required")
	}

	q := "\"" + token + "\""
	res, err := c.svc.Threads.List("me").Q(q).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search threads: %w", err)
	}
	if len(res.Threads) == 0 {
		return nil, fmt.Errorf("no thread matches %s: %w", token, ErrThreadNotFound)
	}

	// Threads.List returns thread stubs without messages; fetch the full
	// thread for the hit.
	return c.FindThread(ctx, res.Threads[0].Id)
}

// threadRef condenses a full thread into the fields replies need
func threadRef(t *gmail.Thread) (*ThreadRef, error) {
	if len(t.Messages) == 0 {
		return nil, fmt.Errorf("thread %s has no messages", t.Id)
	}

	first := t.Messages[0]
	return &ThreadRef{
		ID:             t.Id,
		FirstMessageID: first.Id,
		Subject:        HeaderValue(first, "Subject"),
		MessageCount:   len(t.Messages),
	}, nil
}

// ThreadingHeaders fetches a message in raw RFC 2822 form and extracts the
// headers a reply needs to thread correctly. Returns an error wrapping
// ErrNoMessageID when the message carries no usable Message-ID header.
func (c *Client) ThreadingHeaders(ctx context.Context, messageID string) (*ThreadingHeaders, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}

	msg, err := c.svc.Messages.Get("me", messageID).Format("raw").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	raw, err := decodeRaw(msg.Raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode message %s: %w", messageID, err)
	}

	id, err := MessageIDFromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", messageID, err)
	}

	return &ThreadingHeaders{
		MessageID:  id,
		References: ReferencesFromRaw(raw),
	}, nil
}

// decodeRaw decodes the base64 payload of a message fetched in "raw" format
func decodeRaw(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		// Try with standard base64 if URLEncoding fails
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode raw message data: %w", err)
		}
	}
	return decoded, nil
}
