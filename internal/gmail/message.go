package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// OutgoingMessage represents an email message to be sent.
type OutgoingMessage struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
	IsHTML  bool

	// InReplyTo and References carry the RFC 2822 threading headers.
	// Gmail threads a reply to list recipients only when these are set
	// explicitly; the ThreadId field alone is not enough for messages
	// delivered through a distribution list.
	InReplyTo  string
	References string

	// ThreadID attaches the message to an existing Gmail thread.
	ThreadID string
}

// encodeRFC2047 B-encodes a header value that carries non-ASCII runes
// (umlauts, emoji). Plain ASCII passes through untouched.
func encodeRFC2047(s string) string {
	if strings.IndexFunc(s, func(r rune) bool { return r > 127 }) < 0 {
		return s
	}
	return mime.BEncoding.Encode("UTF-8", s)
}

func (msg *OutgoingMessage) validate() error {
	if len(msg.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	if msg.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if msg.Body == "" {
		return fmt.Errorf("body is required")
	}
	return nil
}

// encode builds the message in RFC 2822 format and returns it base64url
// encoded, ready for the Gmail API's Raw field.
func (msg *OutgoingMessage) encode() string {
	var b strings.Builder
	header := func(name, value string) {
		if value == "" {
			return
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}

	header("To", strings.Join(msg.To, ", "))
	header("Cc", strings.Join(msg.Cc, ", "))
	header("Bcc", strings.Join(msg.Bcc, ", "))
	header("Subject", encodeRFC2047(msg.Subject))
	header("In-Reply-To", msg.InReplyTo)
	header("References", msg.References)

	contentType := "text/plain"
	if msg.IsHTML {
		contentType = "text/html"
	}
	header("Content-Type", contentType+`; charset="UTF-8"`)
	header("MIME-Version", "1.0")

	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

// Send sends an email through the Gmail API and returns the sent message's
// ID and thread ID.
func (c *Client) Send(ctx context.Context, msg *OutgoingMessage) (*SentMessage, error) {
	if err := msg.validate(); err != nil {
		return nil, err
	}

	gmailMsg := &gmail.Message{
		Raw:      msg.encode(),
		ThreadId: msg.ThreadID,
	}

	sent, err := c.svc.Messages.Send("me", gmailMsg).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	return &SentMessage{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}

// SendViaDraft sends an email by creating a draft and sending it.
//
// Messages.Send does not reliably report the thread ID of a brand new
// conversation, while a sent draft does. Callers that need to persist the
// resulting thread ID must use this path.
func (c *Client) SendViaDraft(ctx context.Context, msg *OutgoingMessage) (*SentMessage, error) {
	if err := msg.validate(); err != nil {
		return nil, err
	}

	draft := &gmail.Draft{
		Message: &gmail.Message{
			Raw:      msg.encode(),
			ThreadId: msg.ThreadID,
		},
	}

	created, err := c.svc.Drafts.Create("me", draft).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	sent, err := c.svc.Drafts.Send("me", &gmail.Draft{Id: created.Id}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to send draft: %w", err)
	}

	return &SentMessage{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}
