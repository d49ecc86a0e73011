package gmail

import (
	"regexp"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

var (
	// Raw RFC 2822 header patterns. Header names are case-insensitive and
	// long values may be folded across lines; unfoldPattern undoes the
	// folding before matching.
	//
	// <CAB+x1dcw=abc123@mail.gmail.com>
	messageIDPattern  = regexp.MustCompile(`(?im)^Message-ID:[ \t]*(<[^>]+>)`)
	referencesPattern = regexp.MustCompile(`(?im)^References:[ \t]*(.+)$`)
	unfoldPattern     = regexp.MustCompile(`\r?\n[ \t]+`)
)

// HeaderValue extracts a header value from a Gmail message's structured
// payload.
func HeaderValue(m *gmail.Message, header string) string {
	mpart := m.Payload
	if mpart == nil {
		return ""
	}
	for _, mph := range mpart.Headers {
		if mph.Name == header {
			return mph.Value
		}
	}
	return ""
}

// rawHeaderBlock returns the unfolded header section of a raw RFC 2822
// message, cut at the first blank line so body text can never match a
// header pattern.
func rawHeaderBlock(raw []byte) string {
	s := string(raw)
	if idx := strings.Index(s, "\r\n\r\n"); idx >= 0 {
		s = s[:idx]
	} else if idx := strings.Index(s, "\n\n"); idx >= 0 {
		s = s[:idx]
	}
	return unfoldPattern.ReplaceAllString(s, " ")
}

// MessageIDFromRaw extracts the Message-ID header from a raw RFC 2822
// message. The Gmail API does not expose Message-ID as a structured field,
// so it is pattern-matched out of the raw header block.
// Returns ErrNoMessageID when the header is absent or malformed.
func MessageIDFromRaw(raw []byte) (string, error) {
	m := messageIDPattern.FindStringSubmatch(rawHeaderBlock(raw))
	if m == nil {
		return "", ErrNoMessageID
	}
	return m[1], nil
}

// ReferencesFromRaw extracts the References header from a raw RFC 2822
// message. Returns the empty string when the message carries none.
func ReferencesFromRaw(raw []byte) string {
	m := referencesPattern.FindStringSubmatch(rawHeaderBlock(raw))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// BuildReferences builds the References header for a reply: the anchor
// message's prior references, if any, followed by its bracketed message ID,
// space-separated.
func BuildReferences(priorReferences, messageID string) string {
	if priorReferences != "" {
		return priorReferences + " " + messageID
	}
	return messageID
}

// ReplySubject prefixes subject with "Re: " unless it already carries one.
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
