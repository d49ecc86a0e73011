// Package gmail wraps the Gmail API surface threadkeeper delivers
// through: thread lookup by ID and by full-text search, threading header
// extraction from raw RFC 2822 messages, and sending either directly or
// via the draft path.
//
// Clients authenticate per account through the shared Google OAuth2 flow;
// tokens live under the user cache directory (~/.cache/threadkeeper/).
//
// A reply that continues an existing conversation looks like:
//
//	client, err := gmail.NewClient(ctx)
//	if err != nil {
//	    return err
//	}
//
//	ref, err := client.FindThread(ctx, threadID)
//	if err != nil {
//	    return err
//	}
//	hdrs, err := client.ThreadingHeaders(ctx, ref.FirstMessageID)
//	if err != nil {
//	    return err
//	}
//
//	sent, err := client.Send(ctx, &gmail.OutgoingMessage{
//	    To:         []string{recipient},
//	    Subject:    gmail.ReplySubject(ref.Subject),
//	    Body:       body,
//	    InReplyTo:  hdrs.MessageID,
//	    References: gmail.BuildReferences(hdrs.References, hdrs.MessageID),
//	    ThreadID:   ref.ID,
//	})
package gmail
