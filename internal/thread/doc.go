// Package thread keeps a recurring digest in one ongoing Gmail conversation.
//
// A Manager remembers the conversation between runs through a state.Store
// and delivers each digest by walking a fixed fallback chain:
//
//  1. Look the remembered thread up directly by its ID.
//  2. If that fails, search for the ID as a token in message bodies.
//  3. Reply into the found thread with In-Reply-To/References taken from the
//     thread's first message, or without them when the headers cannot be
//     extracted (degraded reply).
//  4. If the reply cannot be delivered at all, start a fresh thread, persist
//     its ID and archive the previous one.
//
// Only a failure to start that fresh thread fails the run.
//
// Usage:
//
//	client, err := gmail.NewClient(ctx)
//	if err != nil {
//		return err
//	}
//	store, err := state.NewFileStore(path)
//	if err != nil {
//		return err
//	}
//	manager, err := thread.NewManager(client, store, thread.Config{
//		Recipient: "team@example.com",
//		Subject:   "Weekly status",
//	})
//	if err != nil {
//		return err
//	}
//	result, err := manager.Deliver(ctx, htmlBody)
package thread
