// Package logging carries the shared slog attribute helpers for
// threadkeeper. Every component logs through log/slog; this package pins
// the attribute keys and hides PII before it reaches a handler.
//
// Typical call sites:
//
//	logger := logging.WithAccount(slog.Default(), account)
//	logger.Info("digest delivered",
//	    logging.Outcome("replied"),
//	    logging.Thread(threadID))
//
// Recipient addresses never appear verbatim; log the hashed form instead:
//
//	logger.Info("digest sent", logging.UserHash(recipient))
//
// Credentials go through SanitizeToken, which records only the length.
package logging
