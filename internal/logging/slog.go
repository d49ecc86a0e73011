package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Attribute keys shared across the codebase so log lines stay greppable.
const (
	KeyAccount  = "account"
	KeyUserHash = "user_hash"
	KeyError    = "error"
	KeyTier     = "tier"
	KeyOutcome  = "outcome"
	KeyThread   = "thread_id"
)

// WithAccount returns a child logger that tags every record with the
// account name.
func WithAccount(logger *slog.Logger, account string) *slog.Logger {
	return logger.With(slog.String(KeyAccount, account))
}

// Account tags a record with the OAuth account name.
func Account(account string) slog.Attr {
	return slog.String(KeyAccount, account)
}

// Tier tags a record with the delivery strategy tier.
func Tier(tier string) slog.Attr {
	return slog.String(KeyTier, tier)
}

// Outcome tags a record with the delivery outcome.
func Outcome(outcome string) slog.Attr {
	return slog.String(KeyOutcome, outcome)
}

// Thread tags a record with a conversation thread ID. Thread IDs are
// opaque provider handles, not PII.
func Thread(id string) slog.Attr {
	return slog.String(KeyThread, id)
}

// Err tags a record with an error message. A nil error yields an empty
// group, which slog drops from output, so call sites can pass a maybe-nil
// error without branching:
//
//	logger.Info("delivery finished", logging.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail hashes an email address into a stable short token so log
// entries can be correlated per user without recording the address itself.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(sum[:8])
}

// UserHash tags a record with the anonymized form of an email address.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken masks a credential for logging. Only the length survives;
// even a short prefix of a JWT leaks its header.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
