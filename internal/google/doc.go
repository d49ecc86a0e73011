// Package google provides OAuth2 authentication and token management for Google APIs.
//
// Tokens are stored per account as files in the user cache directory, so one
// installation can deliver digests from several Google accounts. The
// TokenProvider interface allows other token sources to be plugged in; the
// CLI uses the file-based provider.
//
// OAuth client credentials are read from the GOOGLE_CLIENT_ID and
// GOOGLE_CLIENT_SECRET environment variables rather than being compiled in.
package google
