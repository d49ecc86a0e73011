package google

import (
	gmail "google.golang.org/api/gmail/v1"
	sheets "google.golang.org/api/sheets/v4"
)

// DefaultOAuthScopes are the Google OAuth scopes threadkeeper requests.
//
// The scopes provide access to:
//   - Gmail: full access (read threads, create drafts, send)
//   - Google Sheets: read-only
var DefaultOAuthScopes = []string{
	// Gmail scope (includes drafts and send)
	gmail.MailGoogleComScope,

	// Google Sheets scope
	sheets.SpreadsheetsReadonlyScope,
}
