package instrumentation

import "strings"

// ExtractUserDomain reduces an email address to its domain for metric and
// log labels. Full addresses are unbounded user input and would blow up
// label cardinality; the domain keeps the label space small. Anything that
// does not look like one address returns "unknown".
func ExtractUserDomain(email string) string {
	_, domain, found := strings.Cut(email, "@")
	if !found || domain == "" || strings.Contains(domain, "@") {
		return "unknown"
	}
	return domain
}

// Operation label values for the Google API metrics. Status, OAuth and
// service labels live in config.go.
const (
	OperationGet       = "get"
	OperationSearch    = "search"
	OperationSend      = "send"
	OperationSendDraft = "send_draft"
)
