package state

// Property keys used by the thread continuity manager.
const (
	// KeyThreadID holds the ID of the conversation the next digest
	// should be delivered into. Absent until the first successful send.
	KeyThreadID = "threadId"

	// KeyLastThreadID holds the previous conversation ID. It is written
	// immediately before KeyThreadID is replaced and never deleted, only
	// superseded by the next replacement.
	KeyLastThreadID = "lastThreadId"
)

// Store is the persistence capability the delivery pipeline depends on.
// Implementations store small string properties between runs.
type Store interface {
	// Get returns the value stored under key. ok is false when the key
	// has never been set. err is reserved for storage failures; a missing
	// key is not an error.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
}
