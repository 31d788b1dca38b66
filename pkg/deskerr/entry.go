// entry.go defines the log entry created for every handled error.

package deskerr

import "time"

// Well-known keys in Entry.More.
const (
	MoreCause        = "cause"
	MoreDoc          = "doc"
	MoreErrorMessage = "errorMessage"
	MoreFunctionName = "functionName"
	MoreFunctionArgs = "functionArgs"
)

// Entry is one captured failure.
// Entries are shared by pointer between the log, the reporter and the issue
// composer; treat them as read-only once recorded.
type Entry struct {
	// ID is a unique identifier for the entry (UUID).
	ID string

	// Timestamp is when the error was observed.
	Timestamp time.Time

	// Name is the error kind name, e.g. "ValidationError".
	Name string

	// Message is the human-readable description.
	Message string

	// Stack is the optional stack trace. Entries without one are never
	// reported remotely.
	Stack string

	// More holds contextual key-value pairs (cause, doc, errorMessage,
	// functionName, functionArgs, ...).
	More map[string]any

	// Fingerprint groups similar entries for a human reader.
	Fingerprint string
}

// Reportable reports whether the entry may be sent to a remote collector.
func (e *Entry) Reportable() bool {
	return e != nil && e.Stack != ""
}
