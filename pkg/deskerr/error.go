// error.go provides the tagged error variant and the capability lookups the
// pipeline uses to name, trace and gate errors.

package deskerr

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Named is implemented by errors that carry an explicit kind name.
type Named interface {
	Name() string
}

// Stacked is implemented by errors that carry a textual stack trace.
type Stacked interface {
	StackTrace() string
}

// Persistable is implemented by errors that decide whether they should be
// recorded and reported. Errors without it are persisted.
type Persistable interface {
	ShouldStore() bool
}

// Error is an application error tagged with a Kind.
type Error struct {
	Kind    Kind
	Message string

	// Stack is captured at construction. An empty stack keeps the error out
	// of remote reports.
	Stack string

	// SkipStore marks the error as expected: it is neither recorded,
	// reported nor toasted.
	SkipStore bool

	cause error
}

// New creates an Error of the given kind and captures the caller's stack.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Stack: callers(3)}
}

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Stack: callers(3)}
}

// Wrap creates an Error of the given kind around cause. A cause that opts
// out of persistence (ShouldPersist is false) makes the wrapper opt out too.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{
		Kind:      kind,
		Message:   msg,
		Stack:     callers(3),
		SkipStore: cause != nil && !ShouldPersist(cause),
		cause:     cause,
	}
}

// Expected returns a copy of e that is skipped by the recording pipeline.
func (e *Error) Expected() *Error {
	cp := *e
	cp.SkipStore = true
	return &cp
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Name returns the kind's wire name.
func (e *Error) Name() string {
	return e.Kind.String()
}

// StackTrace returns the stack captured at construction.
func (e *Error) StackTrace() string {
	return e.Stack
}

// ShouldStore reports whether the error goes through recording.
func (e *Error) ShouldStore() bool {
	return !e.SkipStore
}

// NameOf returns the kind name of err, or "Error" when err does not name
// itself.
func NameOf(err error) string {
	var n Named
	if errors.As(err, &n) {
		if name := n.Name(); name != "" {
			return name
		}
	}
	return fallbackLabel
}

// StackOf returns the first stack trace found in err's chain.
func StackOf(err error) string {
	var s Stacked
	if errors.As(err, &s) {
		return s.StackTrace()
	}
	return ""
}

// MessageOf returns the error's own message. For *Error this excludes the
// cause so the cause is not reported twice.
func MessageOf(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// ShouldPersist reports whether err should be recorded, reported and toasted.
// It defaults to true.
func ShouldPersist(err error) bool {
	var p Persistable
	if errors.As(err, &p) {
		return p.ShouldStore()
	}
	return true
}

// callers formats the current goroutine's frames, skipping skip frames.
func callers(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return ""
	}

	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if strings.HasPrefix(frame.Function, "runtime.") {
			if !more {
				break
			}
			continue
		}
		fmt.Fprintf(&sb, "%s()\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more || frame.Function == "main.main" {
			break
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
