// log.go provides the bounded, process-wide error log.

package deskerr

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultLogCapacity is the number of entries kept before the oldest is
// evicted.
const DefaultLogCapacity = 1000

// EntryStore receives every appended entry, e.g. to keep a session's errors
// on disk past ring-buffer eviction.
type EntryStore interface {
	Save(ctx context.Context, entry *Entry) error
}

// LogOption configures a Log.
type LogOption func(*Log)

// WithEntryStore mirrors appended entries into store.
func WithEntryStore(store EntryStore) LogOption {
	return func(l *Log) {
		l.store = store
	}
}

// WithLogLogger sets the logger used when the entry store fails.
func WithLogLogger(logger *slog.Logger) LogOption {
	return func(l *Log) {
		l.logger = logger
	}
}

// Log is a fixed-capacity ring buffer of entries. It is safe for concurrent
// use; order reflects append order, not the order errors were raised.
type Log struct {
	mu       sync.RWMutex
	entries  []*Entry
	maxSize  int
	writeIdx int

	store  EntryStore
	logger *slog.Logger
}

// NewLog creates a log holding at most capacity entries. A non-positive
// capacity uses DefaultLogCapacity.
func NewLog(capacity int, opts ...LogOption) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	l := &Log{maxSize: capacity, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append adds an entry, evicting the oldest if the log is full.
func (l *Log) Append(ctx context.Context, entry *Entry) {
	l.mu.Lock()
	if len(l.entries) < l.maxSize {
		l.entries = append(l.entries, entry)
	} else {
		l.entries[l.writeIdx] = entry
		l.writeIdx = (l.writeIdx + 1) % l.maxSize
	}
	store := l.store
	l.mu.Unlock()

	if store != nil {
		if err := store.Save(ctx, entry); err != nil {
			l.logger.Warn("deskerr: failed to persist log entry",
				slog.String("entry_id", entry.ID),
				slog.Any("error", err),
			)
		}
	}
}

// Entries returns the entries oldest first.
func (l *Log) Entries() []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Entry, len(l.entries))
	if len(l.entries) < l.maxSize {
		copy(result, l.entries)
		return result
	}

	// writeIdx points at the oldest entry once the buffer is full.
	copy(result, l.entries[l.writeIdx:])
	copy(result[len(l.entries)-l.writeIdx:], l.entries[:l.writeIdx])
	return result
}

// Last returns the most recently appended entry, or nil.
func (l *Log) Last() *Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 {
		return nil
	}
	if len(l.entries) < l.maxSize {
		return l.entries[len(l.entries)-1]
	}
	return l.entries[(l.writeIdx-1+l.maxSize)%l.maxSize]
}

// Len returns the number of entries held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Capacity returns the maximum number of entries held.
func (l *Log) Capacity() int {
	return l.maxSize
}

// Clear drops all entries. The entry store is not touched.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.writeIdx = 0
}

var defaultLog = NewLog(DefaultLogCapacity)

// DefaultLog returns the process-wide log used by handlers that were not
// given one.
func DefaultLog() *Log {
	return defaultLog
}

// ErrorLog returns a snapshot of the process-wide log, oldest first.
func ErrorLog() []*Entry {
	return defaultLog.Entries()
}

// ClearErrorLog empties the process-wide log. Call it at shutdown or in
// test setup.
func ClearErrorLog() {
	defaultLog.Clear()
}
