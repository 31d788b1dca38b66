// sink.go defines the Sink interface for report destinations.

package deskerr

import "context"

// Sink is the destination for reports.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Write delivers a report. Called after scrubbing.
	// Implementations should be idempotent on Report.EventID when possible.
	Write(ctx context.Context, report Report) error

	// Flush ensures any buffered reports are delivered.
	// For synchronous sinks, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	// After Close is called, Write and Flush should return errors.
	Close() error
}

// noopSinkInternal is an internal noop sink to avoid import cycles.
type noopSinkInternal struct{}

func (s *noopSinkInternal) Write(ctx context.Context, report Report) error {
	return nil
}

func (s *noopSinkInternal) Flush(ctx context.Context) error {
	return nil
}

func (s *noopSinkInternal) Close() error {
	return nil
}
