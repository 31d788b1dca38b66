// Package noop provides a sink that discards all reports.
// Useful for tests and for switching remote reporting off.
package noop

import (
	"context"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

type noopSink struct{}

// NewNoopSink creates a sink that discards all reports.
func NewNoopSink() deskerr.Sink {
	return &noopSink{}
}

func (s *noopSink) Write(ctx context.Context, report deskerr.Report) error {
	return nil
}

func (s *noopSink) Flush(ctx context.Context) error {
	return nil
}

func (s *noopSink) Close() error {
	return nil
}
