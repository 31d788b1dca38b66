// Package multi provides a sink that fans out to multiple sinks.
// All sinks receive all reports; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

type multiSink struct {
	sinks []deskerr.Sink
}

// NewMultiSink creates a sink that writes to every sink in order.
// A failing sink does not stop the others; errors are joined.
func NewMultiSink(sinks ...deskerr.Sink) deskerr.Sink {
	return &multiSink{sinks: sinks}
}

func (s *multiSink) Write(ctx context.Context, report deskerr.Report) error {
	return s.each(func(sink deskerr.Sink) error {
		return sink.Write(ctx, report)
	})
}

func (s *multiSink) Flush(ctx context.Context) error {
	return s.each(func(sink deskerr.Sink) error {
		return sink.Flush(ctx)
	})
}

func (s *multiSink) Close() error {
	return s.each(deskerr.Sink.Close)
}

func (s *multiSink) each(fn func(deskerr.Sink) error) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := fn(sink); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
