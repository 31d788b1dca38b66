// Package ipc provides the sink that delivers reports to the collector over
// the application's inter-process request channel.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("ipc sink is closed")

// Option configures the ipc sink.
type Option func(*ipcSink)

// WithAction overrides the action name (default: deskerr.ActionSendError).
func WithAction(action string) Option {
	return func(s *ipcSink) {
		if action != "" {
			s.action = action
		}
	}
}

// WithTimeout bounds each delivery. Zero means no timeout beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(s *ipcSink) {
		s.timeout = d
	}
}

type ipcSink struct {
	invoker deskerr.Invoker
	action  string
	timeout time.Duration
	closed  atomic.Bool
}

// NewSink creates a sink that invokes the send-error action with each
// report's payload.
func NewSink(invoker deskerr.Invoker, opts ...Option) deskerr.Sink {
	s := &ipcSink{
		invoker: invoker,
		action:  deskerr.ActionSendError,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ipcSink) Write(ctx context.Context, report deskerr.Report) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.invoker.Invoke(ctx, s.action, report.Payload); err != nil {
		return fmt.Errorf("invoke %s for event %s: %w", s.action, report.EventID, err)
	}
	return nil
}

func (s *ipcSink) Flush(ctx context.Context) error {
	return nil
}

func (s *ipcSink) Close() error {
	s.closed.Store(true)
	return nil
}
