// Package async provides a sink wrapper with a bounded queue so reporting
// never blocks the caller. When the queue is full the oldest report is
// dropped; delivery failures are logged, not returned.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async sink is closed")

// AsyncSinkOption configures the async sink.
type AsyncSinkOption func(*asyncSinkConfig)

type asyncSinkConfig struct {
	queueSize    int
	pollInterval time.Duration
	onDropped    func(count int)
	logger       *slog.Logger
}

// WithQueueSize sets the maximum number of queued reports (default: 256).
func WithQueueSize(size int) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithPollInterval sets how often Flush checks for an empty queue
// (default: 10ms).
func WithPollInterval(d time.Duration) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithOnDropped sets a callback invoked when reports are dropped due to
// queue overflow.
func WithOnDropped(fn func(count int)) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		c.onDropped = fn
	}
}

// WithLogger sets the logger for delivery failures.
func WithLogger(logger *slog.Logger) AsyncSinkOption {
	return func(c *asyncSinkConfig) {
		c.logger = logger
	}
}

type asyncSink struct {
	inner        deskerr.Sink
	queue        chan deskerr.Report
	done         chan struct{}
	closeOnce    sync.Once
	closeErr     error
	closeMu      sync.RWMutex
	closed       bool
	wg           sync.WaitGroup
	pending      atomic.Int64
	pollInterval time.Duration
	onDropped    func(count int)
	logger       *slog.Logger
}

// NewAsyncSink wraps inner with a bounded queue. Write returns immediately;
// reports are delivered by a background goroutine.
func NewAsyncSink(inner deskerr.Sink, opts ...AsyncSinkOption) deskerr.Sink {
	cfg := &asyncSinkConfig{
		queueSize:    256,
		pollInterval: 10 * time.Millisecond,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &asyncSink{
		inner:        inner,
		queue:        make(chan deskerr.Report, cfg.queueSize),
		done:         make(chan struct{}),
		pollInterval: cfg.pollInterval,
		onDropped:    cfg.onDropped,
		logger:       cfg.logger,
	}

	s.wg.Add(1)
	go s.processLoop()

	return s
}

func (s *asyncSink) processLoop() {
	defer s.wg.Done()
	for {
		select {
		case report := <-s.queue:
			s.deliver(report)
		case <-s.done:
			for {
				select {
				case report := <-s.queue:
					s.deliver(report)
				default:
					return
				}
			}
		}
	}
}

func (s *asyncSink) deliver(report deskerr.Report) {
	defer s.pending.Add(-1)
	if err := s.inner.Write(context.Background(), report); err != nil {
		s.logger.Warn("deskerr: async report delivery failed",
			slog.String("event_id", report.EventID),
			slog.String("error", err.Error()),
		)
	}
}

// Write enqueues a report. If the queue is full the oldest report is dropped.
func (s *asyncSink) Write(ctx context.Context, report deskerr.Report) error {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	s.pending.Add(1)
	select {
	case s.queue <- report:
		return nil
	default:
		s.dropOldestAndEnqueue(report)
		return nil
	}
}

func (s *asyncSink) dropOldestAndEnqueue(report deskerr.Report) {
	select {
	case <-s.queue:
		s.pending.Add(-1)
		s.dropped()
	default:
	}

	select {
	case s.queue <- report:
	default:
		s.pending.Add(-1)
		s.dropped()
	}
}

func (s *asyncSink) dropped() {
	if s.onDropped != nil {
		s.onDropped(1)
	}
}

// Flush blocks until every queued report has been handed to the inner sink,
// then flushes it.
func (s *asyncSink) Flush(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for s.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return s.inner.Flush(ctx)
}

// Close delivers what is queued, stops the worker and closes the inner sink.
// The inner sink is closed once; later calls return the same result.
func (s *asyncSink) Close() error {
	s.closeOnce.Do(func() {
		s.closeMu.Lock()
		s.closed = true
		s.closeMu.Unlock()

		close(s.done)
		s.wg.Wait()
		s.closeErr = s.inner.Close()
	})

	return s.closeErr
}
