package async

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

// gatedSink blocks each Write until the gate is opened.
type gatedSink struct {
	mu       sync.Mutex
	reports  []deskerr.Report
	gate     chan struct{}
	writeErr error
	closed   bool
}

func newGatedSink(open bool) *gatedSink {
	s := &gatedSink{gate: make(chan struct{})}
	if open {
		close(s.gate)
	}
	return s
}

func (s *gatedSink) Write(ctx context.Context, report deskerr.Report) error {
	<-s.gate
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.reports = append(s.reports, report)
	return nil
}

func (s *gatedSink) Flush(ctx context.Context) error {
	return nil
}

func (s *gatedSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *gatedSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.reports))
	for i, r := range s.reports {
		ids[i] = r.EventID
	}
	return ids
}

func TestAsyncSink_WriteDoesNotBlock(t *testing.T) {
	inner := newGatedSink(false)
	sink := NewAsyncSink(inner, WithQueueSize(4))

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := sink.Write(context.Background(), deskerr.Report{EventID: "evt"}); err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Write took %v while inner sink was blocked", elapsed)
	}

	close(inner.gate)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if got := len(inner.ids()); got != 3 {
		t.Errorf("delivered %d reports, want 3", got)
	}
}

func TestAsyncSink_DropsOldestWhenFull(t *testing.T) {
	inner := newGatedSink(false)
	var dropped atomic.Int32
	sink := NewAsyncSink(inner,
		WithQueueSize(2),
		WithOnDropped(func(count int) { dropped.Add(int32(count)) }),
	)

	// The first report is picked up by the worker and blocks on the gate.
	_ = sink.Write(context.Background(), deskerr.Report{EventID: "0"})
	deadline := time.Now().Add(time.Second)
	for len(sink.(*asyncSink).queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	for _, id := range []string{"1", "2", "3", "4"} {
		_ = sink.Write(context.Background(), deskerr.Report{EventID: id})
	}

	close(inner.gate)
	if err := sink.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	_ = sink.Close()

	if dropped.Load() != 2 {
		t.Errorf("dropped = %d, want 2", dropped.Load())
	}
	got := strings.Join(inner.ids(), ",")
	if got != "0,3,4" {
		t.Errorf("delivered = %s, want 0,3,4", got)
	}
}

func TestAsyncSink_FlushWaitsForDelivery(t *testing.T) {
	inner := newGatedSink(true)
	sink := NewAsyncSink(inner)
	defer sink.Close()

	for i := 0; i < 10; i++ {
		_ = sink.Write(context.Background(), deskerr.Report{EventID: "e"})
	}
	if err := sink.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if got := len(inner.ids()); got != 10 {
		t.Errorf("delivered %d reports after Flush, want 10", got)
	}
}

func TestAsyncSink_FlushHonorsContext(t *testing.T) {
	inner := newGatedSink(false)
	sink := NewAsyncSink(inner)
	_ = sink.Write(context.Background(), deskerr.Report{EventID: "stuck"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sink.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Flush error = %v, want deadline exceeded", err)
	}

	close(inner.gate)
	_ = sink.Close()
}

func TestAsyncSink_WriteAfterClose(t *testing.T) {
	inner := newGatedSink(true)
	sink := NewAsyncSink(inner)

	if err := sink.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !inner.closed {
		t.Error("inner sink should be closed")
	}
	if err := sink.Write(context.Background(), deskerr.Report{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close returned error: %v", err)
	}
}

func TestAsyncSink_LogsDeliveryFailure(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewTextHandler(&lockedWriter{w: &buf, mu: &mu}, nil))

	inner := newGatedSink(true)
	inner.writeErr = errors.New("collector down")
	sink := NewAsyncSink(inner, WithLogger(logger))

	if err := sink.Write(context.Background(), deskerr.Report{EventID: "evt-9"}); err != nil {
		t.Fatalf("Write should not surface delivery errors: %v", err)
	}
	_ = sink.Flush(context.Background())
	_ = sink.Close()

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(buf.String(), "collector down") || !strings.Contains(buf.String(), "evt-9") {
		t.Errorf("log output = %q", buf.String())
	}
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// countingCloseSink counts Close calls and fails each one.
type countingCloseSink struct {
	*gatedSink
	closes atomic.Int32
}

func (s *countingCloseSink) Close() error {
	s.closes.Add(1)
	return errors.New("inner close failed")
}

func TestAsyncSink_ClosesInnerOnce(t *testing.T) {
	inner := &countingCloseSink{gatedSink: newGatedSink(true)}
	sink := NewAsyncSink(inner)

	first := sink.Close()
	second := sink.Close()

	if first == nil || first.Error() != "inner close failed" {
		t.Errorf("first Close = %v, want inner error", first)
	}
	if second != first {
		t.Errorf("second Close = %v, want the first result %v", second, first)
	}
	if got := inner.closes.Load(); got != 1 {
		t.Errorf("inner Close called %d times, want 1", got)
	}
}
