package multi

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

type recordingSink struct {
	mu       sync.Mutex
	reports  []deskerr.Report
	flushed  int
	closed   bool
	writeErr error
	closeErr error
}

func (s *recordingSink) Write(ctx context.Context, report deskerr.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.reports = append(s.reports, report)
	return nil
}

func (s *recordingSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed++
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}

func TestMultiSink_WritesToAll(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	sink := NewMultiSink(a, b)

	require.NoError(t, sink.Write(context.Background(), deskerr.Report{EventID: "1"}))

	assert.Len(t, a.reports, 1)
	assert.Len(t, b.reports, 1)
}

func TestMultiSink_ContinuesAfterFailure(t *testing.T) {
	errA := errors.New("a failed")
	a, b := &recordingSink{writeErr: errA}, &recordingSink{}
	sink := NewMultiSink(a, b)

	err := sink.Write(context.Background(), deskerr.Report{EventID: "1"})

	assert.ErrorIs(t, err, errA)
	assert.Len(t, b.reports, 1)
}

func TestMultiSink_FlushAndClose(t *testing.T) {
	errClose := errors.New("close failed")
	a, b := &recordingSink{closeErr: errClose}, &recordingSink{}
	sink := NewMultiSink(a, b)

	require.NoError(t, sink.Flush(context.Background()))
	assert.Equal(t, 1, a.flushed)
	assert.Equal(t, 1, b.flushed)

	assert.ErrorIs(t, sink.Close(), errClose)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMultiSink_Empty(t *testing.T) {
	sink := NewMultiSink()
	assert.NoError(t, sink.Write(context.Background(), deskerr.Report{}))
	assert.NoError(t, sink.Close())
}
