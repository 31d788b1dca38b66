package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(StoreConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// fakeClock hands out increasing timestamps so ordering is deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestService(t *testing.T, opts ...Option) (*Service, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	clock := newFakeClock(time.Now().Add(-time.Hour))
	opts = append([]Option{WithLogger(logger), WithClock(clock.Now)}, opts...)
	return NewService(newTestStore(t), opts...), &logs
}

func samplePayload(name, message string) deskerr.ReportPayload {
	return deskerr.ReportPayload{
		ErrorName:   name,
		Message:     message,
		Stack:       "main.save()\n\t/app/save.go:12",
		Platform:    "Linux",
		Version:     "1.2.3",
		Language:    "en-US",
		InstanceID:  "inst-1",
		OpenCount:   3,
		CountryCode: "in",
		More:        `{"functionName":"save"}`,
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func deliver(t *testing.T, s *Service, p deskerr.ReportPayload) string {
	t.Helper()
	reply := s.Handle(context.Background(), mustJSON(t, p))
	require.True(t, reply.OK, "reply error: %s", reply.Error)
	return reply.ID
}
