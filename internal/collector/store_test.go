package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	report := &StoredReport{
		ID:          "r-1",
		ReceivedAt:  time.Now().UTC().Truncate(time.Millisecond),
		Fingerprint: "abc",
		Payload:     samplePayload("ValidationError", "bad value"),
	}
	require.NoError(t, store.Put(ctx, report))

	got, err := store.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, report.Payload, got.Payload)
	assert.Equal(t, "abc", got.Fingerprint)
	assert.True(t, report.ReceivedAt.Equal(got.ReceivedAt))
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PutRequiresID(t *testing.T) {
	store := newTestStore(t)

	assert.Error(t, store.Put(context.Background(), &StoredReport{}))
	assert.Error(t, store.Put(context.Background(), nil))
}

func TestStore_ListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(ctx, &StoredReport{
			ID:         id,
			ReceivedAt: base.Add(time.Duration(i) * time.Minute),
			Payload:    samplePayload("BaseError", id),
		}))
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	limited, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "b", limited[1].ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestStore_Cleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &StoredReport{ID: "old", ReceivedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, store.Put(ctx, &StoredReport{ID: "new", ReceivedAt: time.Now()}))

	n, err := store.Cleanup(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "new")
	assert.NoError(t, err)

	n, err = store.Cleanup(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStoredReport_Entry(t *testing.T) {
	report := &StoredReport{ID: "r", Payload: samplePayload("NotFoundError", "missing")}

	entry := report.Entry()
	assert.Equal(t, "NotFoundError", entry.Name)
	assert.Equal(t, "missing", entry.Message)
	assert.Equal(t, "save", entry.More["functionName"])

	report.Payload.More = "not json"
	assert.Nil(t, report.Entry().More)
}

func TestNewStore_RequiresPath(t *testing.T) {
	_, err := NewStore(StoreConfig{})
	assert.Error(t, err)
}
