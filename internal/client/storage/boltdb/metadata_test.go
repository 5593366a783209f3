package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func TestGetOrCreateNodeID(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	first, err := store.GetOrCreateNodeID(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := store.GetOrCreateNodeID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSaveAndGetClock(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	// Изначально, если значение не сохранено — ожидаем 0
	counter, err := store.GetClock(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counter)

	require.NoError(t, store.SaveClock(ctx, 42))

	counter, err = store.GetClock(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), counter)
}

func TestGetClock_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	// Удаляем bucket metadata напрямую
	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketMetadata)
	})
	require.NoError(t, err)

	_, err = store.GetClock(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "metadata bucket not found")
}

func TestLastSeen(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	at, err := store.GetLastSeen(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	want := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	require.NoError(t, store.SaveLastSeen(ctx, "c1", want))

	at, err = store.GetLastSeen(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, want.Equal(at))

	at, err = store.GetLastSeen(ctx, "c2")
	require.NoError(t, err)
	assert.True(t, at.IsZero())
}
