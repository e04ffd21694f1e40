package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func TestIdempotencyStore(t *testing.T) {
	mr, rdb := newMiniredis(t)
	store := NewIdempotencyStore(rdb, 5*time.Minute)
	ctx := context.Background()
	key := KeyIdem("reserve", "abc")

	locked, err := store.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, locked)

	_, _, ok, err := store.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "a bare lock is not a result")

	locked, err = store.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, store.SaveResult(ctx, key, "f00d", `{"ok":true}`))

	payload, fp, ok, err := store.GetResult(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"ok":true}`, payload)
	assert.Equal(t, "f00d", fp)
	assert.Equal(t, 5*time.Minute, mr.TTL(key))

	require.NoError(t, store.Release(ctx, key))
	_, _, ok, err = store.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
