package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRedis map[string]string

func (m memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m[key]; ok {
		return false, nil
	}
	m[key] = value.(string)
	return true, nil
}

func (m memoryRedis) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	if v, ok := m[key]; !ok || v != value {
		return false, nil
	}
	delete(m, key)
	return true, nil
}

func TestRedisLockSingleHolder(t *testing.T) {
	store := memoryRedis{}
	first, err := NewRedisLock(store, "", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, store, DefaultLockKey)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// A non-owner release leaves the key alone.
	require.NoError(t, second.Release(ctx))
	require.Contains(t, store, DefaultLockKey)

	require.NoError(t, first.Release(ctx))
	require.NotContains(t, store, DefaultLockKey)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	store := memoryRedis{}
	lock, err := NewRedisLock(store, "k", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate TTL expiry followed by another holder.
	store["k"] = "someone-else"
	require.NoError(t, lock.Release(ctx))
	require.Equal(t, "someone-else", store["k"])
}
