package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRedis struct {
	values map[string]string
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) DeleteIfEquals(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

const lockKey = "mr:job_lock:maintenance"

func TestRedisLockIsExclusive(t *testing.T) {
	store := &memoryRedis{values: map[string]string{}}
	ctx := context.Background()
	first, err := NewRedisLock(store, lockKey, time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, lockKey, time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire should fail while held")

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, lockKey, "non-holder release must not drop the lock")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "lock should be free after holder release")
}

func TestRedisLockReleaseAfterLeaseLost(t *testing.T) {
	store := &memoryRedis{values: map[string]string{}}
	ctx := context.Background()
	stale, err := NewRedisLock(store, lockKey, time.Minute)
	require.NoError(t, err)

	ok, err := stale.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// lease expired and another worker took over
	store.values[lockKey] = "other-worker"

	require.NoError(t, stale.Release(ctx))
	assert.Equal(t, "other-worker", store.values[lockKey])
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "k", 0)
	assert.Error(t, err)

	_, err = NewRedisLock(&memoryRedis{}, "", 0)
	assert.Error(t, err)

	lock, err := NewRedisLock(&memoryRedis{}, "k", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.ttl)
}
