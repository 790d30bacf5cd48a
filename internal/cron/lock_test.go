package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error) {
	if m.data[key] != owner {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func TestRedisLockExclusive(t *testing.T) {
	store := newMemoryLockStore()
	first, err := NewRedisLock(store, "fincore:lock:cron-worker:test", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "fincore:lock:cron-worker:test", 0)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, defaultLockTTL, store.ttls["fincore:lock:cron-worker:test"])

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, second.Release(context.Background()))
	require.Contains(t, store.data, "fincore:lock:cron-worker:test", "non-owner must not release")

	require.NoError(t, first.Release(context.Background()))
	require.NotContains(t, store.data, "fincore:lock:cron-worker:test")
}

func TestRedisLockReleaseAfterExpiryKeepsNewOwner(t *testing.T) {
	store := newMemoryLockStore()
	lock, err := NewRedisLock(store, "k", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// simulate TTL expiry followed by another instance taking over
	store.data["k"] = "someone-else"

	require.NoError(t, lock.Release(context.Background()))
	require.Equal(t, "someone-else", store.data["k"])
}

func TestRedisLockValidation(t *testing.T) {
	_, err := NewRedisLock(nil, "k", 0)
	require.Error(t, err)
	_, err = NewRedisLock(newMemoryLockStore(), "", 0)
	require.Error(t, err)
}
