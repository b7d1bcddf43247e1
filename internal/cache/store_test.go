// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *MemoryCache) {
	t.Helper()
	backend := newTestMemoryCache()
	t.Cleanup(func() { _ = backend.Close() })
	return NewStore(backend, "news:", nil), backend
}

func TestStore_GetDefault(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.Equal(t, 42, Get(ctx, s, "missing", 42))

	require.NoError(t, Set(ctx, s, "answer", 7, time.Minute))
	assert.Equal(t, 7, Get(ctx, s, "answer", 42))
}

func TestStore_KeysArePrefixed(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, Set(ctx, s, "article:1", "x", time.Minute))

	raw, err := backend.Get(ctx, "news:article:1")
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(raw))
	assert.Equal(t, "news:article:1", s.Key("article:1"))
}

func TestStore_DeleteAndDeleteGroup(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, Set(ctx, s, "article:1", "a", time.Minute))
	require.NoError(t, Set(ctx, s, "article:2", "b", time.Minute))
	require.NoError(t, Set(ctx, s, "section:1", "c", time.Minute))

	require.NoError(t, s.Delete(ctx, "article:1"))
	assert.Equal(t, "", Get(ctx, s, "article:1", ""))
	assert.Equal(t, "b", Get(ctx, s, "article:2", ""))

	require.NoError(t, s.DeleteGroup(ctx, "article:"))
	assert.Equal(t, "", Get(ctx, s, "article:2", ""))
	assert.Equal(t, "c", Get(ctx, s, "section:1", ""))

	require.NoError(t, s.DeleteGroup(ctx, "section:"))
	assert.Equal(t, "", Get(ctx, s, "section:1", ""))
	assert.Zero(t, backend.Stats().Items)
}

func TestRemember_CachesResult(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	calls := 0
	fn := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	first, err := Remember(ctx, s, "list", time.Minute, fn)
	require.NoError(t, err)
	second, err := Remember(ctx, s, "list", time.Minute, fn)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestRemember_ErrorIsNotCached(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := Remember(ctx, s, "k", time.Minute, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	v, err := Remember(ctx, s, "k", time.Minute, func(context.Context) (int, error) { return 5, nil })
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestRemember_ExpiredEntryIsRecomputed(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var calls atomic.Int32
	fn := func(context.Context) (int32, error) { return calls.Add(1), nil }

	v, err := Remember(ctx, s, "short", 20*time.Millisecond, fn)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	time.Sleep(40 * time.Millisecond)

	v, err = Remember(ctx, s, "short", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestRemember_ConcurrentCallersShareProducer(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "value", nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Remember(ctx, s, "hot", time.Minute, fn)
			if err == nil {
				results[i] = v
			}
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "value", v)
	}
}

func TestNewCache_MemoryByDefault(t *testing.T) {
	c, backend := NewCache(DefaultConfig(), nil)
	defer func() { _ = c.Close() }()

	assert.Equal(t, BackendMemory, backend)
	_, ok := c.(*MemoryCache)
	assert.True(t, ok)
}

func TestNewCache_RedisFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisURL = "redis://localhost:63999/0"

	c, backend := NewCache(cfg, nil)
	defer func() { _ = c.Close() }()

	assert.Equal(t, BackendMemory, backend)
}
