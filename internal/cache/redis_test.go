// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"
)

// newTestRedisCache connects to NEWSROOM_TEST_REDIS_URL under a namespace
// unique to the test and removes its keys afterwards.
func newTestRedisCache(t *testing.T) (*RedisCache, string) {
	t.Helper()
	url := os.Getenv("NEWSROOM_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: NEWSROOM_TEST_REDIS_URL not set")
	}

	ns := "newsroom-test:" + t.Name() + ":"
	c, err := NewRedisCache(RedisCacheOptions{URL: url, Namespace: ns, DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create Redis cache: %v", err)
	}
	t.Cleanup(func() {
		_ = c.DeleteByPrefix(context.Background(), ns)
		_ = c.Close()
	})
	return c, ns
}

func TestRedisCache_GroupInvalidation(t *testing.T) {
	c, ns := newTestRedisCache(t)
	ctx := context.Background()

	articles := []string{ns + "articles:id:1", ns + "articles:slug:quake", ns + "articles:list:home"}
	sections := []string{ns + "sections:tree", ns + "sections:count:world"}
	for _, k := range append(append([]string{}, articles...), sections...) {
		mustSet(t, c, k, "v", 0)
	}

	if err := c.DeleteByPrefix(ctx, ns+"articles:"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	for _, k := range articles {
		if _, err := c.Get(ctx, k); err != ErrCacheMiss {
			t.Errorf("%s after articles invalidation: %v, want ErrCacheMiss", k, err)
		}
	}
	for _, k := range sections {
		if _, ok := cached(c, k); !ok {
			t.Errorf("%s dropped with the articles group", k)
		}
	}
}

func TestRedisCache_GroupInvalidationManyKeys(t *testing.T) {
	c, ns := newTestRedisCache(t)
	ctx := context.Background()

	// More keys than one SCAN batch.
	n := scanBatch*2 + 7
	for i := range n {
		mustSet(t, c, ns+"articles:id:"+strconv.Itoa(i), "x", 0)
	}
	mustSet(t, c, ns+"sections:tree", "[politics]", 0)

	if err := c.DeleteByPrefix(ctx, ns+"articles:"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if got := c.Stats().Items; got != 1 {
		t.Errorf("Items = %d, want only the sections key", got)
	}
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c, ns := newTestRedisCache(t)
	ctx := context.Background()
	key := ns + "articles:id:1"

	mustSet(t, c, key, "election", time.Minute)
	if v, _ := cached(c, key); v != "election" {
		t.Errorf("Get = %q, want election", v)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("Get after Delete = %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_TTL(t *testing.T) {
	c, ns := newTestRedisCache(t)
	key := ns + "articles:list:home"

	mustSet(t, c, key, "[1,2]", 100*time.Millisecond)
	if _, ok := cached(c, key); !ok {
		t.Fatal("entry missing right after Set")
	}

	time.Sleep(200 * time.Millisecond)
	if _, err := c.Get(context.Background(), key); err != ErrCacheMiss {
		t.Errorf("Get after TTL = %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_Stats(t *testing.T) {
	c, ns := newTestRedisCache(t)

	mustSet(t, c, ns+"articles:id:1", "a", 0)
	mustSet(t, c, ns+"sections:tree", "b", 0)
	cached(c, ns+"articles:id:1")
	cached(c, ns+"articles:id:1")
	cached(c, ns+"articles:id:2")

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 1 || st.Items != 2 {
		t.Errorf("Stats = %+v", st)
	}
	if st.HitRate < 66 || st.HitRate > 67 {
		t.Errorf("HitRate = %.2f, want about 66.7", st.HitRate)
	}
}

func TestRedisCache_Closed(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != ErrCacheClosed {
		t.Errorf("Get = %v, want ErrCacheClosed", err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != ErrCacheClosed {
		t.Errorf("Set = %v, want ErrCacheClosed", err)
	}
	if err := c.DeleteByPrefix(ctx, "k"); err != ErrCacheClosed {
		t.Errorf("DeleteByPrefix = %v, want ErrCacheClosed", err)
	}
}

func TestNewRedisCache_BadOptions(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"not a url", "invalid-url"},
		{"unreachable", "redis://127.0.0.1:63999/0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewRedisCache(RedisCacheOptions{URL: tt.url, DialTimeout: time.Second})
			if err == nil {
				_ = c.Close()
				t.Error("expected an error")
			}
		})
	}
}
