package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"runpad/internal/common/cache"
)

func newTestCache(t *testing.T) (cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new redis cache failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestSetGet(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "submissions:s1", `{"id":"s1"}`, 300*time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, err := c.Get(ctx, "submissions:s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != `{"id":"s1"}` {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestGetMissReturnsEmpty(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)

	value, err := c.Get(context.Background(), "submissions:missing")
	if err != nil {
		t.Fatalf("expected nil error on miss, got %v", err)
	}
	if value != "" {
		t.Fatalf("expected empty string on miss, got %q", value)
	}
}

func TestSetHonorsTTL(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "submissions:s1", "payload", 300*time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	ttl, err := c.TTL(ctx, "submissions:s1")
	if err != nil {
		t.Fatalf("ttl failed: %v", err)
	}
	if ttl <= 0 || ttl > 300*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(301 * time.Second)
	value, err := c.Get(ctx, "submissions:s1")
	if err != nil {
		t.Fatalf("get after expiry failed: %v", err)
	}
	if value != "" {
		t.Fatalf("expected entry expired, got %q", value)
	}
}

func TestKeysMatchesPrefix(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "submissions:s1", "a", 0)
	_ = c.Set(ctx, "submissions:s2", "b", 0)
	_ = c.Set(ctx, "rows_count", "2", 0)

	keys, err := c.Keys(ctx, "submissions:*")
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d: %v", len(keys), keys)
	}
	for _, key := range keys {
		if key == "rows_count" {
			t.Fatalf("counter key leaked into pattern match")
		}
	}
}

func TestMGetPreservesOrderAndMisses(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "submissions:s1", "one", 0)
	_ = c.Set(ctx, "submissions:s3", "three", 0)

	values, err := c.MGet(ctx, "submissions:s1", "submissions:s2", "submissions:s3")
	if err != nil {
		t.Fatalf("mget failed: %v", err)
	}
	want := []string{"one", "", "three"}
	if len(values) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(values))
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("position %d: expected %q, got %q", i, want[i], values[i])
		}
	}
}

func TestIncrDecr(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()

	count, err := c.Incr(ctx, "rows_count")
	if err != nil {
		t.Fatalf("incr failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	if count, _ = c.Incr(ctx, "rows_count"); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if count, _ = c.Decr(ctx, "rows_count"); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
}

func TestSetNX(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", "a", time.Minute)
	if err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected first setnx to win")
	}
	ok, err = c.SetNX(ctx, "lock", "b", time.Minute)
	if err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	if ok {
		t.Fatalf("expected second setnx to lose")
	}
	if value, _ := c.Get(ctx, "lock"); value != "a" {
		t.Fatalf("expected original value preserved, got %q", value)
	}
}

func TestDelAndExists(t *testing.T) {
	t.Parallel()
	c, _ := newTestCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "submissions:s1", "a", 0)
	_ = c.Set(ctx, "submissions:s2", "b", 0)

	count, err := c.Exists(ctx, "submissions:s1", "submissions:s2", "submissions:s3")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 existing keys, got %d", count)
	}

	if err := c.Del(ctx, "submissions:s1"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	count, _ = c.Exists(ctx, "submissions:s1")
	if count != 0 {
		t.Fatalf("expected key gone, got %d", count)
	}
}

func TestExpire(t *testing.T) {
	t.Parallel()
	c, mr := newTestCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "submissions:s1", "a", 0)
	if err := c.Expire(ctx, "submissions:s1", 10*time.Second); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	mr.FastForward(11 * time.Second)
	if value, _ := c.Get(ctx, "submissions:s1"); value != "" {
		t.Fatalf("expected key expired, got %q", value)
	}
}
