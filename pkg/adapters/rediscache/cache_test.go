package rediscache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/graft/pkg/adapters/rediscache"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

func newTestCache(t *testing.T) (*rediscache.Cache, *miniredis.Miniredis) {
	t.Helper()

	// Setup miniredis
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return rediscache.NewFromClient(client), mr
}

func TestRedisCache_Contract(t *testing.T) {
	cache, _ := newTestCache(t)
	ports.RunCacheContract(t, cache)
}

func TestRedisCache_Expiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "doc", []byte("v"), 50*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// miniredis clocks advance manually.
	mr.FastForward(100 * time.Millisecond)

	if _, err := cache.Get(ctx, "doc"); err != domain.ErrCacheMiss {
		t.Fatalf("Expected cache miss after expiry, got %v", err)
	}
}

func TestRedisCache_PrefixIsolation(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	a := rediscache.NewFromClient(client, rediscache.WithPrefix("a:"))
	b := rediscache.NewFromClient(client, rediscache.WithPrefix("b:"))

	ctx := context.Background()
	if err := a.Set(ctx, "k", []byte("va"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := b.Get(ctx, "k"); err != domain.ErrCacheMiss {
		t.Fatalf("Expected miss on the other prefix, got %v", err)
	}
}
