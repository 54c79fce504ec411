package chain

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewRedisCache(client, 1, zaptest.NewLogger(t))
	ctx := context.Background()

	_, ok := cache.Get(ctx, 42)
	assert.False(t, ok)

	cache.Set(ctx, 42, 1_700_000_000)
	ts, ok := cache.Get(ctx, 42)
	require.True(t, ok)
	assert.Equal(t, uint64(1_700_000_000), ts)
	assert.Equal(t, "1700000000", mr.HGet("vaultscope:blockts:1", "42"))
}

func TestRedisCacheDownIsMiss(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	cache := NewRedisCache(client, 1, zaptest.NewLogger(t))
	mr.Close()

	_, ok := cache.Get(context.Background(), 1)
	assert.False(t, ok)
	cache.Set(context.Background(), 1, 2)
}

func TestLayeredCacheWarmsUpperLayer(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	persistent := NewRedisCache(client, 1, nil)
	persistent.Set(ctx, 7, 99)

	mem := NewMemoryCache()
	layered := NewLayeredCache(mem, persistent)

	ts, ok := layered.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, uint64(99), ts)

	ts, ok = mem.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, uint64(99), ts)

	layered.Set(ctx, 8, 100)
	ts, ok = persistent.Get(ctx, 8)
	require.True(t, ok)
	assert.Equal(t, uint64(100), ts)
}

func TestResolverWithRedisSurvivesRestart(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	chain := twelveSecondChain(2048)

	first := NewResolver(chain, NewLayeredCache(NewMemoryCache(), NewRedisCache(client, 1, nil)))
	want, err := first.Resolve(ctx, unix(chain.ts[777]+5))
	require.NoError(t, err)
	fetched := chain.fetches.Load()

	second := NewResolver(chain, NewLayeredCache(NewMemoryCache(), NewRedisCache(client, 1, nil)))
	got, err := second.Resolve(ctx, unix(chain.ts[777]+5))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, fetched, chain.fetches.Load())
}
