package chain

import (
	"context"
	"errors"
	"strconv"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TimestampCache memoizes block timestamps. Entries never change once set.
type TimestampCache interface {
	Get(ctx context.Context, number uint64) (uint64, bool)
	Set(ctx context.Context, number uint64, ts uint64)
}

// MemoryCache is an in-process cache safe for concurrent use.
type MemoryCache struct {
	m *xsync.Map[uint64, uint64]
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: xsync.NewMap[uint64, uint64]()}
}

func (c *MemoryCache) Get(_ context.Context, number uint64) (uint64, bool) {
	return c.m.Load(number)
}

func (c *MemoryCache) Set(_ context.Context, number uint64, ts uint64) {
	c.m.Store(number, ts)
}

// Len returns the number of cached blocks.
func (c *MemoryCache) Len() int {
	return c.m.Size()
}

// RedisCache keeps timestamps in one Redis hash per chain so restarts start warm.
// Redis errors are treated as misses.
type RedisCache struct {
	rdb    *redis.Client
	key    string
	logger *zap.Logger
}

func NewRedisCache(rdb *redis.Client, chainID uint64, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{
		rdb:    rdb,
		key:    "vaultscope:blockts:" + strconv.FormatUint(chainID, 10),
		logger: logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, number uint64) (uint64, bool) {
	ts, err := c.rdb.HGet(ctx, c.key, strconv.FormatUint(number, 10)).Uint64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("redis timestamp lookup failed", zap.Uint64("block", number), zap.Error(err))
		}
		return 0, false
	}
	return ts, true
}

func (c *RedisCache) Set(ctx context.Context, number uint64, ts uint64) {
	if err := c.rdb.HSet(ctx, c.key, strconv.FormatUint(number, 10), ts).Err(); err != nil {
		c.logger.Debug("redis timestamp store failed", zap.Uint64("block", number), zap.Error(err))
	}
}

// LayeredCache checks layers in order and copies hits into the faster layers.
type LayeredCache struct {
	layers []TimestampCache
}

func NewLayeredCache(layers ...TimestampCache) *LayeredCache {
	return &LayeredCache{layers: layers}
}

func (c *LayeredCache) Get(ctx context.Context, number uint64) (uint64, bool) {
	for i, layer := range c.layers {
		ts, ok := layer.Get(ctx, number)
		if !ok {
			continue
		}
		for _, upper := range c.layers[:i] {
			upper.Set(ctx, number, ts)
		}
		return ts, true
	}
	return 0, false
}

func (c *LayeredCache) Set(ctx context.Context, number uint64, ts uint64) {
	for _, layer := range c.layers {
		layer.Set(ctx, number, ts)
	}
}
