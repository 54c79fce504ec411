package chain

import (
	"context"
	"fmt"
	"time"

	"vaultScope/internal/model"
)

// BlockSource is the part of Reader the resolver needs.
type BlockSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// Resolver maps wall-clock instants to block numbers.
type Resolver struct {
	src   BlockSource
	cache TimestampCache
}

// NewResolver returns a Resolver. A nil cache gets an in-memory one.
func NewResolver(src BlockSource, cache TimestampCache) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{src: src, cache: cache}
}

// Resolve returns the highest block whose timestamp is at or before target.
// Block timestamps must be non-decreasing.
func (r *Resolver) Resolve(ctx context.Context, target time.Time) (uint64, error) {
	want := target.Unix()

	latest, err := r.src.LatestBlockNumber(ctx)
	if err != nil {
		return 0, model.Wrap(model.ErrChainUnavailable, "resolve block", err)
	}

	ts, err := r.timestamp(ctx, latest)
	if err != nil {
		return 0, err
	}
	if int64(ts) <= want {
		return latest, nil
	}

	ts, err = r.timestamp(ctx, 0)
	if err != nil {
		return 0, err
	}
	if int64(ts) > want {
		return 0, nil
	}

	low, high := uint64(0), latest
	for low < high {
		mid := low + (high-low+1)/2
		ts, err := r.timestamp(ctx, mid)
		if err != nil {
			return 0, err
		}
		if int64(ts) <= want {
			low = mid
		} else {
			high = mid - 1
		}
	}
	return low, nil
}

func (r *Resolver) timestamp(ctx context.Context, number uint64) (uint64, error) {
	if ts, ok := r.cache.Get(ctx, number); ok {
		return ts, nil
	}
	ts, err := r.src.BlockTimestamp(ctx, number)
	if err != nil {
		return 0, model.Wrap(model.ErrChainUnavailable, fmt.Sprintf("timestamp of block %d", number), err)
	}
	r.cache.Set(ctx, number, ts)
	return ts, nil
}
