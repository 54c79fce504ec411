// Package jobs fans independent per-vault runs out over a bounded worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// RunEach calls fn for every item with at most workers running at once.
// Item failures do not stop the others; they are joined in item order.
// Cancelling ctx stops items that have not started yet.
func RunEach[T any](ctx context.Context, workers int, items []T, name func(T) string, fn func(context.Context, T) error, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}
	if len(items) == 0 {
		return nil
	}

	errs := make([]error, len(items))
	pool := pond.NewPool(workers)
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i, item := range items {
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				errs[i] = err
				return
			}
			if err := fn(groupCtx, item); err != nil {
				logger.Error("job failed", zap.String("item", name(item)), zap.Error(err))
				errs[i] = fmt.Errorf("%s: %w", name(item), err)
			}
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		logger.Warn("job group stopped", zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}
