package storage

import (
	"context"

	"vaultScope/internal/model"
)

// DailyStore persists per-vault daily metrics. PutDaily replaces any row with the same date.
type DailyStore interface {
	LoadDaily(ctx context.Context, vault string) ([]model.DailyMetricRow, error)
	PutDaily(ctx context.Context, vault string, row model.DailyMetricRow) error
}

// ReallocationStore persists allocator transactions keyed by hash.
type ReallocationStore interface {
	LoadReallocations(ctx context.Context, vault string) ([]model.ReallocationRow, error)
	PutReallocation(ctx context.Context, vault string, row model.ReallocationRow) error
}

// ComparisonStore persists the shared comparison series keyed by date and vault.
type ComparisonStore interface {
	LoadComparisons(ctx context.Context) ([]model.ComparisonRow, error)
	PutComparison(ctx context.Context, row model.ComparisonRow) error
}

// Store is a complete backend.
type Store interface {
	DailyStore
	ReallocationStore
	ComparisonStore
	Close()
}

// WarningSink records skips and degrades.
type WarningSink interface {
	PutWarning(w model.Warning) error
}
