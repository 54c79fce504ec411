// Package csvfile stores series as one CSV file per vault under a data directory.
package csvfile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"vaultScope/internal/model"
	"vaultScope/internal/storage"
)

const comparisonsFile = "apy_comparisons.csv"

// Store keeps each series in memory after first load and rewrites its file on every put.
// The cached series only changes once the file has been replaced.
type Store struct {
	dir string

	mu          sync.Mutex
	daily       map[string]storage.DailySeries
	realloc     map[string]storage.ReallocationSeries
	comparisons *storage.ComparisonSeries
}

func NewStore(dir string) *Store {
	return &Store{
		dir:     dir,
		daily:   make(map[string]storage.DailySeries),
		realloc: make(map[string]storage.ReallocationSeries),
	}
}

// DailyPath returns the file backing a vault's daily series.
func (s *Store) DailyPath(vault string) string {
	return filepath.Join(s.dir, fmt.Sprintf("vault_%s.csv", storage.AddressKey(vault)))
}

func (s *Store) ReallocationPath(vault string) string {
	return filepath.Join(s.dir, fmt.Sprintf("reallocations_%s.csv", storage.AddressKey(vault)))
}

func (s *Store) ComparisonPath() string {
	return filepath.Join(s.dir, comparisonsFile)
}

func (s *Store) LoadDaily(ctx context.Context, vault string) ([]model.DailyMetricRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series, err := s.dailyLocked(vault)
	if err != nil {
		return nil, err
	}
	return series.Rows(), nil
}

func (s *Store) PutDaily(ctx context.Context, vault string, row model.DailyMetricRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	series, err := s.dailyLocked(vault)
	if err != nil {
		return err
	}
	next := series.Clone()
	next.Upsert(row)
	if err := dailyTable.write(s.DailyPath(vault), next.Rows()); err != nil {
		return err
	}
	s.daily[storage.AddressKey(vault)] = next
	return nil
}

func (s *Store) dailyLocked(vault string) (storage.DailySeries, error) {
	key := storage.AddressKey(vault)
	if series, ok := s.daily[key]; ok {
		return series, nil
	}
	rows, err := dailyTable.read(s.DailyPath(vault))
	if err != nil {
		return storage.DailySeries{}, err
	}
	series := storage.NewDailySeries(rows...)
	s.daily[key] = series
	return series, nil
}

func (s *Store) LoadReallocations(ctx context.Context, vault string) ([]model.ReallocationRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series, err := s.reallocLocked(vault)
	if err != nil {
		return nil, err
	}
	return series.Rows(), nil
}

func (s *Store) PutReallocation(ctx context.Context, vault string, row model.ReallocationRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	series, err := s.reallocLocked(vault)
	if err != nil {
		return err
	}
	next := series.Clone()
	next.Upsert(row)
	if err := reallocationTable.write(s.ReallocationPath(vault), next.Rows()); err != nil {
		return err
	}
	s.realloc[storage.AddressKey(vault)] = next
	return nil
}

func (s *Store) reallocLocked(vault string) (storage.ReallocationSeries, error) {
	key := storage.AddressKey(vault)
	if series, ok := s.realloc[key]; ok {
		return series, nil
	}
	rows, err := reallocationTable.read(s.ReallocationPath(vault))
	if err != nil {
		return storage.ReallocationSeries{}, err
	}
	series := storage.NewReallocationSeries(rows...)
	s.realloc[key] = series
	return series, nil
}

func (s *Store) LoadComparisons(ctx context.Context) ([]model.ComparisonRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series, err := s.comparisonsLocked()
	if err != nil {
		return nil, err
	}
	return series.Rows(), nil
}

func (s *Store) PutComparison(ctx context.Context, row model.ComparisonRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	series, err := s.comparisonsLocked()
	if err != nil {
		return err
	}
	next := series.Clone()
	next.Upsert(row)
	if err := comparisonTable.write(s.ComparisonPath(), next.Rows()); err != nil {
		return err
	}
	s.comparisons = &next
	return nil
}

func (s *Store) comparisonsLocked() (storage.ComparisonSeries, error) {
	if s.comparisons != nil {
		return *s.comparisons, nil
	}
	rows, err := comparisonTable.read(s.ComparisonPath())
	if err != nil {
		return storage.ComparisonSeries{}, err
	}
	series := storage.NewComparisonSeries(rows...)
	s.comparisons = &series
	return series, nil
}

func (s *Store) Close() {}
