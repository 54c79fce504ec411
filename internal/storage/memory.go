package storage

import (
	"context"
	"sync"

	"vaultScope/internal/model"
)

// Memory is a Store that keeps everything in process.
type Memory struct {
	mu          sync.Mutex
	daily       map[string]DailySeries
	realloc     map[string]ReallocationSeries
	comparisons ComparisonSeries
	// Puts counts successful writes.
	Puts int
}

func NewMemory() *Memory {
	return &Memory{
		daily:       make(map[string]DailySeries),
		realloc:     make(map[string]ReallocationSeries),
		comparisons: NewComparisonSeries(),
	}
}

func (m *Memory) LoadDaily(_ context.Context, vault string) ([]model.DailyMetricRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.daily[AddressKey(vault)]
	if !ok {
		return nil, nil
	}
	return s.Rows(), nil
}

func (m *Memory) PutDaily(_ context.Context, vault string, row model.DailyMetricRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := AddressKey(vault)
	s, ok := m.daily[k]
	if !ok {
		s = NewDailySeries()
		m.daily[k] = s
	}
	s.Upsert(row)
	m.Puts++
	return nil
}

func (m *Memory) LoadReallocations(_ context.Context, vault string) ([]model.ReallocationRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.realloc[AddressKey(vault)]
	if !ok {
		return nil, nil
	}
	return s.Rows(), nil
}

func (m *Memory) PutReallocation(_ context.Context, vault string, row model.ReallocationRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := AddressKey(vault)
	s, ok := m.realloc[k]
	if !ok {
		s = NewReallocationSeries()
		m.realloc[k] = s
	}
	s.Upsert(row)
	m.Puts++
	return nil
}

func (m *Memory) LoadComparisons(context.Context) ([]model.ComparisonRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.comparisons.Rows(), nil
}

func (m *Memory) PutComparison(_ context.Context, row model.ComparisonRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comparisons.Upsert(row)
	m.Puts++
	return nil
}

func (m *Memory) Close() {}

// MemoryWarnings collects warnings in order.
type MemoryWarnings struct {
	mu       sync.Mutex
	warnings []model.Warning
}

func (w *MemoryWarnings) PutWarning(warning model.Warning) error {
	w.mu.Lock()
	w.warnings = append(w.warnings, warning)
	w.mu.Unlock()
	return nil
}

func (w *MemoryWarnings) All() []model.Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.Warning, len(w.warnings))
	copy(out, w.warnings)
	return out
}
