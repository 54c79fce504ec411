package storage

import (
	"sort"
	"strings"

	"vaultScope/internal/model"
)

// Series is an ordered row set with one row per key.
type Series[R any] struct {
	rows  []R
	index map[string]int
	key   func(R) string
	less  func(a, b R) bool
}

func NewSeries[R any](key func(R) string, less func(a, b R) bool, rows ...R) *Series[R] {
	s := &Series[R]{key: key, less: less, index: make(map[string]int)}
	for _, r := range rows {
		s.Upsert(r)
	}
	return s
}

// Upsert inserts r or replaces the row with the same key. It reports whether a row was replaced.
// A replacement whose ordering fields changed is moved to its new position.
func (s *Series[R]) Upsert(r R) bool {
	k := s.key(r)
	replaced := false
	if i, ok := s.index[k]; ok {
		replaced = true
		s.rows = append(s.rows[:i], s.rows[i+1:]...)
		delete(s.index, k)
		for j := i; j < len(s.rows); j++ {
			s.index[s.key(s.rows[j])] = j
		}
	}
	i := sort.Search(len(s.rows), func(i int) bool { return s.less(r, s.rows[i]) })
	s.rows = append(s.rows, r)
	copy(s.rows[i+1:], s.rows[i:])
	s.rows[i] = r
	for j := i; j < len(s.rows); j++ {
		s.index[s.key(s.rows[j])] = j
	}
	return replaced
}

// Clone returns an independent copy sharing no row storage with s.
func (s *Series[R]) Clone() *Series[R] {
	c := &Series[R]{
		rows:  s.Rows(),
		index: make(map[string]int, len(s.index)),
		key:   s.key,
		less:  s.less,
	}
	for k, i := range s.index {
		c.index[k] = i
	}
	return c
}

func (s *Series[R]) Get(key string) (R, bool) {
	i, ok := s.index[key]
	if !ok {
		var zero R
		return zero, false
	}
	return s.rows[i], true
}

func (s *Series[R]) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Rows returns a copy of the rows in order.
func (s *Series[R]) Rows() []R {
	out := make([]R, len(s.rows))
	copy(out, s.rows)
	return out
}

func (s *Series[R]) Len() int { return len(s.rows) }

func (s *Series[R]) Last() (R, bool) {
	if len(s.rows) == 0 {
		var zero R
		return zero, false
	}
	return s.rows[len(s.rows)-1], true
}

// DailySeries is one vault's daily metrics ordered by date.
type DailySeries struct {
	*Series[model.DailyMetricRow]
}

func NewDailySeries(rows ...model.DailyMetricRow) DailySeries {
	return DailySeries{NewSeries(
		func(r model.DailyMetricRow) string { return r.Date.String() },
		func(a, b model.DailyMetricRow) bool { return a.Date.Before(b.Date) },
		rows...,
	)}
}

// Before returns the most recent row dated strictly before d.
func (s DailySeries) Before(d model.Date) (model.DailyMetricRow, bool) {
	i := sort.Search(len(s.rows), func(i int) bool { return !s.rows[i].Date.Before(d) })
	if i == 0 {
		return model.DailyMetricRow{}, false
	}
	return s.rows[i-1], true
}

func (s DailySeries) Clone() DailySeries { return DailySeries{s.Series.Clone()} }

// LastDate returns the latest stored date.
func (s DailySeries) LastDate() (model.Date, bool) {
	r, ok := s.Last()
	return r.Date, ok
}

// ReallocationSeries orders allocator transactions by block and is keyed by hash.
type ReallocationSeries struct {
	*Series[model.ReallocationRow]
}

func NewReallocationSeries(rows ...model.ReallocationRow) ReallocationSeries {
	return ReallocationSeries{NewSeries(
		func(r model.ReallocationRow) string { return HashKey(r.TxHash) },
		func(a, b model.ReallocationRow) bool {
			if a.Block != b.Block {
				return a.Block < b.Block
			}
			return HashKey(a.TxHash) < HashKey(b.TxHash)
		},
		rows...,
	)}
}

func (s ReallocationSeries) Clone() ReallocationSeries {
	return ReallocationSeries{s.Series.Clone()}
}

// LastBlock returns the highest stored block, or zero.
func (s ReallocationSeries) LastBlock() uint64 {
	r, ok := s.Last()
	if !ok {
		return 0
	}
	return r.Block
}

// ComparisonSeries is keyed by date and vault address.
type ComparisonSeries struct {
	*Series[model.ComparisonRow]
}

func NewComparisonSeries(rows ...model.ComparisonRow) ComparisonSeries {
	return ComparisonSeries{NewSeries(
		ComparisonKey,
		func(a, b model.ComparisonRow) bool {
			if c := a.Date.Compare(b.Date); c != 0 {
				return c < 0
			}
			return AddressKey(a.VaultAddress) < AddressKey(b.VaultAddress)
		},
		rows...,
	)}
}

func (s ComparisonSeries) Clone() ComparisonSeries { return ComparisonSeries{s.Series.Clone()} }

func ComparisonKey(r model.ComparisonRow) string {
	return r.Date.String() + "|" + AddressKey(r.VaultAddress)
}

func HashKey(h string) string { return strings.ToLower(h) }

func AddressKey(a string) string { return strings.ToLower(a) }
