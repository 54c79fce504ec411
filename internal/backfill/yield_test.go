package backfill

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/numeric"
)

func TestComputeYieldGainDay(t *testing.T) {
	num := numeric.NewContext(50)
	apy, earned := ComputeYield(num, decimal.NewFromInt(1), decimal.RequireFromString("1.0027"), decimal.NewFromInt(1000))

	want := decimal.RequireFromString("1.6755954800162454191868981633")
	assert.True(t, apy.Sub(want).Abs().LessThan(decimal.New(1, -25)), "apy %s", apy)
	assert.Equal(t, "2.7", earned.String())
}

func TestComputeYieldLossDay(t *testing.T) {
	num := numeric.NewContext(50)
	apy, earned := ComputeYield(num, decimal.NewFromInt(1), decimal.RequireFromString("0.9973"), decimal.NewFromInt(1000))

	assert.Equal(t, -1, apy.Sign())
	assert.True(t, apy.GreaterThan(decimal.NewFromInt(-1)))
	assert.Equal(t, "-2.7", earned.String())
}

func TestComputeYieldNeedsPositivePrices(t *testing.T) {
	num := numeric.NewContext(50)
	for _, tc := range []struct{ prev, now string }{{"0", "1.1"}, {"1", "0"}, {"-1", "1"}} {
		apy, earned := ComputeYield(num, decimal.RequireFromString(tc.prev), decimal.RequireFromString(tc.now), decimal.NewFromInt(5))
		assert.True(t, apy.IsZero(), "%v", tc)
		assert.True(t, earned.IsZero(), "%v", tc)
	}
}

func TestDayWindowAcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)

	w := DayWindow(date(t, "2025-10-26"), 12*time.Hour, loc)
	assert.Equal(t, 25*time.Hour-time.Second, w.End.Sub(w.Start))
	assert.Equal(t, "2025-10-26T11:00:00Z", w.Snapshot.UTC().Format(time.RFC3339))

	w = DayWindow(date(t, "2025-09-20"), 12*time.Hour, loc)
	assert.Equal(t, "2025-09-19T22:00:00Z", w.Start.UTC().Format(time.RFC3339))
	assert.Equal(t, "2025-09-20T21:59:59Z", w.End.UTC().Format(time.RFC3339))
}
