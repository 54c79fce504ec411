package summary

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/model"
	"vaultScope/internal/numeric"
)

var num = numeric.NewContext(50)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(t *testing.T, s string) model.Date {
	t.Helper()
	out, err := model.ParseDate(s)
	require.NoError(t, err)
	return out
}

func TestSinceStartAPY(t *testing.T) {
	assert.InDelta(t, 1.0, SinceStartAPY(num, d("1"), d("1.01"), 365).InexactFloat64(), 1e-12)
	assert.InDelta(t, 5.10100501, SinceStartAPY(num, d("1"), d("1.01"), 73).InexactFloat64(), 1e-12)

	got := SinceStartAPY(num, d("1.0002"), d("1.0031"), 30)
	want := (math.Pow(1.0031/1.0002, 365.0/30.0) - 1) * 100
	assert.InDelta(t, want, got.InexactFloat64(), 1e-9)
}

func TestSinceStartAPYDegenerate(t *testing.T) {
	assert.True(t, SinceStartAPY(num, d("0"), d("1.1"), 10).IsZero())
	assert.True(t, SinceStartAPY(num, d("1"), d("1.1"), 0).IsZero())
}

func TestBuild(t *testing.T) {
	daily := []model.DailyMetricRow{
		{Date: day(t, "2025-09-20"), SharePrice: d("1"), TotalAssets: d("100"), YieldEarned: d("0"), AssetSymbol: "USDC"},
		{Date: day(t, "2025-09-21"), SharePrice: d("0"), YieldEarned: d("0.5")},
		{Date: day(t, "2025-10-03"), SharePrice: d("1.01"), TotalAssets: d("101"), YieldEarned: d("0.5"), AssetSymbol: "USDC"},
	}
	reallocs := []model.ReallocationRow{
		{GasNative: d("0.002"), GasFiat: d("5")},
		{GasNative: d("0.001"), GasFiat: d("2.5")},
	}

	v := Build(num, "kpk USDC Prime", "0xabc", daily, reallocs)
	assert.Equal(t, 13, v.Days)
	assert.Equal(t, "1", v.CumulativeYield.String())
	assert.Equal(t, "101", v.LatestTotalAssets.String())
	assert.Equal(t, "1.01", v.LatestSharePrice.String())
	assert.Equal(t, "USDC", v.AssetSymbol)
	assert.Equal(t, 2, v.AllocatorTxs)
	assert.Equal(t, "0.003", v.GasNative.String())
	assert.Equal(t, "7.5", v.GasFiat.String())
	assert.InDelta(t, (math.Pow(1.01, 365.0/13.0)-1)*100, v.SinceStartAPYPct.InexactFloat64(), 1e-9)
}

func TestBuildEmpty(t *testing.T) {
	v := Build(num, "empty", "0xabc", nil, nil)
	assert.Zero(t, v.Days)
	assert.True(t, v.SinceStartAPYPct.IsZero())
	assert.Zero(t, v.AllocatorTxs)
}
