// Package summary condenses a vault's stored series into headline figures.
package summary

import (
	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
	"vaultScope/internal/numeric"
)

// Vault is the headline view of one vault.
type Vault struct {
	Name              string          `json:"name"`
	Address           string          `json:"address"`
	AssetSymbol       string          `json:"asset_symbol"`
	First             model.Date      `json:"first_date"`
	Last              model.Date      `json:"last_date"`
	Days              int             `json:"days"`
	SinceStartAPYPct  decimal.Decimal `json:"since_start_apy_pct"`
	CumulativeYield   decimal.Decimal `json:"cumulative_yield"`
	LatestTotalAssets decimal.Decimal `json:"latest_total_assets"`
	LatestSharePrice  decimal.Decimal `json:"latest_share_price"`
	AllocatorTxs      int             `json:"allocator_txs"`
	GasNative         decimal.Decimal `json:"gas_native"`
	GasFiat           decimal.Decimal `json:"gas_fiat"`
	Warnings          int             `json:"warnings"`
}

// SinceStartAPY annualises the share price growth over days, ((last/first)^(365/days) - 1) * 100.
// It is zero unless first is positive and days is positive.
func SinceStartAPY(num numeric.Context, first, last decimal.Decimal, days int) decimal.Decimal {
	if first.Sign() <= 0 || last.Sign() <= 0 || days <= 0 {
		return decimal.Zero
	}
	ratio := num.Div(last, first)
	exponent := num.Div(decimal.NewFromInt(365), decimal.NewFromInt(int64(days)))
	growth, err := ratio.PowWithPrecision(exponent, num.Precision)
	if err != nil {
		return decimal.Zero
	}
	return growth.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).Round(num.Precision)
}

// Build summarises rows ordered by date and the vault's reallocation rows.
func Build(num numeric.Context, name, address string, daily []model.DailyMetricRow, reallocations []model.ReallocationRow) Vault {
	v := Vault{
		Name:              name,
		Address:           address,
		SinceStartAPYPct:  decimal.Zero,
		CumulativeYield:   decimal.Zero,
		LatestTotalAssets: decimal.Zero,
		LatestSharePrice:  decimal.Zero,
		AllocatorTxs:      len(reallocations),
		GasNative:         decimal.Zero,
		GasFiat:           decimal.Zero,
	}
	for _, r := range reallocations {
		v.GasNative = v.GasNative.Add(r.GasNative)
		v.GasFiat = v.GasFiat.Add(r.GasFiat)
	}
	if len(daily) == 0 {
		return v
	}

	for _, r := range daily {
		v.CumulativeYield = v.CumulativeYield.Add(r.YieldEarned)
	}
	latest := daily[len(daily)-1]
	v.AssetSymbol = latest.AssetSymbol
	v.LatestTotalAssets = latest.TotalAssets
	v.LatestSharePrice = latest.SharePrice
	v.First, v.Last = daily[0].Date, latest.Date

	var first, last *model.DailyMetricRow
	for i := range daily {
		if daily[i].SharePrice.Sign() <= 0 {
			continue
		}
		if first == nil {
			first = &daily[i]
		}
		last = &daily[i]
	}
	if first != nil && last != first {
		v.Days = first.Date.DaysUntil(last.Date)
		v.SinceStartAPYPct = SinceStartAPY(num, first.SharePrice, last.SharePrice, v.Days)
	}
	return v
}
