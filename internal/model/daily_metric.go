package model

import "github.com/shopspring/decimal"

// DailyMetricRow is one vault's metrics for one calendar day.
type DailyMetricRow struct {
	Date               Date            `json:"date"`
	TotalAssets        decimal.Decimal `json:"total_assets"`
	SharePrice         decimal.Decimal `json:"share_price"`
	TotalSupplyImplied decimal.Decimal `json:"total_supply_implied"`
	FeeAmount          decimal.Decimal `json:"fee_amount"`
	Deposits           decimal.Decimal `json:"deposits"`
	Withdraws          decimal.Decimal `json:"withdraws"`
	APY                decimal.Decimal `json:"apy"`
	YieldEarned        decimal.Decimal `json:"yield_earned"`
	AssetSymbol        string          `json:"asset_symbol"`
	VaultAddress       string          `json:"vault_address"`
	Markets            []string        `json:"markets"`
}
