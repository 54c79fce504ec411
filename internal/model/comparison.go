package model

import "github.com/shopspring/decimal"

// ComparisonRow is one vault's daily APY in the shared comparison series.
type ComparisonRow struct {
	Date            Date            `json:"date"`
	VaultName       string          `json:"vault_name"`
	VaultAddress    string          `json:"vault_address"`
	UnderlyingToken string          `json:"underlying_token"`
	DailyAPYPct     decimal.Decimal `json:"daily_apy_pct"`
}
