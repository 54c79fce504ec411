package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReallocationRow is one matched allocator transaction.
type ReallocationRow struct {
	Timestamp    time.Time       `json:"timestamp"`
	TxHash       string          `json:"tx_hash"`
	Block        uint64          `json:"block"`
	GasNative    decimal.Decimal `json:"gas_native"`
	GasFiat      decimal.Decimal `json:"gas_fiat"`
	APYBeforePct decimal.Decimal `json:"apy_before_pct"`
	APYAfterPct  decimal.Decimal `json:"apy_after_pct"`
	APYDeltaPP   decimal.Decimal `json:"apy_delta_pp"`
}
