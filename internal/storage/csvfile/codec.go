package csvfile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
)

var dailyTable = table[model.DailyMetricRow]{
	columns: []string{
		"date", "total_assets", "share_price", "total_supply_implied", "fee_amount",
		"deposits", "withdraws", "apy", "yield_earned", "asset_symbol", "vault_address", "markets",
	},
	encode: func(r model.DailyMetricRow) []string {
		return []string{
			r.Date.String(),
			r.TotalAssets.String(),
			r.SharePrice.String(),
			r.TotalSupplyImplied.String(),
			r.FeeAmount.String(),
			r.Deposits.String(),
			r.Withdraws.String(),
			r.APY.String(),
			r.YieldEarned.String(),
			r.AssetSymbol,
			r.VaultAddress,
			strings.Join(r.Markets, ","),
		}
	},
	decode: func(rec record) (model.DailyMetricRow, error) {
		var (
			r   model.DailyMetricRow
			err error
		)
		if r.Date, err = model.ParseDate(rec.get("date")); err != nil {
			return r, err
		}
		d := decimals{rec: rec}
		r.TotalAssets = d.get("total_assets")
		r.SharePrice = d.get("share_price")
		r.TotalSupplyImplied = d.get("total_supply_implied")
		r.FeeAmount = d.get("fee_amount")
		r.Deposits = d.get("deposits")
		r.Withdraws = d.get("withdraws")
		r.APY = d.get("apy")
		r.YieldEarned = d.get("yield_earned")
		r.AssetSymbol = rec.get("asset_symbol")
		r.VaultAddress = rec.get("vault_address")
		r.Markets = splitMarkets(rec.get("markets"))
		return r, d.err
	},
}

var reallocationTable = table[model.ReallocationRow]{
	columns: []string{
		"timestamp", "tx_hash", "block", "gas_native", "gas_fiat",
		"apy_before_pct", "apy_after_pct", "apy_delta_pp",
	},
	encode: func(r model.ReallocationRow) []string {
		return []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.TxHash,
			strconv.FormatUint(r.Block, 10),
			r.GasNative.String(),
			r.GasFiat.String(),
			r.APYBeforePct.String(),
			r.APYAfterPct.String(),
			r.APYDeltaPP.String(),
		}
	},
	decode: func(rec record) (model.ReallocationRow, error) {
		var r model.ReallocationRow
		r.TxHash = rec.get("tx_hash")
		if r.TxHash == "" {
			return r, fmt.Errorf("tx_hash is empty")
		}
		if raw := rec.get("timestamp"); raw != "" {
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return r, fmt.Errorf("timestamp: %w", err)
			}
			r.Timestamp = ts
		}
		if raw := rec.get("block"); raw != "" {
			n, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return r, fmt.Errorf("block: %w", err)
			}
			r.Block = n
		}
		d := decimals{rec: rec}
		r.GasNative = d.get("gas_native")
		r.GasFiat = d.get("gas_fiat")
		r.APYBeforePct = d.get("apy_before_pct")
		r.APYAfterPct = d.get("apy_after_pct")
		r.APYDeltaPP = d.get("apy_delta_pp")
		return r, d.err
	},
}

var comparisonTable = table[model.ComparisonRow]{
	columns: []string{"date", "vault_name", "vault_address", "underlying_token", "daily_apy_pct"},
	encode: func(r model.ComparisonRow) []string {
		return []string{r.Date.String(), r.VaultName, r.VaultAddress, r.UnderlyingToken, r.DailyAPYPct.String()}
	},
	decode: func(rec record) (model.ComparisonRow, error) {
		var (
			r   model.ComparisonRow
			err error
		)
		if r.Date, err = model.ParseDate(rec.get("date")); err != nil {
			return r, err
		}
		r.VaultName = rec.get("vault_name")
		r.VaultAddress = rec.get("vault_address")
		r.UnderlyingToken = rec.get("underlying_token")
		d := decimals{rec: rec}
		r.DailyAPYPct = d.get("daily_apy_pct")
		return r, d.err
	},
}

// decimals parses decimal columns and keeps the first error. Empty cells are zero.
type decimals struct {
	rec record
	err error
}

func (d *decimals) get(col string) decimal.Decimal {
	raw := strings.TrimSpace(d.rec.get(col))
	if raw == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		if d.err == nil {
			d.err = fmt.Errorf("%s: %w", col, err)
		}
		return decimal.Zero
	}
	return v
}

func splitMarkets(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
