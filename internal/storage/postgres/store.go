package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
	"vaultScope/internal/storage"
)

// Store provides Postgres persistence for the metric series.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, model.Errorf(model.ErrConfiguration, "postgres", "pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables and adds columns introduced after the first release.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS vault_daily_metrics (
		vault_address TEXT NOT NULL,
		date DATE NOT NULL,
		total_assets NUMERIC,
		share_price NUMERIC,
		apy NUMERIC,
		yield_earned NUMERIC,
		asset_symbol TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (vault_address, date)
	)`,
	`ALTER TABLE vault_daily_metrics ADD COLUMN IF NOT EXISTS total_supply_implied NUMERIC`,
	`ALTER TABLE vault_daily_metrics ADD COLUMN IF NOT EXISTS fee_amount NUMERIC`,
	`ALTER TABLE vault_daily_metrics ADD COLUMN IF NOT EXISTS deposits NUMERIC`,
	`ALTER TABLE vault_daily_metrics ADD COLUMN IF NOT EXISTS withdraws NUMERIC`,
	`ALTER TABLE vault_daily_metrics ADD COLUMN IF NOT EXISTS markets TEXT[]`,
	`CREATE TABLE IF NOT EXISTS vault_reallocations (
		vault_address TEXT NOT NULL,
		tx_hash TEXT NOT NULL,
		block BIGINT NOT NULL,
		ts TIMESTAMPTZ NOT NULL,
		gas_native NUMERIC,
		gas_fiat NUMERIC,
		apy_before_pct NUMERIC,
		apy_after_pct NUMERIC,
		apy_delta_pp NUMERIC,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (vault_address, tx_hash)
	)`,
	`CREATE TABLE IF NOT EXISTS vault_apy_comparisons (
		date DATE NOT NULL,
		vault_address TEXT NOT NULL,
		vault_name TEXT,
		underlying_token TEXT,
		daily_apy_pct NUMERIC,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (date, vault_address)
	)`,
}

// LoadDaily returns a vault's rows ordered by date. Columns missing on old rows read as zero.
func (s *Store) LoadDaily(ctx context.Context, vault string) ([]model.DailyMetricRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT to_char(date, 'YYYY-MM-DD'),
			COALESCE(total_assets::text, ''), COALESCE(share_price::text, ''),
			COALESCE(total_supply_implied::text, ''), COALESCE(fee_amount::text, ''),
			COALESCE(deposits::text, ''), COALESCE(withdraws::text, ''),
			COALESCE(apy::text, ''), COALESCE(yield_earned::text, ''),
			COALESCE(asset_symbol, ''), vault_address, COALESCE(markets, '{}')
		FROM vault_daily_metrics
		WHERE vault_address = $1
		ORDER BY date
	`, storage.AddressKey(vault))
	if err != nil {
		return nil, fmt.Errorf("query daily metrics: %w", err)
	}
	defer rows.Close()

	var out []model.DailyMetricRow
	for rows.Next() {
		var (
			date string
			nums [8]string
			row  model.DailyMetricRow
		)
		if err := rows.Scan(&date, &nums[0], &nums[1], &nums[2], &nums[3], &nums[4], &nums[5], &nums[6], &nums[7],
			&row.AssetSymbol, &row.VaultAddress, &row.Markets); err != nil {
			return nil, fmt.Errorf("scan daily metric: %w", err)
		}
		if row.Date, err = model.ParseDate(date); err != nil {
			return nil, err
		}
		vals, err := parseDecimals(nums[:])
		if err != nil {
			return nil, fmt.Errorf("daily metric %s: %w", date, err)
		}
		row.TotalAssets, row.SharePrice, row.TotalSupplyImplied, row.FeeAmount = vals[0], vals[1], vals[2], vals[3]
		row.Deposits, row.Withdraws, row.APY, row.YieldEarned = vals[4], vals[5], vals[6], vals[7]
		row.VaultAddress = checksumAddress(row.VaultAddress)
		out = append(out, row)
	}
	return out, rows.Err()
}

// PutDaily upserts one row keyed by (vault, date).
func (s *Store) PutDaily(ctx context.Context, vault string, r model.DailyMetricRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO vault_daily_metrics (
			vault_address, date, total_assets, share_price, total_supply_implied, fee_amount,
			deposits, withdraws, apy, yield_earned, asset_symbol, markets, created_at, updated_at
		) VALUES ($1, $2::date, $3::numeric, $4::numeric, $5::numeric, $6::numeric,
			$7::numeric, $8::numeric, $9::numeric, $10::numeric, $11, $12, now(), now())
		ON CONFLICT (vault_address, date)
		DO UPDATE SET
			total_assets = EXCLUDED.total_assets,
			share_price = EXCLUDED.share_price,
			total_supply_implied = EXCLUDED.total_supply_implied,
			fee_amount = EXCLUDED.fee_amount,
			deposits = EXCLUDED.deposits,
			withdraws = EXCLUDED.withdraws,
			apy = EXCLUDED.apy,
			yield_earned = EXCLUDED.yield_earned,
			asset_symbol = EXCLUDED.asset_symbol,
			markets = EXCLUDED.markets,
			updated_at = now()
	`,
		storage.AddressKey(vault),
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
		marketsOrEmpty(r.Markets),
	)
	if err != nil {
		return fmt.Errorf("upsert daily metric %s: %w", r.Date, err)
	}
	return nil
}

func (s *Store) LoadReallocations(ctx context.Context, vault string) ([]model.ReallocationRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tx_hash, block, ts,
			COALESCE(gas_native::text, ''), COALESCE(gas_fiat::text, ''),
			COALESCE(apy_before_pct::text, ''), COALESCE(apy_after_pct::text, ''), COALESCE(apy_delta_pp::text, '')
		FROM vault_reallocations
		WHERE vault_address = $1
		ORDER BY block, tx_hash
	`, storage.AddressKey(vault))
	if err != nil {
		return nil, fmt.Errorf("query reallocations: %w", err)
	}
	defer rows.Close()

	var out []model.ReallocationRow
	for rows.Next() {
		var (
			row   model.ReallocationRow
			block int64
			ts    time.Time
			nums  [5]string
		)
		if err := rows.Scan(&row.TxHash, &block, &ts, &nums[0], &nums[1], &nums[2], &nums[3], &nums[4]); err != nil {
			return nil, fmt.Errorf("scan reallocation: %w", err)
		}
		vals, err := parseDecimals(nums[:])
		if err != nil {
			return nil, fmt.Errorf("reallocation %s: %w", row.TxHash, err)
		}
		row.Block = uint64(block)
		row.Timestamp = ts.UTC()
		row.GasNative, row.GasFiat = vals[0], vals[1]
		row.APYBeforePct, row.APYAfterPct, row.APYDeltaPP = vals[2], vals[3], vals[4]
		out = append(out, row)
	}
	return out, rows.Err()
}

// PutReallocation inserts a transaction once; a known hash is left untouched.
func (s *Store) PutReallocation(ctx context.Context, vault string, r model.ReallocationRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO vault_reallocations (
			vault_address, tx_hash, block, ts, gas_native, gas_fiat, apy_before_pct, apy_after_pct, apy_delta_pp
		) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric)
		ON CONFLICT (vault_address, tx_hash) DO NOTHING
	`,
		storage.AddressKey(vault),
		storage.HashKey(r.TxHash),
		int64(r.Block),
		r.Timestamp.UTC(),
		r.GasNative.String(),
		r.GasFiat.String(),
		r.APYBeforePct.String(),
		r.APYAfterPct.String(),
		r.APYDeltaPP.String(),
	)
	if err != nil {
		return fmt.Errorf("insert reallocation %s: %w", r.TxHash, err)
	}
	return nil
}

func (s *Store) LoadComparisons(ctx context.Context) ([]model.ComparisonRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT to_char(date, 'YYYY-MM-DD'), COALESCE(vault_name, ''), vault_address,
			COALESCE(underlying_token, ''), COALESCE(daily_apy_pct::text, '')
		FROM vault_apy_comparisons
		ORDER BY date, vault_address
	`)
	if err != nil {
		return nil, fmt.Errorf("query comparisons: %w", err)
	}
	defer rows.Close()

	var out []model.ComparisonRow
	for rows.Next() {
		var (
			row  model.ComparisonRow
			date string
			apy  string
		)
		if err := rows.Scan(&date, &row.VaultName, &row.VaultAddress, &row.UnderlyingToken, &apy); err != nil {
			return nil, fmt.Errorf("scan comparison: %w", err)
		}
		if row.Date, err = model.ParseDate(date); err != nil {
			return nil, err
		}
		vals, err := parseDecimals([]string{apy})
		if err != nil {
			return nil, err
		}
		row.DailyAPYPct = vals[0]
		row.VaultAddress = checksumAddress(row.VaultAddress)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) PutComparison(ctx context.Context, r model.ComparisonRow) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO vault_apy_comparisons (date, vault_address, vault_name, underlying_token, daily_apy_pct, updated_at)
		VALUES ($1::date, $2, $3, $4, $5::numeric, now())
		ON CONFLICT (date, vault_address)
		DO UPDATE SET
			vault_name = EXCLUDED.vault_name,
			underlying_token = EXCLUDED.underlying_token,
			daily_apy_pct = EXCLUDED.daily_apy_pct,
			updated_at = now()
	`, r.Date.String(), storage.AddressKey(r.VaultAddress), r.VaultName, r.UnderlyingToken, r.DailyAPYPct.String())

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	if _, err := br.Exec(); err != nil {
		return fmt.Errorf("upsert comparison %s: %w", r.Date, err)
	}
	return nil
}

func parseDecimals(raw []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(raw))
	for i, s := range raw {
		if s == "" {
			continue
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("parse numeric %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// checksumAddress restores the EIP-55 form of a lower-cased key column.
func checksumAddress(key string) string {
	if !common.IsHexAddress(key) {
		return key
	}
	return common.HexToAddress(key).Hex()
}

func marketsOrEmpty(m []string) []string {
	if m == nil {
		return []string{}
	}
	return m
}
