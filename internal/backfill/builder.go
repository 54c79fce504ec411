// Package backfill fills the per-vault daily metric series from chain history.
package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultScope/internal/events"
	"vaultScope/internal/model"
	"vaultScope/internal/numeric"
	"vaultScope/internal/storage"
	"vaultScope/internal/warn"
)

// DefaultAssetSymbol is stored when the asset reports no symbol.
const DefaultAssetSymbol = "ASSET"

// BlockResolver maps instants to blocks.
type BlockResolver interface {
	Resolve(ctx context.Context, target time.Time) (uint64, error)
}

// SnapshotReader reads a vault at a block.
type SnapshotReader interface {
	Snapshot(ctx context.Context, vault common.Address, block uint64) (model.VaultSnapshot, error)
}

// FlowAggregator totals a vault's event flows over a window.
type FlowAggregator interface {
	DailyFlows(ctx context.Context, vault common.Address, assetDecimals uint8, start, end time.Time) (events.Flows, []error)
}

// Vault is one series to maintain.
type Vault struct {
	Name      string
	Address   common.Address
	StartDate model.Date
	// SnapshotTime is the offset from local midnight of the daily reading.
	SnapshotTime time.Duration
	Markets      []string
}

// Config holds the builder's time and precision settings.
type Config struct {
	Location  *time.Location
	Precision int32
	Now       func() time.Time
}

// Result summarises one run.
type Result struct {
	Begin   model.Date
	Today   model.Date
	Written []model.Date
	Skipped []model.Date
}

// Builder runs the day-by-day backfill for one vault at a time.
type Builder struct {
	resolver  BlockResolver
	snapshots SnapshotReader
	flows     FlowAggregator
	store     storage.DailyStore
	reporter  *warn.Reporter
	loc       *time.Location
	num       numeric.Context
	now       func() time.Time
	logger    *zap.Logger
}

func NewBuilder(
	resolver BlockResolver,
	snapshots SnapshotReader,
	flows FlowAggregator,
	store storage.DailyStore,
	reporter *warn.Reporter,
	cfg Config,
	logger *zap.Logger,
) *Builder {
	cfg, logger = cfg.withDefaults(logger)
	return &Builder{
		resolver:  resolver,
		snapshots: snapshots,
		flows:     flows,
		store:     store,
		reporter:  reporter,
		loc:       cfg.Location,
		num:       numeric.NewContext(cfg.Precision),
		now:       cfg.Now,
		logger:    logger,
	}
}

func (cfg Config) withDefaults(logger *zap.Logger) (Config, *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg, logger
}

// Run fills every missing day from the vault's start date through today.
//
// Days are processed in order. A day whose block or snapshot cannot be read is
// reported and left unwritten so a later run retries it. Store failures and
// cancellation stop the run; rows already written stay intact.
func (b *Builder) Run(ctx context.Context, v Vault) (Result, error) {
	addr := v.Address.Hex()
	rows, err := b.store.LoadDaily(ctx, addr)
	if err != nil {
		return Result{}, fmt.Errorf("load series %s: %w", v.Name, err)
	}
	series := storage.NewDailySeries(rows...)

	today := model.DateOf(b.now().In(b.loc))
	days, begin := pendingDays(series, v.StartDate, today)
	res := Result{Begin: begin, Today: today}
	if len(days) == 0 {
		b.logger.Info("series up to date", zap.String("vault", v.Name), zap.String("today", today.String()))
		return res, nil
	}

	b.logger.Info("backfill start",
		zap.String("vault", v.Name),
		zap.String("address", addr),
		zap.String("begin", begin.String()),
		zap.String("today", today.String()),
		zap.Int("days", len(days)),
	)

	for _, d := range days {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		row, err := b.buildDay(ctx, v, series, d)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			b.reporter.Report(addr, model.ScopeDay, d.String(), err)
			res.Skipped = append(res.Skipped, d)
			continue
		}

		if err := b.put(ctx, addr, series, row); err != nil {
			return res, err
		}
		res.Written = append(res.Written, d)

		// A filled gap becomes the predecessor of the next stored day.
		if next, ok := successor(series, d); ok {
			if err := b.rechain(ctx, addr, series, next); err != nil {
				return res, err
			}
		}

		b.logger.Info("day stored",
			zap.String("vault", v.Name),
			zap.String("date", d.String()),
			zap.String("share_price", row.SharePrice.String()),
			zap.String("apy", row.APY.StringFixed(6)),
		)
	}

	b.logger.Info("backfill done",
		zap.String("vault", v.Name),
		zap.Int("written", len(res.Written)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func (b *Builder) buildDay(ctx context.Context, v Vault, series storage.DailySeries, d model.Date) (model.DailyMetricRow, error) {
	w := DayWindow(d, v.SnapshotTime, b.loc)

	block, err := b.resolver.Resolve(ctx, w.Snapshot)
	if err != nil {
		return model.DailyMetricRow{}, model.Wrap(model.ErrChainUnavailable, "resolve snapshot block", err)
	}

	snap, err := b.snapshots.Snapshot(ctx, v.Address, block)
	if err != nil {
		return model.DailyMetricRow{}, model.Wrap(model.ErrSnapshotUnavailable, fmt.Sprintf("snapshot at block %d", block), err)
	}

	flows, problems := b.flows.DailyFlows(ctx, v.Address, snap.AssetDecimals, w.Start, w.End)
	for _, p := range problems {
		b.reporter.Report(v.Address.Hex(), model.ScopeDay, d.String(), p)
	}

	symbol := snap.AssetSymbol
	if symbol == "" {
		symbol = DefaultAssetSymbol
	}
	row := model.DailyMetricRow{
		Date:               d,
		TotalAssets:        snap.TotalAssets,
		SharePrice:         snap.SharePrice,
		TotalSupplyImplied: snap.TotalSupply,
		FeeAmount:          flows.Fees,
		Deposits:           flows.Deposits,
		Withdraws:          flows.Withdraws,
		AssetSymbol:        symbol,
		VaultAddress:       v.Address.Hex(),
		Markets:            v.Markets,
	}
	if prev, ok := series.Before(d); ok {
		row.APY, row.YieldEarned = ComputeYield(b.num, prev.SharePrice, row.SharePrice, row.TotalSupplyImplied)
	}
	return row, nil
}

// rechain recomputes a stored row's yield against its current predecessor.
func (b *Builder) rechain(ctx context.Context, addr string, series storage.DailySeries, row model.DailyMetricRow) error {
	prev, ok := series.Before(row.Date)
	if !ok {
		return nil
	}
	apy, earned := ComputeYield(b.num, prev.SharePrice, row.SharePrice, row.TotalSupplyImplied)
	if apy.Equal(row.APY) && earned.Equal(row.YieldEarned) {
		return nil
	}
	row.APY, row.YieldEarned = apy, earned
	return b.put(ctx, addr, series, row)
}

func (b *Builder) put(ctx context.Context, addr string, series storage.DailySeries, row model.DailyMetricRow) error {
	if err := b.store.PutDaily(ctx, addr, row); err != nil {
		return fmt.Errorf("persist %s: %w", row.Date, err)
	}
	series.Upsert(row)
	return nil
}

// pendingDays lists the days to attempt: gaps left by earlier skipped days,
// then every day after the last stored one through today.
func pendingDays(series storage.DailySeries, start, today model.Date) ([]model.Date, model.Date) {
	begin := start
	last, ok := series.LastDate()
	if ok && !last.Before(begin) {
		begin = last.AddDays(1)
	}

	var days []model.Date
	if ok {
		for d := start; d.Before(begin) && !d.After(today); d = d.AddDays(1) {
			if !series.Has(d.String()) {
				days = append(days, d)
			}
		}
	}
	for d := begin; !d.After(today); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days, begin
}

func successor(series storage.DailySeries, d model.Date) (model.DailyMetricRow, bool) {
	for _, r := range series.Rows() {
		if r.Date.After(d) {
			return r, true
		}
	}
	return model.DailyMetricRow{}, false
}
