package backfill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/model"
	"vaultScope/internal/numeric"
	"vaultScope/internal/storage"
	"vaultScope/internal/warn"
)

// CompareVault is one vault in the comparison series.
type CompareVault struct {
	Name    string
	Address common.Address
}

// CompareBuilder maintains the shared daily APY comparison series.
type CompareBuilder struct {
	resolver  BlockResolver
	snapshots SnapshotReader
	store     storage.ComparisonStore
	reporter  *warn.Reporter
	loc       *time.Location
	num       numeric.Context
	now       func() time.Time
	logger    *zap.Logger
}

func NewCompareBuilder(
	resolver BlockResolver,
	snapshots SnapshotReader,
	store storage.ComparisonStore,
	reporter *warn.Reporter,
	cfg Config,
	logger *zap.Logger,
) *CompareBuilder {
	cfg, logger = cfg.withDefaults(logger)
	return &CompareBuilder{
		resolver:  resolver,
		snapshots: snapshots,
		store:     store,
		reporter:  reporter,
		loc:       cfg.Location,
		num:       numeric.NewContext(cfg.Precision),
		now:       cfg.Now,
		logger:    logger,
	}
}

// Run appends daily APY rows for v from max(start, last stored + 1) through today.
// The previous share price is read from the day before the first pending day;
// a day that cannot be read is skipped and does not advance it.
func (c *CompareBuilder) Run(ctx context.Context, v CompareVault, start model.Date, snapshotTime time.Duration) (Result, error) {
	existing, err := c.store.LoadComparisons(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load comparisons: %w", err)
	}
	series := storage.NewComparisonSeries(existing...)
	addrKey := storage.AddressKey(v.Address.Hex())

	begin := start
	for _, r := range existing {
		if storage.AddressKey(r.VaultAddress) == addrKey && !r.Date.Before(begin) {
			begin = r.Date.AddDays(1)
		}
	}
	today := model.DateOf(c.now().In(c.loc))
	res := Result{Begin: begin, Today: today}
	if begin.After(today) {
		return res, nil
	}

	var prev decimal.Decimal
	if snap, err := c.read(ctx, v, DayWindow(begin.AddDays(-1), snapshotTime, c.loc)); err == nil {
		prev = snap.SharePrice
	}

	for d := begin; !d.After(today); d = d.AddDays(1) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		snap, err := c.read(ctx, v, DayWindow(d, snapshotTime, c.loc))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			c.reporter.Report(v.Address.Hex(), model.ScopeDay, d.String(), err)
			res.Skipped = append(res.Skipped, d)
			continue
		}

		apy, _ := ComputeYield(c.num, prev, snap.SharePrice, decimal.Zero)
		row := model.ComparisonRow{
			Date:            d,
			VaultName:       v.Name,
			VaultAddress:    v.Address.Hex(),
			UnderlyingToken: UnderlyingToken(v.Name, snap.AssetSymbol),
			DailyAPYPct:     apy.Mul(decimal.NewFromInt(100)),
		}
		if !series.Has(storage.ComparisonKey(row)) {
			if err := c.store.PutComparison(ctx, row); err != nil {
				return res, fmt.Errorf("persist comparison %s: %w", d, err)
			}
			series.Upsert(row)
			res.Written = append(res.Written, d)
		}
		prev = snap.SharePrice
	}

	c.logger.Info("comparison done",
		zap.String("vault", v.Name),
		zap.Int("written", len(res.Written)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func (c *CompareBuilder) read(ctx context.Context, v CompareVault, w Window) (model.VaultSnapshot, error) {
	block, err := c.resolver.Resolve(ctx, w.Snapshot)
	if err != nil {
		return model.VaultSnapshot{}, model.Wrap(model.ErrChainUnavailable, "resolve snapshot block", err)
	}
	snap, err := c.snapshots.Snapshot(ctx, v.Address, block)
	if err != nil {
		return model.VaultSnapshot{}, model.Wrap(model.ErrSnapshotUnavailable, fmt.Sprintf("snapshot at block %d", block), err)
	}
	return snap, nil
}

// UnderlyingToken prefers the asset symbol and falls back to a stablecoin named in the vault name.
func UnderlyingToken(name, symbol string) string {
	if s := strings.TrimSpace(symbol); s != "" {
		return strings.ToUpper(s)
	}
	lower := strings.ToLower(name)
	for _, token := range []string{"usdc", "usdt", "eurc"} {
		if strings.Contains(lower, token) {
			return strings.ToUpper(token)
		}
	}
	return ""
}
