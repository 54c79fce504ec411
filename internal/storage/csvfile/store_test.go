package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/model"
)

const vaultAddr = "0xBEEF1E0a1b2c3d4e5f60718293a4b5c6d7e8f901"

func day(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestDailyRoundTripAndUpsert(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir)

	row := model.DailyMetricRow{
		Date:               day(t, "2025-09-20"),
		TotalAssets:        decimal.RequireFromString("1050000.123456"),
		SharePrice:         decimal.RequireFromString("1.000123456789012345678901234567890123456789"),
		TotalSupplyImplied: decimal.RequireFromString("1049870.5"),
		APY:                decimal.Zero,
		AssetSymbol:        "USDC",
		VaultAddress:       vaultAddr,
		Markets:            []string{"wstETH/USDC", "cbBTC/USDC"},
	}
	require.NoError(t, store.PutDaily(ctx, vaultAddr, row))

	updated := row
	updated.SharePrice = decimal.RequireFromString("1.0002")
	require.NoError(t, store.PutDaily(ctx, vaultAddr, updated))

	fresh := NewStore(dir)
	rows, err := fresh.LoadDaily(ctx, vaultAddr)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1.0002", rows[0].SharePrice.String())
	assert.Equal(t, "1050000.123456", rows[0].TotalAssets.String())
	assert.Equal(t, []string{"wstETH/USDC", "cbBTC/USDC"}, rows[0].Markets)

	_, err = os.Stat(store.DailyPath(vaultAddr) + ".tmp")
	assert.True(t, os.IsNotExist(err), "tmp file left behind")
	assert.Equal(t, filepath.Join(dir, "vault_"+strings.ToLower(vaultAddr)+".csv"), store.DailyPath(vaultAddr))
}

func TestDailyLoadBackfillsMissingColumns(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	legacy := "share_price,date,total_assets,apy,extra\n1.01,2025-09-20,500,0.5,ignored\n"
	require.NoError(t, os.WriteFile(store.DailyPath(vaultAddr), []byte(legacy), 0o644))

	rows, err := store.LoadDaily(context.Background(), vaultAddr)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "2025-09-20", r.Date.String())
	assert.Equal(t, "1.01", r.SharePrice.String())
	assert.Equal(t, "500", r.TotalAssets.String())
	assert.True(t, r.Deposits.IsZero())
	assert.True(t, r.YieldEarned.IsZero())
	assert.Empty(t, r.Markets)
}

func TestDailyLoadMissingFileIsEmpty(t *testing.T) {
	rows, err := NewStore(t.TempDir()).LoadDaily(context.Background(), vaultAddr)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDailyLoadRejectsBadDecimal(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.DailyPath(vaultAddr), []byte("date,share_price\n2025-09-20,abc\n"), 0o644))

	_, err := store.LoadDaily(context.Background(), vaultAddr)
	assert.Error(t, err)
}

func TestReallocationsRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir)
	ts := time.Date(2025, 9, 21, 8, 30, 0, 0, time.UTC)

	require.NoError(t, store.PutReallocation(ctx, vaultAddr, model.ReallocationRow{
		Timestamp: ts.Add(time.Hour), TxHash: "0xbb", Block: 200,
		GasNative: decimal.RequireFromString("0.0021"), APYDeltaPP: decimal.RequireFromString("-0.15"),
	}))
	require.NoError(t, store.PutReallocation(ctx, vaultAddr, model.ReallocationRow{
		Timestamp: ts, TxHash: "0xaa", Block: 100,
	}))

	rows, err := NewStore(dir).LoadReallocations(ctx, vaultAddr)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "0xaa", rows[0].TxHash)
	assert.True(t, rows[0].Timestamp.Equal(ts))
	assert.Equal(t, uint64(200), rows[1].Block)
	assert.Equal(t, "-0.15", rows[1].APYDeltaPP.String())
}

func TestComparisonsSharedFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir)
	d := day(t, "2025-09-01")

	require.NoError(t, store.PutComparison(ctx, model.ComparisonRow{Date: d, VaultName: "A", VaultAddress: "0xaa", DailyAPYPct: decimal.NewFromInt(5)}))
	require.NoError(t, store.PutComparison(ctx, model.ComparisonRow{Date: d, VaultName: "B", VaultAddress: "0xbb", DailyAPYPct: decimal.NewFromInt(6)}))
	require.NoError(t, store.PutComparison(ctx, model.ComparisonRow{Date: d, VaultName: "A", VaultAddress: "0xAA", DailyAPYPct: decimal.NewFromInt(7)}))

	rows, err := NewStore(dir).LoadComparisons(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "7", rows[0].DailyAPYPct.String())
	assert.Equal(t, filepath.Join(dir, "apy_comparisons.csv"), store.ComparisonPath())
}

func TestFailedWriteLeavesCacheAndFileUnchanged(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir)

	first := model.DailyMetricRow{Date: day(t, "2025-09-20"), SharePrice: decimal.NewFromInt(1), VaultAddress: vaultAddr}
	require.NoError(t, store.PutDaily(ctx, vaultAddr, first))

	// A directory at the temp path makes os.Create fail.
	require.NoError(t, os.Mkdir(store.DailyPath(vaultAddr)+".tmp", 0o755))

	second := first
	second.Date = day(t, "2025-09-21")
	require.Error(t, store.PutDaily(ctx, vaultAddr, second))

	cached, err := store.LoadDaily(ctx, vaultAddr)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "2025-09-20", cached[0].Date.String())

	onDisk, err := NewStore(dir).LoadDaily(ctx, vaultAddr)
	require.NoError(t, err)
	require.Len(t, onDisk, 1)

	require.NoError(t, os.Remove(store.DailyPath(vaultAddr)+".tmp"))
	require.NoError(t, store.PutDaily(ctx, vaultAddr, second))
	cached, err = store.LoadDaily(ctx, vaultAddr)
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestFailedReallocationAndComparisonWritesAreNotCached(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	require.NoError(t, os.MkdirAll(store.ReallocationPath(vaultAddr)+".tmp", 0o755))
	require.Error(t, store.PutReallocation(ctx, vaultAddr, model.ReallocationRow{TxHash: "0xa", Block: 10}))
	rows, err := store.LoadReallocations(ctx, vaultAddr)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, os.MkdirAll(store.ComparisonPath()+".tmp", 0o755))
	require.Error(t, store.PutComparison(ctx, model.ComparisonRow{Date: day(t, "2025-09-20"), VaultAddress: "0xaa"}))
	cmp, err := store.LoadComparisons(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp)
}
