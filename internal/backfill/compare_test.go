package backfill

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"vaultScope/internal/chain"
	"vaultScope/internal/numeric"
	"vaultScope/internal/storage"
	"vaultScope/internal/vault"
	"vaultScope/internal/warn"
)

func newCompareBuilder(t *testing.T, e *env, store storage.ComparisonStore) *CompareBuilder {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return NewCompareBuilder(
		chain.NewResolver(e.chain, nil),
		vault.NewReader(e.chain, numeric.NewContext(50), logger),
		store,
		warn.NewReporter("compare", e.warnings, logger),
		Config{Location: e.builder.loc, Now: func() time.Time { return runAt }},
		logger,
	)
}

func TestCompareSeedsPreviousPriceFromDayBefore(t *testing.T) {
	e := newEnv(t)
	store := storage.NewMemory()
	cb := newCompareBuilder(t, e, store)
	v := CompareVault{Name: "kpk USDC Prime", Address: testVaultAddr}

	res, err := cb.Run(context.Background(), v, date(t, "2025-09-21"), 12*time.Hour)
	require.NoError(t, err)
	assert.Len(t, res.Written, 2)

	rows, err := store.LoadComparisons(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	num := numeric.NewContext(50)
	apy, _ := ComputeYield(num, sharePriceAt(204), sharePriceAt(348), sharePriceAt(0))
	assert.True(t, rows[0].DailyAPYPct.Equal(apy.Mul(hundred())), "got %s", rows[0].DailyAPYPct)
	assert.Equal(t, "USDC", rows[0].UnderlyingToken)
	assert.Equal(t, "kpk USDC Prime", rows[0].VaultName)

	res, err = cb.Run(context.Background(), v, date(t, "2025-09-21"), 12*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, res.Written)
	assert.Equal(t, 2, store.Puts)
}

func TestCompareFailedDayDoesNotAdvancePrevious(t *testing.T) {
	e := newEnv(t)
	e.failing[348] = true
	store := storage.NewMemory()
	cb := newCompareBuilder(t, e, store)

	res, err := cb.Run(context.Background(), CompareVault{Name: "x", Address: testVaultAddr}, date(t, "2025-09-21"), 12*time.Hour)
	require.NoError(t, err)
	assert.Len(t, res.Skipped, 1)

	rows, err := store.LoadComparisons(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-09-22", rows[0].Date.String())

	apy, _ := ComputeYield(numeric.NewContext(50), sharePriceAt(204), sharePriceAt(492), sharePriceAt(0))
	assert.True(t, rows[0].DailyAPYPct.Equal(apy.Mul(hundred())))
}

func TestUnderlyingToken(t *testing.T) {
	assert.Equal(t, "USDC", UnderlyingToken("whatever", " usdc "))
	assert.Equal(t, "EURC", UnderlyingToken("Gauntlet EURC Core", ""))
	assert.Equal(t, "USDT", UnderlyingToken("Steakhouse USDT", ""))
	assert.Equal(t, "", UnderlyingToken("Mystery", ""))
}

func hundred() decimal.Decimal { return decimal.NewFromInt(100) }
