package postgres

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/model"
)

func TestParseDecimalsEmptyIsZero(t *testing.T) {
	vals, err := parseDecimals([]string{"", "1.25", "-0.5"})
	require.NoError(t, err)
	assert.True(t, vals[0].IsZero())
	assert.Equal(t, "1.25", vals[1].String())
	assert.Equal(t, "-0.5", vals[2].String())

	_, err = parseDecimals([]string{"NaN?"})
	assert.Error(t, err)
}

func TestChecksumAddressRestoresEIP55(t *testing.T) {
	checksummed := common.HexToAddress("0xbeef01735c132ada46aa9aa4c54623caa92a64cb").Hex()
	assert.Equal(t, checksummed, checksumAddress(strings.ToLower(checksummed)))
	assert.Equal(t, checksummed, checksumAddress(checksummed))
	assert.Equal(t, "not-an-address", checksumAddress("not-an-address"))
}

// Runs against a real database when VAULTSCOPE_TEST_PG_DSN is set.
func TestStoreDailyUpsert(t *testing.T) {
	dsn := os.Getenv("VAULTSCOPE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("VAULTSCOPE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	vault := "0x00000000000000000000000000000000000000aa"
	_, err = store.pool.Exec(ctx, `DELETE FROM vault_daily_metrics WHERE vault_address = $1`, vault)
	require.NoError(t, err)

	d, _ := model.ParseDate("2025-09-20")
	row := model.DailyMetricRow{Date: d, SharePrice: decimal.RequireFromString("1.0001"), VaultAddress: vault}
	require.NoError(t, store.PutDaily(ctx, vault, row))
	row.SharePrice = decimal.RequireFromString("1.0002")
	require.NoError(t, store.PutDaily(ctx, vault, row))

	rows, err := store.LoadDaily(ctx, vault)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1.0002", rows[0].SharePrice.String())
}
