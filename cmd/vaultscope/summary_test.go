package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"vaultScope/internal/config"
	"vaultScope/internal/model"
	"vaultScope/internal/numeric"
	"vaultScope/internal/storage"
	"vaultScope/internal/warn"
)

func TestWriteSummariesSkipsMalformedVault(t *testing.T) {
	ctx := context.Background()
	good := common.HexToAddress("0xbeef01735c132ada46aa9aa4c54623caa92a64cb").Hex()

	store := storage.NewMemory()
	for i, price := range []string{"1", "1.001"} {
		d := model.Date{Year: 2025, Month: 9, Day: 20 + i}
		require.NoError(t, store.PutDaily(ctx, good, model.DailyMetricRow{
			Date:        d,
			SharePrice:  decimal.RequireFromString(price),
			TotalAssets: decimal.NewFromInt(1000),
			AssetSymbol: "USDC",
		}))
	}

	sink := &storage.MemoryWarnings{}
	reporter := warn.NewReporter("summary", sink, zaptest.NewLogger(t))
	vaults := []config.VaultConfig{
		{Name: "broken", Address: breakChecksum(good)},
		{Name: "steakhouse", Address: good},
	}

	var out bytes.Buffer
	err := writeSummaries(ctx, &out, store, numeric.NewContext(50), vaults, map[string]int{storage.AddressKey(good): 3}, reporter)
	require.NoError(t, err)

	var got struct {
		Name     string `json:"name"`
		Address  string `json:"address"`
		Days     int    `json:"days"`
		Warnings int    `json:"warnings"`
	}
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	require.NoError(t, json.Unmarshal(lines[0], &got))
	assert.Equal(t, "steakhouse", got.Name)
	assert.Equal(t, good, got.Address)
	assert.Equal(t, 1, got.Days)
	assert.Equal(t, 3, got.Warnings)

	warnings := sink.All()
	require.Len(t, warnings, 1)
	assert.Equal(t, model.ScopeVault, warnings[0].Scope)
	assert.Equal(t, "broken", warnings[0].Key)
	assert.Equal(t, model.ErrMalformedAddress.Error(), warnings[0].Kind)
}

// breakChecksum flips the case of the first hex letter of a checksummed address.
func breakChecksum(addr string) string {
	b := []byte(addr)
	for i := 2; i < len(b); i++ {
		c := b[i]
		switch {
		case c >= 'a' && c <= 'f':
			b[i] = c - 'a' + 'A'
			return string(b)
		case c >= 'A' && c <= 'F':
			b[i] = c - 'A' + 'a'
			return string(b)
		}
	}
	return strings.ToUpper(addr)
}
