package reallocation

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/chain/chaintest"
)

func TestPriceFeed(t *testing.T) {
	parsed, err := aggregatorABI.Get()
	require.NoError(t, err)
	c := chaintest.Linear(0, 12, 400)
	c.Const(DefaultPriceFeed, parsed, "decimals", uint8(8))
	c.Handle(DefaultPriceFeed, parsed, "latestRoundData", func(block uint64, _ []interface{}) ([]interface{}, error) {
		answer := big.NewInt(int64(250_000_000_000 + block))
		return []interface{}{big.NewInt(1), answer, big.NewInt(0), big.NewInt(0), big.NewInt(1)}, nil
	})

	p := NewPriceFeed(c, common.Address{}, nil)
	got, err := p.Price(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "2500.00000005", got.String())
}

func TestPriceFeedDecimalsFallback(t *testing.T) {
	parsed, err := aggregatorABI.Get()
	require.NoError(t, err)
	c := chaintest.Linear(0, 12, 400)
	c.Const(DefaultPriceFeed, parsed, "latestRoundData", big.NewInt(1), big.NewInt(300_000_000_000), big.NewInt(0), big.NewInt(0), big.NewInt(1))

	got, err := NewPriceFeed(c, DefaultPriceFeed, nil).Price(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "3000", got.String())
}
