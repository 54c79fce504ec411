package events

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"vaultScope/internal/chain"
	"vaultScope/internal/chain/chaintest"
	"vaultScope/internal/model"
)

var testVault = common.HexToAddress("0x1111111111111111111111111111111111111111")

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func depositLog(block uint64, assets *big.Int) types.Log {
	data := append(chaintest.Word(assets), chaintest.Word(big.NewInt(1))...)
	return types.Log{
		Address:     testVault,
		Topics:      []common.Hash{DepositTopic, {}, {}},
		Data:        data,
		BlockNumber: block,
	}
}

func u64(v uint64) *uint64 { return &v }

func TestSumEventFieldFirstWord(t *testing.T) {
	c := chaintest.Linear(1_700_000_000, 12, 100)
	c.AddLog(depositLog(10, tokens(100)))
	c.AddLog(depositLog(20, tokens(50)))
	c.AddLog(depositLog(90, tokens(7)))

	agg := NewAggregator(c, chain.NewResolver(c, nil), Config{}, zaptest.NewLogger(t))
	sum, err := agg.SumEventField(context.Background(), testVault, DepositTopic, u64(0), u64(50))
	require.NoError(t, err)
	assert.Equal(t, tokens(150).String(), sum.String())
}

func TestSumEventFieldSkipsMalformed(t *testing.T) {
	c := chaintest.Linear(1_700_000_000, 12, 100)
	c.AddLog(depositLog(10, tokens(100)))
	c.AddLog(types.Log{Address: testVault, Topics: []common.Hash{DepositTopic}, Data: []byte{0x01, 0x02}, BlockNumber: 11})

	agg := NewAggregator(c, nil, Config{}, nil)
	sum, err := agg.SumEventField(context.Background(), testVault, DepositTopic, nil, nil)
	assert.ErrorIs(t, err, model.ErrEventScanDegraded)
	assert.Equal(t, tokens(100).String(), sum.String())
}

func TestSumEventFieldFetchFailureIsZero(t *testing.T) {
	c := chaintest.Linear(1_700_000_000, 12, 100)
	c.AddLog(depositLog(10, tokens(100)))
	c.LogErr = errors.New("query returned more than 10000 results")

	agg := NewAggregator(c, nil, Config{}, nil)
	sum, err := agg.SumEventField(context.Background(), testVault, DepositTopic, u64(0), u64(99))
	assert.ErrorIs(t, err, model.ErrEventScanDegraded)
	assert.Equal(t, int64(0), sum.Int64())
}

func TestSumEventFieldBatches(t *testing.T) {
	c := chaintest.Linear(1_700_000_000, 12, 100)
	c.AddLog(depositLog(10, tokens(1)))
	c.AddLog(depositLog(45, tokens(2)))
	c.AddLog(depositLog(80, tokens(3)))

	agg := NewAggregator(c, nil, Config{BatchSize: 30}, nil)
	sum, err := agg.SumEventField(context.Background(), testVault, DepositTopic, u64(0), u64(89))
	require.NoError(t, err)
	assert.Equal(t, tokens(6).String(), sum.String())
	assert.Len(t, c.Queries, 3)
}

func TestSumEventFieldSymbolicBounds(t *testing.T) {
	c := chaintest.Linear(1_700_000_000, 12, 100)
	c.AddLog(depositLog(99, tokens(4)))

	agg := NewAggregator(c, nil, Config{BatchSize: 10}, nil)
	sum, err := agg.SumEventField(context.Background(), testVault, DepositTopic, u64(50), nil)
	require.NoError(t, err)
	assert.Equal(t, tokens(4).String(), sum.String())
	require.Len(t, c.Queries, 1)
	assert.Nil(t, c.Queries[0].ToBlock)
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, time.Time) (uint64, error) {
	return 0, model.Wrap(model.ErrChainUnavailable, "resolve", errors.New("dial tcp: refused"))
}

func TestDayRangeFallsBackToSymbolic(t *testing.T) {
	agg := NewAggregator(chaintest.Linear(0, 12, 10), failingResolver{}, Config{}, nil)
	from, to, err := agg.DayRange(context.Background(), time.Unix(0, 0), time.Unix(100, 0))
	assert.Nil(t, from)
	assert.Nil(t, to)
	assert.ErrorIs(t, err, model.ErrEventScanDegraded)
}

func TestDailyFlowsScalesDepositsNotFees(t *testing.T) {
	const genesis = 1_700_000_000
	c := chaintest.Linear(genesis, 12, 1000)
	c.AddLog(depositLog(100, big.NewInt(100_000_000)))
	c.AddLog(depositLog(200, big.NewInt(50_000_000)))
	c.AddLog(types.Log{
		Address:     testVault,
		Topics:      []common.Hash{WithdrawTopic},
		Data:        append(chaintest.Word(big.NewInt(25_000_000)), chaintest.Word(big.NewInt(1))...),
		BlockNumber: 300,
	})
	c.AddLog(types.Log{
		Address:     testVault,
		Topics:      []common.Hash{Topic("PerformanceFeePaid(uint256)")},
		Data:        chaintest.Word(big.NewInt(1234)),
		BlockNumber: 400,
	})
	// outside the window
	c.AddLog(depositLog(900, big.NewInt(1)))

	agg := NewAggregator(c, chain.NewResolver(c, nil), Config{}, zaptest.NewLogger(t))
	flows, problems := agg.DailyFlows(context.Background(), testVault, 6,
		time.Unix(genesis, 0), time.Unix(genesis+12*500, 0))
	require.Empty(t, problems)

	assert.Equal(t, "150", flows.Deposits.String())
	assert.Equal(t, "25", flows.Withdraws.String())
	assert.Equal(t, "1234", flows.Fees.String())
}
