package reallocation

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/model"
)

// DefaultPriceFeed is the Chainlink ETH/USD aggregator on Ethereum mainnet.
var DefaultPriceFeed = common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419")

const defaultFeedDecimals uint8 = 8

const aggregatorABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "latestRoundData", "outputs": [
    {"name": "roundId", "type": "uint80"},
    {"name": "answer", "type": "int256"},
    {"name": "startedAt", "type": "uint256"},
    {"name": "updatedAt", "type": "uint256"},
    {"name": "answeredInRound", "type": "uint80"}
  ], "stateMutability": "view", "type": "function"}
]`

var aggregatorABI = chain.NewLazyABI(aggregatorABIJSON)

// PriceFeed reads a Chainlink aggregator's answer as of a block.
type PriceFeed struct {
	caller chain.ContractCaller
	feed   common.Address
	logger *zap.Logger

	once     sync.Once
	decimals uint8
}

func NewPriceFeed(caller chain.ContractCaller, feed common.Address, logger *zap.Logger) *PriceFeed {
	if feed == (common.Address{}) {
		feed = DefaultPriceFeed
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceFeed{caller: caller, feed: feed, logger: logger}
}

// Price returns the latest answer at block scaled by the feed decimals.
func (p *PriceFeed) Price(ctx context.Context, block uint64) (decimal.Decimal, error) {
	parsed, err := aggregatorABI.Get()
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse aggregator abi: %w", err)
	}
	at := chain.BlockArg(block)
	p.once.Do(func() { p.decimals = p.feedDecimals(ctx) })

	values, err := chain.CallMethod(ctx, p.caller, p.feed, parsed, "latestRoundData", at)
	if err != nil {
		return decimal.Zero, model.Wrap(model.ErrChainUnavailable, fmt.Sprintf("price at block %d", block), err)
	}
	if len(values) < 2 {
		return decimal.Zero, fmt.Errorf("latestRoundData: %d values", len(values))
	}
	answer, err := chain.AsBigInt(values[1])
	if err != nil {
		return decimal.Zero, fmt.Errorf("latestRoundData answer: %w", err)
	}
	if answer.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("latestRoundData answer %s at block %d", answer, block)
	}
	return decimal.NewFromBigInt(answer, -int32(p.decimals)), nil
}

func (p *PriceFeed) feedDecimals(ctx context.Context) uint8 {
	parsed, err := aggregatorABI.Get()
	if err != nil {
		return defaultFeedDecimals
	}
	values, err := chain.CallMethod(ctx, p.caller, p.feed, parsed, "decimals", nil)
	if err != nil {
		p.logger.Warn("price feed decimals unavailable, assuming 8", zap.String("feed", p.feed.Hex()), zap.Error(err))
		return defaultFeedDecimals
	}
	d, err := chain.AsUint8(values[0])
	if err != nil {
		return defaultFeedDecimals
	}
	return d
}
