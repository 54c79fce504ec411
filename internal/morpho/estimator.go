package morpho

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/model"
	"vaultScope/internal/numeric"
	"vaultScope/internal/warn"
)

// Estimator computes blended APYs with every read pinned to one block.
type Estimator struct {
	caller   chain.ContractCaller
	registry common.Address
	num      numeric.Context
	reporter *warn.Reporter
	decimals *xsync.Map[common.Address, uint8]
	logger   *zap.Logger
}

func NewEstimator(caller chain.ContractCaller, registry common.Address, num numeric.Context, reporter *warn.Reporter, logger *zap.Logger) *Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == (common.Address{}) {
		registry = DefaultRegistry
	}
	return &Estimator{
		caller:   caller,
		registry: registry,
		num:      num,
		reporter: reporter,
		decimals: xsync.NewMap[common.Address, uint8](),
		logger:   logger,
	}
}

// BlendedAPY returns the vault's estimated supply APY in percent at block.
// Markets without a usable position are reported and skipped; a failed read fails the estimate.
func (e *Estimator) BlendedAPY(ctx context.Context, block uint64, marketIDs []common.Hash, vault common.Address) (decimal.Decimal, error) {
	var allocations []Allocation
	for _, id := range marketIDs {
		state, err := e.Market(ctx, id, vault, block)
		if err != nil {
			return decimal.Zero, err
		}

		skip := func(reason string) {
			e.reporter.Report(vault.Hex(), model.ScopeMarket, id.Hex(),
				model.Errorf(model.ErrMarketSkipped, "blended apy", "block %d: %s", block, reason))
		}
		if reason := skipReason(state); reason != "" {
			skip(reason)
			continue
		}
		loanDecimals, err := e.loanDecimals(ctx, state.Params.LoanToken, block)
		if err != nil {
			return decimal.Zero, err
		}
		a, reason := Allocate(e.num, state, loanDecimals)
		if reason != "" {
			skip(reason)
			continue
		}

		rate, err := e.BorrowRate(ctx, state, block)
		if err != nil {
			return decimal.Zero, err
		}
		if a.BorrowAPY, err = BorrowAPY(e.num, rate); err != nil {
			return decimal.Zero, fmt.Errorf("borrow apy %s: %w", id.Hex(), err)
		}
		allocations = append(allocations, a)
	}

	apy := Blend(e.num, allocations)
	e.logger.Debug("blended apy",
		zap.String("vault", vault.Hex()),
		zap.Uint64("block", block),
		zap.Int("markets", len(allocations)),
		zap.String("apy_pct", apy.StringFixed(6)),
	)
	return apy, nil
}

// Market reads a market's parameters, aggregate state, and account's supply shares.
func (e *Estimator) Market(ctx context.Context, id common.Hash, account common.Address, block uint64) (model.MarketState, error) {
	parsed, err := registryABI.Get()
	if err != nil {
		return model.MarketState{}, fmt.Errorf("parse registry abi: %w", err)
	}
	at := chain.BlockArg(block)
	idArg := [32]byte(id)
	fail := func(err error) (model.MarketState, error) {
		return model.MarketState{}, model.Wrap(model.ErrChainUnavailable,
			fmt.Sprintf("market %s at block %d", id.Hex(), block), err)
	}

	values, err := chain.CallMethod(ctx, e.caller, e.registry, parsed, "idToMarketParams", at, idArg)
	if err != nil {
		return fail(err)
	}
	params, err := decodeParams(values)
	if err != nil {
		return fail(err)
	}

	values, err = chain.CallMethod(ctx, e.caller, e.registry, parsed, "market", at, idArg)
	if err != nil {
		return fail(err)
	}
	totals, err := bigs(values, 6)
	if err != nil {
		return fail(fmt.Errorf("market: %w", err))
	}

	values, err = chain.CallMethod(ctx, e.caller, e.registry, parsed, "position", at, idArg, account)
	if err != nil {
		return fail(err)
	}
	shares, err := chain.AsBigInt(values[0])
	if err != nil {
		return fail(fmt.Errorf("position: %w", err))
	}

	return model.MarketState{
		ID:                id,
		Params:            params,
		TotalSupplyAssets: totals[0],
		TotalSupplyShares: totals[1],
		TotalBorrowAssets: totals[2],
		TotalBorrowShares: totals[3],
		LastUpdate:        totals[4].Uint64(),
		Fee:               totals[5],
		SupplyShares:      shares,
	}, nil
}

// BorrowRate reads the market's WAD-scaled per-second borrow rate. A market without a rate model has rate zero.
func (e *Estimator) BorrowRate(ctx context.Context, state model.MarketState, block uint64) (*big.Int, error) {
	if state.Params.IRM == (common.Address{}) {
		return new(big.Int), nil
	}
	parsed, err := irmABI.Get()
	if err != nil {
		return nil, fmt.Errorf("parse irm abi: %w", err)
	}
	values, err := chain.CallMethod(ctx, e.caller, state.Params.IRM, parsed, "borrowRateView", chain.BlockArg(block),
		toParamsTuple(state.Params), toMarketTuple(state))
	if err != nil {
		return nil, model.Wrap(model.ErrChainUnavailable, fmt.Sprintf("borrow rate %s", state.ID.Hex()), err)
	}
	return chain.AsBigInt(values[0])
}

func (e *Estimator) loanDecimals(ctx context.Context, token common.Address, block uint64) (uint8, error) {
	if d, ok := e.decimals.Load(token); ok {
		return d, nil
	}
	parsed, err := tokenABI.Get()
	if err != nil {
		return 0, fmt.Errorf("parse token abi: %w", err)
	}
	values, err := chain.CallMethod(ctx, e.caller, token, parsed, "decimals", chain.BlockArg(block))
	if err != nil {
		return 0, model.Wrap(model.ErrChainUnavailable, fmt.Sprintf("decimals %s", token.Hex()), err)
	}
	d, err := chain.AsUint8(values[0])
	if err != nil {
		return 0, fmt.Errorf("decimals %s: %w", token.Hex(), err)
	}
	e.decimals.Store(token, d)
	return d, nil
}

func decodeParams(values []interface{}) (model.MarketParams, error) {
	if len(values) < 5 {
		return model.MarketParams{}, fmt.Errorf("idToMarketParams: %d values", len(values))
	}
	var addrs [4]common.Address
	for i := range addrs {
		a, err := chain.AsAddress(values[i])
		if err != nil {
			return model.MarketParams{}, fmt.Errorf("idToMarketParams: %w", err)
		}
		addrs[i] = a
	}
	lltv, err := chain.AsBigInt(values[4])
	if err != nil {
		return model.MarketParams{}, fmt.Errorf("idToMarketParams: %w", err)
	}
	return model.MarketParams{
		LoanToken:       addrs[0],
		CollateralToken: addrs[1],
		Oracle:          addrs[2],
		IRM:             addrs[3],
		LLTV:            lltv,
	}, nil
}

func bigs(values []interface{}, n int) ([]*big.Int, error) {
	if len(values) < n {
		return nil, fmt.Errorf("%d values, want %d", len(values), n)
	}
	out := make([]*big.Int, n)
	for i := range out {
		v, err := chain.AsBigInt(values[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
