package vault

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"vaultScope/internal/chain"
	"vaultScope/internal/model"
	"vaultScope/internal/numeric"
)

// DefaultAssetDecimals applies when a vault reports the zero asset address.
const DefaultAssetDecimals uint8 = 18

// Reader reads ERC-4626 vault snapshots at historical blocks.
type Reader struct {
	caller   chain.ContractCaller
	num      numeric.Context
	decimals *xsync.Map[common.Address, uint8]
	logger   *zap.Logger
}

func NewReader(caller chain.ContractCaller, num numeric.Context, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		caller:   caller,
		num:      num,
		decimals: xsync.NewMap[common.Address, uint8](),
		logger:   logger,
	}
}

// Snapshot reads the vault with every call pinned to block.
// Any failed call except symbol yields ErrSnapshotUnavailable.
func (r *Reader) Snapshot(ctx context.Context, vaultAddr common.Address, block uint64) (model.VaultSnapshot, error) {
	vaultABI, err := erc4626ABI.Get()
	if err != nil {
		return model.VaultSnapshot{}, fmt.Errorf("parse erc4626 abi: %w", err)
	}
	at := chain.BlockArg(block)
	fail := func(err error) (model.VaultSnapshot, error) {
		return model.VaultSnapshot{}, model.Wrap(model.ErrSnapshotUnavailable,
			fmt.Sprintf("snapshot %s at block %d", vaultAddr.Hex(), block), err)
	}

	values, err := chain.CallMethod(ctx, r.caller, vaultAddr, vaultABI, "asset", at)
	if err != nil {
		return fail(err)
	}
	asset, err := chain.AsAddress(values[0])
	if err != nil {
		return fail(fmt.Errorf("asset: %w", err))
	}

	assetDecimals := DefaultAssetDecimals
	if asset != (common.Address{}) {
		if assetDecimals, err = r.tokenDecimals(ctx, asset, at); err != nil {
			return fail(err)
		}
	}
	symbol := r.tokenSymbol(ctx, asset, at)

	totalAssetsRaw, err := r.callBig(ctx, vaultAddr, vaultABI, "totalAssets", at)
	if err != nil {
		return fail(err)
	}
	totalSupplyRaw, err := r.callBig(ctx, vaultAddr, vaultABI, "totalSupply", at)
	if err != nil {
		return fail(err)
	}
	values, err = chain.CallMethod(ctx, r.caller, vaultAddr, vaultABI, "decimals", at)
	if err != nil {
		return fail(err)
	}
	vaultDecimals, err := chain.AsUint8(values[0])
	if err != nil {
		return fail(fmt.Errorf("decimals: %w", err))
	}

	snap := model.VaultSnapshot{
		Block:          block,
		Vault:          vaultAddr,
		Asset:          asset,
		AssetDecimals:  assetDecimals,
		AssetSymbol:    symbol,
		TotalAssetsRaw: totalAssetsRaw,
		TotalAssets:    numeric.Scale(totalAssetsRaw, assetDecimals),
		TotalSupplyRaw: totalSupplyRaw,
		TotalSupply:    numeric.Scale(totalSupplyRaw, vaultDecimals),
		VaultDecimals:  vaultDecimals,
	}
	if totalSupplyRaw.Sign() > 0 {
		snap.SharePrice = numeric.NonNegative(r.num.Div(snap.TotalAssets, snap.TotalSupply))
	}
	return snap, nil
}

func (r *Reader) callBig(ctx context.Context, to common.Address, parsed abi.ABI, method string, at *big.Int) (*big.Int, error) {
	values, err := chain.CallMethod(ctx, r.caller, to, parsed, method, at)
	if err != nil {
		return nil, err
	}
	v, err := chain.AsBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return v, nil
}

// tokenDecimals is cached per token; decimals never change after deployment.
func (r *Reader) tokenDecimals(ctx context.Context, token common.Address, at *big.Int) (uint8, error) {
	if d, ok := r.decimals.Load(token); ok {
		return d, nil
	}
	parsed, err := erc20ABIString.Get()
	if err != nil {
		return 0, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := chain.CallMethod(ctx, r.caller, token, parsed, "decimals", at)
	if err != nil {
		return 0, fmt.Errorf("asset decimals: %w", err)
	}
	d, err := chain.AsUint8(values[0])
	if err != nil {
		return 0, fmt.Errorf("asset decimals: %w", err)
	}
	r.decimals.Store(token, d)
	return d, nil
}

func (r *Reader) tokenSymbol(ctx context.Context, token common.Address, at *big.Int) string {
	if token == (common.Address{}) {
		return ""
	}
	if parsed, err := erc20ABIString.Get(); err == nil {
		if values, err := chain.CallMethod(ctx, r.caller, token, parsed, "symbol", at); err == nil {
			if s, ok := values[0].(string); ok {
				return s
			}
		}
	}
	if parsed, err := erc20ABIBytes32.Get(); err == nil {
		values, err := chain.CallMethod(ctx, r.caller, token, parsed, "symbol", at)
		if err == nil {
			if s, ok := chain.Bytes32ToString(values[0]); ok {
				return s
			}
		} else {
			r.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
		}
	}
	return ""
}
