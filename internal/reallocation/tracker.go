// Package reallocation tracks allocator transactions and their gas cost and APY impact.
package reallocation

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/etherscan"
	"vaultScope/internal/model"
	"vaultScope/internal/storage"
	"vaultScope/internal/warn"
)

// ExecSignature is the Zodiac Roles modifier entry point used by allocators.
const ExecSignature = "execTransactionWithRole(address,uint256,bytes,uint8,bytes32,bool)"

const nativeDecimals = 18

// ExecSelector returns the 4-byte selector of ExecSignature.
func ExecSelector() [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(ExecSignature))[:4])
	return sel
}

type TxSource interface {
	TxList(ctx context.Context, address common.Address) ([]etherscan.Tx, error)
}

type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

type APYEstimator interface {
	BlendedAPY(ctx context.Context, block uint64, marketIDs []common.Hash, vault common.Address) (decimal.Decimal, error)
}

type PriceReader interface {
	Price(ctx context.Context, block uint64) (decimal.Decimal, error)
}

// Target is one vault's allocator setup.
type Target struct {
	Name      string
	Vault     common.Address
	Allocator common.Address
	Router    common.Address
	MarketIDs []common.Hash
	Selector  [4]byte
}

type Result struct {
	Matched int
	Written []string
}

type Tracker struct {
	txs       TxSource
	receipts  ReceiptReader
	estimator APYEstimator
	prices    PriceReader
	store     storage.ReallocationStore
	reporter  *warn.Reporter
	logger    *zap.Logger
}

func NewTracker(txs TxSource, receipts ReceiptReader, estimator APYEstimator, prices PriceReader, store storage.ReallocationStore, reporter *warn.Reporter, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		txs:       txs,
		receipts:  receipts,
		estimator: estimator,
		prices:    prices,
		store:     store,
		reporter:  reporter,
		logger:    logger,
	}
}

// FilterTransactions keeps allocator-to-router calls of the exec selector mined after afterBlock,
// in ascending block order.
func FilterTransactions(txs []etherscan.Tx, t Target, afterBlock uint64) []etherscan.Tx {
	prefix := hexutil.Encode(t.Selector[:])
	var out []etherscan.Tx
	for _, tx := range txs {
		if !strings.EqualFold(tx.From, t.Allocator.Hex()) || !strings.EqualFold(tx.To, t.Router.Hex()) {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(tx.Input), prefix) {
			continue
		}
		block, err := tx.Block()
		if err != nil || block <= afterBlock {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		bi, _ := out[i].Block()
		bj, _ := out[j].Block()
		return bi < bj
	})
	return out
}

// Run appends a row for every new matching transaction, persisting each as it is built.
func (tr *Tracker) Run(ctx context.Context, t Target) (Result, error) {
	if t.Selector == ([4]byte{}) {
		t.Selector = ExecSelector()
	}
	addr := t.Vault.Hex()
	rows, err := tr.store.LoadReallocations(ctx, addr)
	if err != nil {
		return Result{}, fmt.Errorf("load reallocations %s: %w", t.Name, err)
	}
	series := storage.NewReallocationSeries(rows...)

	all, err := tr.txs.TxList(ctx, t.Router)
	if err != nil {
		return Result{}, fmt.Errorf("list router transactions: %w", err)
	}
	matched := FilterTransactions(all, t, series.LastBlock())
	res := Result{Matched: len(matched)}
	tr.logger.Info("reallocations start",
		zap.String("vault", t.Name),
		zap.Int("listed", len(all)),
		zap.Int("matched", len(matched)),
		zap.Uint64("after_block", series.LastBlock()),
	)

	for _, tx := range matched {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if series.Has(storage.HashKey(tx.Hash)) {
			continue
		}
		row, err := tr.buildRow(ctx, t, tx)
		if err != nil {
			tr.reporter.Report(addr, model.ScopeTx, tx.Hash, err)
			continue
		}
		if err := tr.store.PutReallocation(ctx, addr, row); err != nil {
			return res, fmt.Errorf("persist reallocation %s: %w", tx.Hash, err)
		}
		series.Upsert(row)
		res.Written = append(res.Written, tx.Hash)
	}

	tr.logger.Info("reallocations done", zap.String("vault", t.Name), zap.Int("written", len(res.Written)))
	return res, nil
}

func (tr *Tracker) buildRow(ctx context.Context, t Target, tx etherscan.Tx) (model.ReallocationRow, error) {
	block, err := tx.Block()
	if err != nil {
		return model.ReallocationRow{}, fmt.Errorf("block number %q: %w", tx.BlockNumber, err)
	}
	ts, err := tx.Time()
	if err != nil {
		return model.ReallocationRow{}, fmt.Errorf("timestamp %q: %w", tx.TimeStamp, err)
	}
	addr := t.Vault.Hex()

	gas := tr.gasNative(ctx, addr, tx)
	fiat := decimal.Zero
	if gas.Sign() > 0 {
		price, err := tr.prices.Price(ctx, block)
		if err != nil {
			tr.reporter.Report(addr, model.ScopeTx, tx.Hash, fmt.Errorf("native price: %w", err))
		} else {
			fiat = gas.Mul(price)
		}
	}

	before := tr.apy(ctx, t, tx.Hash, saturatingPrev(block))
	after := tr.apy(ctx, t, tx.Hash, block)

	return model.ReallocationRow{
		Timestamp:    ts,
		TxHash:       tx.Hash,
		Block:        block,
		GasNative:    gas,
		GasFiat:      fiat,
		APYBeforePct: before,
		APYAfterPct:  after,
		APYDeltaPP:   after.Sub(before),
	}, nil
}

// gasNative is gasUsed * effective gas price in native units, or zero when the receipt is unavailable.
func (tr *Tracker) gasNative(ctx context.Context, vault string, tx etherscan.Tx) decimal.Decimal {
	receipt, err := tr.receipts.TransactionReceipt(ctx, common.HexToHash(tx.Hash))
	if err != nil || receipt == nil {
		if err == nil {
			err = fmt.Errorf("empty receipt")
		}
		tr.reporter.Report(vault, model.ScopeTx, tx.Hash, fmt.Errorf("receipt: %w", err))
		return decimal.Zero
	}
	price := receipt.EffectiveGasPrice
	if price == nil || price.Sign() == 0 {
		price, _ = new(big.Int).SetString(strings.TrimSpace(tx.GasPrice), 10)
	}
	if price == nil {
		return decimal.Zero
	}
	wei := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), price)
	return decimal.NewFromBigInt(wei, -nativeDecimals)
}

func (tr *Tracker) apy(ctx context.Context, t Target, hash string, block uint64) decimal.Decimal {
	apy, err := tr.estimator.BlendedAPY(ctx, block, t.MarketIDs, t.Vault)
	if err != nil {
		tr.reporter.Report(t.Vault.Hex(), model.ScopeTx, hash, fmt.Errorf("apy at block %d: %w", block, err))
		return decimal.Zero
	}
	return apy
}

func saturatingPrev(block uint64) uint64 {
	if block == 0 {
		return 0
	}
	return block - 1
}
