package events

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/model"
	"vaultScope/internal/numeric"
)

const wordSize = 32

// LogFilterer fetches logs from a node.
type LogFilterer interface {
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// BlockResolver maps instants to blocks.
type BlockResolver interface {
	Resolve(ctx context.Context, target time.Time) (uint64, error)
}

// Config tunes log scanning.
type Config struct {
	// BatchSize splits a range into getLogs calls of at most this many blocks. Zero disables splitting.
	BatchSize     uint64
	FeeSignatures []string
}

// Aggregator sums amounts carried in event payloads.
type Aggregator struct {
	logs      LogFilterer
	resolver  BlockResolver
	batchSize uint64
	feeTopics []common.Hash
	logger    *zap.Logger
}

func NewAggregator(logs LogFilterer, resolver BlockResolver, cfg Config, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	sigs := cfg.FeeSignatures
	if len(sigs) == 0 {
		sigs = DefaultFeeSignatures
	}
	return &Aggregator{
		logs:      logs,
		resolver:  resolver,
		batchSize: cfg.BatchSize,
		feeTopics: Topics(sigs),
		logger:    logger,
	}
}

// SumEventField sums the first 32-byte word of every matching log in [from, to].
// A nil bound is symbolic: earliest for from, latest for to.
//
// The returned sum is always usable. A non-nil error carries ErrEventScanDegraded:
// on a fetch failure the sum is zero, on malformed payloads those logs are left out.
func (a *Aggregator) SumEventField(ctx context.Context, contract common.Address, topic common.Hash, from, to *uint64) (*big.Int, error) {
	sum := new(big.Int)
	spans := Span{From: from, To: to}.Split(a.batchSize)
	if len(spans) == 0 {
		return sum, nil
	}

	skipped := 0
	for _, span := range spans {
		logs, err := a.logs.FilterLogs(ctx, span.query(contract, topic))
		if err != nil {
			a.logger.Warn("log fetch failed",
				zap.String("contract", contract.Hex()),
				zap.String("topic", topic.Hex()),
				zap.Error(err),
			)
			return new(big.Int), model.Wrap(model.ErrEventScanDegraded, "get logs "+topic.Hex(), err)
		}
		for _, l := range logs {
			if len(l.Data) < wordSize {
				skipped++
				continue
			}
			sum.Add(sum, new(big.Int).SetBytes(l.Data[:wordSize]))
		}
	}

	if skipped > 0 {
		a.logger.Warn("malformed log payloads skipped",
			zap.String("contract", contract.Hex()),
			zap.String("topic", topic.Hex()),
			zap.Int("skipped", skipped),
		)
		return sum, model.Errorf(model.ErrEventScanDegraded, "get logs "+topic.Hex(), "skipped %d malformed payloads", skipped)
	}
	return sum, nil
}

// DayRange resolves a wall-clock window to block bounds. An unresolvable
// bound comes back nil (symbolic) together with the resolution error.
func (a *Aggregator) DayRange(ctx context.Context, start, end time.Time) (from, to *uint64, err error) {
	var errs []error
	if n, rerr := a.resolver.Resolve(ctx, start); rerr == nil {
		from = &n
	} else {
		errs = append(errs, fmt.Errorf("resolve window start: %w", rerr))
	}
	if n, rerr := a.resolver.Resolve(ctx, end); rerr == nil {
		to = &n
	} else {
		errs = append(errs, fmt.Errorf("resolve window end: %w", rerr))
	}
	if len(errs) > 0 {
		return from, to, model.Wrap(model.ErrEventScanDegraded, "day range", errors.Join(errs...))
	}
	return from, to, nil
}

// Flows are a vault's event totals for one window.
type Flows struct {
	Deposits  decimal.Decimal
	Withdraws decimal.Decimal
	// Fees is a raw integer sum across the fee signatures, not scaled.
	Fees decimal.Decimal
}

// DailyFlows aggregates deposits, withdrawals, and fees for [start, end].
// Every problem is reported in the returned slice; the flows are always usable.
func (a *Aggregator) DailyFlows(ctx context.Context, vault common.Address, assetDecimals uint8, start, end time.Time) (Flows, []error) {
	var problems []error
	from, to, err := a.DayRange(ctx, start, end)
	if err != nil {
		problems = append(problems, err)
	}

	deposits, err := a.SumEventField(ctx, vault, DepositTopic, from, to)
	if err != nil {
		problems = append(problems, err)
	}
	withdraws, err := a.SumEventField(ctx, vault, WithdrawTopic, from, to)
	if err != nil {
		problems = append(problems, err)
	}

	fees := new(big.Int)
	for _, topic := range a.feeTopics {
		v, err := a.SumEventField(ctx, vault, topic, from, to)
		if err != nil {
			problems = append(problems, err)
		}
		fees.Add(fees, v)
	}

	return Flows{
		Deposits:  numeric.Scale(deposits, assetDecimals),
		Withdraws: numeric.Scale(withdraws, assetDecimals),
		Fees:      decimal.NewFromBigInt(fees, 0),
	}, problems
}
