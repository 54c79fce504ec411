// Package chaintest provides an in-memory chain for tests.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrRevert mimics a reverted eth_call.
var ErrRevert = errors.New("execution reverted")

// Handler answers one contract method. Returned values are ABI-packed as the method outputs.
type Handler func(block uint64, args []interface{}) ([]interface{}, error)

type callKey struct {
	to       common.Address
	selector [4]byte
}

type handlerEntry struct {
	method abi.Method
	fn     Handler
}

// CallRecord is one observed eth_call.
type CallRecord struct {
	To     common.Address
	Method string
	Block  uint64
}

// Chain is a fake node: a timestamp table, method handlers, and canned logs.
type Chain struct {
	mu         sync.Mutex
	timestamps []uint64
	handlers   map[callKey]handlerEntry
	logs       []types.Log
	receipts   map[common.Hash]*types.Receipt

	LogErr  error
	Calls   []CallRecord
	Queries []ethereum.FilterQuery
}

// New returns a chain whose block i has timestamps[i].
func New(timestamps []uint64) *Chain {
	return &Chain{
		timestamps: timestamps,
		handlers:   make(map[callKey]handlerEntry),
		receipts:   make(map[common.Hash]*types.Receipt),
	}
}

// Linear builds n blocks spaced step seconds apart from genesis.
func Linear(genesis uint64, step uint64, n int) *Chain {
	ts := make([]uint64, n)
	for i := range ts {
		ts[i] = genesis + step*uint64(i)
	}
	return New(ts)
}

// Timestamp returns the timestamp of block n.
func (c *Chain) Timestamp(n uint64) uint64 {
	return c.timestamps[n]
}

func (c *Chain) Latest() uint64 {
	return uint64(len(c.timestamps) - 1)
}

// Handle registers fn for method on the contract at to.
func (c *Chain) Handle(to common.Address, parsed abi.ABI, method string, fn Handler) {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("chaintest: unknown method %s", method))
	}
	var sel [4]byte
	copy(sel[:], m.ID)
	c.mu.Lock()
	c.handlers[callKey{to: to, selector: sel}] = handlerEntry{method: m, fn: fn}
	c.mu.Unlock()
}

// Const registers a handler that always returns values.
func (c *Chain) Const(to common.Address, parsed abi.ABI, method string, values ...interface{}) {
	c.Handle(to, parsed, method, func(uint64, []interface{}) ([]interface{}, error) {
		return values, nil
	})
}

// AddLog appends a log returned by FilterLogs.
func (c *Chain) AddLog(l types.Log) {
	c.mu.Lock()
	c.logs = append(c.logs, l)
	c.mu.Unlock()
}

func (c *Chain) AddReceipt(r *types.Receipt) {
	c.mu.Lock()
	c.receipts[r.TxHash] = r
	c.mu.Unlock()
}

func (c *Chain) LatestBlockNumber(context.Context) (uint64, error) {
	return c.Latest(), nil
}

func (c *Chain) BlockTimestamp(_ context.Context, n uint64) (uint64, error) {
	if n >= uint64(len(c.timestamps)) {
		return 0, ethereum.NotFound
	}
	return c.timestamps[n], nil
}

func (c *Chain) CallContract(_ context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("invalid call")
	}
	block := c.Latest()
	if blockNumber != nil {
		block = blockNumber.Uint64()
	}
	var sel [4]byte
	copy(sel[:], msg.Data[:4])

	c.mu.Lock()
	entry, ok := c.handlers[callKey{to: *msg.To, selector: sel}]
	c.mu.Unlock()
	if !ok {
		return nil, ErrRevert
	}

	c.mu.Lock()
	c.Calls = append(c.Calls, CallRecord{To: *msg.To, Method: entry.method.Name, Block: block})
	c.mu.Unlock()

	args, err := entry.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	values, err := entry.fn(block, args)
	if err != nil {
		return nil, err
	}
	return entry.method.Outputs.Pack(values...)
}

func (c *Chain) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Queries = append(c.Queries, q)
	if c.LogErr != nil {
		return nil, c.LogErr
	}

	from, to := uint64(0), c.Latest()
	if q.FromBlock != nil {
		from = q.FromBlock.Uint64()
	}
	if q.ToBlock != nil {
		to = q.ToBlock.Uint64()
	}

	var out []types.Log
	for _, l := range c.logs {
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, l.Address) {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 {
			if len(l.Topics) == 0 || !containsHash(q.Topics[0], l.Topics[0]) {
				continue
			}
		}
		out = append(out, l)
	}
	return out, nil
}

func (c *Chain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// CallsTo returns the recorded calls for method.
func (c *Chain) CallsTo(method string) []CallRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []CallRecord
	for _, call := range c.Calls {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// Word left-pads v into a 32-byte big-endian word.
func Word(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func containsAddress(list []common.Address, a common.Address) bool {
	for _, item := range list {
		if item == a {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, item := range list {
		if item == h {
			return true
		}
	}
	return false
}
