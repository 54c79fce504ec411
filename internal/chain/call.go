package chain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ContractCaller executes read-only calls pinned to a block.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// LazyABI parses a JSON ABI once on first use.
type LazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func NewLazyABI(json string) *LazyABI {
	return &LazyABI{json: json}
}

func (l *LazyABI) Get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

// BlockArg converts a block number to the eth_call block argument.
func BlockArg(block uint64) *big.Int {
	return new(big.Int).SetUint64(block)
}

// CallMethod packs, calls, and unpacks one contract method.
func CallMethod(ctx context.Context, caller ContractCaller, to common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

// Bytes32ToString decodes a NUL-padded bytes32 text value such as a legacy symbol.
func Bytes32ToString(value interface{}) (string, bool) {
	var raw []byte
	switch v := value.(type) {
	case [32]byte:
		raw = v[:]
	case []byte:
		raw = v
	default:
		return "", false
	}
	return string(bytes.TrimRight(raw, "\x00")), true
}

func AsAddress(value interface{}) (common.Address, error) {
	if p, ok := value.(*common.Address); ok && p != nil {
		value = *p
	}
	addr, ok := value.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("abi value %T is not an address", value)
	}
	return addr, nil
}

type unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

type signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

func fromUnsigned[T unsigned](v T) *big.Int { return new(big.Int).SetUint64(uint64(v)) }
func fromSigned[T signed](v T) *big.Int     { return big.NewInt(int64(v)) }

// AsBigInt copies any unpacked ABI integer into a fresh big.Int.
func AsBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("abi value is a nil integer")
		}
		return new(big.Int).Set(v), nil
	case uint8:
		return fromUnsigned(v), nil
	case uint16:
		return fromUnsigned(v), nil
	case uint32:
		return fromUnsigned(v), nil
	case uint64:
		return fromUnsigned(v), nil
	case int8:
		return fromSigned(v), nil
	case int16:
		return fromSigned(v), nil
	case int32:
		return fromSigned(v), nil
	case int64:
		return fromSigned(v), nil
	default:
		return nil, fmt.Errorf("abi value %T is not an integer", value)
	}
}

// AsUint8 reads a token decimals value. Values outside 0..255 are rejected.
func AsUint8(value interface{}) (uint8, error) {
	if v, ok := value.(uint8); ok {
		return v, nil
	}
	n, err := AsBigInt(value)
	if err != nil {
		return 0, err
	}
	if n.Sign() < 0 || n.BitLen() > 8 {
		return 0, fmt.Errorf("abi value %s out of uint8 range", n)
	}
	return uint8(n.Uint64()), nil
}
