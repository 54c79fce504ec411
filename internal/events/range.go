package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Span is an inclusive block range for getLogs. A nil bound is symbolic:
// earliest for From, latest for To.
type Span struct {
	From *uint64
	To   *uint64
}

// Between is the concrete span [from, to].
func Between(from, to uint64) Span {
	return Span{From: &from, To: &to}
}

// Empty reports whether both bounds are concrete and To precedes From.
func (s Span) Empty() bool {
	return s.From != nil && s.To != nil && *s.To < *s.From
}

// Split cuts a concrete span into consecutive spans of at most batch blocks.
// A symbolic span or a zero batch comes back whole; an empty span yields nothing.
func (s Span) Split(batch uint64) []Span {
	if s.Empty() {
		return nil
	}
	if batch == 0 || s.From == nil || s.To == nil {
		return []Span{s}
	}

	from, to := *s.From, *s.To
	out := make([]Span, 0, (to-from)/batch+1)
	for start := from; ; start += batch {
		end := to
		if to-start >= batch {
			end = start + batch - 1
		}
		out = append(out, Between(start, end))
		if end == to {
			return out
		}
	}
}

func (s Span) query(contract common.Address, topic common.Hash) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: toBig(s.From),
		ToBlock:   toBig(s.To),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{topic}},
	}
}

func toBig(v *uint64) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).SetUint64(*v)
}
