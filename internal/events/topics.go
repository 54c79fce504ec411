package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ERC-4626 flow events.
const (
	DepositSignature  = "Deposit(address,address,uint256,uint256)"
	WithdrawSignature = "Withdraw(address,address,address,uint256,uint256)"
)

// DefaultFeeSignatures are fee events emitted by common vault implementations.
// Their amounts are summed as raw integers; units depend on the protocol.
var DefaultFeeSignatures = []string{
	"FeesDistributed(uint256)",
	"FeeAccrued(uint256)",
	"PerformanceFeePaid(uint256)",
	"ManagementFeePaid(uint256)",
	"ProtocolFeePaid(uint256)",
}

var (
	DepositTopic  = Topic(DepositSignature)
	WithdrawTopic = Topic(WithdrawSignature)
)

// Topic returns topic0 for an event signature.
func Topic(signature string) common.Hash {
	return crypto.Keccak256Hash([]byte(signature))
}

// Topics maps signatures to topic0 hashes.
func Topics(signatures []string) []common.Hash {
	out := make([]common.Hash, 0, len(signatures))
	for _, sig := range signatures {
		out = append(out, Topic(sig))
	}
	return out
}
