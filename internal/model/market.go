package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MarketParams are the immutable parameters of a lending market.
type MarketParams struct {
	LoanToken       common.Address
	CollateralToken common.Address
	Oracle          common.Address
	IRM             common.Address
	LLTV            *big.Int
}

// MarketState is a lending market's aggregate state plus one account's supply shares.
type MarketState struct {
	ID                common.Hash
	Params            MarketParams
	TotalSupplyAssets *big.Int
	TotalSupplyShares *big.Int
	TotalBorrowAssets *big.Int
	TotalBorrowShares *big.Int
	LastUpdate        uint64
	// Fee is WAD-scaled (1e18 = 100%).
	Fee          *big.Int
	SupplyShares *big.Int
}
