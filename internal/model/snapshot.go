package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// VaultSnapshot is an ERC-4626 vault's state pinned to one block.
type VaultSnapshot struct {
	Block          uint64
	Vault          common.Address
	Asset          common.Address
	AssetDecimals  uint8
	AssetSymbol    string
	TotalAssetsRaw *big.Int
	TotalAssets    decimal.Decimal
	TotalSupplyRaw *big.Int
	TotalSupply    decimal.Decimal
	VaultDecimals  uint8
	SharePrice     decimal.Decimal
}
