package morpho

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"vaultScope/internal/chain"
	"vaultScope/internal/model"
)

// DefaultRegistry is the Morpho Blue singleton on Ethereum mainnet.
var DefaultRegistry = common.HexToAddress("0xBBBBBbbBBb9cC5e90e3b3Af64bdAF62C37EEFFCb")

const marketParamsComponents = `[
  {"name": "loanToken", "type": "address"},
  {"name": "collateralToken", "type": "address"},
  {"name": "oracle", "type": "address"},
  {"name": "irm", "type": "address"},
  {"name": "lltv", "type": "uint256"}
]`

const marketComponents = `[
  {"name": "totalSupplyAssets", "type": "uint128"},
  {"name": "totalSupplyShares", "type": "uint128"},
  {"name": "totalBorrowAssets", "type": "uint128"},
  {"name": "totalBorrowShares", "type": "uint128"},
  {"name": "lastUpdate", "type": "uint128"},
  {"name": "fee", "type": "uint128"}
]`

const registryABIJSON = `[
  {"inputs": [{"name": "id", "type": "bytes32"}], "name": "idToMarketParams", "outputs": ` + marketParamsComponents + `, "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "id", "type": "bytes32"}], "name": "market", "outputs": ` + marketComponents + `, "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "id", "type": "bytes32"}, {"name": "user", "type": "address"}], "name": "position", "outputs": [
    {"name": "supplyShares", "type": "uint256"},
    {"name": "borrowShares", "type": "uint128"},
    {"name": "collateral", "type": "uint128"}
  ], "stateMutability": "view", "type": "function"}
]`

const irmABIJSON = `[
  {"inputs": [
    {"name": "marketParams", "type": "tuple", "components": ` + marketParamsComponents + `},
    {"name": "market", "type": "tuple", "components": ` + marketComponents + `}
  ], "name": "borrowRateView", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const tokenABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

var (
	registryABI = chain.NewLazyABI(registryABIJSON)
	irmABI      = chain.NewLazyABI(irmABIJSON)
	tokenABI    = chain.NewLazyABI(tokenABIJSON)
)

// RegistryABI returns the parsed Morpho Blue ABI subset.
func RegistryABI() (abi.ABI, error) { return registryABI.Get() }

// IRMABI returns the parsed interest rate model ABI.
func IRMABI() (abi.ABI, error) { return irmABI.Get() }

// TokenABI returns the parsed decimals-only token ABI.
func TokenABI() (abi.ABI, error) { return tokenABI.Get() }

// Tuple encodings for borrowRateView; field names follow the ABI component names.
type marketParamsTuple struct {
	LoanToken       common.Address
	CollateralToken common.Address
	Oracle          common.Address
	Irm             common.Address
	Lltv            *big.Int
}

type marketTuple struct {
	TotalSupplyAssets *big.Int
	TotalSupplyShares *big.Int
	TotalBorrowAssets *big.Int
	TotalBorrowShares *big.Int
	LastUpdate        *big.Int
	Fee               *big.Int
}

func toParamsTuple(p model.MarketParams) marketParamsTuple {
	return marketParamsTuple{
		LoanToken:       p.LoanToken,
		CollateralToken: p.CollateralToken,
		Oracle:          p.Oracle,
		Irm:             p.IRM,
		Lltv:            orZero(p.LLTV),
	}
}

func toMarketTuple(s model.MarketState) marketTuple {
	return marketTuple{
		TotalSupplyAssets: orZero(s.TotalSupplyAssets),
		TotalSupplyShares: orZero(s.TotalSupplyShares),
		TotalBorrowAssets: orZero(s.TotalBorrowAssets),
		TotalBorrowShares: orZero(s.TotalBorrowShares),
		LastUpdate:        new(big.Int).SetUint64(s.LastUpdate),
		Fee:               orZero(s.Fee),
	}
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
