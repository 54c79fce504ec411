package vault

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"vaultScope/internal/chain"
)

const erc4626ABIJSON = `[
  {"inputs": [], "name": "asset", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalAssets", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc4626ABI      = chain.NewLazyABI(erc4626ABIJSON)
	erc20ABIString  = chain.NewLazyABI(erc20ABIStringJSON)
	erc20ABIBytes32 = chain.NewLazyABI(erc20ABIBytes32JSON)
)

// ERC4626ABI returns the parsed vault ABI.
func ERC4626ABI() (abi.ABI, error) { return erc4626ABI.Get() }

// ERC20ABI returns the parsed token ABI with a string symbol.
func ERC20ABI() (abi.ABI, error) { return erc20ABIString.Get() }
