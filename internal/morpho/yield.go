// Package morpho estimates a vault's blended supply APY from Morpho Blue market state.
package morpho

import (
	"math/big"

	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
	"vaultScope/internal/numeric"
)

// SecondsPerYear is the 365-day year used to annualise per-second rates.
const SecondsPerYear = 31_536_000

const wadDecimals = 18

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Allocation is a vault's position in one market, in loan-token units.
type Allocation struct {
	Market    model.MarketState
	Allocated decimal.Decimal
	Borrowed  decimal.Decimal
	// Available is the market's supply not held by the vault.
	Available decimal.Decimal
	BorrowAPY decimal.Decimal
	NetFactor decimal.Decimal
}

// Allocate converts a market's state into the vault's allocation.
// The reason is non-empty when the market contributes nothing.
func Allocate(num numeric.Context, state model.MarketState, loanDecimals uint8) (Allocation, string) {
	if reason := skipReason(state); reason != "" {
		return Allocation{}, reason
	}
	totalAssets := decimal.NewFromBigInt(state.TotalSupplyAssets, 0)
	totalShares := decimal.NewFromBigInt(state.TotalSupplyShares, 0)
	shares := decimal.NewFromBigInt(state.SupplyShares, 0)
	allocatedRaw := num.Div(shares, totalShares).Mul(totalAssets)
	if allocatedRaw.Sign() <= 0 {
		return Allocation{}, "non-positive allocation"
	}

	shift := -int32(loanDecimals)
	return Allocation{
		Market:    state,
		Allocated: allocatedRaw.Shift(shift),
		Borrowed:  numeric.Scale(orZero(state.TotalBorrowAssets), loanDecimals),
		Available: totalAssets.Sub(allocatedRaw).Shift(shift),
		NetFactor: NetFactor(state.Fee),
	}, ""
}

func skipReason(state model.MarketState) string {
	switch {
	case orZero(state.TotalSupplyAssets).Sign() == 0 || orZero(state.TotalSupplyShares).Sign() == 0:
		return "market not initialised"
	case orZero(state.SupplyShares).Sign() == 0:
		return "no supply position"
	}
	return ""
}

// BorrowAPY annualises a WAD-scaled per-second borrow rate by continuous
// compounding, e^(rate*SecondsPerYear) - 1, floored at zero.
func BorrowAPY(num numeric.Context, rateWad *big.Int) (decimal.Decimal, error) {
	rate := numeric.Scale(orZero(rateWad), wadDecimals)
	if rate.IsZero() {
		return decimal.Zero, nil
	}
	growth, err := num.Exp(rate.Mul(decimal.NewFromInt(SecondsPerYear)))
	if err != nil {
		return decimal.Zero, err
	}
	return numeric.NonNegative(growth.Sub(one)), nil
}

// NetFactor is the share of interest left to suppliers after the WAD-scaled protocol fee.
func NetFactor(feeWad *big.Int) decimal.Decimal {
	fee := numeric.Scale(orZero(feeWad), wadDecimals)
	return numeric.Clamp(one.Sub(fee), decimal.Zero, one)
}

// Contribution is the vault's pro-rata share of the market's utilisation-weighted interest.
func Contribution(num numeric.Context, a Allocation) decimal.Decimal {
	liquidity := a.Available.Add(a.Allocated)
	utilised := num.Div(a.Allocated.Mul(a.Borrowed), liquidity)
	return a.NetFactor.Mul(utilised).Mul(a.BorrowAPY)
}

// Blend weights contributions by allocation and returns a percentage.
func Blend(num numeric.Context, allocations []Allocation) decimal.Decimal {
	contribution, allocated := decimal.Zero, decimal.Zero
	for _, a := range allocations {
		contribution = contribution.Add(Contribution(num, a))
		allocated = allocated.Add(a.Allocated)
	}
	if allocated.Sign() <= 0 {
		return decimal.Zero
	}
	return num.Div(contribution, allocated).Mul(hundred)
}
