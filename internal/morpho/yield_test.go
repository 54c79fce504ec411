package morpho

import (
	"math"
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"vaultScope/internal/model"
	"vaultScope/internal/numeric"
)

var num = numeric.NewContext(50)

func fullyUtilised(allocated, apy string) Allocation {
	a := decimal.RequireFromString(allocated)
	return Allocation{
		Allocated: a,
		Borrowed:  a,
		Available: decimal.Zero,
		BorrowAPY: decimal.RequireFromString(apy),
		NetFactor: one,
	}
}

func TestBlendEqualAllocationsAverage(t *testing.T) {
	got := Blend(num, []Allocation{fullyUtilised("100", "0.05"), fullyUtilised("100", "0.15")})
	assert.Equal(t, "10", got.String())
}

func TestBlendShiftsTowardLargerAllocation(t *testing.T) {
	got := Blend(num, []Allocation{fullyUtilised("300", "0.05"), fullyUtilised("100", "0.15")})
	assert.Equal(t, "7.5", got.String())
}

func TestBlendWithoutAllocationIsZero(t *testing.T) {
	assert.True(t, Blend(num, nil).IsZero())
}

func TestContributionWeightsByUtilisation(t *testing.T) {
	a := Allocation{
		Allocated: decimal.NewFromInt(100),
		Borrowed:  decimal.NewFromInt(500),
		Available: decimal.NewFromInt(900),
		BorrowAPY: decimal.RequireFromString("0.1"),
		NetFactor: decimal.RequireFromString("0.9"),
	}
	// 0.9 * 100 * 500 / 1000 * 0.1
	assert.Equal(t, "4.5", Contribution(num, a).String())
}

func TestNetFactor(t *testing.T) {
	tenth := new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)
	assert.Equal(t, "1", NetFactor(nil).String())
	assert.Equal(t, "0.9", NetFactor(tenth).String())
	assert.Equal(t, "0", NetFactor(new(big.Int).Mul(tenth, big.NewInt(20))).String())
}

func TestBorrowAPY(t *testing.T) {
	apy, err := BorrowAPY(num, nil)
	assert.NoError(t, err)
	assert.True(t, apy.IsZero())

	rate := big.NewInt(1_585_489_599)
	apy, err = BorrowAPY(num, rate)
	assert.NoError(t, err)
	x := 1_585_489_599 * float64(SecondsPerYear) / 1e18
	assert.InDelta(t, math.Exp(x)-1, apy.InexactFloat64(), 1e-12)
}

func TestAllocate(t *testing.T) {
	state := model.MarketState{
		TotalSupplyAssets: big.NewInt(2_000_000_000), // 2000 tokens at 6 decimals
		TotalSupplyShares: big.NewInt(4_000),
		TotalBorrowAssets: big.NewInt(1_500_000_000),
		SupplyShares:      big.NewInt(1_000),
	}
	a, reason := Allocate(num, state, 6)
	assert.Empty(t, reason)
	assert.Equal(t, "500", a.Allocated.String())
	assert.Equal(t, "1500", a.Available.String())
	assert.Equal(t, "1500", a.Borrowed.String())
	assert.Equal(t, "1", a.NetFactor.String())
}

func TestAllocateSkips(t *testing.T) {
	empty := model.MarketState{TotalSupplyAssets: big.NewInt(0), TotalSupplyShares: big.NewInt(10), SupplyShares: big.NewInt(1)}
	_, reason := Allocate(num, empty, 6)
	assert.Equal(t, "market not initialised", reason)

	noPosition := model.MarketState{TotalSupplyAssets: big.NewInt(10), TotalSupplyShares: big.NewInt(10), SupplyShares: big.NewInt(0)}
	_, reason = Allocate(num, noPosition, 6)
	assert.Equal(t, "no supply position", reason)
}

func TestBlendBoundedByMarketAPYs(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("blend of fully utilised markets lies between their APYs", prop.ForAll(
		func(allocA, allocB, bpsA, bpsB int64) bool {
			a := Allocation{Allocated: decimal.NewFromInt(allocA), Borrowed: decimal.NewFromInt(allocA), BorrowAPY: decimal.New(bpsA, -4), NetFactor: one}
			b := Allocation{Allocated: decimal.NewFromInt(allocB), Borrowed: decimal.NewFromInt(allocB), BorrowAPY: decimal.New(bpsB, -4), NetFactor: one}
			got := Blend(num, []Allocation{a, b})
			lo := decimal.Min(a.BorrowAPY, b.BorrowAPY).Mul(hundred)
			hi := decimal.Max(a.BorrowAPY, b.BorrowAPY).Mul(hundred)
			eps := decimal.New(1, -30)
			return got.GreaterThanOrEqual(lo.Sub(eps)) && got.LessThanOrEqual(hi.Add(eps))
		},
		gen.Int64Range(1, 1_000_000_000),
		gen.Int64Range(1, 1_000_000_000),
		gen.Int64Range(0, 5_000),
		gen.Int64Range(0, 5_000),
	))

	properties.TestingRun(t)
}
