// Package numeric holds the decimal arithmetic shared by the yield math.
// Precision is always passed explicitly; decimal.DivisionPrecision is never read or changed.
package numeric

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the minimum number of decimal places kept by every operation.
const DefaultPrecision int32 = 50

// Context carries the working precision in decimal places.
type Context struct {
	Precision int32
}

// NewContext returns a Context with at least DefaultPrecision places.
func NewContext(precision int32) Context {
	if precision < DefaultPrecision {
		precision = DefaultPrecision
	}
	return Context{Precision: precision}
}

func (c Context) places() int32 {
	if c.Precision < DefaultPrecision {
		return DefaultPrecision
	}
	return c.Precision
}

// Scale returns raw / 10^decimals exactly.
func Scale(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// Div returns a / b rounded to the context precision, or zero when b is zero.
func (c Context) Div(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, c.places())
}

// PowInt raises base to an integer power by repeated squaring.
func (c Context) PowInt(base decimal.Decimal, n int64) decimal.Decimal {
	if n == 0 {
		return decimal.NewFromInt(1)
	}
	neg := n < 0
	if neg {
		n = -n
	}

	// Two extra guard places absorb rounding across the squarings.
	guard := c.places() + 2
	result := decimal.NewFromInt(1)
	acc := base
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(acc).Round(guard)
		}
		n >>= 1
		if n > 0 {
			acc = acc.Mul(acc).Round(guard)
		}
	}

	if neg {
		return c.Div(decimal.NewFromInt(1), result)
	}
	return result.Round(c.places())
}

// Exp returns e^x using a Taylor expansion at the context precision.
func (c Context) Exp(x decimal.Decimal) (decimal.Decimal, error) {
	return x.ExpTaylor(c.places())
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi decimal.Decimal) decimal.Decimal {
	if x.LessThan(lo) {
		return lo
	}
	if x.GreaterThan(hi) {
		return hi
	}
	return x
}

// NonNegative returns x, or zero when x is negative.
func NonNegative(x decimal.Decimal) decimal.Decimal {
	if x.Sign() < 0 {
		return decimal.Zero
	}
	return x
}
