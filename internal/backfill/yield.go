package backfill

import (
	"time"

	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
	"vaultScope/internal/numeric"
)

const daysPerYear = 365

// ComputeYield annualises one day's share price change by simple compounding,
// (1+r)^365 - 1, and prices the change against the current supply.
// Both results are zero unless both prices are positive. The APY amplifies
// single-day noise on thin days; it is kept as the headline metric for compatibility.
func ComputeYield(num numeric.Context, prevPrice, price, supply decimal.Decimal) (apy, earned decimal.Decimal) {
	if prevPrice.Sign() <= 0 || price.Sign() <= 0 {
		return decimal.Zero, decimal.Zero
	}
	diff := price.Sub(prevPrice)
	daily := num.Div(diff, prevPrice)
	one := decimal.NewFromInt(1)
	apy = num.PowInt(one.Add(daily), daysPerYear).Sub(one)
	earned = diff.Mul(supply).Round(num.Precision)
	return apy, earned
}

// Window is one local calendar day and its snapshot instant.
type Window struct {
	Date     model.Date
	Start    time.Time
	End      time.Time
	Snapshot time.Time
}

// DayWindow returns [00:00:00, 23:59:59] of d in loc and the snapshot instant at clock.
func DayWindow(d model.Date, clock time.Duration, loc *time.Location) Window {
	start := d.At(0, loc)
	return Window{
		Date:     d,
		Start:    start,
		End:      d.AddDays(1).At(0, loc).Add(-time.Second),
		Snapshot: d.At(clock, loc),
	}
}
