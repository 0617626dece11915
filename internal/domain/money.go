package domain

import "github.com/shopspring/decimal"

// Round2 rounds a monetary amount to 2 decimal places, half away from zero.
// Rounding happens at every discount application step, not once at the end;
// frozen order totals depend on this.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// ApplyPercentDiscount returns price reduced by pct percent, rounded.
func ApplyPercentDiscount(price, pct float64) float64 {
	p := decimal.NewFromFloat(price)
	factor := decimal.NewFromInt(100).Sub(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))
	f, _ := p.Mul(factor).Round(2).Float64()
	return f
}

// PercentOf returns amount × pct / 100, rounded.
func PercentOf(amount, pct float64) float64 {
	f, _ := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(2).Float64()
	return f
}
