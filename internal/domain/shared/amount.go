package shared

import "github.com/shopspring/decimal"

// AmountScale is the number of fractional digits every stored amount keeps
const AmountScale = 18

// maxAmount bounds NUMERIC(38, 18): at most 20 integer digits
var maxAmount = decimal.New(1, 38-AmountScale)

// Representable reports whether d is stored exactly, without rounding or overflow.
// Trailing zeros beyond the scale are allowed.
func Representable(d decimal.Decimal) bool {
	return d.Truncate(AmountScale).Equal(d) && d.Abs().LessThan(maxAmount)
}
