package engine

import "github.com/shopspring/decimal"

// Calculator computes the flat-rate commission charged on every buy and sell.
// Pure, no side effects, no error conditions.
type Calculator struct {
	rate decimal.Decimal
}

func NewCalculator(rate decimal.Decimal) Calculator {
	return Calculator{rate: rate}
}

// Fee returns amount multiplied by the commission rate, rounded half-up to
// the ledger's 2-decimal precision.
func (c Calculator) Fee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(c.rate).Round(2)
}

// Rate exposes the configured commission rate.
func (c Calculator) Rate() decimal.Decimal {
	return c.rate
}
