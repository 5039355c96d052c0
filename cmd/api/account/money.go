package account

import (
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// Display renders amount in the given ISO currency, e.g. "€1,234.50".
// Display only, balances stay decimals. Amounts finer than the currency's
// minor unit, or outside the int64 range of go-money, fall back to a plain
// decimal string so the amount is never rounded away.
func Display(amount decimal.Decimal, currency string) string {
	c := money.GetCurrency(currency)
	if c == nil {
		return amount.StringFixed(2) + " " + currency
	}

	shifted := amount.Shift(int32(c.Fraction))
	minor := shifted.Round(0)
	if !minor.Equal(shifted) {
		return amount.String() + " " + c.Code
	}
	if minor.Abs().GreaterThan(maxMinorUnits) {
		return amount.StringFixed(int32(c.Fraction)) + " " + c.Code
	}

	return money.New(minor.IntPart(), c.Code).Display()
}
