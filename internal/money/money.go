// Package money holds the decimal helpers shared by pricing, quotes and invoices.
// Every amount is an Australian dollar value kept to two fractional digits.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Places is the number of fractional digits kept on monetary values.
const Places int32 = 2

var (
	// Zero is the zero amount.
	Zero = decimal.Zero
	// Hundred is used for percentage conversions.
	Hundred = decimal.NewFromInt(100)
	// GSTRate is the Australian goods and services tax rate.
	GSTRate = decimal.RequireFromString("0.10")
)

// RoundHalfUp rounds to cents, half away from zero.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Mul multiplies and rounds the result to cents.
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return RoundHalfUp(a.Mul(b))
}

// Percent returns rate (expressed as a fraction) of amount, rounded to cents.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return RoundHalfUp(amount.Mul(rate))
}

// GST computes the tax on a taxable amount.
func GST(taxable decimal.Decimal) decimal.Decimal {
	return Percent(taxable, GSTRate)
}

// PercentChange returns |new-old|/old*100. A zero previous amount yields zero.
func PercentChange(previous, current decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Abs().Div(previous.Abs()).Mul(Hundred)
}

// Sum adds every amount.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Format renders an amount with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

var printer = message.NewPrinter(language.English)

// Display renders an amount for humans, e.g. "AUD 1,234.50".
func Display(d decimal.Decimal) string {
	f, _ := RoundHalfUp(d).Float64()
	return printer.Sprint(currency.AUD.Amount(f))
}

// Amount is the JSON form of a monetary value. It always carries two
// fractional digits, e.g. "159.50" rather than "159.5".
type Amount decimal.Decimal

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Format(decimal.Decimal(a)) + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*a = Amount(d)
	return nil
}

// Decimal returns the underlying value.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.Decimal(a)
}
