package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyFormatter renders minor-unit amounts for notifications and
// receipts. It is display only; stored money stays in int64 minor units.
type CurrencyFormatter struct {
	code     string
	exponent int32
}

func NewCurrencyFormatter(code string, exponent int) *CurrencyFormatter {
	if code == "" {
		code = "INR"
	}
	if exponent < 0 {
		exponent = 2
	}
	return &CurrencyFormatter{code: strings.ToUpper(code), exponent: int32(exponent)}
}

// Format renders 150000 as "INR 1,500.00" for a two-digit exponent.
func (f *CurrencyFormatter) Format(amount int64) string {
	fixed := decimal.New(amount, -f.exponent).StringFixed(f.exponent)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := f.code + " " + sign + b.String()
	if frac != "" {
		out += "." + frac
	}
	return out
}

// Convert applies an exchange rate to a minor-unit amount, rounding half
// away from zero.
func (f *CurrencyFormatter) Convert(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}
