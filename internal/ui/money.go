package ui

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Money renders an amount as dollars with thousands separators. Whole
// amounts drop the cents.
func Money(d decimal.Decimal) string {
	r := d.Round(2)
	sign := ""
	if r.IsNegative() {
		sign = "-"
	}
	abs := r.Abs()
	whole := abs.Truncate(0)

	out := sign + "$" + humanize.BigComma(whole.BigInt())
	if !abs.Equal(whole) {
		fixed := abs.StringFixed(2)
		out += fixed[strings.IndexByte(fixed, '.'):]
	}
	return out
}
