package balances

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
)

// FormatBalance renders a token amount for display: M and K suffixes above a
// thousand, otherwise at most min(decimals, 4) fractional digits.
func FormatBalance(amount decimal.Decimal, decimals int) string {
	switch {
	case amount.IsZero():
		return "0"
	case amount.GreaterThanOrEqual(million):
		return amount.Div(million).StringFixed(2) + "M"
	case amount.GreaterThanOrEqual(thousand):
		return amount.Div(thousand).StringFixed(2) + "K"
	}
	return amount.Round(int32(min(max(decimals, 0), 4))).String()
}

// FormatUSD renders a dollar value.
func FormatUSD(value decimal.Decimal) string {
	switch {
	case value.IsZero():
		return "$0.00"
	case value.GreaterThanOrEqual(million):
		return "$" + value.Div(million).StringFixed(2) + "M"
	case value.GreaterThanOrEqual(thousand):
		return "$" + groupThousands(value.StringFixed(2))
	}
	return "$" + value.StringFixed(2)
}

func groupThousands(s string) string {
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
