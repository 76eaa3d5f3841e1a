package voting

import "github.com/shopspring/decimal"

// VoteScale normalizes raw producer vote weights for display. The value is
// provisional: it matches what explorers show but is not derived from the
// system contract's vote weight formula.
var VoteScale = decimal.New(1, 16)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
)

// FormatVotes renders a raw vote weight with two decimals and an M or K
// suffix. Zero and unparsable values render as "0".
func FormatVotes(votes string) string {
	v, err := decimal.NewFromString(votes)
	if err != nil || v.IsZero() {
		return "0"
	}

	n := v.Div(VoteScale)
	switch {
	case n.GreaterThanOrEqual(million):
		return n.Div(million).StringFixed(2) + "M"
	case n.GreaterThanOrEqual(thousand):
		return n.Div(thousand).StringFixed(2) + "K"
	}
	return n.StringFixed(2)
}
