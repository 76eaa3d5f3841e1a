// Package validate checks user supplied account names and token amounts
// before anything is sent to the chain.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const maxAccountNameLength = 12

var (
	ErrInvalidRecipient = errors.New("invalid recipient account name")
	ErrInvalidAmount    = errors.New("invalid amount")
)

var accountNamePattern = regexp.MustCompile(`^[a-z1-5.]+$`)

// Recipient reports whether name is a well-formed account name:
// 1 to 12 characters drawn from a-z, 1-5 and '.'.
func Recipient(name string) bool {
	if name == "" || len(name) > maxAccountNameLength {
		return false
	}
	return accountNamePattern.MatchString(name)
}

// ParseAmount parses text as a decimal number, ignoring surrounding
// whitespace.
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, text)
	}
	return d, nil
}

// Amount reports whether text is a positive number with no more than
// precision fractional digits.
func Amount(text string, precision int) bool {
	d, err := ParseAmount(text)
	if err != nil || !d.IsPositive() {
		return false
	}
	return fractionDigits(d) <= max(precision, 0)
}

// FormatAmount renders text with exactly precision fractional digits.
func FormatAmount(text string, precision int) (string, error) {
	d, err := ParseAmount(text)
	if err != nil {
		return "", err
	}
	return d.StringFixed(int32(max(precision, 0))), nil
}

// Quantity builds the chain's "<amount> <SYMBOL>" string.
func Quantity(text string, precision int, symbol string) (string, error) {
	amount, err := FormatAmount(text, precision)
	if err != nil {
		return "", err
	}
	return amount + " " + symbol, nil
}

func fractionDigits(d decimal.Decimal) int {
	if exp := d.Exponent(); exp < 0 {
		return int(-exp)
	}
	return 0
}
