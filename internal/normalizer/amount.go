package normalizer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when raw is empty or has non-numeric residue.
var ErrInvalidAmount = errors.New("invalid amount")

// CurrencySymbols are stripped before parsing.
const CurrencySymbols = "$£€¥"

var (
	parenthesizedPattern = regexp.MustCompile(`^\((.*)\)$`)
	numericPattern       = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

// NormalizeAmount parses a signed decimal. Negative means money out.
func NormalizeAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}
	if s == "0" || s == "0.0" {
		return decimal.Zero, nil
	}

	s = StandardizeAmount(s)
	if m := parenthesizedPattern.FindStringSubmatch(s); m != nil {
		s = "-" + m[1]
	}
	if !numericPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, raw, err)
	}
	return amount, nil
}

// NormalizeAmountPtr treats a nil value as absent.
func NormalizeAmountPtr(raw *string) (decimal.Decimal, error) {
	if raw == nil {
		return decimal.Zero, fmt.Errorf("%w: absent value", ErrInvalidAmount)
	}
	return NormalizeAmount(*raw)
}

// StandardizeAmount removes currency symbols, thousands separators and
// whitespace.
func StandardizeAmount(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || strings.ContainsRune(CurrencySymbols, r) {
			return -1
		}
		return r
	}, s)
}

// FormatAmount renders an amount with two decimal places.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
