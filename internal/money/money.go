// Package money coerces the monetary values arriving from client JSON and
// re-read ledger rows into one canonical representation. Inputs show up as
// numbers, bare strings and currency-formatted strings ("123,45 PLN");
// centralizing the coercion keeps rounding identical everywhere.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedAmount marks input that could not be parsed as money.
// Callers log it and continue with zero; downstream validation rejects
// the zero total, so the failure surfaces without a panic path.
var ErrMalformedAmount = errors.New("malformed monetary value")

// Normalize converts a raw total or discount into a decimal rounded to two
// places. Strings may carry currency symbols, spaces and comma decimal
// separators. On unparseable input it returns zero together with
// ErrMalformedAmount.
func Normalize(v any) (decimal.Decimal, error) {
	switch value := v.(type) {
	case decimal.Decimal:
		return value.Round(2), nil
	case float64:
		return decimal.NewFromFloat(value).Round(2), nil
	case float32:
		return decimal.NewFromFloat32(value).Round(2), nil
	case int:
		return decimal.NewFromInt(int64(value)), nil
	case int64:
		return decimal.NewFromInt(value), nil
	case string:
		return normalizeString(value)
	case nil:
		return decimal.Zero, fmt.Errorf("%w: nil", ErrMalformedAmount)
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrMalformedAmount, v)
	}
}

func normalizeString(s string) (decimal.Decimal, error) {
	// Sheet cells use a comma decimal separator ("123,45 PLN"). A comma is
	// treated as the separator only when no dot is present; otherwise it is
	// a thousands grouping ("1,234.56") and gets dropped.
	var cleaned string
	if strings.Contains(s, ".") {
		cleaned = strings.ReplaceAll(s, ",", "")
	} else {
		cleaned = strings.ReplaceAll(s, ",", ".")
	}
	cleaned = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, cleaned)

	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	return d.Round(2), nil
}

// ToMinorUnits converts a major-unit amount to grosz (1/100 PLN), rounding
// half away from zero the way the gateway expects.
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
