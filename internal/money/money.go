package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const MaxDecimals = 8

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// ParseAmount reads an amount the way users type it into a chat: optional
// thousands separators, a dot for decimals, no sign.
func ParseAmount(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	trimmed = strings.NewReplacer(",", "", "_", "", " ", "").Replace(trimmed)
	trimmed = strings.TrimPrefix(trimmed, "+")
	if trimmed == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.SplitN(trimmed, ".", 2)
	wholePart := parts[0]
	if wholePart == "" {
		wholePart = "0"
	}
	if !isDigits(wholePart) {
		return decimal.Zero, ErrInvalidAmount
	}
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if fracPart != "" && !isDigits(fracPart) {
		return decimal.Zero, ErrInvalidAmount
	}
	if len(strings.TrimRight(fracPart, "0")) > MaxDecimals {
		return decimal.Zero, ErrTooManyDecimals
	}
	value, err := decimal.NewFromString(wholePart + "." + fracPart + "0")
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !value.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return value, nil
}

func FormatFiat(value decimal.Decimal) string {
	return group(value.Round(0).StringFixed(0))
}

func FormatCrypto(value decimal.Decimal) string {
	value = value.Round(MaxDecimals)
	if value.Equal(value.Truncate(2)) {
		return group(value.StringFixed(2))
	}
	return group(value.String())
}

func group(formatted string) string {
	negative := strings.HasPrefix(formatted, "-")
	formatted = strings.TrimPrefix(formatted, "-")
	whole, frac, hasFrac := strings.Cut(formatted, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if hasFrac {
		out += "." + frac
	}
	if negative {
		return "-" + out
	}
	return out
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
