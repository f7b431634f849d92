// Package core holds the domain types shared by the API, the storage layer
// and the recurring-expense processor.
package core

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"
)

// Money is a positive monetary amount held as integer cents to keep
// arithmetic exact. Amounts are fixed at two fractional digits; the JSON
// representation is a plain decimal number (500.00).
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal renders the amount with exactly two fractional digits.
func (m Money) Decimal() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal()), nil
}

// UnmarshalJSON accepts both a JSON number (500.5) and a quoted decimal
// string ("500,50"), matching what the dashboard forms historically sent.
// A zero amount decodes fine; Validate rejects it later so the caller gets
// a validation error instead of a parse error.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	cents, err := parseDecimal(s)
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}

// ParseDecimalToCents converts a decimal string to cents, rounding half-up
// on the third fractional digit. Both dot and comma separators are accepted.
// Only strictly positive amounts are valid.
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

func parseDecimal(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}
