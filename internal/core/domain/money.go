package domain

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in cents. The remote API exchanges amounts as
// JSON numbers with up to two decimals.
type Money int64

// ParseMoney parses a user-entered positive amount such as "12.34" or
// "12,34". Extra decimals are rounded half up.
func ParseMoney(s string) (Money, error) {
	m, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if m <= 0 {
		return 0, ErrInvalidAmount.WithDetails("amount must be greater than zero")
	}
	return m, nil
}

// MoneyFromFloat converts a float amount, rounding to the nearest cent.
func MoneyFromFloat(f float64) Money {
	return Money(math.Round(f * 100))
}

func parseCents(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount.WithDetails("empty amount")
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	s = strings.Replace(s, ",", ".", 1)

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, ErrInvalidAmount.WithDetails(fmt.Sprintf("%q is not a number", s))
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > math.MaxInt64/100-1 {
		return 0, ErrInvalidAmount.WithDetails("amount out of range")
	}
	cents := units * 100
	for len(frac) < 3 {
		frac += "0"
	}
	c, _ := strconv.ParseInt(frac[:2], 10, 64)
	cents += c
	if frac[2] >= '5' {
		cents++
	}
	if neg {
		cents = -cents
	}
	return Money(cents), nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Float64 returns the amount in currency units.
func (m Money) Float64() float64 {
	return float64(m) / 100
}

// String formats the amount with two decimals, e.g. "-5.00".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON writes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. null is zero.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	s := string(bytes.Trim(data, `"`))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ErrInvalidAmount.WithDetails(fmt.Sprintf("%s is not a number", data)).WithCause(err)
	}
	*m = MoneyFromFloat(f)
	return nil
}

// MarshalYAML writes the amount as a number.
func (m Money) MarshalYAML() (any, error) {
	return m.Float64(), nil
}
