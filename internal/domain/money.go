/**
 * @description
 * Money is the exact decimal amount type used for every balance, price and split in the
 * ledger-service. It wraps shopspring/decimal so that no amount ever passes through a float.
 *
 * @notes
 * - Divisions used for per-person / per-unit splits round half away from zero to cents.
 * - JSON encodes as a fixed two-decimal string ("12.50").
 * - Values are persisted in NUMERIC columns; Scan/Value delegate to decimal.Decimal.
 */

package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const centPlaces = 2

// Money is an exact decimal amount in the troop's single currency.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

var hundred = decimal.NewFromInt(100)

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d}
}

// MoneyFromInt returns a whole-unit amount (e.g. 75 -> 75.00).
func MoneyFromInt(units int64) Money {
	return Money{d: decimal.NewFromInt(units)}
}

// MoneyFromCents returns an amount from a count of cents.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -centPlaces)}
}

// ParseMoney parses a decimal string such as "12.5" or "-3.05".
func ParseMoney(raw string) (Money, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return Money{d: d}, nil
}

// MustParseMoney is ParseMoney for literals known to be valid.
func MustParseMoney(raw string) Money {
	m, err := ParseMoney(raw)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money { return Money{d: m.d.Neg()} }

// MulInt multiplies by an integer quantity without rounding.
func (m Money) MulInt(n int64) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(n))}
}

// MulPercent returns m × pct / 100 rounded to cents.
func (m Money) MulPercent(pct decimal.Decimal) Money {
	return Money{d: m.d.Mul(pct).DivRound(hundred, centPlaces)}
}

// DivInt splits m into n equal parts rounded to cents. Dividing by zero yields Zero.
func (m Money) DivInt(n int64) Money {
	if n == 0 {
		return Zero
	}
	return Money{d: m.d.DivRound(decimal.NewFromInt(n), centPlaces)}
}

// Prorate returns m × part / whole rounded to cents. A zero whole yields Zero.
func (m Money) Prorate(part, whole int64) Money {
	if whole == 0 {
		return Zero
	}
	return Money{d: m.d.Mul(decimal.NewFromInt(part)).DivRound(decimal.NewFromInt(whole), centPlaces)}
}

// RoundCents rounds half away from zero to two places.
func (m Money) RoundCents() Money { return Money{d: m.d.Round(centPlaces)} }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }
func (m Money) GreaterOrEqual(o Money) bool { return m.d.GreaterThanOrEqual(o.d) }
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }
func (m Money) IsZero() bool { return m.d.IsZero() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) String() string { return m.d.StringFixed(centPlaces) }
func (m Money) InexactFloat64() float64 { return m.d.InexactFloat64() }

// MaxMoney returns the larger of a and b.
func MaxMoney(a, b Money) Money {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// MinMoney returns the smaller of a and b.
func MinMoney(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

// SumMoney adds up amounts.
func SumMoney(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.50" and 12.5.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*m = Zero
		return nil
	}
	raw = strings.Trim(raw, "\"")
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(value interface{}) error {
	return m.d.Scan(value)
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.d.StringFixed(centPlaces), nil
}
