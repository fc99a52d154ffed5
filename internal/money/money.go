// Package money provides the signed amount type used by every posting.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kasboek/internal/model"
)

// ErrCurrencyMismatch is the sentinel behind MismatchError.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// MismatchError is raised (as a panic value) when non-zero amounts of
// different currencies are added together.
type MismatchError struct {
	Want string
	Got  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: %s vs %s", e.Want, e.Got)
}

func (e *MismatchError) Unwrap() error { return ErrCurrencyMismatch }

// Side is the credit/debit side of an amount. The numeric value is the sign.
type Side int

const (
	Debit  Side = -1
	Credit Side = 1
)

func (s Side) String() string {
	if s == Debit {
		return "debit"
	}
	return "credit"
}

var zeroTolerance = decimal.New(1, -3)

// Money is an immutable signed amount: a non-negative magnitude, a currency
// and a side. The zero value is the null amount.
type Money struct {
	magnitude decimal.Decimal
	currency  string
	side      Side
}

// Null returns the null amount, which is exempt from currency checks.
func Null() Money { return Money{side: Credit} }

// New decomposes a signed value into magnitude and side.
func New(value decimal.Decimal, currency string) Money {
	side := Credit
	if value.IsNegative() {
		side = Debit
	}
	return Money{magnitude: value.Abs(), currency: currency, side: side}
}

// FromSide builds an amount from a magnitude and an explicit side.
func FromSide(magnitude decimal.Decimal, currency string, side Side) Money {
	if side != Debit {
		side = Credit
	}
	return Money{magnitude: magnitude.Abs(), currency: currency, side: side}
}

// NewFromString parses a decimal string such as "-12.50".
func NewFromString(value, currency string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("parsing amount %q: %w", value, err)
	}
	return New(d, currency), nil
}

// MustParse is NewFromString for constants and tests.
func MustParse(value, currency string) Money {
	m, err := NewFromString(value, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// FromData converts the wire form.
func FromData(d model.AmountData) Money {
	side := Credit
	if d.CreditDebit < 0 {
		side = Debit
	}
	return FromSide(d.Amount, d.Currency, side)
}

// Data returns the wire form.
func (m Money) Data() model.AmountData {
	return model.AmountData{
		Amount:      m.magnitude,
		Currency:    m.currency,
		CreditDebit: int(m.Side()),
	}
}

// Value returns the signed value.
func (m Money) Value() decimal.Decimal {
	if m.side == Debit {
		return m.magnitude.Neg()
	}
	return m.magnitude
}

// Magnitude returns the unsigned amount.
func (m Money) Magnitude() decimal.Decimal { return m.magnitude }

// Currency returns the ISO currency code; empty for the null amount.
func (m Money) Currency() string { return m.currency }

// Side returns Credit for the zero-side (unset) case.
func (m Money) Side() Side {
	if m.side == Debit {
		return Debit
	}
	return Credit
}

func (m Money) IsCredit() bool { return m.Side() == Credit }
func (m Money) IsDebit() bool  { return m.Side() == Debit }

// IsNull reports whether m is the null amount.
func (m Money) IsNull() bool { return m.currency == "" && m.magnitude.IsZero() }

// IsZero reports whether the magnitude is below 0.001.
func (m Money) IsZero() bool { return m.magnitude.LessThan(zeroTolerance) }

// Abs returns the credit-side amount of the same magnitude.
func (m Money) Abs() Money {
	return Money{magnitude: m.magnitude, currency: m.currency, side: Credit}
}

// Reversed flips the side.
func (m Money) Reversed() Money {
	return Money{magnitude: m.magnitude, currency: m.currency, side: -m.Side()}
}

// Equal compares signed value and currency. Zero amounts are equal
// regardless of currency.
func (m Money) Equal(other Money) bool {
	if m.IsZero() && other.IsZero() {
		return true
	}
	return m.currency == other.currency && m.Value().Equal(other.Value())
}

// Add returns m plus the operands. See Sum.
func (m Money) Add(operands ...Money) Money {
	return Sum(append([]Money{m}, operands...)...)
}

// Sub returns m minus other.
func (m Money) Sub(other Money) Money {
	return Sum(m, other.Reversed())
}

// Mul scales the amount by a factor, keeping the currency.
func (m Money) Mul(factor decimal.Decimal) Money {
	return New(m.Value().Mul(factor), m.currency)
}

// Round rounds the magnitude to places decimals, keeping the side.
func (m Money) Round(places int32) Money {
	return FromSide(m.magnitude.Round(places), m.currency, m.Side())
}

// Sum folds the operands. Null operands are skipped. All non-zero operands
// must share one currency; a mismatch panics with *MismatchError.
func Sum(operands ...Money) Money {
	total := decimal.Zero
	currency := ""
	for _, op := range operands {
		if op.IsNull() {
			continue
		}
		if op.currency != "" && !op.IsZero() {
			if currency != "" && currency != op.currency {
				panic(&MismatchError{Want: currency, Got: op.currency})
			}
			currency = op.currency
		}
		total = total.Add(op.Value())
	}
	if currency == "" {
		// All operands zero: keep whichever currency was present.
		for _, op := range operands {
			if op.currency != "" {
				currency = op.currency
				break
			}
		}
	}
	return New(total, currency)
}

// String shows the signed value with two decimals and the currency.
func (m Money) String() string {
	return m.Format(false)
}

// Format renders the amount; reversedForDisplay negates the shown value
// without touching the underlying sign.
func (m Money) Format(reversedForDisplay bool) string {
	v := m.Value()
	if reversedForDisplay {
		v = v.Neg()
	}
	if m.currency == "" {
		return v.StringFixed(2)
	}
	return v.StringFixed(2) + " " + m.currency
}
