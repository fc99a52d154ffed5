package vat

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kasboek/internal/model"
)

// FigureState is the three-way state of a user-entered number.
type FigureState int

const (
	Unset FigureState = iota
	Invalid
	Valid
)

// Figure is a VAT line number as typed by a user: empty, malformed (the raw
// text is kept) or a decimal.
type Figure struct {
	state FigureState
	raw   string
	value decimal.Decimal
}

// ParseFigure classifies s. It never fails; use Err to reject Invalid.
func ParseFigure(s string) Figure {
	if s == "" {
		return Figure{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Figure{state: Invalid, raw: s}
	}
	return Figure{state: Valid, value: d}
}

// Amount returns a Valid figure.
func Amount(d decimal.Decimal) Figure {
	return Figure{state: Valid, value: d}
}

func (f Figure) State() FigureState { return f.state }
func (f Figure) IsValid() bool      { return f.state == Valid }

// Value returns the decimal and whether the figure is Valid.
func (f Figure) Value() (decimal.Decimal, bool) {
	return f.value, f.state == Valid
}

// OrZero returns the value, or zero for Unset and Invalid.
func (f Figure) OrZero() decimal.Decimal {
	if f.state != Valid {
		return decimal.Zero
	}
	return f.value
}

// Err returns a *model.MalformedValueError for an Invalid figure.
func (f Figure) Err(field string) error {
	if f.state != Invalid {
		return nil
	}
	return &model.MalformedValueError{Field: field, Value: f.raw}
}

// String is the wire form: "" for Unset, the raw text for Invalid.
func (f Figure) String() string {
	switch f.state {
	case Invalid:
		return f.raw
	case Valid:
		return f.value.StringFixed(2)
	}
	return ""
}
