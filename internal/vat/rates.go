// Package vat implements the Dutch VAT (BTW) engine: the historical rate
// table, the bruto/vat/netto triangle of a VAT line, auto-balancing of a
// line set against a target amount, and the quarterly declaration.
package vat

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kasboek/internal/model"
)

// Rate is a VAT rate. Percentage is stored as a whole percentage (21, not
// 0.21).
type Rate struct {
	ID         string
	Percentage decimal.Decimal
}

// Fraction returns the rate as a fraction: 21 -> 0.21.
func (r Rate) Fraction() decimal.Decimal {
	return r.Percentage.Div(decimal.NewFromInt(100))
}

// IsVATBearing reports whether the rate charges any VAT.
func (r Rate) IsVATBearing() bool { return r.Percentage.IsPositive() }

var (
	// ZeroRate is the exempt rate.
	ZeroRate = Rate{ID: model.VATRateZero, Percentage: decimal.Zero}
	// NoneRate marks a line outside the scope of VAT.
	NoneRate = Rate{ID: model.VATRateNone, Percentage: decimal.Zero}
)

type rateSet struct {
	effective time.Time
	high, low decimal.Decimal
}

func effective(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// history is ordered by effective date, ascending.
var history = []rateSet{
	{effective(2001, time.January, 1), decimal.NewFromInt(19), decimal.NewFromInt(6)},
	{effective(2012, time.October, 1), decimal.NewFromInt(21), decimal.NewFromInt(6)},
	{effective(2019, time.January, 1), decimal.NewFromInt(21), decimal.NewFromInt(9)},
}

// RatesAt returns the rates in force on date: high and low from the latest
// set effective on or before date, plus the zero and none sentinels. Dates
// before the first set get only the sentinels.
func RatesAt(date time.Time) []Rate {
	i := sort.Search(len(history), func(i int) bool { return history[i].effective.After(date) })
	if i == 0 {
		return []Rate{ZeroRate, NoneRate}
	}
	set := history[i-1]
	return []Rate{
		{ID: model.VATRateHigh, Percentage: set.high},
		{ID: model.VATRateLow, Percentage: set.low},
		ZeroRate,
		NoneRate,
	}
}

// RateAt looks up a rate id on date.
func RateAt(date time.Time, id string) (Rate, bool) {
	for _, r := range RatesAt(date) {
		if r.ID == id {
			return r, true
		}
	}
	return Rate{}, false
}
