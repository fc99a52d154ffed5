// Package period models the bookkeeping period: a fixed 4-digit year token.
package period

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrMalformedPeriod is returned when a period string is not a 4-digit year.
var ErrMalformedPeriod = errors.New("malformed period")

// Period is a financial year such as "2021". Lexicographic order equals
// numeric order because every value has exactly four digits.
type Period string

// Parse validates s as a 4-digit year.
func Parse(s string) (Period, error) {
	if len(s) != 4 {
		return "", fmt.Errorf("%w: %q", ErrMalformedPeriod, s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrMalformedPeriod, s)
		}
	}
	return Period(s), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Period {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// FromYear returns the period for a calendar year.
func FromYear(year int) Period {
	return Period(fmt.Sprintf("%04d", year))
}

// FromDate returns the period containing t.
func FromDate(t time.Time) Period {
	return FromYear(t.Year())
}

// Year returns the numeric year. An empty or malformed period yields 0.
func (p Period) Year() int {
	y, err := strconv.Atoi(string(p))
	if err != nil {
		return 0
	}
	return y
}

func (p Period) String() string { return string(p) }

// IsZero reports whether p is unset.
func (p Period) IsZero() bool { return p == "" }

// Before reports whether p precedes other.
func (p Period) Before(other Period) bool { return p < other }

// After reports whether p follows other.
func (p Period) After(other Period) bool { return p > other }

// Start returns January 1st of the period (UTC).
func (p Period) Start() time.Time {
	return time.Date(p.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// End returns December 31st of the period (UTC).
func (p Period) End() time.Time {
	return time.Date(p.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls within the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year()
}

// Clamp moves t into the period: dates before it become January 1st, dates
// after it December 31st.
func (p Period) Clamp(t time.Time) time.Time {
	switch {
	case t.Year() < p.Year():
		return p.Start()
	case t.Year() > p.Year():
		return p.End()
	}
	return t
}

// Range returns every period from from through to inclusive, ascending.
// An inverted range is returned ascending as well.
func Range(from, to Period) []Period {
	if to.Before(from) {
		from, to = to, from
	}
	var out []Period
	for y := from.Year(); y <= to.Year(); y++ {
		out = append(out, FromYear(y))
	}
	return out
}
