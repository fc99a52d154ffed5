package model

import (
	"encoding/json"
	"time"
)

// DateLayout is the ISO calendar date used on the wire.
const DateLayout = "2006-01-02"

// Date is a calendar date serialized as "yyyy-mm-dd".
type Date struct {
	time.Time
}

// NewDate returns the date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses s and requires it to round-trip, so "2021-02-30" is
// rejected rather than normalized.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.Format(DateLayout) != s {
		return Date{}, &MalformedValueError{Field: "date", Value: s}
	}
	return Date{t}, nil
}

// MustDate is ParseDate for constants and tests.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Before compares calendar dates.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After compares calendar dates.
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

// MarshalJSON writes the ISO date string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts an ISO date string; an empty string yields the zero date.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
