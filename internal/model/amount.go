package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AmountData is the wire form of a money amount: a non-negative magnitude
// plus creditDebit +1 (credit) or -1 (debit).
type AmountData struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	CreditDebit int             `json:"creditDebit"`
}

type amountWire struct {
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	CreditDebit int         `json:"creditDebit"`
}

// MarshalJSON writes amount as a JSON number rather than a quoted string.
func (a AmountData) MarshalJSON() ([]byte, error) {
	return json.Marshal(amountWire{
		Amount:      json.Number(a.Amount.String()),
		Currency:    a.Currency,
		CreditDebit: a.CreditDebit,
	})
}

// UnmarshalJSON accepts amount as a number or a quoted decimal string.
func (a *AmountData) UnmarshalJSON(b []byte) error {
	var raw struct {
		Amount      decimal.Decimal `json:"amount"`
		Currency    string          `json:"currency"`
		CreditDebit int             `json:"creditDebit"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*a = AmountData{Amount: raw.Amount, Currency: raw.Currency, CreditDebit: raw.CreditDebit}
	return nil
}

// ParseDecimal parses a decimal string from external input.
func ParseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &MalformedValueError{Field: field, Value: s}
	}
	return d, nil
}
