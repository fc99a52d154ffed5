package journal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
	"github.com/cleared-dev/kasboek/internal/period"
)

// ErrInvalidEntry is wrapped by the error Validate returns.
var ErrInvalidEntry = errors.New("invalid journal entry")

// ValidationError describes a single rule violation.
type ValidationError struct {
	Rule        string
	EntryID     string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Rule, e.EntryID, e.Description)
}

// AccountChecker tests whether a ledger account code is loaded.
type AccountChecker interface {
	Exists(code string) bool
}

// ValidateRecord checks an externally supplied entry before it is stored.
func ValidateRecord(rec *model.JournalEntryRecord, accts AccountChecker) []ValidationError {
	var errs []ValidationError
	add := func(rule, format string, args ...any) {
		errs = append(errs, ValidationError{Rule: rule, EntryID: rec.ID, Description: fmt.Sprintf(format, args...)})
	}

	if rec.ID == "" {
		add("id", "entry has no id")
	}
	if _, err := period.Parse(string(rec.Period)); err != nil {
		add("period", "%v", err)
	}
	if rec.Date.IsZero() {
		add("date", "entry has no date")
	}
	if len(rec.EntryLegsData) < 2 {
		add("legs", "entry needs at least 2 legs, got %d", len(rec.EntryLegsData))
		return errs
	}

	currency := ""
	hundred := decimal.NewFromInt(100)
	for i, leg := range rec.EntryLegsData {
		if !accts.Exists(leg.LedgerAccountCode) {
			add("account", "leg %d: unknown account %q", i, leg.LedgerAccountCode)
		}
		a := leg.AmountData
		if a.Amount.IsNegative() {
			add("amount", "leg %d: negative magnitude %s", i, a.Amount)
		}
		if a.CreditDebit != 1 && a.CreditDebit != -1 {
			add("amount", "leg %d: creditDebit must be 1 or -1, got %d", i, a.CreditDebit)
		}
		// No more than 2 decimal places.
		if !a.Amount.Mul(hundred).Equal(a.Amount.Mul(hundred).Floor()) {
			add("decimals", "leg %d: amount %s has more than 2 decimal places", i, a.Amount)
		}
		if a.Currency != "" && !a.Amount.IsZero() {
			if currency != "" && currency != a.Currency {
				add("currency", "leg %d: currency %s differs from %s", i, a.Currency, currency)
				continue
			}
			currency = a.Currency
		}
	}
	if len(errs) > 0 {
		return errs
	}

	amounts := make([]money.Money, len(rec.EntryLegsData))
	for i, leg := range rec.EntryLegsData {
		amounts[i] = money.FromData(leg.AmountData)
	}
	if sum := money.Sum(amounts...); !sum.IsZero() {
		add("balance", "legs sum to %s", sum)
	}
	return errs
}

// Validate runs ValidateRecord and folds the violations into one error.
func Validate(rec *model.JournalEntryRecord, accts AccountChecker) error {
	verrs := ValidateRecord(rec, accts)
	if len(verrs) == 0 {
		return nil
	}
	msgs := make([]string, len(verrs))
	for i, ve := range verrs {
		msgs[i] = ve.Error()
	}
	return fmt.Errorf("%w: %s", ErrInvalidEntry, strings.Join(msgs, "; "))
}
