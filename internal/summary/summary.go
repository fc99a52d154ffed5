// Package summary folds a journal into per-account trial balance buckets.
package summary

import (
	"sort"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/journal"
	"github.com/cleared-dev/kasboek/internal/money"
)

// TotalCode is the account code of the synthetic Totalisation bucket.
const TotalCode = "Total"

// Booking is one leg posted on an account.
type Booking struct {
	Entry journal.Entry
	Leg   journal.Leg
}

// AccountSummary is the trial balance row of one account. DebitAmount and
// CreditAmount total the legs per side; exactly one of DebitBalance and
// CreditBalance carries the net Balance, the other stays null.
type AccountSummary struct {
	Account       accounts.Account
	Bookings      []Booking
	DebitAmount   money.Money
	CreditAmount  money.Money
	DebitBalance  money.Money
	CreditBalance money.Money
	Balance       money.Money
}

func (s *AccountSummary) add(b Booking) {
	s.Bookings = append(s.Bookings, b)
	if b.Leg.Amount.IsDebit() {
		s.DebitAmount = s.DebitAmount.Add(b.Leg.Amount)
	} else {
		s.CreditAmount = s.CreditAmount.Add(b.Leg.Amount)
	}
}

func (s *AccountSummary) classify() {
	s.Balance = money.Sum(s.DebitAmount, s.CreditAmount)
	s.DebitBalance, s.CreditBalance = money.Null(), money.Null()
	switch {
	case s.Balance.IsZero():
	case s.Balance.IsDebit():
		s.DebitBalance = s.Balance
	default:
		s.CreditBalance = s.Balance
	}
}

// Map is the trial balance of a journal.
type Map struct {
	summaries map[string]*AccountSummary
}

// Build folds every leg of j into a bucket per account. A leg on a code the
// registry does not know panics with *accounts.UnknownCodeError; mixed
// currencies on one account panic with *money.MismatchError.
func Build(j *journal.Journal, registry *accounts.Registry) *Map {
	m := &Map{summaries: make(map[string]*AccountSummary)}
	for _, e := range j.Entries() {
		for _, leg := range e.Legs() {
			s, ok := m.summaries[leg.Code]
			if !ok {
				s = &AccountSummary{
					Account:      registry.Account(leg.Code),
					DebitAmount:  money.Null(),
					CreditAmount: money.Null(),
				}
				m.summaries[leg.Code] = s
			}
			s.add(Booking{Entry: e, Leg: leg})
		}
	}
	for _, s := range m.summaries {
		s.classify()
	}
	return m
}

// Summary returns the bucket of code.
func (m *Map) Summary(code string) (*AccountSummary, bool) {
	s, ok := m.summaries[code]
	return s, ok
}

// Len returns the number of accounts with bookings.
func (m *Map) Len() int { return len(m.summaries) }

// Accounts returns the buckets with at least one booking, ordered by
// category (balance sheet, revenue, expense) and then sort key.
func (m *Map) Accounts() []*AccountSummary {
	out := make([]*AccountSummary, 0, len(m.summaries))
	for _, s := range m.summaries {
		if len(s.Bookings) > 0 {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Account, out[j].Account
		if a.Category() != b.Category() {
			return a.Category() < b.Category()
		}
		if a.SortKey != b.SortKey {
			return a.SortKey < b.SortKey
		}
		return a.Code < b.Code
	})
	return out
}

// Totalisation folds the buckets passing keep into one synthetic summary.
// A nil keep takes every bucket; over a whole journal the balance nets to
// zero.
func (m *Map) Totalisation(keep func(*AccountSummary) bool) *AccountSummary {
	total := &AccountSummary{
		Account:      accounts.Account{Code: TotalCode, ShortDescription: "Total"},
		DebitAmount:  money.Null(),
		CreditAmount: money.Null(),
	}
	for _, s := range m.Accounts() {
		if keep != nil && !keep(s) {
			continue
		}
		total.Bookings = append(total.Bookings, s.Bookings...)
		total.DebitAmount = total.DebitAmount.Add(s.DebitAmount)
		total.CreditAmount = total.CreditAmount.Add(s.CreditAmount)
	}
	total.classify()
	return total
}

// InCategory returns a Totalisation filter for one account category.
func InCategory(c accounts.Category) func(*AccountSummary) bool {
	return func(s *AccountSummary) bool { return s.Account.Category() == c }
}
