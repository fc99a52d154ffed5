package accounts

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
)

// UnknownCodeError is the panic value of Registry.Account for a code that
// is not in the loaded scheme.
type UnknownCodeError struct {
	Code string
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown ledger account %q", e.Code)
}

func (e *UnknownCodeError) Unwrap() error { return model.ErrUnknownReference }

// Category orders accounts in reports.
type Category int

const (
	CategoryBalanceSheet Category = iota
	CategoryRevenue
	CategoryExpense
	CategoryOther
)

func (c Category) String() string {
	switch c {
	case CategoryBalanceSheet:
		return "balance sheet"
	case CategoryRevenue:
		return "revenue"
	case CategoryExpense:
		return "expense"
	}
	return "other"
}

// Account is a ledger account with its resolved parent chain.
type Account struct {
	Code             string
	Level            int
	ShortDescription string
	Description      string
	Side             money.Side // 0 when the feed leaves it open
	SortKey          string
	Number           string
	ReversalCode     string
	ParentCodes      []string // nearest first
}

// Category classifies the account by its code prefix.
func (a Account) Category() Category {
	switch {
	case a.Code == UnmappedCode:
		return CategoryOther
	case strings.HasPrefix(a.Code, balanceSheetPrefix):
		return CategoryBalanceSheet
	case strings.HasPrefix(a.Code, revenuePrefix):
		return CategoryRevenue
	case strings.HasPrefix(a.Code, profitLossPrefix):
		return CategoryExpense
	}
	return CategoryOther
}

// IsPosting reports whether entries may be booked on the account.
func (a Account) IsPosting() bool { return a.Level == PostingLevel }

func (a Account) String() string {
	if a.ShortDescription == "" {
		return a.Code
	}
	return a.Code + " " + a.ShortDescription
}

type view int

const (
	viewPosting view = iota
	viewBank
	viewBalanceSheet
)

// Registry is the loaded chart of accounts. It is not safe for concurrent
// mutation; reads after Load may be shared.
type Registry struct {
	records  []model.Account
	accounts []Account
	byCode   map[string]Account
	orphans  []string
	cache    map[view][]Account
	log      zerolog.Logger
}

// NewRegistry returns a registry holding only the unmapped sentinel. Call
// Load to fill it.
func NewRegistry(log zerolog.Logger) *Registry {
	r := &Registry{log: log}
	r.Load(nil)
	return r
}

// Load replaces the registry contents with records, connects parents and
// clears every derived view. Orphans are logged and keep an empty chain.
func (r *Registry) Load(records []model.Account) {
	r.records = append([]model.Account(nil), records...)
	all := append([]model.Account{unmappedAccount()}, records...)

	r.accounts = make([]Account, 0, len(all))
	for _, rec := range all {
		r.accounts = append(r.accounts, fromRecord(rec))
	}
	r.orphans = nil
	r.connectParents()

	r.byCode = make(map[string]Account, len(r.accounts))
	for _, a := range r.accounts {
		r.byCode[a.Code] = a
	}
	r.cache = make(map[view][]Account)
}

func fromRecord(rec model.Account) Account {
	var side money.Side
	switch strings.ToUpper(rec.DC) {
	case "D":
		side = money.Debit
	case "C":
		side = money.Credit
	}
	return Account{
		Code:             rec.Referentiecode,
		Level:            rec.Nivo,
		ShortDescription: rec.OmschrijvingKort,
		Description:      rec.Omschrijving,
		Side:             side,
		SortKey:          rec.Sortering,
		Number:           rec.Referentienummer,
		ReversalCode:     rec.ReferentieOmslagcode,
	}
}

// connectParents resolves every account's parent chain in level order so a
// parent's chain is complete before its children are visited.
func (r *Registry) connectParents() {
	byLevel := make(map[int][]int)
	maxLevel := 0
	for i, a := range r.accounts {
		byLevel[a.Level] = append(byLevel[a.Level], i)
		if a.Level > maxLevel {
			maxLevel = a.Level
		}
	}

	for level := 2; level <= maxLevel; level++ {
		for _, i := range byLevel[level] {
			child := &r.accounts[i]
			parent := -1
			for _, j := range byLevel[level-1] {
				candidate := r.accounts[j].Code
				if !strings.HasPrefix(child.Code, candidate) {
					continue
				}
				if parent < 0 || len(candidate) > len(r.accounts[parent].Code) {
					parent = j
				}
			}
			if parent < 0 {
				r.orphans = append(r.orphans, child.Code)
				r.log.Warn().
					Str("code", child.Code).
					Int("level", child.Level).
					Msg("ledger account has no parent")
				continue
			}
			p := r.accounts[parent]
			child.ParentCodes = append([]string{p.Code}, p.ParentCodes...)
		}
	}
}

// Records returns the records passed to the last Load.
func (r *Registry) Records() []model.Account {
	return r.records
}

// All returns every account including the unmapped sentinel, in load order.
func (r *Registry) All() []Account {
	return r.accounts
}

// Orphans returns the codes of accounts for which no parent was found.
func (r *Registry) Orphans() []string {
	return r.orphans
}

// Account returns the account for code. It panics with *UnknownCodeError if
// the code is not loaded; use Lookup for codes from outside the dataset.
func (r *Registry) Account(code string) Account {
	a, ok := r.byCode[code]
	if !ok {
		panic(&UnknownCodeError{Code: code})
	}
	return a
}

// Lookup returns the account for code and whether it exists.
func (r *Registry) Lookup(code string) (Account, bool) {
	a, ok := r.byCode[code]
	return a, ok
}

// Exists reports whether a code is loaded.
func (r *Registry) Exists(code string) bool {
	_, ok := r.byCode[code]
	return ok
}

// Parents returns the ancestor accounts of code, nearest first.
func (r *Registry) Parents(code string) []Account {
	a := r.Account(code)
	out := make([]Account, 0, len(a.ParentCodes))
	for _, pc := range a.ParentCodes {
		out = append(out, r.byCode[pc])
	}
	return out
}

// MatchingAccounts returns the accounts whose code or descriptions contain
// text, ignoring case and diacritics. With includeParents the ancestors of
// every match are added. The result is sorted by sort key.
func (r *Registry) MatchingAccounts(text string, includeParents bool) []Account {
	needle := fold(text)
	seen := make(map[string]bool)
	var out []Account
	add := func(a Account) {
		if !seen[a.Code] {
			seen[a.Code] = true
			out = append(out, a)
		}
	}

	for _, a := range r.accounts {
		if !strings.Contains(fold(a.Code), needle) &&
			!strings.Contains(fold(a.ShortDescription), needle) &&
			!strings.Contains(fold(a.Description), needle) {
			continue
		}
		add(a)
		if includeParents {
			for _, p := range r.Parents(a.Code) {
				add(p)
			}
		}
	}
	SortAccounts(out)
	return out
}

// AccrualsAccount returns the bridging account for a split posting of
// amount: revenue accruals for credit amounts, expense accruals for debit.
func (r *Registry) AccrualsAccount(amount money.Money) Account {
	if amount.IsCredit() {
		return r.Account(RevenueAccrualsCode)
	}
	return r.Account(ExpenseAccrualsCode)
}

// PostingAccounts returns the accounts entries may be booked on.
func (r *Registry) PostingAccounts() []Account {
	return r.cached(viewPosting, func(a Account) bool { return a.IsPosting() })
}

// BankAccounts returns the posting accounts a bank account may be linked to.
func (r *Registry) BankAccounts() []Account {
	return r.cached(viewBank, func(a Account) bool {
		return a.IsPosting() && strings.HasPrefix(a.Code, bankPrefix)
	})
}

// BalanceSheetAccounts returns the posting accounts on the balance sheet.
func (r *Registry) BalanceSheetAccounts() []Account {
	return r.cached(viewBalanceSheet, func(a Account) bool {
		return a.IsPosting() && a.Category() == CategoryBalanceSheet
	})
}

func (r *Registry) cached(v view, keep func(Account) bool) []Account {
	if out, ok := r.cache[v]; ok {
		return out
	}
	out := []Account{}
	for _, a := range r.accounts {
		if keep(a) {
			out = append(out, a)
		}
	}
	SortAccounts(out)
	r.cache[v] = out
	return out
}

// SortAccounts orders accounts by sort key, then code.
func SortAccounts(accts []Account) {
	sort.SliceStable(accts, func(i, j int) bool {
		if accts[i].SortKey != accts[j].SortKey {
			return accts[i].SortKey < accts[j].SortKey
		}
		return accts[i].Code < accts[j].Code
	})
}

// fold lowercases s and strips combining marks so "Privé" matches "prive".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
