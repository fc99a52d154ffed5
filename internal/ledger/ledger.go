// Package ledger is the explicit context that owns an AccountingState and
// exposes the engine to outer layers: bank import ingestion and the
// record-in command surface.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/allocation"
	"github.com/cleared-dev/kasboek/internal/journal"
	"github.com/cleared-dev/kasboek/internal/logger"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
	"github.com/cleared-dev/kasboek/internal/period"
	"github.com/cleared-dev/kasboek/internal/summary"
	"github.com/cleared-dev/kasboek/internal/vat"
)

var (
	// ErrBoundEntry is returned when a command would replace or remove a
	// journal entry that belongs to an allocation.
	ErrBoundEntry = errors.New("journal entry is bound to an allocation")
	// ErrNotPostable is returned for an account that cannot take bookings
	// through the given command.
	ErrNotPostable = errors.New("ledger account cannot be used here")
	// ErrInvalidImport is returned for a bank import that fails validation.
	ErrInvalidImport = errors.New("invalid bank import")
)

// Ledger owns one AccountingState and the views over it. It is not safe
// for concurrent use; callers serialize access.
type Ledger struct {
	state       *model.AccountingState
	registry    *accounts.Registry
	currency    string
	journal     *journal.Journal
	allocations *allocation.Map
	log         zerolog.Logger
}

// New wraps state, kept in currency. The ledger borrows the state's maps;
// every mutation is visible in state.
func New(state *model.AccountingState, registry *accounts.Registry, currency string, log zerolog.Logger) *Ledger {
	state.Init()
	l := &Ledger{
		state:    state,
		registry: registry,
		currency: currency,
		journal:  journal.New(state.JournalData),
		log:      logger.WithComponent(log, "ledger"),
	}
	l.allocations = allocation.NewMap(state.LedgerAllocationsData, l.journal, l, registry)
	return l
}

// State returns the owned state.
func (l *Ledger) State() *model.AccountingState { return l.state }

// Registry returns the chart of accounts.
func (l *Ledger) Registry() *accounts.Registry { return l.registry }

// Journal returns the journal over the state.
func (l *Ledger) Journal() *journal.Journal { return l.journal }

// Allocations returns the allocation map over the state.
func (l *Ledger) Allocations() *allocation.Map { return l.allocations }

// StatementEntry finds a statement entry in any bank account.
func (l *Ledger) StatementEntry(entryID string) (*model.StatementEntryRecord, bool) {
	for _, ba := range l.state.LiquidAssetsData {
		if se, ok := ba.StatementEntriesData[entryID]; ok {
			return se, true
		}
	}
	return nil, false
}

// BankAccount returns the bank account with id.
func (l *Ledger) BankAccount(bankID string) (*model.BankAccountRecord, bool) {
	ba, ok := l.state.LiquidAssetsData[bankID]
	return ba, ok
}

// BankAccounts returns all bank accounts ordered by id.
func (l *Ledger) BankAccounts() []*model.BankAccountRecord {
	out := make([]*model.BankAccountRecord, 0, len(l.state.LiquidAssetsData))
	for _, ba := range l.state.LiquidAssetsData {
		out = append(out, ba)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Currency is the currency of the administration. Every bank account and
// journal entry is kept in it.
func (l *Ledger) Currency() string { return l.currency }

// AddBankImportStatement creates or merges the bank account of rec, stores
// its statement and returns the statement entries that were not known yet,
// ordered by book date and id. Nothing is stored when rec is invalid.
func (l *Ledger) AddBankImportStatement(rec model.BankImportStatementRecord) ([]*model.StatementEntryRecord, error) {
	if err := l.validateImport(rec); err != nil {
		return nil, err
	}

	bd := rec.BankAccount
	ba, ok := l.state.LiquidAssetsData[bd.ID]
	if !ok {
		ba = &model.BankAccountRecord{
			ID:                    bd.ID,
			Name:                  bd.Name,
			Currency:              bd.Currency,
			LedgerAccountCode:     bd.LedgerAccountCode,
			AccountStatementsData: make(map[string]*model.AccountStatementRecord),
			StatementEntriesData:  make(map[string]*model.StatementEntryRecord),
		}
		l.state.LiquidAssetsData[bd.ID] = ba
		l.log.Info().Str("bank_account", bd.ID).Msg("bank account created")
	} else {
		if ba.Name == "" {
			ba.Name = bd.Name
		}
		if ba.LedgerAccountCode == "" {
			ba.LedgerAccountCode = bd.LedgerAccountCode
		}
	}

	if st := rec.AccountStatement; st.ID != "" {
		c := st
		ba.AccountStatementsData[st.ID] = &c
	}

	var added []*model.StatementEntryRecord
	for _, se := range rec.StatementEntries {
		if _, exists := l.StatementEntry(se.ID); exists {
			continue
		}
		c := se
		c.BankAccountRef = ba.ID
		if c.AccountStatementRef == "" {
			c.AccountStatementRef = rec.AccountStatement.ID
		}
		if c.ValueDate.IsZero() {
			c.ValueDate = c.BookDate
		}
		ba.StatementEntriesData[c.ID] = &c
		added = append(added, &c)
	}
	sort.Slice(added, func(i, j int) bool {
		if !added[i].BookDate.Equal(added[j].BookDate.Time) {
			return added[i].BookDate.Before(added[j].BookDate)
		}
		return added[i].ID < added[j].ID
	})

	l.log.Info().
		Str("bank_account", ba.ID).
		Str("statement", rec.AccountStatement.ID).
		Int("entries", len(rec.StatementEntries)).
		Int("new", len(added)).
		Msg("bank statement imported")
	return added, nil
}

func (l *Ledger) validateImport(rec model.BankImportStatementRecord) error {
	bd := rec.BankAccount
	if bd.ID == "" {
		return fmt.Errorf("%w: bank account id is empty", ErrInvalidImport)
	}
	currency := bd.Currency
	if existing, ok := l.state.LiquidAssetsData[bd.ID]; ok && existing.Currency != "" {
		if currency != "" && currency != existing.Currency {
			return fmt.Errorf("%w: bank account %s is %s, import is %s", money.ErrCurrencyMismatch, bd.ID, existing.Currency, currency)
		}
		currency = existing.Currency
	}
	if currency == "" {
		return fmt.Errorf("%w: bank account %s has no currency", ErrInvalidImport, bd.ID)
	}
	if currency != l.currency {
		return fmt.Errorf("%w: bank account %s is %s, books are kept in %s", money.ErrCurrencyMismatch, bd.ID, currency, l.currency)
	}
	if bd.LedgerAccountCode != "" && !l.registry.Exists(bd.LedgerAccountCode) {
		return fmt.Errorf("%w: %w", ErrInvalidImport, &accounts.UnknownCodeError{Code: bd.LedgerAccountCode})
	}

	seen := make(map[string]bool, len(rec.StatementEntries))
	for i, se := range rec.StatementEntries {
		switch {
		case se.ID == "":
			return fmt.Errorf("%w: statement entry %d has no id", ErrInvalidImport, i+1)
		case seen[se.ID]:
			return fmt.Errorf("%w: duplicate statement entry %s", ErrInvalidImport, se.ID)
		case se.BookDate.IsZero():
			return fmt.Errorf("statement entry %s: %w", se.ID, &model.MalformedValueError{Field: "bookDate"})
		case se.AmountData.CreditDebit != 1 && se.AmountData.CreditDebit != -1:
			return fmt.Errorf("statement entry %s: %w", se.ID, &model.MalformedValueError{Field: "creditDebit", Value: fmt.Sprint(se.AmountData.CreditDebit)})
		case se.AmountData.Amount.IsNegative():
			return fmt.Errorf("statement entry %s: %w", se.ID, &model.MalformedValueError{Field: "amount", Value: se.AmountData.Amount.String()})
		case se.AmountData.Currency != currency:
			return fmt.Errorf("statement entry %s: %w: want %s, got %s", se.ID, money.ErrCurrencyMismatch, currency, se.AmountData.Currency)
		}
		seen[se.ID] = true
	}
	return nil
}

// AddStatementEntriesToAllocationMap creates an unmapped root allocation
// and its journal entry for every entry that has none yet. The opposite
// leg is the bank account's ledger account, or the unmapped sentinel while
// the bank account is not linked.
func (l *Ledger) AddStatementEntriesToAllocationMap(entries []*model.StatementEntryRecord) []allocation.Allocation {
	var out []allocation.Allocation
	for _, se := range entries {
		if _, ok := l.allocations.ByStatementEntry(se.ID); ok {
			continue
		}
		opposite := accounts.UnmappedCode
		if ba, ok := l.state.LiquidAssetsData[se.BankAccountRef]; ok && ba.LedgerAccountCode != "" {
			opposite = ba.LedgerAccountCode
		}
		a := l.allocations.AddRoot(se, opposite)
		l.log.Debug().Str("allocation", a.ID()).Str("statement_entry", se.ID).Msg("allocation created")
		out = append(out, a)
	}
	return out
}

// Import runs both ingestion steps for one bank statement.
func (l *Ledger) Import(rec model.BankImportStatementRecord) ([]allocation.Allocation, error) {
	added, err := l.AddBankImportStatement(rec)
	if err != nil {
		return nil, err
	}
	return l.AddStatementEntriesToAllocationMap(added), nil
}

// TrialBalance folds the journal, restricted to p when it is set.
func (l *Ledger) TrialBalance(p period.Period) *summary.Map {
	j := l.journal
	if !p.IsZero() {
		j = j.InPeriod(p)
	}
	return summary.Build(j, l.registry)
}

// Declaration returns the VAT return of q over the journal.
func (l *Ledger) Declaration(q vat.Quarter) *vat.Declaration {
	return vat.NewDeclaration(l.journal, q)
}

// CheckIntegrity panics on the first unbalanced entry and returns an error
// when allocation links are inconsistent.
func (l *Ledger) CheckIntegrity() error {
	l.journal.CheckIntegrity()
	return l.allocations.CheckConsistency()
}
