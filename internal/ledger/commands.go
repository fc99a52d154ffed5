package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/allocation"
	"github.com/cleared-dev/kasboek/internal/journal"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
	"github.com/cleared-dev/kasboek/internal/period"
	"github.com/cleared-dev/kasboek/internal/vat"
)

// Command names accepted by Apply.
const (
	CmdSetPeriod          = "set-period"
	CmdSetLedgerAccount   = "set-ledger-account"
	CmdSetReason          = "set-reason"
	CmdSetVAT             = "set-vat"
	CmdLinkBankAccount    = "link-bank-account"
	CmdUpdateJournalEntry = "update-journal-entry"
	CmdDeleteJournalEntry = "delete-journal-entry"
)

// ErrUnknownCommand is returned by Apply for an unrecognised name.
var ErrUnknownCommand = errors.New("unknown command")

// Command is the plain-record form of a mutation, as it arrives from the
// CLI or is replayed from the audit log. Only the fields the named command
// uses are read.
type Command struct {
	Name          string                      `json:"name"`
	AllocationIDs []string                    `json:"allocationIds,omitempty"`
	Period        string                      `json:"period,omitempty"`
	Code          string                      `json:"code,omitempty"`
	Reason        string                      `json:"reason,omitempty"`
	BankAccountID string                      `json:"bankAccountId,omitempty"`
	VAT           *model.VATSpecificationData `json:"vat,omitempty"`
	JournalEntry  *model.JournalEntryRecord   `json:"journalEntry,omitempty"`
	EntryID       string                      `json:"entryId,omitempty"`
}

// Target names what the command acts on, for logs.
func (c Command) Target() string {
	switch {
	case len(c.AllocationIDs) == 1:
		return c.AllocationIDs[0]
	case len(c.AllocationIDs) > 1:
		return fmt.Sprintf("%s (+%d)", c.AllocationIDs[0], len(c.AllocationIDs)-1)
	case c.BankAccountID != "":
		return c.BankAccountID
	case c.JournalEntry != nil:
		return c.JournalEntry.ID
	}
	return c.EntryID
}

// Apply dispatches c to the matching command method.
func (l *Ledger) Apply(c Command) error {
	single := func() (string, error) {
		if len(c.AllocationIDs) != 1 {
			return "", fmt.Errorf("%s: expected one allocation, got %d", c.Name, len(c.AllocationIDs))
		}
		return c.AllocationIDs[0], nil
	}

	switch c.Name {
	case CmdSetPeriod:
		for _, allocID := range c.AllocationIDs {
			if err := l.SetPeriod(allocID, c.Period); err != nil {
				return err
			}
		}
		return nil
	case CmdSetLedgerAccount:
		return l.SetLedgerAccounts(c.AllocationIDs, c.Code)
	case CmdSetReason:
		allocID, err := single()
		if err != nil {
			return err
		}
		return l.SetReason(allocID, c.Reason)
	case CmdSetVAT:
		allocID, err := single()
		if err != nil {
			return err
		}
		return l.SetVAT(allocID, c.VAT)
	case CmdLinkBankAccount:
		return l.LinkBankAccount(c.BankAccountID, c.Code)
	case CmdUpdateJournalEntry:
		return l.UpdateJournalEntry(c.JournalEntry)
	case CmdDeleteJournalEntry:
		return l.DeleteJournalEntry(c.EntryID)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Name)
}

func (l *Ledger) allocation(allocID string) (allocation.Allocation, error) {
	a, ok := l.allocations.Lookup(allocID)
	if !ok {
		return allocation.Allocation{}, &model.UnknownReferenceError{Kind: "allocation", ID: allocID}
	}
	return a, nil
}

// SetPeriod assigns an allocation to a period, splitting or unsplitting it
// as needed.
func (l *Ledger) SetPeriod(allocID, p string) error {
	per, err := period.Parse(p)
	if err != nil {
		return err
	}
	a, err := l.allocation(allocID)
	if err != nil {
		return err
	}
	before := a.State()
	a.SetPeriod(per)
	l.log.Debug().
		Str("allocation", allocID).
		Str("period", p).
		Stringer("from", before).
		Stringer("to", a.State()).
		Msg("period set")
	return nil
}

func (l *Ledger) checkPostable(code string) error {
	acct, ok := l.registry.Lookup(code)
	if !ok {
		return &accounts.UnknownCodeError{Code: code}
	}
	if !acct.IsPosting() && code != accounts.UnmappedCode {
		return fmt.Errorf("%w: %s is a level %d account", ErrNotPostable, code, acct.Level)
	}
	return nil
}

// SetLedgerAccount books one allocation on code.
func (l *Ledger) SetLedgerAccount(allocID, code string) error {
	return l.SetLedgerAccounts([]string{allocID}, code)
}

// SetLedgerAccounts books every allocation on code. All ids are checked
// before any is changed.
func (l *Ledger) SetLedgerAccounts(allocIDs []string, code string) error {
	if err := l.checkPostable(code); err != nil {
		return err
	}
	allocs := make([]allocation.Allocation, 0, len(allocIDs))
	for _, allocID := range allocIDs {
		a, err := l.allocation(allocID)
		if err != nil {
			return err
		}
		allocs = append(allocs, a)
	}
	for _, a := range allocs {
		a.SetLedgerAccount(code)
	}
	l.log.Debug().Strs("allocations", allocIDs).Str("code", code).Msg("ledger account set")
	return nil
}

// SetReason sets the narrative of an allocation and its split partner.
func (l *Ledger) SetReason(allocID, reason string) error {
	a, err := l.allocation(allocID)
	if err != nil {
		return err
	}
	a.SetReason(reason)
	l.log.Debug().Str("allocation", allocID).Msg("reason set")
	return nil
}

// SetVAT replaces the VAT specification of an allocation. Every line must
// name a rate valid on the specification date (Allocation.VATDate when
// unset) and carry no malformed figures. nil clears the specification.
func (l *Ledger) SetVAT(allocID string, spec *model.VATSpecificationData) error {
	a, err := l.allocation(allocID)
	if err != nil {
		return err
	}
	if spec != nil {
		spec = spec.Clone()
		if spec.Date.IsZero() {
			spec.Date = a.VATDate()
		}
		var errs []error
		for i, line := range spec.Lines {
			if _, ok := vat.RateAt(spec.Date.Time, line.ID); !ok {
				errs = append(errs, fmt.Errorf("line %d: %w", i+1, &model.MalformedValueError{Field: "rate", Value: line.ID}))
				continue
			}
			if err := vat.LineFromData(line, spec.Date.Time).Validate(); err != nil {
				errs = append(errs, fmt.Errorf("line %d: %w", i+1, err))
			}
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("VAT specification for %s: %w", allocID, err)
		}
	}
	a.SetVAT(spec)
	l.log.Debug().Str("allocation", allocID).Bool("cleared", spec == nil).Msg("VAT set")
	return nil
}

// LinkBankAccount books a bank account on a bank ledger account. The
// opposite legs of the roots of its statement entries follow.
func (l *Ledger) LinkBankAccount(bankID, code string) error {
	ba, ok := l.state.LiquidAssetsData[bankID]
	if !ok {
		return &model.UnknownReferenceError{Kind: "bank account", ID: bankID}
	}
	acct, ok := l.registry.Lookup(code)
	if !ok {
		return &accounts.UnknownCodeError{Code: code}
	}
	bankView := false
	for _, b := range l.registry.BankAccounts() {
		if b.Code == acct.Code {
			bankView = true
			break
		}
	}
	if !bankView {
		return fmt.Errorf("%w: %s is not a bank account", ErrNotPostable, code)
	}

	ba.LedgerAccountCode = code
	relinked := 0
	for seID := range ba.StatementEntriesData {
		if a, ok := l.allocations.ByStatementEntry(seID); ok {
			a.Entry().SetOppositeAccount(code)
			relinked++
		}
	}
	l.log.Debug().Str("bank_account", bankID).Str("code", code).Int("relinked", relinked).Msg("bank account linked")
	return nil
}

// UpdateJournalEntry validates rec and stores a copy, adding or replacing
// a free-standing entry. Entries owned by an allocation change through the
// allocation commands only.
func (l *Ledger) UpdateJournalEntry(rec *model.JournalEntryRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: no journal entry given", journal.ErrInvalidEntry)
	}
	if err := journal.Validate(rec, l.registry); err != nil {
		return err
	}
	for i, leg := range rec.EntryLegsData {
		if leg.AmountData.Currency != l.currency {
			return fmt.Errorf("journal entry %s leg %d: %w: want %s, got %s", rec.ID, i+1, money.ErrCurrencyMismatch, l.currency, leg.AmountData.Currency)
		}
	}
	if _, bound := l.allocations.BoundEntry(rec.ID); bound {
		return fmt.Errorf("%w: %s", ErrBoundEntry, rec.ID)
	}
	l.journal.Add(journal.NewEntry(rec.Clone()))
	l.log.Debug().Str("entry", rec.ID).Msg("journal entry updated")
	return nil
}

// DeleteJournalEntry removes a free-standing entry.
func (l *Ledger) DeleteJournalEntry(entryID string) error {
	if _, ok := l.journal.Lookup(entryID); !ok {
		return &model.UnknownReferenceError{Kind: "journal entry", ID: entryID}
	}
	if _, bound := l.allocations.BoundEntry(entryID); bound {
		return fmt.Errorf("%w: %s", ErrBoundEntry, entryID)
	}
	l.journal.Delete(entryID)
	l.log.Debug().Str("entry", entryID).Msg("journal entry deleted")
	return nil
}

// DeclarationParams selects a quarter and its manual VAT amounts.
type DeclarationParams struct {
	Year    int
	Quarter int
	Manual  map[vat.Category]decimal.Decimal
}

// NewDeclaration builds the VAT return described by p.
func (l *Ledger) NewDeclaration(p DeclarationParams) (*vat.Declaration, error) {
	q, err := vat.NewQuarter(p.Year, p.Quarter)
	if err != nil {
		return nil, err
	}
	d := l.Declaration(q)
	for c, v := range p.Manual {
		d.SetManual(c, v)
	}
	return d, nil
}

// PostVATDeclaration books the VAT return described by p. Posting a
// quarter again replaces its earlier entry.
func (l *Ledger) PostVATDeclaration(p DeclarationParams) (journal.Entry, error) {
	d, err := l.NewDeclaration(p)
	if err != nil {
		return journal.Entry{}, err
	}
	e, err := vat.EntryFromDeclaration(vat.EntryID(d.Quarter()), d, l.Currency())
	if err != nil {
		return journal.Entry{}, fmt.Errorf("posting %s: %w", d.Quarter(), err)
	}
	l.journal.Add(e)
	l.log.Info().
		Str("quarter", d.Quarter().String()).
		Str("total", d.Total().String()).
		Msg("VAT return posted")
	return e, nil
}
