// Package allocation binds bank statement entries to journal entries and
// implements the period split: booking a statement entry in another year
// than it was paid moves the business account to a child entry in that
// year, bridged by an accruals account.
package allocation

import (
	"strings"
	"unicode"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/id"
	"github.com/cleared-dev/kasboek/internal/journal"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
	"github.com/cleared-dev/kasboek/internal/period"
)

// State is the split state of an allocation.
type State int

const (
	RootUnsplit State = iota
	RootSplit
	Child
)

func (s State) String() string {
	switch s {
	case RootSplit:
		return "split"
	case Child:
		return "child"
	}
	return "root"
}

// Filter selects allocations by journal period and ledger account. Zero
// fields match everything.
type Filter struct {
	Period period.Period
	Code   string
}

// Allocation is a view over an allocation record in a Map.
type Allocation struct {
	m   *Map
	rec *model.AllocationRecord
}

// ID returns the allocation id.
func (a Allocation) ID() string { return a.rec.ID }

// Record returns the underlying record.
func (a Allocation) Record() *model.AllocationRecord { return a.rec }

// Entry returns the bound journal entry.
func (a Allocation) Entry() journal.Entry { return a.m.journal.Entry(a.rec.JournalEntryRef) }

// StatementEntry returns the bound statement entry, or nil when the source
// does not know it.
func (a Allocation) StatementEntry() *model.StatementEntryRecord {
	if a.m.entries == nil {
		return nil
	}
	se, ok := a.m.entries.StatementEntry(a.rec.StatementEntryRef)
	if !ok {
		return nil
	}
	return se
}

// State derives the split state from the parent and children refs.
func (a Allocation) State() State {
	switch {
	case a.rec.ParentRef != nil:
		return Child
	case len(a.rec.ChildrenRefs) > 0:
		return RootSplit
	}
	return RootUnsplit
}

func (a Allocation) IsRoot() bool { return a.rec.ParentRef == nil }

// Parent returns the parent of a child allocation.
func (a Allocation) Parent() (Allocation, bool) {
	if a.rec.ParentRef == nil {
		return Allocation{}, false
	}
	return a.m.Allocation(*a.rec.ParentRef), true
}

// Child returns the child of a split root.
func (a Allocation) Child() (Allocation, bool) {
	if len(a.rec.ChildrenRefs) == 0 {
		return Allocation{}, false
	}
	return a.m.Allocation(a.rec.ChildrenRefs[0]), true
}

// Period is the period of the bound journal entry.
func (a Allocation) Period() period.Period { return a.Entry().Period() }

// LedgerAccountCode is the allocated account of the bound journal entry.
func (a Allocation) LedgerAccountCode() string { return a.Entry().Allocated().Code }

// Amount is the gross amount on the business side.
func (a Allocation) Amount() money.Money { return a.Entry().Amount() }

// Date is the date of the bound journal entry.
func (a Allocation) Date() model.Date { return a.Entry().Date() }

// IsUnmapped reports whether the allocation still books to the sentinel.
func (a Allocation) IsUnmapped() bool { return a.LedgerAccountCode() == accounts.UnmappedCode }

// SetPeriod assigns the allocation to p.
//
// A root without child splits when p differs from its period. A child is
// merged back into its parent when p is the parent's period and otherwise
// moves to p in place. A root that is already split is left alone.
func (a Allocation) SetPeriod(p period.Period) {
	switch a.State() {
	case RootUnsplit:
		if p != a.Period() {
			a.split(p)
		}
	case Child:
		parent, _ := a.Parent()
		switch p {
		case parent.Period():
			a.unsplit(parent)
		case a.Period():
		default:
			e := a.Entry()
			e.SetPeriod(p)
			e.SetDate(model.DateOf(p.Clamp(parent.Date().Time)))
		}
	case RootSplit:
		// Only one split per statement entry.
	}
}

func (a Allocation) split(p period.Period) {
	parent := a.Entry()
	amount := parent.Amount()
	accrual := a.m.accounts.AccrualsAccount(amount).Code
	childID := id.ChildID(a.rec.ID, p)
	date := model.DateOf(p.Clamp(parent.Date().Time))

	child := journal.FromAllocation(childID, amount, date, p, parent.Reason(), parent.Allocated().Code, accrual)
	if spec := parent.VAT(); spec != nil {
		child.SetVAT(spec)
		parent.SetVAT(nil)
	}
	parent.SetAllocatedAccount(accrual)
	parent.CheckIntegrity()
	a.m.journal.Add(child)

	parentID := a.rec.ID
	a.m.records[childID] = &model.AllocationRecord{
		ID:                childID,
		StatementEntryRef: a.rec.StatementEntryRef,
		JournalEntryRef:   childID,
		ParentRef:         &parentID,
		ChildrenRefs:      []string{},
	}
	a.rec.ChildrenRefs = []string{childID}
}

func (a Allocation) unsplit(parent Allocation) {
	pe, ce := parent.Entry(), a.Entry()
	pe.SetAllocatedAccount(ce.Allocated().Code)
	if spec := ce.VAT(); spec != nil {
		pe.SetVAT(spec)
	}
	pe.CheckIntegrity()

	a.m.journal.Delete(a.rec.JournalEntryRef)
	delete(a.m.records, a.rec.ID)
	parent.rec.ChildrenRefs = []string{}
}

// SetLedgerAccount books the allocation on code. On a split root the
// child's opposite leg follows so the bridge stays consistent.
func (a Allocation) SetLedgerAccount(code string) {
	a.Entry().SetAllocatedAccount(code)
	if child, ok := a.Child(); ok {
		child.Entry().SetOppositeAccount(code)
	}
}

// SetReason sets the reason on the allocation and the other member of its
// split pair.
func (a Allocation) SetReason(reason string) {
	a.Entry().SetReason(reason)
	if child, ok := a.Child(); ok {
		child.Entry().SetReason(reason)
	}
	if parent, ok := a.Parent(); ok {
		parent.Entry().SetReason(reason)
	}
}

// SetVAT replaces the VAT specification. On a split root it applies to the
// child, which carries the business account.
func (a Allocation) SetVAT(spec *model.VATSpecificationData) {
	if child, ok := a.Child(); ok {
		child.Entry().SetVAT(spec)
		return
	}
	a.Entry().SetVAT(spec)
}

// VATDate is the default date of a VAT specification: the date of the
// entry that carries the business account, the child's on a split root.
func (a Allocation) VATDate() model.Date {
	if child, ok := a.Child(); ok {
		return child.Date()
	}
	return a.Date()
}

// VAT returns the VAT specification that applies to the allocation.
func (a Allocation) VAT() *model.VATSpecificationData {
	if child, ok := a.Child(); ok {
		return child.Entry().VAT()
	}
	return a.Entry().VAT()
}

// Matches reports whether the allocation passes f.
func (a Allocation) Matches(f Filter) bool {
	e := a.Entry()
	if f.Period != "" && e.Period() != f.Period {
		return false
	}
	if f.Code != "" && e.Allocated().Code != f.Code {
		return false
	}
	return true
}

// SimilarAllocations groups roots: an unmapped root is similar to other
// unmapped roots with the same counterparty, a mapped root to roots booked
// on the same account. Children have no similar allocations.
func (a Allocation) SimilarAllocations() []Allocation {
	if !a.IsRoot() {
		return nil
	}

	var keep func(Allocation) bool
	if a.IsUnmapped() {
		name := normalizeCounterparty(a.counterparty())
		if name == "" {
			return nil
		}
		keep = func(o Allocation) bool {
			return o.IsUnmapped() && normalizeCounterparty(o.counterparty()) == name
		}
	} else {
		code := a.LedgerAccountCode()
		keep = func(o Allocation) bool { return o.LedgerAccountCode() == code }
	}

	var out []Allocation
	for _, o := range a.m.Roots() {
		if o.ID() != a.ID() && keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (a Allocation) counterparty() string {
	if se := a.StatementEntry(); se != nil {
		return se.CounterpartyName
	}
	return ""
}

func normalizeCounterparty(s string) string {
	var b strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
