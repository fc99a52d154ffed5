package allocation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/id"
	"github.com/cleared-dev/kasboek/internal/journal"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
	"github.com/cleared-dev/kasboek/internal/period"
)

// ErrInconsistent is wrapped by CheckConsistency.
var ErrInconsistent = errors.New("allocation map is inconsistent")

// StatementEntries resolves the statement entries allocations refer to.
type StatementEntries interface {
	StatementEntry(id string) (*model.StatementEntryRecord, bool)
}

// Map is the id-keyed set of allocations plus the journal it keeps in
// sync. It borrows both record maps.
type Map struct {
	records  map[string]*model.AllocationRecord
	journal  *journal.Journal
	entries  StatementEntries
	accounts *accounts.Registry
}

// NewMap returns a map over records. entries may be nil.
func NewMap(records map[string]*model.AllocationRecord, j *journal.Journal, entries StatementEntries, registry *accounts.Registry) *Map {
	if records == nil {
		records = make(map[string]*model.AllocationRecord)
	}
	return &Map{records: records, journal: j, entries: entries, accounts: registry}
}

// Journal returns the journal the map keeps in sync.
func (m *Map) Journal() *journal.Journal { return m.journal }

// Len returns the number of allocations, children included.
func (m *Map) Len() int { return len(m.records) }

// Allocation returns the allocation for id. It panics with
// *model.UnknownReferenceError if absent.
func (m *Map) Allocation(allocID string) Allocation {
	rec, ok := m.records[allocID]
	if !ok {
		panic(&model.UnknownReferenceError{Kind: "allocation", ID: allocID})
	}
	return Allocation{m: m, rec: rec}
}

// Lookup returns the allocation for id and whether it exists.
func (m *Map) Lookup(allocID string) (Allocation, bool) {
	rec, ok := m.records[allocID]
	if !ok {
		return Allocation{}, false
	}
	return Allocation{m: m, rec: rec}, true
}

// All returns every allocation ordered by date, then id.
func (m *Map) All() []Allocation {
	out := make([]Allocation, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, Allocation{m: m, rec: rec})
	}
	Sort(out, SortByDate)
	return out
}

// Roots returns the allocations without parent, ordered by date, then id.
func (m *Map) Roots() []Allocation {
	var out []Allocation
	for _, rec := range m.records {
		if rec.ParentRef == nil {
			out = append(out, Allocation{m: m, rec: rec})
		}
	}
	Sort(out, SortByDate)
	return out
}

// Filter returns the allocations passing f, ordered by date, then id.
func (m *Map) Filter(f Filter) []Allocation {
	var out []Allocation
	for _, a := range m.All() {
		if a.Matches(f) {
			out = append(out, a)
		}
	}
	return out
}

// ByStatementEntry returns the root allocation of a statement entry.
func (m *Map) ByStatementEntry(entryID string) (Allocation, bool) {
	for _, rec := range m.records {
		if rec.ParentRef == nil && rec.StatementEntryRef == entryID {
			return Allocation{m: m, rec: rec}, true
		}
	}
	return Allocation{}, false
}

// AddRoot creates an unmapped root allocation for a statement entry, with
// its journal entry booked against opposite (the bank's ledger account).
// The allocation and its journal entry share one new id.
func (m *Map) AddRoot(se *model.StatementEntryRecord, opposite string) Allocation {
	allocID := id.New()
	amount := money.FromData(se.AmountData)
	e := journal.FromAllocation(allocID, amount, se.BookDate, period.FromDate(se.BookDate.Time), "", accounts.UnmappedCode, opposite)
	m.journal.Add(e)

	rec := &model.AllocationRecord{
		ID:                allocID,
		StatementEntryRef: se.ID,
		JournalEntryRef:   allocID,
		ChildrenRefs:      []string{},
	}
	m.records[allocID] = rec
	return Allocation{m: m, rec: rec}
}

// Delete removes an allocation with its journal entry. A root takes its
// child along; a child is detached from its parent.
func (m *Map) Delete(allocID string) {
	a := m.Allocation(allocID)
	if child, ok := a.Child(); ok {
		m.Delete(child.ID())
	}
	if parent, ok := a.Parent(); ok {
		parent.rec.ChildrenRefs = removeString(parent.rec.ChildrenRefs, allocID)
	}
	m.journal.Delete(a.rec.JournalEntryRef)
	delete(m.records, allocID)
}

// BoundEntry reports whether a journal entry belongs to an allocation.
func (m *Map) BoundEntry(entryID string) (Allocation, bool) {
	for _, rec := range m.records {
		if rec.JournalEntryRef == entryID {
			return Allocation{m: m, rec: rec}, true
		}
	}
	return Allocation{}, false
}

// CheckConsistency verifies the parent/child links, that children carry
// the "<parent>.<period>" id of their parent, and that every allocation's
// journal entry exists.
func (m *Map) CheckConsistency() error {
	var problems []string
	for _, allocID := range m.ids() {
		rec := m.records[allocID]
		if _, ok := m.journal.Lookup(rec.JournalEntryRef); !ok {
			problems = append(problems, fmt.Sprintf("%s: journal entry %s missing", allocID, rec.JournalEntryRef))
		}
		if len(rec.ChildrenRefs) > 1 {
			problems = append(problems, fmt.Sprintf("%s: %d children", allocID, len(rec.ChildrenRefs)))
		}
		if rec.ParentRef == nil && id.IsChildID(allocID) {
			problems = append(problems, fmt.Sprintf("%s: root has a child id", allocID))
		}
		if rec.ParentRef != nil {
			if parentID, _, err := id.SplitChildID(allocID); err != nil || parentID != *rec.ParentRef {
				problems = append(problems, fmt.Sprintf("%s: not a child id of %s", allocID, *rec.ParentRef))
			}
			if len(rec.ChildrenRefs) > 0 {
				problems = append(problems, fmt.Sprintf("%s: child has children", allocID))
			}
			parent, ok := m.records[*rec.ParentRef]
			switch {
			case !ok:
				problems = append(problems, fmt.Sprintf("%s: parent %s missing", allocID, *rec.ParentRef))
			case !containsString(parent.ChildrenRefs, allocID):
				problems = append(problems, fmt.Sprintf("%s: parent %s does not list it", allocID, *rec.ParentRef))
			}
		}
		for _, c := range rec.ChildrenRefs {
			child, ok := m.records[c]
			if !ok || child.ParentRef == nil || *child.ParentRef != allocID {
				problems = append(problems, fmt.Sprintf("%s: child %s does not point back", allocID, c))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInconsistent, strings.Join(problems, "; "))
	}
	return nil
}

func (m *Map) ids() []string {
	ids := make([]string, 0, len(m.records))
	for k := range m.records {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := []string{}
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
