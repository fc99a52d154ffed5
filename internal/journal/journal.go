package journal

import (
	"sort"

	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/period"
)

// Journal is an id-keyed collection of journal entry records. It borrows
// the map it is built on; Filter and Transform return journals over fresh
// copies and never touch the source.
type Journal struct {
	records map[string]*model.JournalEntryRecord
}

// New returns a journal over records. A nil map starts an empty journal.
func New(records map[string]*model.JournalEntryRecord) *Journal {
	if records == nil {
		records = make(map[string]*model.JournalEntryRecord)
	}
	return &Journal{records: records}
}

// Records returns the backing map.
func (j *Journal) Records() map[string]*model.JournalEntryRecord { return j.records }

// Len returns the number of entries.
func (j *Journal) Len() int { return len(j.records) }

// Entry returns the entry for id. It panics with
// *model.UnknownReferenceError if absent.
func (j *Journal) Entry(id string) Entry {
	rec, ok := j.records[id]
	if !ok {
		panic(&model.UnknownReferenceError{Kind: "journal entry", ID: id})
	}
	return NewEntry(rec)
}

// Lookup returns the entry for id and whether it exists.
func (j *Journal) Lookup(id string) (Entry, bool) {
	rec, ok := j.records[id]
	if !ok {
		return Entry{}, false
	}
	return NewEntry(rec), true
}

// Add stores the entry's record, replacing any entry with the same id.
func (j *Journal) Add(e Entry) {
	j.records[e.ID()] = e.Record()
}

// Delete removes id. Deleting an absent id is a no-op.
func (j *Journal) Delete(id string) {
	delete(j.records, id)
}

// IDs returns all ids, sorted.
func (j *Journal) IDs() []string {
	ids := make([]string, 0, len(j.records))
	for id := range j.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entries returns all entries ordered by date, then id.
func (j *Journal) Entries() []Entry {
	out := make([]Entry, 0, len(j.records))
	for _, rec := range j.records {
		out = append(out, NewEntry(rec))
	}
	sort.Slice(out, func(a, b int) bool {
		da, db := out[a].Date(), out[b].Date()
		if !da.Equal(db.Time) {
			return da.Before(db)
		}
		return out[a].ID() < out[b].ID()
	})
	return out
}

// Filter returns a journal over copies of the entries keep accepts.
func (j *Journal) Filter(keep func(Entry) bool) *Journal {
	out := New(nil)
	for id, rec := range j.records {
		if keep(NewEntry(rec)) {
			out.records[id] = rec.Clone()
		}
	}
	return out
}

// Transform returns a journal over copies of every entry, each passed
// through fn.
func (j *Journal) Transform(fn func(Entry)) *Journal {
	out := New(nil)
	for id, rec := range j.records {
		c := rec.Clone()
		fn(NewEntry(c))
		out.records[id] = c
	}
	return out
}

// InPeriod keeps entries booked in p.
func (j *Journal) InPeriod(p period.Period) *Journal {
	return j.Filter(func(e Entry) bool { return e.Period() == p })
}

// Between keeps entries dated within [from, to].
func (j *Journal) Between(from, to model.Date) *Journal {
	return j.Filter(func(e Entry) bool {
		d := e.Date()
		return !d.Before(from) && !d.After(to)
	})
}

// VATBetween keeps entries whose VAT date lies within [from, to].
func (j *Journal) VATBetween(from, to model.Date) *Journal {
	return j.Filter(func(e Entry) bool {
		d := e.VATDate()
		return !d.Before(from) && !d.After(to)
	})
}

// Periods returns the distinct periods in use, ascending.
func (j *Journal) Periods() []period.Period {
	seen := make(map[period.Period]bool)
	var out []period.Period
	for _, rec := range j.records {
		if !seen[rec.Period] {
			seen[rec.Period] = true
			out = append(out, rec.Period)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// CheckIntegrity checks every entry; see Entry.CheckIntegrity.
func (j *Journal) CheckIntegrity() {
	for _, id := range j.IDs() {
		NewEntry(j.records[id]).CheckIntegrity()
	}
}
