package model

import (
	"github.com/cleared-dev/kasboek/internal/period"
)

// VAT rate ids used in VATLineData.ID.
const (
	VATRateHigh = "high"
	VATRateLow  = "low"
	VATRateZero = "zero"
	VATRateNone = "none"
)

// EntryLegData is one leg of a journal entry.
type EntryLegData struct {
	LedgerAccountCode string     `json:"ledgerAccountCode"`
	AmountData        AmountData `json:"amountData"`
	Tag               string     `json:"tag,omitempty"`
}

// VATLineData is a persisted VAT line. Numeric fields are decimal strings
// and may be empty.
type VATLineData struct {
	ID    string `json:"id"`
	Bruto string `json:"bruto"`
	VAT   string `json:"vat"`
	Netto string `json:"netto"`
}

// VATSpecificationData is the raw VAT breakdown stored on a journal entry.
type VATSpecificationData struct {
	Date  Date          `json:"date"`
	Lines []VATLineData `json:"lines"`
}

// Clone returns a deep copy.
func (v *VATSpecificationData) Clone() *VATSpecificationData {
	if v == nil {
		return nil
	}
	out := *v
	out.Lines = append([]VATLineData(nil), v.Lines...)
	return &out
}

// JournalEntryRecord is a persisted journal entry. Leg 0 is the opposite
// leg, leg 1 the allocated leg, legs 2 and up are VAT legs.
type JournalEntryRecord struct {
	ID                   string                `json:"id"`
	Date                 Date                  `json:"date"`
	Period               period.Period         `json:"period"`
	Reason               string                `json:"reason"`
	EntryLegsData        []EntryLegData        `json:"entryLegsData"`
	VATSpecificationData *VATSpecificationData `json:"vatSpecificationData,omitempty"`
}

// Clone returns a deep copy.
func (r *JournalEntryRecord) Clone() *JournalEntryRecord {
	out := *r
	out.EntryLegsData = append([]EntryLegData(nil), r.EntryLegsData...)
	out.VATSpecificationData = r.VATSpecificationData.Clone()
	return &out
}

// AllocationRecord binds a statement entry to a journal entry.
type AllocationRecord struct {
	ID                string   `json:"id"`
	StatementEntryRef string   `json:"statementEntryRef"`
	JournalEntryRef   string   `json:"journalEntryRef"`
	ParentRef         *string  `json:"parentRef"`
	ChildrenRefs      []string `json:"childrenRefs"`
}

// Clone returns a deep copy.
func (r *AllocationRecord) Clone() *AllocationRecord {
	out := *r
	if r.ParentRef != nil {
		p := *r.ParentRef
		out.ParentRef = &p
	}
	out.ChildrenRefs = append([]string{}, r.ChildrenRefs...)
	return &out
}
