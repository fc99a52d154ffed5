package journal

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
	"github.com/cleared-dev/kasboek/internal/period"
)

// ErrIntegrityViolation is the sentinel behind IntegrityError.
var ErrIntegrityViolation = errors.New("journal entry does not balance")

// IntegrityError is the panic value of CheckIntegrity.
type IntegrityError struct {
	EntryID string
	Sum     money.Money
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("journal entry %s does not balance: legs sum to %s", e.EntryID, e.Sum)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrityViolation }

// Leg indexes within an entry.
const (
	OppositeLeg  = 0
	AllocatedLeg = 1
	firstVATLeg  = 2
)

// VATLegTag prefixes the tag of legs created from a VAT specification.
const VATLegTag = "vat:"

// Leg is a decoded entry leg.
type Leg struct {
	Code   string
	Amount money.Money
	Tag    string
}

func legFromData(d model.EntryLegData) Leg {
	return Leg{Code: d.LedgerAccountCode, Amount: money.FromData(d.AmountData), Tag: d.Tag}
}

func (l Leg) data() model.EntryLegData {
	return model.EntryLegData{LedgerAccountCode: l.Code, AmountData: l.Amount.Data(), Tag: l.Tag}
}

// Entry is a view over a journal entry record. Mutations write through to
// the record.
type Entry struct {
	rec *model.JournalEntryRecord
}

// NewEntry wraps rec.
func NewEntry(rec *model.JournalEntryRecord) Entry {
	return Entry{rec: rec}
}

// FromAllocation builds the canonical two-leg entry: -amount on opposite,
// +amount on account.
func FromAllocation(entryID string, amount money.Money, date model.Date, p period.Period, reason, account, opposite string) Entry {
	e := NewEntry(&model.JournalEntryRecord{
		ID:     entryID,
		Date:   date,
		Period: p,
		Reason: reason,
		EntryLegsData: []model.EntryLegData{
			Leg{Code: opposite, Amount: amount.Reversed()}.data(),
			Leg{Code: account, Amount: amount}.data(),
		},
	})
	e.CheckIntegrity()
	return e
}

// Record returns the underlying record.
func (e Entry) Record() *model.JournalEntryRecord { return e.rec }

func (e Entry) ID() string            { return e.rec.ID }
func (e Entry) Date() model.Date      { return e.rec.Date }
func (e Entry) Period() period.Period { return e.rec.Period }
func (e Entry) Reason() string        { return e.rec.Reason }

// Legs decodes every leg.
func (e Entry) Legs() []Leg {
	out := make([]Leg, len(e.rec.EntryLegsData))
	for i, d := range e.rec.EntryLegsData {
		out[i] = legFromData(d)
	}
	return out
}

// Opposite returns the counter-account leg.
func (e Entry) Opposite() Leg { return legFromData(e.rec.EntryLegsData[OppositeLeg]) }

// Allocated returns the business-account leg.
func (e Entry) Allocated() Leg { return legFromData(e.rec.EntryLegsData[AllocatedLeg]) }

// VATLegs returns the legs after the allocated leg.
func (e Entry) VATLegs() []Leg {
	if len(e.rec.EntryLegsData) <= firstVATLeg {
		return nil
	}
	return e.Legs()[firstVATLeg:]
}

// Amount is the gross amount booked on the business side: the negated
// opposite leg.
func (e Entry) Amount() money.Money { return e.Opposite().Amount.Reversed() }

// Currency is the currency of the opposite leg.
func (e Entry) Currency() string { return e.Opposite().Amount.Currency() }

// Sum adds all legs.
func (e Entry) Sum() money.Money {
	legs := e.Legs()
	amounts := make([]money.Money, len(legs))
	for i, l := range legs {
		amounts[i] = l.Amount
	}
	return money.Sum(amounts...)
}

// Validate reports an *IntegrityError if the legs do not sum to zero.
func (e Entry) Validate() error {
	if len(e.rec.EntryLegsData) < 2 {
		return &IntegrityError{EntryID: e.rec.ID, Sum: money.Null()}
	}
	if sum := e.Sum(); !sum.IsZero() {
		return &IntegrityError{EntryID: e.rec.ID, Sum: sum}
	}
	return nil
}

// CheckIntegrity panics with *IntegrityError if the legs do not sum to zero.
func (e Entry) CheckIntegrity() {
	if err := e.Validate(); err != nil {
		panic(err)
	}
}

func (e Entry) SetReason(reason string) { e.rec.Reason = reason }

func (e Entry) SetPeriod(p period.Period) { e.rec.Period = p }

func (e Entry) SetDate(d model.Date) { e.rec.Date = d }

// SetAllocatedAccount rebooks the business-account leg.
func (e Entry) SetAllocatedAccount(code string) {
	e.rec.EntryLegsData[AllocatedLeg].LedgerAccountCode = code
}

// SetOppositeAccount rebooks the counter-account leg.
func (e Entry) SetOppositeAccount(code string) {
	e.rec.EntryLegsData[OppositeLeg].LedgerAccountCode = code
}

// VAT returns the stored VAT specification, or nil.
func (e Entry) VAT() *model.VATSpecificationData { return e.rec.VATSpecificationData }

// VATDate is the date the entry counts for in a VAT return: the
// specification's date when set, else the entry date.
func (e Entry) VATDate() model.Date {
	if spec := e.rec.VATSpecificationData; spec != nil && !spec.Date.IsZero() {
		return spec.Date
	}
	return e.rec.Date
}

// SetVAT replaces the VAT legs. A specification with lines adds one leg
// per non-zero VAT line and reduces the allocated leg to netto; nil or an
// empty specification restores allocated = -opposite.
func (e Entry) SetVAT(spec *model.VATSpecificationData) {
	e.rec.EntryLegsData = e.rec.EntryLegsData[:firstVATLeg]
	opposite := e.Opposite()
	currency := opposite.Amount.Currency()

	if spec == nil || len(spec.Lines) == 0 {
		e.rec.VATSpecificationData = nil
		e.setAllocatedAmount(opposite.Amount.Reversed())
		e.CheckIntegrity()
		return
	}

	total := opposite.Amount
	for _, line := range spec.Lines {
		vat, err := decimal.NewFromString(line.VAT)
		if err != nil || vat.IsZero() {
			continue
		}
		amount := money.New(vat, currency)
		leg := Leg{Code: vatAccount(line.ID, amount), Amount: amount, Tag: VATLegTag + line.ID}
		e.rec.EntryLegsData = append(e.rec.EntryLegsData, leg.data())
		total = total.Add(amount)
	}
	e.setAllocatedAmount(total.Reversed())
	e.rec.VATSpecificationData = spec.Clone()
	e.CheckIntegrity()
}

func (e Entry) setAllocatedAmount(m money.Money) {
	e.rec.EntryLegsData[AllocatedLeg].AmountData = m.Data()
}

// vatAccount picks the pay account for credit VAT (by rate) and the claim
// account for debit VAT.
func vatAccount(rateID string, vat money.Money) string {
	if vat.IsDebit() {
		return accounts.VATClaimCode
	}
	if rateID == model.VATRateLow {
		return accounts.VATPayLowCode
	}
	return accounts.VATPayHighCode
}
