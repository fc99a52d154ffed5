package vat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/journal"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
	"github.com/cleared-dev/kasboek/internal/period"
)

var (
	// ErrInvalidQuarter is returned for a quarter outside 1..4.
	ErrInvalidQuarter = errors.New("quarter must be 1, 2, 3 or 4")
	// ErrEmptyDeclaration is returned when a declaration has nothing to post.
	ErrEmptyDeclaration = errors.New("declaration has no amounts to post")
)

// Category is a box of the VAT return.
type Category int

const (
	High Category = iota
	Low
	PrivateUse
	Paid
)

// Categories lists every category in return order.
var Categories = []Category{High, Low, PrivateUse, Paid}

func (c Category) String() string {
	switch c {
	case High:
		return "high"
	case Low:
		return "low"
	case PrivateUse:
		return "private use"
	case Paid:
		return "paid"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory accepts the String form of a category; "private-use" and
// "privateuse" are accepted for PrivateUse.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return High, nil
	case "low":
		return Low, nil
	case "private use", "private-use", "privateuse":
		return PrivateUse, nil
	case "paid":
		return Paid, nil
	}
	return 0, &model.MalformedValueError{Field: "category", Value: s}
}

// Bucket accumulates VAT lines.
type Bucket struct {
	Bruto decimal.Decimal
	VAT   decimal.Decimal
	Netto decimal.Decimal
}

func (b Bucket) add(l model.VATLineData) Bucket {
	return Bucket{
		Bruto: b.Bruto.Add(ParseFigure(l.Bruto).OrZero()),
		VAT:   b.VAT.Add(ParseFigure(l.VAT).OrZero()),
		Netto: b.Netto.Add(ParseFigure(l.Netto).OrZero()),
	}
}

// Quarter is a calendar quarter.
type Quarter struct {
	Year    int
	Quarter int
}

// NewQuarter validates q.
func NewQuarter(year, q int) (Quarter, error) {
	if q < 1 || q > 4 {
		return Quarter{}, fmt.Errorf("%w: %d", ErrInvalidQuarter, q)
	}
	return Quarter{Year: year, Quarter: q}, nil
}

// QuarterOf returns the quarter containing t.
func QuarterOf(t time.Time) Quarter {
	return Quarter{Year: t.Year(), Quarter: (int(t.Month())-1)/3 + 1}
}

// Start is the first day of the quarter.
func (q Quarter) Start() model.Date {
	return model.NewDate(q.Year, time.Month((q.Quarter-1)*3+1), 1)
}

// End is the last day of the quarter.
func (q Quarter) End() model.Date {
	return model.DateOf(q.Start().AddDate(0, 3, -1))
}

// Period is the bookkeeping period the quarter belongs to.
func (q Quarter) Period() period.Period { return period.FromYear(q.Year) }

func (q Quarter) String() string { return fmt.Sprintf("%d-Q%d", q.Year, q.Quarter) }

// Declaration is the VAT return of one quarter. Buckets are derived from
// the journal on every call; only the manual entries are state.
type Declaration struct {
	journal *journal.Journal
	quarter Quarter
	manual  map[Category]decimal.Decimal
}

// NewDeclaration returns the declaration of quarter q over j.
func NewDeclaration(j *journal.Journal, q Quarter) *Declaration {
	return &Declaration{journal: j, quarter: q, manual: make(map[Category]decimal.Decimal)}
}

// Quarter returns the declared quarter.
func (d *Declaration) Quarter() Quarter { return d.quarter }

// SetManual records a VAT amount for c that is not tied to any journal
// entry. Paid amounts are negative, like the Paid bucket.
func (d *Declaration) SetManual(c Category, vat decimal.Decimal) {
	d.manual[c] = vat
}

// Manual returns the manual VAT amount of c.
func (d *Declaration) Manual(c Category) decimal.Decimal {
	return d.manual[c]
}

// Buckets sums the VAT lines of the entries whose VAT date lies in the
// quarter. Revenue-side entries (credit allocated leg) fill High and Low by
// rate; expense-side entries fill Paid.
func (d *Declaration) Buckets() map[Category]Bucket {
	out := make(map[Category]Bucket)
	entries := d.journal.VATBetween(d.quarter.Start(), d.quarter.End())
	for _, e := range entries.Entries() {
		spec := e.VAT()
		if spec == nil {
			continue
		}
		revenue := e.Allocated().Amount.IsCredit()
		for _, l := range spec.Lines {
			if l.ID != model.VATRateHigh && l.ID != model.VATRateLow {
				continue
			}
			c := Paid
			if revenue {
				c = High
				if l.ID == model.VATRateLow {
					c = Low
				}
			}
			out[c] = out[c].add(l)
		}
	}
	return out
}

// Raw returns the unrounded VAT of c, manual amount included.
func (d *Declaration) Raw(c Category) decimal.Decimal {
	return d.Buckets()[c].VAT.Add(d.manual[c])
}

// Declared returns the VAT of c as filed: Raw floored to whole euros.
func (d *Declaration) Declared(c Category) decimal.Decimal {
	return d.Raw(c).Floor()
}

// RawTotal is the sum of the raw categories.
func (d *Declaration) RawTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range Categories {
		total = total.Add(d.Raw(c))
	}
	return total
}

// Total is the VAT payable as filed: the sum of the declared categories. A
// negative total is a refund.
func (d *Declaration) Total() decimal.Decimal {
	total := decimal.Zero
	for _, c := range Categories {
		total = total.Add(d.Declared(c))
	}
	return total
}

// Row is one category of a rendered return.
type Row struct {
	Category Category
	Bucket   Bucket
	Manual   decimal.Decimal
	Raw      decimal.Decimal
	Declared decimal.Decimal
}

// Rows renders every category in return order.
func (d *Declaration) Rows() []Row {
	buckets := d.Buckets()
	rows := make([]Row, 0, len(Categories))
	for _, c := range Categories {
		raw := buckets[c].VAT.Add(d.manual[c])
		rows = append(rows, Row{
			Category: c,
			Bucket:   buckets[c],
			Manual:   d.manual[c],
			Raw:      raw,
			Declared: raw.Floor(),
		})
	}
	return rows
}

var categoryAccounts = map[Category]string{
	High:       accounts.VATPayHighCode,
	Low:        accounts.VATPayLowCode,
	PrivateUse: accounts.VATPrivateUseCode,
	Paid:       accounts.VATClaimCode,
}

// EntryID is the journal id a quarter's declaration is posted under, so
// posting twice replaces the earlier entry.
func EntryID(q Quarter) string {
	return fmt.Sprintf("vat-%d-q%d", q.Year, q.Quarter)
}

// EntryFromDeclaration builds the journal entry that clears the quarter's
// VAT accounts: every non-zero raw category is reversed on its account, the
// rounding difference goes to the payment differences account, and the
// declared total to VAT payable (or receivable when negative).
func EntryFromDeclaration(entryID string, d *Declaration, currency string) (journal.Entry, error) {
	var legs []model.EntryLegData
	add := func(code string, value decimal.Decimal, tag string) {
		m := money.New(value, currency)
		if m.IsZero() {
			return
		}
		legs = append(legs, model.EntryLegData{LedgerAccountCode: code, AmountData: m.Data(), Tag: tag})
	}

	rows := d.Rows()
	rawTotal := decimal.Zero
	declaredTotal := decimal.Zero
	for _, r := range rows {
		add(categoryAccounts[r.Category], r.Raw.Neg(), journal.VATLegTag+r.Category.String())
		rawTotal = rawTotal.Add(r.Raw)
		declaredTotal = declaredTotal.Add(r.Declared)
	}
	if len(legs) == 0 {
		return journal.Entry{}, ErrEmptyDeclaration
	}
	add(accounts.VATDifferencesCode, rawTotal.Sub(declaredTotal), "rounding")
	if declaredTotal.IsNegative() {
		add(accounts.VATReceivableCode, declaredTotal, "total")
	} else {
		add(accounts.VATPayableCode, declaredTotal, "total")
	}
	if len(legs) < 2 {
		return journal.Entry{}, ErrEmptyDeclaration
	}

	q := d.Quarter()
	e := journal.NewEntry(&model.JournalEntryRecord{
		ID:            entryID,
		Date:          q.End(),
		Period:        q.Period(),
		Reason:        "VAT return " + q.String(),
		EntryLegsData: legs,
	})
	if err := e.Validate(); err != nil {
		return journal.Entry{}, fmt.Errorf("building declaration entry: %w", err)
	}
	return e, nil
}
