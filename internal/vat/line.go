package vat

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kasboek/internal/model"
)

var (
	// ErrAmbiguousInput is returned by BrutoNetto unless exactly one of
	// bruto, vat and netto is known.
	ErrAmbiguousInput = errors.New("exactly one of bruto, vat and netto must be given")
	// ErrZeroRateVAT is returned when netto is derived from a VAT amount at
	// a zero rate.
	ErrZeroRateVAT = errors.New("cannot derive netto from vat at a zero rate")
)

// touchCounter orders user edits across all lines of the process. Only the
// relative order matters.
var touchCounter atomic.Uint64

// Field names a numeric field of a Line.
type Field int

const (
	FieldBruto Field = iota
	FieldVAT
	FieldNetto
)

func (f Field) String() string {
	switch f {
	case FieldVAT:
		return "vat"
	case FieldNetto:
		return "netto"
	}
	return "bruto"
}

// Amounts is a fully derived bruto/vat/netto triple.
type Amounts struct {
	Bruto decimal.Decimal
	VAT   decimal.Decimal
	Netto decimal.Decimal
}

// BrutoNetto derives the missing two of bruto, vat and netto from the one
// Valid figure, at rate. Derived values are rounded to cents; the given
// value is kept as is.
func BrutoNetto(bruto, vat, netto Figure, rate Rate) (Amounts, error) {
	known := 0
	for _, f := range []Figure{bruto, vat, netto} {
		if f.IsValid() {
			known++
		}
	}
	if known != 1 {
		return Amounts{}, fmt.Errorf("%w (got %d)", ErrAmbiguousInput, known)
	}

	r := rate.Fraction()
	one := decimal.NewFromInt(1)
	switch {
	case netto.IsValid():
		n, _ := netto.Value()
		v := n.Mul(r).Round(2)
		return Amounts{Bruto: n.Add(v), VAT: v, Netto: n}, nil
	case bruto.IsValid():
		b, _ := bruto.Value()
		n := b.Div(one.Add(r)).Round(2)
		return Amounts{Bruto: b, VAT: b.Sub(n), Netto: n}, nil
	default:
		v, _ := vat.Value()
		if r.IsZero() {
			return Amounts{}, ErrZeroRateVAT
		}
		n := v.Div(r).Round(2)
		return Amounts{Bruto: n.Add(v), VAT: v, Netto: n}, nil
	}
}

// Line is one row of a VAT specification. A line without a rate is the
// empty placeholder offered for new input.
type Line struct {
	Rate    *Rate
	Bruto   Figure
	VAT     Figure
	Netto   Figure
	Touched uint64
}

// NewLine returns a line at rate with bruto b, vat and netto derived.
func NewLine(rate Rate, b decimal.Decimal) Line {
	l := Line{Rate: &rate}
	l.Set(FieldBruto, Amount(b), false)
	return l
}

// Set changes one field and re-derives the other two when the line has a
// rate and the figure is Valid. Only user-initiated changes advance
// Touched.
func (l *Line) Set(field Field, f Figure, userInitiated bool) {
	l.Bruto, l.VAT, l.Netto = Figure{}, Figure{}, Figure{}
	switch field {
	case FieldBruto:
		l.Bruto = f
	case FieldVAT:
		l.VAT = f
	case FieldNetto:
		l.Netto = f
	}
	if l.Rate != nil && f.IsValid() {
		if a, err := BrutoNetto(l.Bruto, l.VAT, l.Netto, *l.Rate); err == nil {
			l.Bruto, l.VAT, l.Netto = Amount(a.Bruto), Amount(a.VAT), Amount(a.Netto)
		}
	}
	if userInitiated {
		l.Touched = touchCounter.Add(1)
	}
}

// IsPlaceholder reports whether the line has no rate.
func (l Line) IsPlaceholder() bool { return l.Rate == nil }

// Validate returns an error for any Invalid field.
func (l Line) Validate() error {
	return errors.Join(l.Bruto.Err("bruto"), l.VAT.Err("vat"), l.Netto.Err("netto"))
}

// Data returns the wire form.
func (l Line) Data() model.VATLineData {
	d := model.VATLineData{Bruto: l.Bruto.String(), VAT: l.VAT.String(), Netto: l.Netto.String()}
	if l.Rate != nil {
		d.ID = l.Rate.ID
	}
	return d
}

// LineFromData decodes a wire line, resolving its rate id on date. An
// unknown or empty id yields a placeholder.
func LineFromData(d model.VATLineData, date time.Time) Line {
	l := Line{Bruto: ParseFigure(d.Bruto), VAT: ParseFigure(d.VAT), Netto: ParseFigure(d.Netto)}
	if r, ok := RateAt(date, d.ID); ok {
		l.Rate = &r
	}
	return l
}

// LinesFromSpec decodes a stored specification; nil yields no lines.
func LinesFromSpec(spec *model.VATSpecificationData) []Line {
	if spec == nil {
		return nil
	}
	out := make([]Line, len(spec.Lines))
	for i, d := range spec.Lines {
		out[i] = LineFromData(d, spec.Date.Time)
	}
	return out
}

// Spec encodes lines as a specification dated date. Placeholders are
// dropped; no remaining lines yields nil.
func Spec(date model.Date, lines []Line) *model.VATSpecificationData {
	var data []model.VATLineData
	for _, l := range lines {
		if !l.IsPlaceholder() {
			data = append(data, l.Data())
		}
	}
	if len(data) == 0 {
		return nil
	}
	return &model.VATSpecificationData{Date: date, Lines: data}
}

// SumBruto adds the Valid bruto figures.
func SumBruto(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Bruto.OrZero())
	}
	return total
}

var tolerance = decimal.New(1, -3)

func isZero(d decimal.Decimal) bool { return d.Abs().LessThan(tolerance) }

// UpdateVATChoices drops rate-less lines and, when auto is set, makes the
// bruto figures add up to target:
//
//   - with exactly one VAT-bearing line the remainder goes to a zero-rate
//     line (an existing one is reused);
//   - otherwise lines are adjusted least recently touched first, never
//     past zero, and whatever is left becomes a zero-rate line.
//
// Adjustments are not user-initiated. One placeholder is always appended.
func UpdateVATChoices(lines []Line, target decimal.Decimal, auto bool) []Line {
	out := make([]Line, 0, len(lines)+2)
	for _, l := range lines {
		if !l.IsPlaceholder() {
			out = append(out, l)
		}
	}

	if auto {
		diff := target.Sub(SumBruto(out))
		if !isZero(diff) {
			out = balance(out, diff)
		}
	}
	return append(out, Line{})
}

func balance(lines []Line, diff decimal.Decimal) []Line {
	bearing := 0
	zeroLine := -1
	for i, l := range lines {
		if l.Rate.IsVATBearing() {
			bearing++
		} else if l.Rate.ID == model.VATRateZero && zeroLine < 0 {
			zeroLine = i
		}
	}

	if bearing == 1 {
		if zeroLine >= 0 {
			l := &lines[zeroLine]
			l.Set(FieldBruto, Amount(l.Bruto.OrZero().Add(diff)), false)
			return lines
		}
		return append(lines, NewLine(ZeroRate, diff))
	}

	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lines[order[a]].Touched < lines[order[b]].Touched
	})

	for _, i := range order {
		if isZero(diff) {
			break
		}
		l := &lines[i]
		current := l.Bruto.OrZero()
		next := current.Add(diff)
		if current.Sign() != 0 && next.Sign() != 0 && current.Sign() != next.Sign() {
			next = decimal.Zero
		}
		diff = diff.Sub(next.Sub(current))
		l.Set(FieldBruto, Amount(next), false)
	}

	if !isZero(diff) {
		lines = append(lines, NewLine(ZeroRate, diff))
	}
	return lines
}
