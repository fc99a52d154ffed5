package vat

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/kasboek/internal/model"
)

var (
	high = Rate{ID: model.VATRateHigh, Percentage: decimal.NewFromInt(21)}
	low  = Rate{ID: model.VATRateLow, Percentage: decimal.NewFromInt(9)}
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFigure(t *testing.T) {
	assert.Equal(t, Unset, ParseFigure("").State())
	inv := ParseFigure("12,5x")
	assert.Equal(t, Invalid, inv.State())
	assert.Equal(t, "12,5x", inv.String())
	assert.ErrorIs(t, inv.Err("bruto"), model.ErrMalformedValue)
	v := ParseFigure("-3.5")
	assert.True(t, v.IsValid())
	assert.Equal(t, "-3.50", v.String())
	assert.NoError(t, v.Err("bruto"))
}

func TestBrutoNetto(t *testing.T) {
	tests := []struct {
		name                   string
		bruto, vat, netto      string
		pct                    string
		wantB, wantV, wantN    string
	}{
		{"from netto", "", "", "100", "21", "121", "21", "100"},
		{"from bruto", "121", "", "", "21", "121", "21", "100"},
		{"from vat", "", "21", "", "21", "121", "21", "100"},
		{"bruto rounds", "126", "", "", "21", "126", "21.87", "104.13"},
		{"negative bruto", "-116", "", "", "21", "-116", "-20.13", "-95.87"},
		{"low rate", "", "", "200", "9", "218", "18", "200"},
		{"zero rate bruto", "50", "", "", "0", "50", "0", "50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BrutoNetto(ParseFigure(tt.bruto), ParseFigure(tt.vat), ParseFigure(tt.netto), Rate{Percentage: d(tt.pct)})
			require.NoError(t, err)
			assert.True(t, got.Bruto.Equal(d(tt.wantB)), "bruto %s", got.Bruto)
			assert.True(t, got.VAT.Equal(d(tt.wantV)), "vat %s", got.VAT)
			assert.True(t, got.Netto.Equal(d(tt.wantN)), "netto %s", got.Netto)
		})
	}
}

func TestBrutoNettoPreconditions(t *testing.T) {
	_, err := BrutoNetto(ParseFigure(""), ParseFigure(""), ParseFigure(""), Rate{Percentage: d("21")})
	assert.ErrorIs(t, err, ErrAmbiguousInput)

	_, err = BrutoNetto(ParseFigure("1"), ParseFigure("2"), ParseFigure(""), Rate{Percentage: d("21")})
	assert.ErrorIs(t, err, ErrAmbiguousInput)

	_, err = BrutoNetto(ParseFigure("abc"), ParseFigure(""), ParseFigure(""), Rate{Percentage: d("21")})
	assert.ErrorIs(t, err, ErrAmbiguousInput)

	_, err = BrutoNetto(ParseFigure(""), ParseFigure("5"), ParseFigure(""), Rate{Percentage: d("0")})
	assert.ErrorIs(t, err, ErrZeroRateVAT)
}

func TestBrutoNettoTriangle(t *testing.T) {
	cent := d("0.01")
	for _, pct := range []string{"6", "9", "19", "21"} {
		r := d(pct).Div(decimal.NewFromInt(100))
		for _, v := range []string{"0.01", "1", "9.99", "121", "1234.56", "-87.3"} {
			for field := FieldBruto; field <= FieldNetto; field++ {
				figs := [3]Figure{}
				figs[field] = ParseFigure(v)
				got, err := BrutoNetto(figs[0], figs[1], figs[2], Rate{Percentage: d(pct)})
				require.NoError(t, err)

				assert.True(t, got.Bruto.Equal(got.Netto.Add(got.VAT)), "pct %s %s=%s", pct, field, v)
				assert.True(t, got.Netto.Mul(r).Sub(got.VAT).Abs().LessThanOrEqual(cent),
					"pct %s %s=%s: vat %s netto %s", pct, field, v, got.VAT, got.Netto)
			}
		}
	}
}

func TestSetTouched(t *testing.T) {
	a := Line{Rate: &high}
	b := Line{Rate: &low}

	a.Set(FieldBruto, ParseFigure("121"), true)
	b.Set(FieldNetto, ParseFigure("100"), true)
	assert.Less(t, a.Touched, b.Touched)
	assert.Equal(t, "21.00", a.VAT.String())
	assert.Equal(t, "109.00", b.Bruto.String())

	before := a.Touched
	a.Set(FieldBruto, ParseFigure("242"), false)
	assert.Equal(t, before, a.Touched)
	assert.Equal(t, "200.00", a.Netto.String())
}

func TestSetInvalidKeepsRaw(t *testing.T) {
	l := Line{Rate: &high}
	l.Set(FieldBruto, ParseFigure("12a"), true)
	assert.Equal(t, Invalid, l.Bruto.State())
	assert.Equal(t, Unset, l.VAT.State())
	assert.Error(t, l.Validate())
}

func TestSpecRoundTrip(t *testing.T) {
	date := model.MustDate("2021-05-01")
	lines := []Line{NewLine(high, d("121")), NewLine(low, d("109")), {}}
	spec := Spec(date, lines)
	require.NotNil(t, spec)
	require.Len(t, spec.Lines, 2)
	assert.Equal(t, model.VATLineData{ID: "high", Bruto: "121.00", VAT: "21.00", Netto: "100.00"}, spec.Lines[0])

	back := LinesFromSpec(spec)
	require.Len(t, back, 2)
	assert.Equal(t, "low", back[1].Rate.ID)
	assert.Equal(t, "9", back[1].Rate.Percentage.String())

	assert.Nil(t, Spec(date, []Line{{}}))
}

func brutos(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Bruto.String()
	}
	return out
}

func TestUpdateVATChoices(t *testing.T) {
	t.Run("drops rate-less lines and appends placeholder", func(t *testing.T) {
		got := UpdateVATChoices([]Line{{}, NewLine(high, d("121")), {}}, d("121"), true)
		require.Len(t, got, 2)
		assert.Equal(t, "121.00", got[0].Bruto.String())
		assert.True(t, got[1].IsPlaceholder())
	})

	t.Run("no auto leaves the gap", func(t *testing.T) {
		got := UpdateVATChoices([]Line{NewLine(high, d("100"))}, d("121"), false)
		assert.Equal(t, []string{"100.00", ""}, brutos(got))
	})

	t.Run("empty set gets a zero line", func(t *testing.T) {
		got := UpdateVATChoices(nil, d("-50"), true)
		require.Len(t, got, 2)
		assert.Equal(t, model.VATRateZero, got[0].Rate.ID)
		assert.Equal(t, "-50.00", got[0].Bruto.String())
	})

	t.Run("single bearing line gets zero compensation", func(t *testing.T) {
		got := UpdateVATChoices([]Line{NewLine(high, d("100"))}, d("130"), true)
		assert.Equal(t, []string{"100.00", "30.00", ""}, brutos(got))
		assert.Equal(t, model.VATRateZero, got[1].Rate.ID)
		assert.Equal(t, "0.00", got[1].VAT.String())

		again := UpdateVATChoices(got, d("140"), true)
		assert.Equal(t, []string{"100.00", "40.00", ""}, brutos(again))
	})

	t.Run("least recently touched adjusted first", func(t *testing.T) {
		a := Line{Rate: &high}
		a.Set(FieldBruto, ParseFigure("100"), true)
		b := Line{Rate: &low}
		b.Set(FieldBruto, ParseFigure("100"), true)
		touchedA, touchedB := a.Touched, b.Touched

		got := UpdateVATChoices([]Line{b, a}, d("150"), true)
		assert.Equal(t, []string{"100.00", "50.00", ""}, brutos(got))
		assert.Equal(t, touchedB, got[0].Touched)
		assert.Equal(t, touchedA, got[1].Touched)
	})

	t.Run("never flips sign", func(t *testing.T) {
		a := Line{Rate: &high}
		a.Set(FieldBruto, ParseFigure("100"), true)
		b := Line{Rate: &low}
		b.Set(FieldBruto, ParseFigure("50"), true)

		got := UpdateVATChoices([]Line{a, b}, d("-30"), true)
		assert.Equal(t, []string{"0.00", "0.00", "-30.00", ""}, brutos(got))
	})
}

func TestUpdateVATChoicesConservation(t *testing.T) {
	mk := func(r Rate, v string) Line {
		l := Line{Rate: &r}
		l.Set(FieldBruto, ParseFigure(v), true)
		return l
	}
	sets := [][]Line{
		nil,
		{mk(high, "10")},
		{mk(high, "10"), mk(low, "20")},
		{mk(high, "-10"), mk(low, "20"), mk(ZeroRate, "5")},
		{mk(high, "abc"), mk(low, "3.33")},
	}
	targets := []string{"0", "1", "-1", "33.33", "-1000", "12345.67"}
	for i, lines := range sets {
		for _, target := range targets {
			in := append([]Line(nil), lines...)
			got := UpdateVATChoices(in, d(target), true)
			assert.True(t, SumBruto(got).Sub(d(target)).Abs().LessThan(d("0.001")),
				"set %d target %s: got %s", i, target, SumBruto(got))
			assert.True(t, got[len(got)-1].IsPlaceholder())
		}
	}
}
