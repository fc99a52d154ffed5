package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/period"
)

func sampleJournal() *Journal {
	j := New(nil)
	j.Add(FromAllocation("b", eur("10"), model.MustDate("2021-02-01"), "2021", "", "WOmzNopOmz", "BLimBanRba"))
	j.Add(FromAllocation("a", eur("-5"), model.MustDate("2021-02-01"), "2021", "", "WBedKanSof", "BLimBanRba"))
	j.Add(FromAllocation("c", eur("7"), model.MustDate("2020-12-31"), "2020", "", "WOmzNopOmz", "BLimBanRba"))
	return j
}

func entryIDs(es []Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID()
	}
	return out
}

func TestEntriesOrdering(t *testing.T) {
	j := sampleJournal()
	assert.Equal(t, []string{"c", "a", "b"}, entryIDs(j.Entries()))
	assert.Equal(t, []string{"a", "b", "c"}, j.IDs())
	assert.Equal(t, []period.Period{"2020", "2021"}, j.Periods())
}

func TestUnknownEntryPanics(t *testing.T) {
	j := sampleJournal()
	_, ok := j.Lookup("zz")
	assert.False(t, ok)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.ErrorIs(t, r.(error), model.ErrUnknownReference)
	}()
	j.Entry("zz")
}

func TestFilterDoesNotShareRecords(t *testing.T) {
	j := sampleJournal()
	f := j.InPeriod("2021")
	require.Equal(t, 2, f.Len())

	f.Entry("a").SetReason("filtered")
	assert.Equal(t, "", j.Entry("a").Reason())
	assert.Equal(t, 3, j.Len())
}

func TestTransformDoesNotMutateSource(t *testing.T) {
	j := sampleJournal()
	out := j.Transform(func(e Entry) { e.SetPeriod("1999") })

	assert.Equal(t, []period.Period{"1999"}, out.Periods())
	assert.Equal(t, []period.Period{"2020", "2021"}, j.Periods())
}

func TestBetween(t *testing.T) {
	j := sampleJournal()
	got := j.Between(model.MustDate("2021-01-01"), model.MustDate("2021-02-01"))
	assert.Equal(t, []string{"a", "b"}, got.IDs())

	spec := &model.VATSpecificationData{
		Date:  model.MustDate("2021-04-01"),
		Lines: []model.VATLineData{{ID: model.VATRateZero, Bruto: "10", VAT: "0", Netto: "10"}},
	}
	j.Entry("b").SetVAT(spec)
	got = j.VATBetween(model.MustDate("2021-04-01"), model.MustDate("2021-06-30"))
	assert.Equal(t, []string{"b"}, got.IDs())
}

func TestDelete(t *testing.T) {
	j := sampleJournal()
	j.Delete("a")
	j.Delete("absent")
	assert.Equal(t, []string{"b", "c"}, j.IDs())
	j.CheckIntegrity()
}
