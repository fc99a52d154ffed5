package summary

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/journal"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
)

const bank = "BLimBanRba"

func registry(t *testing.T) *accounts.Registry {
	t.Helper()
	reg := accounts.NewRegistry(zerolog.Nop())
	reg.Load(accounts.DefaultScheme())
	return reg
}

func sampleJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j := journal.New(nil)
	j.Add(journal.FromAllocation("e1", money.MustParse("218", "EUR"), model.MustDate("2020-01-10"), "2020", "", "WOmzNopOmz", bank))
	j.Add(journal.FromAllocation("e2", money.MustParse("-50", "EUR"), model.MustDate("2020-02-10"), "2020", "", "WBedKanSof", bank))
	e3 := journal.FromAllocation("e3", money.MustParse("121", "EUR"), model.MustDate("2020-03-10"), "2020", "", "WOmzNopOmz", bank)
	e3.SetVAT(&model.VATSpecificationData{
		Date:  model.MustDate("2020-03-10"),
		Lines: []model.VATLineData{{ID: "high", Bruto: "121", VAT: "21", Netto: "100"}},
	})
	j.Add(e3)
	return j
}

func TestBuild(t *testing.T) {
	m := Build(sampleJournal(t), registry(t))
	require.Equal(t, 4, m.Len())

	tests := []struct {
		code          string
		bookings      int
		debit         string
		credit        string
		balance       string
		debitBalance  bool
		creditBalance bool
	}{
		{bank, 3, "-339.00 EUR", "50.00 EUR", "-289.00 EUR", true, false},
		{"WOmzNopOmz", 2, "0.00", "318.00 EUR", "318.00 EUR", false, true},
		{"WBedKanSof", 1, "-50.00 EUR", "0.00", "-50.00 EUR", true, false},
		{accounts.VATPayHighCode, 1, "0.00", "21.00 EUR", "21.00 EUR", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			s, ok := m.Summary(tt.code)
			require.True(t, ok)
			assert.Equal(t, tt.code, s.Account.Code)
			assert.Len(t, s.Bookings, tt.bookings)
			assert.Equal(t, tt.debit, s.DebitAmount.String())
			assert.Equal(t, tt.credit, s.CreditAmount.String())
			assert.Equal(t, tt.balance, s.Balance.String())
			assert.Equal(t, tt.debitBalance, !s.DebitBalance.IsNull())
			assert.Equal(t, tt.creditBalance, !s.CreditBalance.IsNull())
		})
	}
}

func TestAccountsOrder(t *testing.T) {
	m := Build(sampleJournal(t), registry(t))
	var codes []string
	for _, s := range m.Accounts() {
		codes = append(codes, s.Account.Code)
	}
	assert.Equal(t, []string{bank, accounts.VATPayHighCode, "WOmzNopOmz", "WBedKanSof"}, codes)
}

func TestTotalisation(t *testing.T) {
	m := Build(sampleJournal(t), registry(t))

	total := m.Totalisation(nil)
	assert.Equal(t, TotalCode, total.Account.Code)
	assert.True(t, total.Balance.IsZero())
	assert.True(t, total.DebitBalance.IsNull())
	assert.True(t, total.CreditBalance.IsNull())
	assert.Equal(t, "-389.00 EUR", total.DebitAmount.String())
	assert.Equal(t, "389.00 EUR", total.CreditAmount.String())
	assert.Len(t, total.Bookings, 7)

	revenue := m.Totalisation(InCategory(accounts.CategoryRevenue))
	assert.Equal(t, "318.00 EUR", revenue.Balance.String())
	assert.False(t, revenue.CreditBalance.IsNull())
}

func TestBuildEmpty(t *testing.T) {
	m := Build(journal.New(nil), registry(t))
	assert.Empty(t, m.Accounts())
	assert.True(t, m.Totalisation(nil).Balance.IsZero())
}

func TestBuildUnknownAccountPanics(t *testing.T) {
	j := journal.New(nil)
	j.Add(journal.FromAllocation("e1", money.MustParse("1", "EUR"), model.MustDate("2020-01-10"), "2020", "", "Nope", bank))
	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.ErrorIs(t, r.(error), model.ErrUnknownReference)
	}()
	Build(j, registry(t))
}

func TestBuildCurrencyMismatchPanics(t *testing.T) {
	j := journal.New(nil)
	j.Add(journal.FromAllocation("e1", money.MustParse("1", "EUR"), model.MustDate("2020-01-10"), "2020", "", "WBedKanSof", bank))
	j.Add(journal.FromAllocation("e2", money.MustParse("1", "USD"), model.MustDate("2020-01-11"), "2020", "", "WBedKanSof", bank))
	assert.PanicsWithError(t, (&money.MismatchError{Want: "EUR", Got: "USD"}).Error(), func() {
		Build(j, registry(t))
	})
}
