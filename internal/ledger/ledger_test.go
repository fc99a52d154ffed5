package ledger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/allocation"
	"github.com/cleared-dev/kasboek/internal/journal"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
	"github.com/cleared-dev/kasboek/internal/period"
	"github.com/cleared-dev/kasboek/internal/vat"
)

const bank = "BLimBanRba"

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	reg := accounts.NewRegistry(zerolog.Nop())
	reg.Load(accounts.DefaultScheme())
	return New(model.NewAccountingState("test"), reg, "EUR", zerolog.Nop())
}

func entry(id, amount, date, counterparty string) model.StatementEntryRecord {
	return model.StatementEntryRecord{
		ID:               id,
		AmountData:       money.MustParse(amount, "EUR").Data(),
		BookDate:         model.MustDate(date),
		CounterpartyName: counterparty,
	}
}

func statement(entries ...model.StatementEntryRecord) model.BankImportStatementRecord {
	return model.BankImportStatementRecord{
		BankAccount:      model.BankAccountData{ID: "NL01BANK0123456789", Name: "Zakelijk", Currency: "EUR"},
		AccountStatement: model.AccountStatementRecord{ID: "2020-001"},
		StatementEntries: entries,
	}
}

func importSample(t *testing.T, l *Ledger) []allocation.Allocation {
	t.Helper()
	allocs, err := l.Import(statement(
		entry("se1", "218", "2020-06-15", "ACME BV"),
		entry("se2", "-116", "2020-05-01", "Hosting BV"),
	))
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	return allocs
}

func byEntry(t *testing.T, l *Ledger, seID string) allocation.Allocation {
	t.Helper()
	a, ok := l.Allocations().ByStatementEntry(seID)
	require.True(t, ok, "no allocation for %s", seID)
	return a
}

func TestImport(t *testing.T) {
	l := newLedger(t)
	allocs := importSample(t, l)

	assert.Equal(t, "se2", allocs[0].Record().StatementEntryRef, "ordered by book date")
	ba, ok := l.BankAccount("NL01BANK0123456789")
	require.True(t, ok)
	assert.Len(t, ba.StatementEntriesData, 2)
	assert.Contains(t, ba.AccountStatementsData, "2020-001")

	se, ok := l.StatementEntry("se1")
	require.True(t, ok)
	assert.Equal(t, ba.ID, se.BankAccountRef)
	assert.Equal(t, "2020-001", se.AccountStatementRef)
	assert.Equal(t, "2020-06-15", se.ValueDate.String())

	for _, a := range allocs {
		assert.True(t, a.IsUnmapped())
		assert.Equal(t, accounts.UnmappedCode, a.Entry().Opposite().Code)
	}
	assert.Equal(t, 2, l.Journal().Len())
	assert.NoError(t, l.CheckIntegrity())
}

func TestImportTwiceAddsOnlyNewEntries(t *testing.T) {
	l := newLedger(t)
	importSample(t, l)

	allocs, err := l.Import(statement(
		entry("se1", "218", "2020-06-15", "ACME BV"),
		entry("se3", "10", "2020-07-01", ""),
	))
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, "se3", allocs[0].Record().StatementEntryRef)
	assert.Equal(t, 3, l.Allocations().Len())
}

func TestImportValidation(t *testing.T) {
	noCurrency := statement()
	noCurrency.BankAccount.Currency = ""

	badLink := statement()
	badLink.BankAccount.LedgerAccountCode = "Nope"

	usd := entry("se1", "1", "2020-01-01", "")
	usd.AmountData.Currency = "USD"

	noDate := entry("se1", "1", "2020-01-01", "")
	noDate.BookDate = model.Date{}

	tests := []struct {
		name string
		rec  model.BankImportStatementRecord
		want error
	}{
		{"no bank id", model.BankImportStatementRecord{}, ErrInvalidImport},
		{"no currency", noCurrency, ErrInvalidImport},
		{"unknown ledger code", badLink, model.ErrUnknownReference},
		{"missing entry id", statement(entry("", "1", "2020-01-01", "")), ErrInvalidImport},
		{"duplicate entry", statement(entry("a", "1", "2020-01-01", ""), entry("a", "2", "2020-01-02", "")), ErrInvalidImport},
		{"currency mismatch", statement(usd), money.ErrCurrencyMismatch},
		{"no book date", statement(noDate), model.ErrMalformedValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t)
			_, err := l.Import(tt.rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, l.State().LiquidAssetsData)
			assert.Equal(t, 0, l.Journal().Len())
		})
	}
}

func TestLinkBankAccount(t *testing.T) {
	l := newLedger(t)
	importSample(t, l)

	require.NoError(t, l.LinkBankAccount("NL01BANK0123456789", bank))
	for _, a := range l.Allocations().Roots() {
		assert.Equal(t, bank, a.Entry().Opposite().Code)
	}

	// New imports book against the linked account.
	allocs, err := l.Import(statement(entry("se3", "10", "2020-07-01", "")))
	require.NoError(t, err)
	assert.Equal(t, bank, allocs[0].Entry().Opposite().Code)

	err = l.LinkBankAccount("NL01BANK0123456789", "WOmzNopOmz")
	assert.ErrorIs(t, err, ErrNotPostable)
	err = l.LinkBankAccount("missing", bank)
	assert.ErrorIs(t, err, model.ErrUnknownReference)
}

func TestSetLedgerAccounts(t *testing.T) {
	l := newLedger(t)
	allocs := importSample(t, l)
	ids := []string{allocs[0].ID(), allocs[1].ID()}

	require.NoError(t, l.SetLedgerAccounts(ids, "WBedKanSof"))
	for _, a := range allocs {
		assert.Equal(t, "WBedKanSof", a.LedgerAccountCode())
	}

	assert.ErrorIs(t, l.SetLedgerAccount(ids[0], "WBedKan"), ErrNotPostable)
	assert.ErrorIs(t, l.SetLedgerAccount(ids[0], "Nope"), model.ErrUnknownReference)

	err := l.SetLedgerAccounts([]string{ids[0], "missing"}, "WOmzNopOmz")
	assert.ErrorIs(t, err, model.ErrUnknownReference)
	assert.Equal(t, "WBedKanSof", allocs[0].LedgerAccountCode(), "nothing changes when one id is unknown")

	require.NoError(t, l.SetLedgerAccount(ids[0], accounts.UnmappedCode))
	assert.True(t, allocs[0].IsUnmapped())
}

func TestSetPeriodSplitsAndMerges(t *testing.T) {
	l := newLedger(t)
	importSample(t, l)
	a := byEntry(t, l, "se1")
	require.NoError(t, l.SetLedgerAccount(a.ID(), "WOmzNopOmz"))

	require.NoError(t, l.SetPeriod(a.ID(), "2021"))
	assert.Equal(t, allocation.RootSplit, a.State())
	child, ok := a.Child()
	require.True(t, ok)
	assert.NoError(t, l.CheckIntegrity())

	require.NoError(t, l.SetPeriod(child.ID(), "2020"))
	assert.Equal(t, allocation.RootUnsplit, a.State())
	assert.Equal(t, "WOmzNopOmz", a.LedgerAccountCode())

	assert.ErrorIs(t, l.SetPeriod(a.ID(), "21"), period.ErrMalformedPeriod)
	assert.ErrorIs(t, l.SetPeriod("missing", "2021"), model.ErrUnknownReference)
}

func TestSetVAT(t *testing.T) {
	l := newLedger(t)
	importSample(t, l)
	a := byEntry(t, l, "se1")

	err := l.SetVAT(a.ID(), &model.VATSpecificationData{
		Lines: []model.VATLineData{{ID: "high", Bruto: "218", VAT: "37.83", Netto: "180.17"}},
	})
	require.NoError(t, err)
	require.NotNil(t, a.VAT())
	assert.Equal(t, "2020-06-15", a.VAT().Date.String(), "date defaults to the allocation date")
	assert.Len(t, a.Entry().VATLegs(), 1)

	err = l.SetVAT(a.ID(), &model.VATSpecificationData{
		Lines: []model.VATLineData{{ID: "reduced", Bruto: "218"}, {ID: "high", Bruto: "abc"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrMalformedValue)
	assert.Len(t, a.Entry().VATLegs(), 1, "failed command leaves the entry alone")

	require.NoError(t, l.SetVAT(a.ID(), nil))
	assert.Nil(t, a.VAT())
	assert.Empty(t, a.Entry().VATLegs())
}

func TestSetVATOnSplitRootDefaultsToChildDate(t *testing.T) {
	l := newLedger(t)
	importSample(t, l)
	a := byEntry(t, l, "se1")
	require.NoError(t, l.SetPeriod(a.ID(), "2021"))
	child, ok := a.Child()
	require.True(t, ok)
	require.NotEqual(t, a.Date(), child.Date())

	require.NoError(t, l.SetVAT(a.ID(), &model.VATSpecificationData{
		Lines: []model.VATLineData{{ID: "high", Bruto: "218", VAT: "37.83", Netto: "180.17"}},
	}))
	require.NotNil(t, child.Entry().VAT())
	assert.Equal(t, child.Date(), child.Entry().VAT().Date)
	assert.Equal(t, child.Date(), a.VATDate())
}

func TestSetReason(t *testing.T) {
	l := newLedger(t)
	importSample(t, l)
	a := byEntry(t, l, "se1")
	require.NoError(t, l.SetPeriod(a.ID(), "2021"))

	require.NoError(t, l.SetReason(a.ID(), "invoice 2020-14"))
	child, _ := a.Child()
	assert.Equal(t, "invoice 2020-14", child.Entry().Reason())
}

func manualEntry(id string) *model.JournalEntryRecord {
	return &model.JournalEntryRecord{
		ID:     id,
		Date:   model.MustDate("2020-12-31"),
		Period: "2020",
		Reason: "depreciation",
		EntryLegsData: []model.EntryLegData{
			{LedgerAccountCode: "WBedKanKan", AmountData: money.MustParse("-100", "EUR").Data()},
			{LedgerAccountCode: bank, AmountData: money.MustParse("100", "EUR").Data()},
		},
	}
}

func TestUpdateAndDeleteJournalEntry(t *testing.T) {
	l := newLedger(t)
	allocs := importSample(t, l)

	rec := manualEntry("memo-1")
	require.NoError(t, l.UpdateJournalEntry(rec))
	rec.Reason = "changed after storing"
	e, ok := l.Journal().Lookup("memo-1")
	require.True(t, ok)
	assert.Equal(t, "depreciation", e.Reason(), "stored as a copy")

	unbalanced := manualEntry("memo-2")
	unbalanced.EntryLegsData[1].AmountData = money.MustParse("99", "EUR").Data()
	assert.ErrorIs(t, l.UpdateJournalEntry(unbalanced), journal.ErrInvalidEntry)
	assert.ErrorIs(t, l.UpdateJournalEntry(nil), journal.ErrInvalidEntry)

	bound := manualEntry(allocs[0].ID())
	assert.ErrorIs(t, l.UpdateJournalEntry(bound), ErrBoundEntry)
	assert.ErrorIs(t, l.DeleteJournalEntry(allocs[0].ID()), ErrBoundEntry)
	assert.ErrorIs(t, l.DeleteJournalEntry("missing"), model.ErrUnknownReference)

	require.NoError(t, l.DeleteJournalEntry("memo-1"))
	_, ok = l.Journal().Lookup("memo-1")
	assert.False(t, ok)
}

func TestApply(t *testing.T) {
	l := newLedger(t)
	allocs := importSample(t, l)
	id0 := allocs[0].ID()

	cmds := []Command{
		{Name: CmdLinkBankAccount, BankAccountID: "NL01BANK0123456789", Code: bank},
		{Name: CmdSetLedgerAccount, AllocationIDs: []string{id0}, Code: "WBedKanSof"},
		{Name: CmdSetReason, AllocationIDs: []string{id0}, Reason: "hosting"},
		{Name: CmdSetPeriod, AllocationIDs: []string{id0}, Period: "2019"},
		{Name: CmdUpdateJournalEntry, JournalEntry: manualEntry("memo-1")},
		{Name: CmdDeleteJournalEntry, EntryID: "memo-1"},
	}
	for _, c := range cmds {
		require.NoError(t, l.Apply(c), c.Name)
	}
	assert.Equal(t, accounts.ExpenseAccrualsCode, allocs[0].LedgerAccountCode())
	assert.Equal(t, "hosting", allocs[0].Entry().Reason())
	assert.NoError(t, l.CheckIntegrity())

	err := l.Apply(Command{Name: "explode"})
	assert.ErrorIs(t, err, ErrUnknownCommand)
	err = l.Apply(Command{Name: CmdSetReason})
	assert.Error(t, err)
}

func TestCommandTarget(t *testing.T) {
	assert.Equal(t, "a", Command{AllocationIDs: []string{"a"}}.Target())
	assert.Equal(t, "a (+2)", Command{AllocationIDs: []string{"a", "b", "c"}}.Target())
	assert.Equal(t, "bank", Command{BankAccountID: "bank"}.Target())
	assert.Equal(t, "memo", Command{JournalEntry: &model.JournalEntryRecord{ID: "memo"}}.Target())
	assert.Equal(t, "e", Command{EntryID: "e"}.Target())
}

func TestPostVATDeclaration(t *testing.T) {
	l := newLedger(t)
	importSample(t, l)
	require.NoError(t, l.LinkBankAccount("NL01BANK0123456789", bank))

	sale := byEntry(t, l, "se1")
	require.NoError(t, l.SetLedgerAccount(sale.ID(), "WOmzNopOmz"))
	require.NoError(t, l.SetVAT(sale.ID(), &model.VATSpecificationData{
		Lines: []model.VATLineData{{ID: "high", Bruto: "218", VAT: "37.83", Netto: "180.17"}},
	}))
	cost := byEntry(t, l, "se2")
	require.NoError(t, l.SetLedgerAccount(cost.ID(), "WBedKanSof"))
	require.NoError(t, l.SetVAT(cost.ID(), &model.VATSpecificationData{
		Lines: []model.VATLineData{{ID: "high", Bruto: "-116", VAT: "-20.13", Netto: "-95.87"}},
	}))

	params := DeclarationParams{Year: 2020, Quarter: 2, Manual: map[vat.Category]decimal.Decimal{vat.PrivateUse: decimal.NewFromInt(5)}}
	d, err := l.NewDeclaration(params)
	require.NoError(t, err)
	assert.Equal(t, "37", d.Declared(vat.High).String())
	assert.Equal(t, "-21", d.Declared(vat.Paid).String())
	assert.Equal(t, "21", d.Total().String())

	e, err := l.PostVATDeclaration(params)
	require.NoError(t, err)
	assert.Equal(t, "vat-2020-q2", e.ID())
	assert.True(t, e.Sum().IsZero())

	_, err = l.PostVATDeclaration(params)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Journal().Len(), "reposting replaces the entry")

	tb := l.TrialBalance("2020")
	total := tb.Totalisation(nil)
	assert.True(t, total.Balance.IsZero())
	payable, ok := tb.Summary(accounts.VATPayableCode)
	require.True(t, ok)
	assert.Equal(t, "21.00 EUR", payable.Balance.String())

	_, err = l.PostVATDeclaration(DeclarationParams{Year: 2020, Quarter: 5})
	assert.ErrorIs(t, err, vat.ErrInvalidQuarter)
	_, err = l.PostVATDeclaration(DeclarationParams{Year: 2019, Quarter: 1})
	assert.ErrorIs(t, err, vat.ErrEmptyDeclaration)
}

func TestCommandsLogAtDebug(t *testing.T) {
	var buf bytes.Buffer
	reg := accounts.NewRegistry(zerolog.Nop())
	reg.Load(accounts.DefaultScheme())
	l := New(model.NewAccountingState("test"), reg, "EUR", zerolog.New(&buf).Level(zerolog.DebugLevel))
	allocs, err := l.Import(statement(entry("se1", "1", "2020-01-01", "")))
	require.NoError(t, err)
	require.NoError(t, l.SetReason(allocs[0].ID(), "x"))

	out := buf.String()
	assert.True(t, strings.Contains(out, `"component":"ledger"`))
	assert.True(t, strings.Contains(out, `"message":"reason set"`))
}

func TestForeignCurrencyIsRejected(t *testing.T) {
	l := newLedger(t)
	importSample(t, l)
	assert.Equal(t, "EUR", l.Currency())

	usd := statement(entry("usd1", "50", "2020-03-01", "Vendor Inc"))
	usd.BankAccount = model.BankAccountData{ID: "US01CHASE", Name: "Dollar", Currency: "USD"}
	usd.StatementEntries[0].AmountData.Currency = "USD"
	_, err := l.Import(usd)
	require.Error(t, err)
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
	_, ok := l.BankAccount("US01CHASE")
	assert.False(t, ok)

	rec := manualEntry("memo-usd")
	for i := range rec.EntryLegsData {
		rec.EntryLegsData[i].AmountData.Currency = "USD"
	}
	assert.ErrorIs(t, l.UpdateJournalEntry(rec), money.ErrCurrencyMismatch)
	_, ok = l.Journal().Lookup("memo-usd")
	assert.False(t, ok)

	assert.NotPanics(t, func() { l.TrialBalance("") })
	assert.Equal(t, 2, l.Journal().Len())
}

func TestPostVATDeclarationUsesBookCurrency(t *testing.T) {
	reg := accounts.NewRegistry(zerolog.Nop())
	reg.Load(accounts.DefaultScheme())
	l := New(model.NewAccountingState("test"), reg, "GBP", zerolog.Nop())

	rec := statement(entry("se1", "121", "2020-02-01", "Customer"))
	rec.BankAccount.Currency = "GBP"
	rec.StatementEntries[0].AmountData.Currency = "GBP"
	allocs, err := l.Import(rec)
	require.NoError(t, err)
	require.NoError(t, l.SetLedgerAccount(allocs[0].ID(), "WOmzNopOmz"))
	require.NoError(t, l.SetVAT(allocs[0].ID(), &model.VATSpecificationData{
		Lines: []model.VATLineData{{ID: model.VATRateHigh, Bruto: "121.00", VAT: "21.00", Netto: "100.00"}},
	}))

	e, err := l.PostVATDeclaration(DeclarationParams{Year: 2020, Quarter: 1})
	require.NoError(t, err)
	for _, leg := range e.Legs() {
		assert.Equal(t, "GBP", leg.Amount.Currency())
	}
}
