package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/ledger"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
	"github.com/cleared-dev/kasboek/internal/vat"
)

const bankID = "NL01BANK0123456789"

func entry(id, amount, date, counterparty string) model.StatementEntryRecord {
	return model.StatementEntryRecord{
		ID:               id,
		AmountData:       money.MustParse(amount, "EUR").Data(),
		BookDate:         model.MustDate(date),
		CounterpartyName: counterparty,
	}
}

// sampleLedger books a sale and a cost in Q2 2020 plus an unmapped cost
// from the same counterparty.
func sampleLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	reg := accounts.NewRegistry(zerolog.Nop())
	reg.Load(accounts.DefaultScheme())
	l := ledger.New(model.NewAccountingState("test"), reg, "EUR", zerolog.Nop())

	_, err := l.Import(model.BankImportStatementRecord{
		BankAccount:      model.BankAccountData{ID: bankID, Currency: "EUR"},
		AccountStatement: model.AccountStatementRecord{ID: "2020-001"},
		StatementEntries: []model.StatementEntryRecord{
			entry("se1", "218", "2020-06-15", "ACME BV"),
			entry("se2", "-116", "2020-05-01", "Hosting BV"),
			entry("se3", "-10", "2020-05-20", "hosting bv"),
			entry("se4", "-12", "2020-05-21", "Hosting BV"),
		},
	})
	require.NoError(t, err)
	require.NoError(t, l.LinkBankAccount(bankID, "BLimBanRba"))

	sale := mustAlloc(t, l, "se1")
	require.NoError(t, l.SetLedgerAccount(sale, "WOmzNopOmz"))
	require.NoError(t, l.SetVAT(sale, &model.VATSpecificationData{
		Lines: []model.VATLineData{{ID: "high", Bruto: "218", VAT: "37.83", Netto: "180.17"}},
	}))
	cost := mustAlloc(t, l, "se2")
	require.NoError(t, l.SetLedgerAccount(cost, "WBedKanSof"))
	require.NoError(t, l.SetVAT(cost, &model.VATSpecificationData{
		Lines: []model.VATLineData{{ID: "high", Bruto: "-116", VAT: "-20.13", Netto: "-95.87"}},
	}))
	return l
}

func mustAlloc(t *testing.T, l *ledger.Ledger, seID string) string {
	t.Helper()
	a, ok := l.Allocations().ByStatementEntry(seID)
	require.True(t, ok)
	return a.ID()
}

func startWorker(t *testing.T) *Worker {
	t.Helper()
	w := Start(context.Background(), zerolog.Nop())
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestTrialBalance(t *testing.T) {
	w := startWorker(t)
	l := sampleLedger(t)

	res, err := w.TrialBalance(context.Background(), NewSnapshot(l), "2020")
	require.NoError(t, err)

	byCode := map[string]BalanceRow{}
	for _, r := range res.Rows {
		byCode[r.Code] = r
	}
	assert.Equal(t, "180.17 EUR", byCode["WOmzNopOmz"].Balance)
	assert.Equal(t, "revenue", byCode["WOmzNopOmz"].Category)
	assert.Equal(t, "-95.87 EUR", byCode["WBedKanSof"].Balance)
	assert.Equal(t, "-80.00 EUR", byCode["BLimBanRba"].Balance)
	assert.Equal(t, 4, byCode["BLimBanRba"].Bookings)
	assert.Equal(t, "BLimBanRba", res.Rows[0].Code, "balance sheet first")
	assert.Equal(t, 10, res.Total.Bookings, "VAT adds a leg to the sale and the cost")

	subtotals := map[string]BalanceRow{}
	for _, r := range res.Subtotals {
		subtotals[r.Category] = r
	}
	assert.Equal(t, "balance sheet", res.Subtotals[0].Category)
	assert.Equal(t, "180.17 EUR", subtotals["revenue"].Balance)
	assert.Equal(t, 1, subtotals["revenue"].Bookings)
	assert.Equal(t, "-95.87 EUR", subtotals["expense"].Balance)
	assert.Equal(t, "Subtotal expense", subtotals["expense"].Description)

	res, err = w.TrialBalance(context.Background(), NewSnapshot(l), "2019")
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Empty(t, res.Subtotals)
}

func TestSnapshotIsNotShared(t *testing.T) {
	w := startWorker(t)
	l := sampleLedger(t)
	snap := NewSnapshot(l)

	require.NoError(t, l.SetLedgerAccount(mustAlloc(t, l, "se3"), "WBedKanSof"))

	res, err := w.TrialBalance(context.Background(), snap, "")
	require.NoError(t, err)
	for _, r := range res.Rows {
		if r.Code == "WBedKanSof" {
			assert.Equal(t, "-95.87 EUR", r.Balance)
		}
	}
}

func TestSimilarAllocations(t *testing.T) {
	w := startWorker(t)
	l := sampleLedger(t)

	ids, err := w.SimilarAllocations(context.Background(), NewSnapshot(l), mustAlloc(t, l, "se3"))
	require.NoError(t, err)
	assert.Equal(t, []string{mustAlloc(t, l, "se4")}, ids)
}

func TestVATDeclaration(t *testing.T) {
	w := startWorker(t)
	l := sampleLedger(t)

	manual := map[vat.Category]decimal.Decimal{vat.PrivateUse: decimal.NewFromInt(5)}
	res, err := w.VATDeclaration(context.Background(), NewSnapshot(l), 2020, 2, manual)
	require.NoError(t, err)

	assert.Equal(t, "2020-Q2", res.Quarter)
	require.Len(t, res.Rows, 4)
	assert.Equal(t, "high", res.Rows[0].Category)
	assert.Equal(t, "37.83", res.Rows[0].VAT)
	assert.Equal(t, "37", res.Rows[0].Declared)
	assert.Equal(t, "5.00", res.Rows[2].Manual)
	assert.Equal(t, "-21", res.Rows[3].Declared)
	assert.Equal(t, "22.70", res.RawTotal)
	assert.Equal(t, "21", res.Total)

	_, err = w.VATDeclaration(context.Background(), NewSnapshot(l), 2020, 5, nil)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeInvalidParams, rpcErr.Code)
}

func TestVATDeclarationRejectsUnknownCategory(t *testing.T) {
	w := startWorker(t)
	l := sampleLedger(t)

	err := w.Call(context.Background(), MethodVATDeclaration, DeclarationParams{
		Snapshot: NewSnapshot(l),
		Year:     2020,
		Quarter:  2,
		Manual:   map[string]string{"export": "1"},
	}, nil)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeInvalidParams, rpcErr.Code)
}

func TestSortAllocations(t *testing.T) {
	w := startWorker(t)
	l := sampleLedger(t)
	snap := NewSnapshot(l)

	ids, err := w.SortAllocations(context.Background(), snap, "amount", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		mustAlloc(t, l, "se2"), mustAlloc(t, l, "se4"), mustAlloc(t, l, "se3"), mustAlloc(t, l, "se1"),
	}, ids)

	ids, err = w.SortAllocations(context.Background(), snap, "", "2020", accounts.UnmappedCode)
	require.NoError(t, err)
	assert.Equal(t, []string{mustAlloc(t, l, "se3"), mustAlloc(t, l, "se4")}, ids)

	_, err = w.SortAllocations(context.Background(), snap, "colour", "", "")
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeInvalidParams, rpcErr.Code)
}

func TestErrors(t *testing.T) {
	w := startWorker(t)
	snap := NewSnapshot(sampleLedger(t))

	tests := []struct {
		name   string
		method string
		params any
		code   int
	}{
		{"unknown method", "balanceSheet", snap, CodeMethodNotFound},
		{"undecodable params", MethodTrialBalance, "2020", CodeInvalidParams},
		{"missing params", MethodTrialBalance, nil, CodeInvalidParams},
		{"missing state", MethodTrialBalance, TrialBalanceParams{}, CodeInvalidParams},
		{"missing currency", MethodTrialBalance, TrialBalanceParams{Snapshot: Snapshot{State: snap.State, Scheme: snap.Scheme}}, CodeInvalidParams},
		{"bad period", MethodTrialBalance, TrialBalanceParams{Snapshot: snap, Period: "20"}, CodeInvalidParams},
		{"unknown allocation", MethodSimilarAllocations, SimilarParams{Snapshot: snap, AllocationID: "nope"}, CodeEngine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.Call(context.Background(), tt.method, tt.params, nil)
			var rpcErr *RPCError
			require.ErrorAs(t, err, &rpcErr)
			assert.Equal(t, tt.code, rpcErr.Code)
		})
	}

	// The worker keeps serving after a failed request.
	_, err := w.TrialBalance(context.Background(), snap, "")
	assert.NoError(t, err)
}

func TestParseError(t *testing.T) {
	s := newServer(zerolog.Nop())
	resp := s.handle([]byte("{not json"))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
}

func TestPanicError(t *testing.T) {
	assert.Equal(t, CodeEngine, panicError(&model.UnknownReferenceError{Kind: "allocation", ID: "x"}).Code)
	assert.Equal(t, CodeEngine, panicError(&money.MismatchError{Want: "EUR", Got: "USD"}).Code)
	assert.Equal(t, CodeInternal, panicError(errors.New("boom")).Code)
	assert.Equal(t, CodeInternal, panicError("boom").Code)
}

func TestConcurrentCalls(t *testing.T) {
	w := startWorker(t)
	snap := NewSnapshot(sampleLedger(t))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.TrialBalance(context.Background(), snap, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestClose(t *testing.T) {
	w := Start(context.Background(), zerolog.Nop())
	require.NoError(t, w.Close())

	_, err := w.TrialBalance(context.Background(), Snapshot{}, "")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestContextCancelStopsWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := Start(ctx, zerolog.Nop())
	cancel()

	assert.Eventually(t, func() bool {
		return errors.Is(w.Call(context.Background(), MethodTrialBalance, Snapshot{}, nil), ErrClosed)
	}, time.Second, 10*time.Millisecond)
}
