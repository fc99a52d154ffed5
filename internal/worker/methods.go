package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/allocation"
	"github.com/cleared-dev/kasboek/internal/ledger"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/period"
	"github.com/cleared-dev/kasboek/internal/summary"
	"github.com/cleared-dev/kasboek/internal/vat"
)

// Methods served by the worker.
const (
	MethodTrialBalance       = "trialBalance"
	MethodSimilarAllocations = "similarAllocations"
	MethodVATDeclaration     = "vatDeclaration"
	MethodSortAllocations    = "sortAllocations"
)

// Snapshot is the full input of a computation.
type Snapshot struct {
	State    *model.AccountingState `json:"state"`
	Scheme   []model.Account        `json:"scheme"`
	Currency string                 `json:"currency"`
}

// NewSnapshot copies the state, chart of accounts and currency of l.
func NewSnapshot(l *ledger.Ledger) Snapshot {
	return Snapshot{State: l.State().Clone(), Scheme: l.Registry().Records(), Currency: l.Currency()}
}

func (s Snapshot) open(log zerolog.Logger) (*ledger.Ledger, error) {
	if s.State == nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "snapshot has no state"}
	}
	if s.Currency == "" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "snapshot has no currency"}
	}
	registry := accounts.NewRegistry(log)
	registry.Load(s.Scheme)
	return ledger.New(s.State, registry, s.Currency, log), nil
}

type TrialBalanceParams struct {
	Snapshot
	Period string `json:"period,omitempty"`
}

// BalanceRow is one account of a trial balance, amounts formatted.
type BalanceRow struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Bookings    int    `json:"bookings"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Balance     string `json:"balance"`
}

type TrialBalanceResult struct {
	Rows      []BalanceRow `json:"rows"`
	Subtotals []BalanceRow `json:"subtotals"`
	Total     BalanceRow   `json:"total"`
}

// reportCategories orders the subtotals of a trial balance.
var reportCategories = []accounts.Category{
	accounts.CategoryBalanceSheet,
	accounts.CategoryRevenue,
	accounts.CategoryExpense,
	accounts.CategoryOther,
}

type SimilarParams struct {
	Snapshot
	AllocationID string `json:"allocationId"`
}

type DeclarationParams struct {
	Snapshot
	Year    int               `json:"year"`
	Quarter int               `json:"quarter"`
	Manual  map[string]string `json:"manual,omitempty"`
}

// DeclarationRow is one category of a VAT return.
type DeclarationRow struct {
	Category string `json:"category"`
	Bruto    string `json:"bruto"`
	Netto    string `json:"netto"`
	VAT      string `json:"vat"`
	Manual   string `json:"manual"`
	Raw      string `json:"raw"`
	Declared string `json:"declared"`
}

type DeclarationResult struct {
	Quarter  string           `json:"quarter"`
	Rows     []DeclarationRow `json:"rows"`
	RawTotal string           `json:"rawTotal"`
	Total    string           `json:"total"`
}

type SortParams struct {
	Snapshot
	Key    string `json:"key,omitempty"`
	Period string `json:"period,omitempty"`
	Code   string `json:"code,omitempty"`
}

func (s *server) register() {
	s.handlers[MethodTrialBalance] = s.trialBalance
	s.handlers[MethodSimilarAllocations] = s.similarAllocations
	s.handlers[MethodVATDeclaration] = s.vatDeclaration
	s.handlers[MethodSortAllocations] = s.sortAllocations
}

func (s *server) trialBalance(raw json.RawMessage) (any, error) {
	var p TrialBalanceParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	per, err := optionalPeriod(p.Period)
	if err != nil {
		return nil, err
	}
	l, err := p.open(s.log)
	if err != nil {
		return nil, err
	}

	m := l.TrialBalance(per)
	res := TrialBalanceResult{Rows: []BalanceRow{}, Subtotals: []BalanceRow{}}
	used := make(map[accounts.Category]bool)
	for _, as := range m.Accounts() {
		res.Rows = append(res.Rows, balanceRow(as))
		used[as.Account.Category()] = true
	}
	for _, c := range reportCategories {
		if !used[c] {
			continue
		}
		row := balanceRow(m.Totalisation(summary.InCategory(c)))
		row.Description = "Subtotal " + c.String()
		row.Category = c.String()
		res.Subtotals = append(res.Subtotals, row)
	}
	res.Total = balanceRow(m.Totalisation(nil))
	return res, nil
}

func balanceRow(as *summary.AccountSummary) BalanceRow {
	return BalanceRow{
		Code:        as.Account.Code,
		Description: as.Account.ShortDescription,
		Category:    as.Account.Category().String(),
		Bookings:    len(as.Bookings),
		Debit:       as.DebitAmount.String(),
		Credit:      as.CreditAmount.String(),
		Balance:     as.Balance.String(),
	}
}

func (s *server) similarAllocations(raw json.RawMessage) (any, error) {
	var p SimilarParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	l, err := p.open(s.log)
	if err != nil {
		return nil, err
	}
	// Allocation panics on an unknown id; serve reports it as an engine error.
	return allocationIDs(l.Allocations().Allocation(p.AllocationID).SimilarAllocations()), nil
}

func (s *server) vatDeclaration(raw json.RawMessage) (any, error) {
	var p DeclarationParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	manual := make(map[vat.Category]decimal.Decimal, len(p.Manual))
	for k, v := range p.Manual {
		c, err := vat.ParseCategory(k)
		if err != nil {
			return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
		}
		d, err := model.ParseDecimal("manual "+k, v)
		if err != nil {
			return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
		}
		manual[c] = d
	}
	l, err := p.open(s.log)
	if err != nil {
		return nil, err
	}
	d, err := l.NewDeclaration(ledger.DeclarationParams{Year: p.Year, Quarter: p.Quarter, Manual: manual})
	if err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}

	res := DeclarationResult{
		Quarter:  d.Quarter().String(),
		RawTotal: d.RawTotal().StringFixed(2),
		Total:    d.Total().StringFixed(0),
	}
	for _, r := range d.Rows() {
		res.Rows = append(res.Rows, DeclarationRow{
			Category: r.Category.String(),
			Bruto:    r.Bucket.Bruto.StringFixed(2),
			Netto:    r.Bucket.Netto.StringFixed(2),
			VAT:      r.Bucket.VAT.StringFixed(2),
			Manual:   r.Manual.StringFixed(2),
			Raw:      r.Raw.StringFixed(2),
			Declared: r.Declared.StringFixed(0),
		})
	}
	return res, nil
}

func (s *server) sortAllocations(raw json.RawMessage) (any, error) {
	var p SortParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	key, err := allocation.ParseSortKey(p.Key)
	if err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	per, err := optionalPeriod(p.Period)
	if err != nil {
		return nil, err
	}
	l, err := p.open(s.log)
	if err != nil {
		return nil, err
	}
	allocs := l.Allocations().Filter(allocation.Filter{Period: per, Code: p.Code})
	allocation.Sort(allocs, key)
	return allocationIDs(allocs), nil
}

func optionalPeriod(s string) (period.Period, error) {
	if s == "" {
		return "", nil
	}
	p, err := period.Parse(s)
	if err != nil {
		return "", &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	return p, nil
}

func allocationIDs(allocs []allocation.Allocation) []string {
	out := make([]string, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, a.ID())
	}
	return out
}

// TrialBalance computes the trial balance of snap, limited to period p
// when it is not empty.
func (w *Worker) TrialBalance(ctx context.Context, snap Snapshot, p string) (TrialBalanceResult, error) {
	var res TrialBalanceResult
	err := w.Call(ctx, MethodTrialBalance, TrialBalanceParams{Snapshot: snap, Period: p}, &res)
	return res, err
}

// SimilarAllocations returns the ids of the allocations similar to allocID.
func (w *Worker) SimilarAllocations(ctx context.Context, snap Snapshot, allocID string) ([]string, error) {
	var ids []string
	err := w.Call(ctx, MethodSimilarAllocations, SimilarParams{Snapshot: snap, AllocationID: allocID}, &ids)
	return ids, err
}

// VATDeclaration renders the VAT return of a quarter.
func (w *Worker) VATDeclaration(ctx context.Context, snap Snapshot, year, quarter int, manual map[vat.Category]decimal.Decimal) (DeclarationResult, error) {
	params := DeclarationParams{Snapshot: snap, Year: year, Quarter: quarter, Manual: map[string]string{}}
	for c, v := range manual {
		params.Manual[c.String()] = v.String()
	}
	var res DeclarationResult
	if err := w.Call(ctx, MethodVATDeclaration, params, &res); err != nil {
		return DeclarationResult{}, fmt.Errorf("vat declaration %d-Q%d: %w", year, quarter, err)
	}
	return res, nil
}

// SortAllocations filters and orders allocation ids.
func (w *Worker) SortAllocations(ctx context.Context, snap Snapshot, key, p, code string) ([]string, error) {
	var ids []string
	err := w.Call(ctx, MethodSortAllocations, SortParams{Snapshot: snap, Key: key, Period: p, Code: code}, &ids)
	return ids, err
}
