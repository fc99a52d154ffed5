package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
)

// FormatCSV is the generic bank CSV export.
const FormatCSV = "csv"

// CSVParser parses the generic bank CSV:
//
//	account,book_date,value_date,amount,currency,counterparty,counterparty_account,description
//
// Amounts are signed; positive is money received. A file may mix accounts.
type CSVParser struct{}

const (
	csvNumFields          = 8
	csvColAccount         = 0
	csvColBookDate        = 1
	csvColValueDate       = 2
	csvColAmount          = 3
	csvColCurrency        = 4
	csvColCounterparty    = 5
	csvColCounterpartyAcc = 6
	csvColDescription     = 7
)

// Format returns the parser name.
func (p *CSVParser) Format() string { return FormatCSV }

// Parse reads the CSV and returns one statement per account, in order of
// first appearance.
func (p *CSVParser) Parse(r io.Reader) ([]model.BankImportStatementRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = csvNumFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading bank CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var out []model.BankImportStatementRecord
	index := make(map[string]int)
	ids := entryIDs{}
	for i, rec := range records[1:] {
		se, err := parseCSVRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		account := rec[csvColAccount]
		n, ok := index[account]
		if !ok {
			n = len(out)
			index[account] = n
			out = append(out, model.BankImportStatementRecord{
				BankAccount:      model.BankAccountData{ID: account, Name: account, Currency: se.AmountData.Currency},
				AccountStatement: model.AccountStatementRecord{ID: account + "-" + se.BookDate.Format("20060102")},
			})
		}
		stmt := &out[n]
		if stmt.BankAccount.Currency != se.AmountData.Currency {
			return nil, fmt.Errorf("row %d: %w: account %s is %s, row is %s",
				i+2, money.ErrCurrencyMismatch, account, stmt.BankAccount.Currency, se.AmountData.Currency)
		}
		se.ID = ids.assign(account, se)
		se.AccountStatementRef = stmt.AccountStatement.ID
		stmt.StatementEntries = append(stmt.StatementEntries, se)
	}
	return out, nil
}

func parseCSVRow(rec []string) (model.StatementEntryRecord, error) {
	if rec[csvColAccount] == "" {
		return model.StatementEntryRecord{}, fmt.Errorf("account is empty")
	}
	bookDate, err := model.ParseDate(rec[csvColBookDate])
	if err != nil {
		return model.StatementEntryRecord{}, fmt.Errorf("parsing book date: %w", err)
	}
	valueDate := bookDate
	if v := rec[csvColValueDate]; v != "" {
		valueDate, err = model.ParseDate(v)
		if err != nil {
			return model.StatementEntryRecord{}, fmt.Errorf("parsing value date: %w", err)
		}
	}
	currency := strings.ToUpper(rec[csvColCurrency])
	if currency == "" {
		return model.StatementEntryRecord{}, fmt.Errorf("currency is empty")
	}
	amount, err := money.NewFromString(rec[csvColAmount], currency)
	if err != nil {
		return model.StatementEntryRecord{}, err
	}

	return model.StatementEntryRecord{
		AmountData:          amount.Data(),
		BookDate:            bookDate,
		ValueDate:           valueDate,
		CounterpartyName:    rec[csvColCounterparty],
		CounterpartyAccount: rec[csvColCounterpartyAcc],
		Description:         rec[csvColDescription],
	}, nil
}
