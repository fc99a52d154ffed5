package importer

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
)

// FormatCAMT053 is the ISO 20022 bank-to-customer statement.
const FormatCAMT053 = "camt053"

// CAMTParser parses CAMT.053 statements. Only the elements the ledger
// uses are decoded; everything else is ignored.
type CAMTParser struct{}

type camtDocument struct {
	Statements []camtStatement `xml:"BkToCstmrStmt>Stmt"`
}

type camtStatement struct {
	ID       string        `xml:"Id"`
	IBAN     string        `xml:"Acct>Id>IBAN"`
	Other    string        `xml:"Acct>Id>Othr>Id"`
	Currency string        `xml:"Acct>Ccy"`
	Owner    string        `xml:"Acct>Ownr>Nm"`
	Balances []camtBalance `xml:"Bal"`
	Entries  []camtEntry   `xml:"Ntry"`
}

type camtAmount struct {
	Value    string `xml:",chardata"`
	Currency string `xml:"Ccy,attr"`
}

type camtBalance struct {
	Type      string     `xml:"Tp>CdOrPrtry>Cd"`
	Amount    camtAmount `xml:"Amt"`
	Indicator string     `xml:"CdtDbtInd"`
}

type camtEntry struct {
	Reference string       `xml:"AcctSvcrRef"`
	Amount    camtAmount   `xml:"Amt"`
	Indicator string       `xml:"CdtDbtInd"`
	BookDate  string       `xml:"BookgDt>Dt"`
	ValueDate string       `xml:"ValDt>Dt"`
	Info      string       `xml:"AddtlNtryInf"`
	Details   []camtTxDtls `xml:"NtryDtls>TxDtls"`
}

type camtTxDtls struct {
	DebtorName    string   `xml:"RltdPties>Dbtr>Nm"`
	DebtorIBAN    string   `xml:"RltdPties>DbtrAcct>Id>IBAN"`
	CreditorName  string   `xml:"RltdPties>Cdtr>Nm"`
	CreditorIBAN  string   `xml:"RltdPties>CdtrAcct>Id>IBAN"`
	Unstructured  []string `xml:"RmtInf>Ustrd"`
	StructuredRef string   `xml:"RmtInf>Strd>CdtrRefInf>Ref"`
}

// Format returns the parser name.
func (p *CAMTParser) Format() string { return FormatCAMT053 }

// Parse decodes every statement in the document.
func (p *CAMTParser) Parse(r io.Reader) ([]model.BankImportStatementRecord, error) {
	var doc camtDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding CAMT.053: %w", err)
	}

	out := make([]model.BankImportStatementRecord, 0, len(doc.Statements))
	for i, st := range doc.Statements {
		rec, err := convertStatement(st)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func convertStatement(st camtStatement) (model.BankImportStatementRecord, error) {
	account := st.IBAN
	if account == "" {
		account = st.Other
	}
	if account == "" {
		return model.BankImportStatementRecord{}, fmt.Errorf("statement %q has no account id", st.ID)
	}
	currency := st.Currency

	stmt := model.AccountStatementRecord{ID: st.ID}
	for _, b := range st.Balances {
		amt, err := b.Amount.money(b.Indicator, currency)
		if err != nil {
			return model.BankImportStatementRecord{}, fmt.Errorf("balance %s: %w", b.Type, err)
		}
		if currency == "" {
			currency = amt.Currency()
		}
		switch b.Type {
		case "OPBD", "PRCD":
			stmt.OpeningBalance = amt.Data()
		case "CLBD":
			stmt.ClosingBalance = amt.Data()
		}
	}

	rec := model.BankImportStatementRecord{
		BankAccount:      model.BankAccountData{ID: account, Name: st.Owner, Currency: currency},
		AccountStatement: stmt,
	}
	if rec.BankAccount.Name == "" {
		rec.BankAccount.Name = account
	}

	ids := entryIDs{}
	for i, n := range st.Entries {
		se, err := convertEntry(n, currency)
		if err != nil {
			return model.BankImportStatementRecord{}, fmt.Errorf("entry %d: %w", i+1, err)
		}
		if rec.BankAccount.Currency == "" {
			rec.BankAccount.Currency = se.AmountData.Currency
		}
		if se.ID == "" {
			se.ID = ids.assign(account, se)
		}
		se.AccountStatementRef = st.ID
		rec.StatementEntries = append(rec.StatementEntries, se)
	}
	return rec, nil
}

func convertEntry(n camtEntry, currency string) (model.StatementEntryRecord, error) {
	amt, err := n.Amount.money(n.Indicator, currency)
	if err != nil {
		return model.StatementEntryRecord{}, err
	}
	bookDate, err := model.ParseDate(n.BookDate)
	if err != nil {
		return model.StatementEntryRecord{}, fmt.Errorf("parsing book date: %w", err)
	}
	valueDate := bookDate
	if n.ValueDate != "" {
		if valueDate, err = model.ParseDate(n.ValueDate); err != nil {
			return model.StatementEntryRecord{}, fmt.Errorf("parsing value date: %w", err)
		}
	}

	se := model.StatementEntryRecord{
		ID:          n.Reference,
		AmountData:  amt.Data(),
		BookDate:    bookDate,
		ValueDate:   valueDate,
		Description: n.Info,
	}
	if len(n.Details) > 0 {
		d := n.Details[0]
		// The counterparty is the other side of the payment.
		if amt.IsCredit() {
			se.CounterpartyName, se.CounterpartyAccount = d.DebtorName, d.DebtorIBAN
		} else {
			se.CounterpartyName, se.CounterpartyAccount = d.CreditorName, d.CreditorIBAN
		}
		switch {
		case len(d.Unstructured) > 0:
			se.Description = strings.Join(d.Unstructured, " ")
		case d.StructuredRef != "":
			se.Description = d.StructuredRef
		}
	}
	return se, nil
}

func (a camtAmount) money(indicator, fallbackCurrency string) (money.Money, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(a.Value))
	if err != nil {
		return money.Money{}, fmt.Errorf("parsing amount %q: %w", a.Value, err)
	}
	currency := a.Currency
	if currency == "" {
		currency = fallbackCurrency
	}
	switch indicator {
	case "CRDT":
		return money.FromSide(v, currency, money.Credit), nil
	case "DBIT":
		return money.FromSide(v, currency, money.Debit), nil
	}
	return money.Money{}, &model.MalformedValueError{Field: "CdtDbtInd", Value: indicator}
}
