package model

// BankAccountRecord is a bank account with its statements and entries.
type BankAccountRecord struct {
	ID                    string                             `json:"id"`
	Name                  string                             `json:"name"`
	Currency              string                             `json:"currency"`
	LedgerAccountCode     string                             `json:"ledgerAccountCode"`
	AccountStatementsData map[string]*AccountStatementRecord `json:"accountStatementsData"`
	StatementEntriesData  map[string]*StatementEntryRecord   `json:"statementEntriesData"`
}

// AccountStatementRecord is one imported statement.
type AccountStatementRecord struct {
	ID             string     `json:"id"`
	OpeningBalance AmountData `json:"openingBalance"`
	ClosingBalance AmountData `json:"closingBalance"`
}

// StatementEntryRecord is one bank line. A credit amount is money received.
type StatementEntryRecord struct {
	ID                  string     `json:"id"`
	BankAccountRef      string     `json:"bankAccountRef"`
	AccountStatementRef string     `json:"accountStatementRef"`
	AmountData          AmountData `json:"amountData"`
	BookDate            Date       `json:"bookDate"`
	ValueDate           Date       `json:"valueDate"`
	CounterpartyName    string     `json:"counterpartyName"`
	CounterpartyAccount string     `json:"counterpartyAccount"`
	Description         string     `json:"description"`
}

// BankAccountData identifies the account an import belongs to.
type BankAccountData struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Currency          string `json:"currency"`
	LedgerAccountCode string `json:"ledgerAccountCode"`
}

// BankImportStatementRecord is what every bank importer produces.
type BankImportStatementRecord struct {
	BankAccount      BankAccountData        `json:"bankAccount"`
	AccountStatement AccountStatementRecord `json:"accountStatement"`
	StatementEntries []StatementEntryRecord `json:"statementEntries"`
}
