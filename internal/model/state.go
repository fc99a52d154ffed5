package model

// AccountingMetaData describes the administration.
type AccountingMetaData struct {
	Name string `json:"name"`
}

// AccountingState is the complete persisted ledger state. Fields are
// append-only; unknown fields are ignored on decode.
type AccountingState struct {
	AccountingMetaData    AccountingMetaData             `json:"accountingMetaData"`
	LiquidAssetsData      map[string]*BankAccountRecord  `json:"liquidAssetsData"`
	LedgerAllocationsData map[string]*AllocationRecord   `json:"ledgerAllocationsData"`
	JournalData           map[string]*JournalEntryRecord `json:"journalData"`
}

// NewAccountingState returns an empty state.
func NewAccountingState(name string) *AccountingState {
	s := &AccountingState{AccountingMetaData: AccountingMetaData{Name: name}}
	s.Init()
	return s
}

// Init allocates any nil maps, including those of bank accounts.
func (s *AccountingState) Init() {
	if s.LiquidAssetsData == nil {
		s.LiquidAssetsData = make(map[string]*BankAccountRecord)
	}
	if s.LedgerAllocationsData == nil {
		s.LedgerAllocationsData = make(map[string]*AllocationRecord)
	}
	if s.JournalData == nil {
		s.JournalData = make(map[string]*JournalEntryRecord)
	}
	for _, ba := range s.LiquidAssetsData {
		if ba.AccountStatementsData == nil {
			ba.AccountStatementsData = make(map[string]*AccountStatementRecord)
		}
		if ba.StatementEntriesData == nil {
			ba.StatementEntriesData = make(map[string]*StatementEntryRecord)
		}
	}
}

// Clone returns a deep copy.
func (s *AccountingState) Clone() *AccountingState {
	out := NewAccountingState(s.AccountingMetaData.Name)
	for k, ba := range s.LiquidAssetsData {
		c := *ba
		c.AccountStatementsData = make(map[string]*AccountStatementRecord, len(ba.AccountStatementsData))
		for sk, st := range ba.AccountStatementsData {
			cs := *st
			c.AccountStatementsData[sk] = &cs
		}
		c.StatementEntriesData = make(map[string]*StatementEntryRecord, len(ba.StatementEntriesData))
		for ek, e := range ba.StatementEntriesData {
			ce := *e
			c.StatementEntriesData[ek] = &ce
		}
		out.LiquidAssetsData[k] = &c
	}
	for k, a := range s.LedgerAllocationsData {
		out.LedgerAllocationsData[k] = a.Clone()
	}
	for k, j := range s.JournalData {
		out.JournalData[k] = j.Clone()
	}
	return out
}
