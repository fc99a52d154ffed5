package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/kasboek/internal/model"
)

const (
	numFields      = 8
	colCode        = 0
	colReversal    = 1
	colSortKey     = 2
	colNumber      = 3
	colShort       = 4
	colDescription = 5
	colDC          = 6
	colLevel       = 7
)

var csvHeader = []string{
	"Referentiecode", "ReferentieOmslagcode", "Sortering", "Referentienummer",
	"OmschrijvingKort", "Omschrijving", "DC", "Nivo",
}

// ReadRecords reads a chart-of-accounts CSV with a header row.
func ReadRecords(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteRecords writes a chart-of-accounts CSV with a header row.
func WriteRecords(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalRecord(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalRecord converts a record to a CSV row.
func MarshalRecord(acct model.Account) []string {
	row := make([]string, numFields)
	row[colCode] = acct.Referentiecode
	row[colReversal] = acct.ReferentieOmslagcode
	row[colSortKey] = acct.Sortering
	row[colNumber] = acct.Referentienummer
	row[colShort] = acct.OmschrijvingKort
	row[colDescription] = acct.Omschrijving
	row[colDC] = acct.DC
	row[colLevel] = strconv.Itoa(acct.Nivo)
	return row
}

// UnmarshalRecord converts a CSV row to a record.
func UnmarshalRecord(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	level, err := strconv.Atoi(record[colLevel])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing Nivo %q: %w", record[colLevel], err)
	}

	return model.Account{
		Referentiecode:       record[colCode],
		ReferentieOmslagcode: record[colReversal],
		Sortering:            record[colSortKey],
		Referentienummer:     record[colNumber],
		OmschrijvingKort:     record[colShort],
		Omschrijving:         record[colDescription],
		DC:                   record[colDC],
		Nivo:                 level,
	}, nil
}
