package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
	"github.com/cleared-dev/kasboek/internal/period"
)

// Header is the CSV header of a journal export. One row per leg; legs of
// one entry are consecutive and in leg order.
const Header = "entry_id,date,period,account,reason,debit,credit,currency,tag"

const (
	numFields   = 9
	colEntryID  = 0
	colDate     = 1
	colPeriod   = 2
	colAccount  = 3
	colReason   = 4
	colDebit    = 5
	colCredit   = 6
	colCurrency = 7
	colTag      = 8
)

// WriteEntries writes entries (including header).
func WriteEntries(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 2
	for _, e := range entries {
		for _, leg := range e.Legs() {
			if err := cw.Write(MarshalLeg(e, leg)); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
			row++
		}
	}
	return cw.Error()
}

// MarshalLeg converts one leg of e to a CSV row.
func MarshalLeg(e Entry, leg Leg) []string {
	row := make([]string, numFields)
	row[colEntryID] = e.ID()
	row[colDate] = e.Date().String()
	row[colPeriod] = e.Period().String()
	row[colAccount] = leg.Code
	row[colReason] = e.Reason()

	if leg.Amount.IsDebit() {
		row[colDebit] = leg.Amount.Magnitude().StringFixed(2)
	} else {
		row[colCredit] = leg.Amount.Magnitude().StringFixed(2)
	}

	row[colCurrency] = leg.Amount.Currency()
	row[colTag] = leg.Tag
	return row
}

// ReadEntries reads a journal export back into records, grouping
// consecutive rows by entry id. VAT specifications are not part of the
// export.
func ReadEntries(r io.Reader) ([]*model.JournalEntryRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	var out []*model.JournalEntryRecord
	var cur *model.JournalEntryRecord
	for i, rec := range rows[1:] {
		leg, err := UnmarshalLeg(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if cur == nil || cur.ID != rec[colEntryID] {
			date, err := model.ParseDate(rec[colDate])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+2, err)
			}
			p, err := period.Parse(rec[colPeriod])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+2, err)
			}
			cur = &model.JournalEntryRecord{
				ID:     rec[colEntryID],
				Date:   date,
				Period: p,
				Reason: rec[colReason],
			}
			out = append(out, cur)
		}
		cur.EntryLegsData = append(cur.EntryLegsData, leg)
	}
	return out, nil
}

// UnmarshalLeg converts a CSV row to leg data.
func UnmarshalLeg(record []string) (model.EntryLegData, error) {
	if len(record) != numFields {
		return model.EntryLegData{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	var (
		amount decimal.Decimal
		side   = money.Credit
		err    error
	)
	switch {
	case record[colDebit] != "" && record[colCredit] != "":
		return model.EntryLegData{}, fmt.Errorf("leg has both debit and credit")
	case record[colDebit] != "":
		side = money.Debit
		amount, err = decimal.NewFromString(record[colDebit])
		if err != nil {
			return model.EntryLegData{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	case record[colCredit] != "":
		amount, err = decimal.NewFromString(record[colCredit])
		if err != nil {
			return model.EntryLegData{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}

	return model.EntryLegData{
		LedgerAccountCode: record[colAccount],
		AmountData:        money.FromSide(amount, record[colCurrency], side).Data(),
		Tag:               record[colTag],
	}, nil
}
