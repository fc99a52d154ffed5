package importer

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/kasboek/internal/money"
)

const csvHeader = "account,book_date,value_date,amount,currency,counterparty,counterparty_account,description\n"

func TestCSVParser_Parse(t *testing.T) {
	f, err := os.Open("../../testdata/bank.csv")
	require.NoError(t, err)
	defer f.Close()

	recs, err := (&CSVParser{}).Parse(f)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	primary := recs[0]
	assert.Equal(t, "NL91BANK0417164300", primary.BankAccount.ID)
	assert.Equal(t, "EUR", primary.BankAccount.Currency)
	assert.Equal(t, "NL91BANK0417164300-20210104", primary.AccountStatement.ID)
	require.Len(t, primary.StatementEntries, 4)

	first := primary.StatementEntries[0]
	assert.Regexp(t, `^NL91BANK0417164300-2021-01-04-[0-9a-f]{10}$`, first.ID)
	assert.Equal(t, "-4.00 EUR", money.FromData(first.AmountData).String())
	assert.Equal(t, "GitHub Inc", first.CounterpartyName)
	assert.Equal(t, "GITHUB PRO SUBSCRIPTION", first.Description)
	assert.Equal(t, primary.AccountStatement.ID, first.AccountStatementRef)

	second := primary.StatementEntries[1]
	assert.Regexp(t, `^NL91BANK0417164300-2021-01-04-[0-9a-f]{10}$`, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "2021-01-05", second.ValueDate.String())
	assert.Equal(t, "NL20INGB0001234567", second.CounterpartyAccount)

	income := primary.StatementEntries[2]
	assert.True(t, money.FromData(income.AmountData).IsCredit())
	assert.Equal(t, "2021-01-11", income.ValueDate.String(), "value date defaults to book date")

	assert.Equal(t, "Paper, toner", primary.StatementEntries[3].Description)

	require.Len(t, recs[1].StatementEntries, 1)
	assert.Equal(t, "NL44RABO0123456789", recs[1].BankAccount.ID)
}

func TestCSVParser_EmptyFile(t *testing.T) {
	recs, err := (&CSVParser{}).Parse(stringsReader(csvHeader))
	require.NoError(t, err)
	assert.Nil(t, recs)
}

func TestCSVParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"bad date", "NL01,NOTADATE,,1.00,EUR,,,x", "parsing book date"},
		{"bad value date", "NL01,2021-01-01,01/02/2021,1.00,EUR,,,x", "parsing value date"},
		{"bad amount", "NL01,2021-01-01,,NOTANUMBER,EUR,,,x", "parsing amount"},
		{"no account", ",2021-01-01,,1.00,EUR,,,x", "account is empty"},
		{"no currency", "NL01,2021-01-01,,1.00,,,,x", "currency is empty"},
		{"wrong field count", "NL01,2021-01-01,1.00", "reading bank CSV"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&CSVParser{}).Parse(stringsReader(csvHeader + tt.row + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCSVParser_MixedCurrencies(t *testing.T) {
	data := csvHeader +
		"NL01,2021-01-01,,1.00,EUR,,,a\n" +
		"NL01,2021-01-02,,1.00,USD,,,b\n"
	_, err := (&CSVParser{}).Parse(stringsReader(data))
	require.Error(t, err)
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
	assert.Contains(t, err.Error(), "row 3")
}

func TestCSVParser_IDsFollowContent(t *testing.T) {
	rowA := "NL01,2021-01-04,,-4.00,EUR,GitHub Inc,,GITHUB PRO\n"
	rowB := "NL01,2021-01-04,,-116.00,EUR,Hosting BV,,Invoice H-1\n"
	rowC := "NL01,2021-01-04,,25.00,EUR,ACME BV,,Invoice 7\n"

	parseIDs := func(rows ...string) map[string]string {
		recs, err := (&CSVParser{}).Parse(stringsReader(csvHeader + strings.Join(rows, "")))
		require.NoError(t, err)
		out := make(map[string]string)
		for _, se := range recs[0].StatementEntries {
			out[se.CounterpartyName] = se.ID
		}
		return out
	}

	full := parseIDs(rowA, rowB, rowC)
	assert.Equal(t, full, parseIDs(rowC, rowA, rowB), "order within the day does not matter")

	overlap := parseIDs(rowB, rowC)
	assert.Equal(t, full["Hosting BV"], overlap["Hosting BV"], "a partial export of the day yields the same ids")
	assert.Equal(t, full["ACME BV"], overlap["ACME BV"])
}

func TestCSVParser_IdenticalRows(t *testing.T) {
	row := "NL01,2021-01-04,,-3.50,EUR,Coffee Bar,,Card payment\n"
	recs, err := (&CSVParser{}).Parse(stringsReader(csvHeader + row + row))
	require.NoError(t, err)
	entries := recs[0].StatementEntries
	require.Len(t, entries, 2)
	assert.Equal(t, entries[0].ID+"-2", entries[1].ID)
}

func TestCSVParser_Format(t *testing.T) {
	assert.Equal(t, "csv", (&CSVParser{}).Format())
}
