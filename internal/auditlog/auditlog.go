// Package auditlog keeps an append-only CSV record of the commands applied
// to a ledger.
package auditlog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/kasboek/internal/ledger"
)

// ResultOK is the result of a command that was applied.
const ResultOK = "ok"

// Entry is one row in the audit log.
type Entry struct {
	Timestamp time.Time
	ID        string
	Command   string
	Target    string
	Details   string
	Result    string
}

// Header is the CSV header for audit-log.csv.
const Header = "timestamp,id,command,target,details,result"

const (
	numFields    = 6
	logDir       = "logs"
	logFile      = "logs/audit-log.csv"
	colTimestamp = 0
	colID        = 1
	colCommand   = 2
	colTarget    = 3
	colDetails   = 4
	colResult    = 5
)

// FromCommand records c as applied at ts. A non-nil applyErr is kept as the
// result so refused commands stay visible.
func FromCommand(c ledger.Command, ts time.Time, applyErr error) Entry {
	return New(c.Name, c.Target(), c, ts, applyErr)
}

// New records an action that is not a ledger command, such as an import.
// details is stored as JSON.
func New(command, target string, details any, ts time.Time, applyErr error) Entry {
	data, err := json.Marshal(details)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}
	result := ResultOK
	if applyErr != nil {
		result = applyErr.Error()
	}
	return Entry{
		Timestamp: ts.UTC(),
		ID:        uuid.NewString(),
		Command:   command,
		Target:    target,
		Details:   string(data),
		Result:    result,
	}
}

// Decode returns the command stored in Details, for replaying the log.
func (e Entry) Decode() (ledger.Command, error) {
	var c ledger.Command
	if err := json.Unmarshal([]byte(e.Details), &c); err != nil {
		return ledger.Command{}, fmt.Errorf("decoding %s details: %w", e.ID, err)
	}
	return c, nil
}

// Applied reports whether the command was applied.
func (e Entry) Applied() bool { return e.Result == ResultOK }

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colID] = e.ID
	row[colCommand] = e.Command
	row[colTarget] = e.Target
	row[colDetails] = e.Details
	row[colResult] = e.Result
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp: ts,
		ID:        record[colID],
		Command:   record[colCommand],
		Target:    record[colTarget],
		Details:   record[colDetails],
		Result:    record[colResult],
	}, nil
}

// Append writes entries to <root>/logs/audit-log.csv, creating the file and
// header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all entries from <root>/logs/audit-log.csv, or nil if the
// file does not exist.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ForAllocation returns the entries of commands that touched allocID.
func ForAllocation(entries []Entry, allocID string) []Entry {
	var out []Entry
	for _, e := range entries {
		c, err := e.Decode()
		if err != nil {
			continue
		}
		if slices.Contains(c.AllocationIDs, allocID) {
			out = append(out, e)
		}
	}
	return out
}
