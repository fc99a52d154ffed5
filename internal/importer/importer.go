// Package importer turns bank exports into BankImportStatementRecords.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/kasboek/internal/id"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/money"
)

// Parser converts one bank export into statements, one per bank account
// the export covers.
type Parser interface {
	Parse(r io.Reader) ([]model.BankImportStatementRecord, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes an export waiting in the import directory.
type FileInfo struct {
	Name   string
	Path   string
	Size   int64
	Format string
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered formats.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CSVParser{})
	r.Register(&CAMTParser{})
	return r
}

// DetectFormat guesses the format from a file name: .xml is CAMT.053,
// anything else the generic CSV.
func DetectFormat(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".xml") {
		return FormatCAMT053
	}
	return FormatCSV
}

// ParseFile opens path and parses it with the parser for format, detecting
// the format from the extension when it is empty.
func (r *Registry) ParseFile(path, format string) ([]model.BankImportStatementRecord, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	p := r.Get(format)
	if p == nil {
		return nil, fmt.Errorf("unknown import format %q (known: %s)", format, strings.Join(r.Formats(), ", "))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	recs, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return recs, nil
}

// ProcessedDir is the subdirectory of the import directory that takes
// processed exports.
const ProcessedDir = "processed"

// Scan returns the CSV and XML files in the import directory dir.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".csv" && ext != ".xml" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name:   e.Name(),
			Path:   filepath.Join(dir, e.Name()),
			Size:   info.Size(),
			Format: DetectFormat(e.Name()),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed.
func MarkProcessed(dir, fileName string) error {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, ProcessedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// entryIDs assigns content-based ids to statement entries whose source
// carries no reference, counting identical entries of one day apart.
type entryIDs map[string]int

func (e entryIDs) assign(account string, se model.StatementEntryRecord) string {
	fields := []string{
		se.ValueDate.String(),
		money.FromData(se.AmountData).String(),
		se.CounterpartyName,
		se.CounterpartyAccount,
		se.Description,
	}
	first := id.StatementEntryID(account, se.BookDate.Time, 1, fields...)
	e[first]++
	return id.StatementEntryID(account, se.BookDate.Time, e[first], fields...)
}
