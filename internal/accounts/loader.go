package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/kasboek/internal/model"
)

// ReadJSON reads a JSON array of scheme records.
func ReadJSON(r io.Reader) ([]model.Account, error) {
	var records []model.Account
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding accounts JSON: %w", err)
	}
	return records, nil
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []model.Account) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding accounts JSON: %w", err)
	}
	return nil
}

// LoadFile reads scheme records from a .json or .csv file.
func LoadFile(path string) ([]model.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger scheme: %w", err)
	}
	defer f.Close()

	var records []model.Account
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = ReadRecords(f)
	default:
		records, err = ReadJSON(f)
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger scheme %s: %w", path, err)
	}
	return records, nil
}

// SaveFile writes scheme records to a .json or .csv file.
func SaveFile(path string, records []model.Account) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating scheme dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating ledger scheme file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		err = WriteRecords(f, records)
	} else {
		err = WriteJSON(f, records)
	}
	if err != nil {
		return fmt.Errorf("writing ledger scheme: %w", err)
	}
	return nil
}

// Fetch downloads scheme records (a JSON array) from url. A nil client
// uses http.DefaultClient.
func Fetch(ctx context.Context, client *http.Client, url string) ([]model.Account, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building scheme request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching ledger scheme: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching ledger scheme: unexpected status %s", resp.Status)
	}
	return ReadJSON(resp.Body)
}
