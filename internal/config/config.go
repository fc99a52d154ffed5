// Package config reads kasboek.yaml and applies .env and KASBOEK_*
// environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file at the root of a bookkeeping directory.
const FileName = "kasboek.yaml"

// ErrInvalidConfig is wrapped by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the top-level kasboek.yaml configuration.
type Config struct {
	Business     BusinessConfig `yaml:"business"`
	Storage      StorageConfig  `yaml:"storage"`
	Accounts     AccountsConfig `yaml:"accounts"`
	BankAccounts []BankAccount  `yaml:"bank_accounts,omitempty"`
	Logging      LoggingConfig  `yaml:"logging"`
}

// BusinessConfig identifies the administration.
type BusinessConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

// StorageConfig locates the state database and the import inbox, relative
// to the bookkeeping directory unless absolute.
type StorageConfig struct {
	Database  string `yaml:"database"`
	ImportDir string `yaml:"import_dir"`
}

// AccountsConfig selects the chart of accounts. With neither set the
// built-in scheme is used.
type AccountsConfig struct {
	SchemeFile string `yaml:"scheme_file,omitempty"`
	SchemeURL  string `yaml:"scheme_url,omitempty"`
}

// BankAccount maps a bank account to its ledger account, applied when its
// first statement is imported.
type BankAccount struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name,omitempty"`
	LedgerCode string `yaml:"ledger_code"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Load reads a kasboek.yaml file from disk, then loads the .env file next
// to it (if any) and applies KASBOEK_* overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envPath, err)
	}
	cfg.ApplyEnv()
	return &cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	override(&c.Business.Currency, "KASBOEK_CURRENCY")
	override(&c.Storage.Database, "KASBOEK_DATABASE")
	override(&c.Storage.ImportDir, "KASBOEK_IMPORT_DIR")
	override(&c.Accounts.SchemeFile, "KASBOEK_SCHEME_FILE")
	override(&c.Accounts.SchemeURL, "KASBOEK_SCHEME_URL")
	override(&c.Logging.Level, "KASBOEK_LOG_LEVEL")
	override(&c.Logging.Format, "KASBOEK_LOG_FORMAT")
}

func override(field *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*field = v
	}
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new administration.
func Default(businessName string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name:     businessName,
			Currency: "EUR",
		},
		Storage: StorageConfig{
			Database:  "kasboek.db",
			ImportDir: "import",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the fields the CLI depends on.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Business.Name) == "" {
		problems = append(problems, "business.name is empty")
	}
	if len(c.Business.Currency) != 3 {
		problems = append(problems, fmt.Sprintf("business.currency %q is not an ISO 4217 code", c.Business.Currency))
	}
	if c.Storage.Database == "" {
		problems = append(problems, "storage.database is empty")
	}
	if c.Accounts.SchemeFile != "" && c.Accounts.SchemeURL != "" {
		problems = append(problems, "accounts.scheme_file and accounts.scheme_url are exclusive")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not console or json", c.Logging.Format))
	}
	seen := make(map[string]bool)
	for _, b := range c.BankAccounts {
		if b.ID == "" || b.LedgerCode == "" {
			problems = append(problems, "bank_accounts entries need id and ledger_code")
		}
		if seen[b.ID] {
			problems = append(problems, fmt.Sprintf("bank account %s listed twice", b.ID))
		}
		seen[b.ID] = true
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Resolve returns p relative to root unless it is absolute.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// BankLedgerCode returns the configured ledger account of a bank account.
func (c *Config) BankLedgerCode(bankID string) (string, bool) {
	for _, b := range c.BankAccounts {
		if b.ID == bankID {
			return b.LedgerCode, true
		}
	}
	return "", false
}
