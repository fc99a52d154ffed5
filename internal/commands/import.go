package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/kasboek/internal/config"
	"github.com/cleared-dev/kasboek/internal/importer"
	"github.com/cleared-dev/kasboek/internal/ledger"
)

func newImportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import bank exports; without files, the import directory is scanned",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			reg := importer.DefaultRegistry()
			if len(args) > 0 {
				for _, path := range args {
					if err := b.importFile(cmd, reg, path, format); err != nil {
						return err
					}
				}
				return nil
			}

			dir := config.Resolve(b.root, b.cfg.Storage.ImportDir)
			files, err := importer.Scan(dir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing to import in %s\n", dir)
				return nil
			}
			for _, f := range files {
				if err := b.importFile(cmd, reg, f.Path, f.Format); err != nil {
					return err
				}
				if err := importer.MarkProcessed(dir, f.Name); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "export format: csv or camt053 (default: from extension)")
	return cmd
}

type importSummary struct {
	Format     string   `json:"format"`
	Statements []string `json:"statements"`
	Entries    int      `json:"entries"`
}

func (b *books) importFile(cmd *cobra.Command, reg *importer.Registry, path, format string) error {
	if format == "" {
		format = importer.DetectFormat(path)
	}
	name := filepath.Base(path)
	recs, err := reg.ParseFile(path, format)
	if err != nil {
		b.audit("import", name, importSummary{Format: format}, err)
		return err
	}

	sum := importSummary{Format: format}
	for _, rec := range recs {
		allocs, err := b.ledger.Import(rec)
		if err != nil {
			b.audit("import", name, sum, err)
			return fmt.Errorf("%s: %w", name, err)
		}
		sum.Statements = append(sum.Statements, rec.AccountStatement.ID)
		sum.Entries += len(allocs)

		if err := b.linkConfiguredBank(rec.BankAccount.ID); err != nil {
			return err
		}
	}
	b.audit("import", name, sum, nil)
	if err := b.save(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d new entries from %s (%d statements)\n", sum.Entries, name, len(sum.Statements))
	return nil
}

// linkConfiguredBank applies the bank_accounts mapping of the config to a
// bank account that has no ledger account yet.
func (b *books) linkConfiguredBank(bankID string) error {
	ba, ok := b.ledger.BankAccount(bankID)
	if !ok || ba.LedgerAccountCode != "" {
		return nil
	}
	code, ok := b.cfg.BankLedgerCode(bankID)
	if !ok {
		return nil
	}
	return b.apply(ledger.Command{Name: ledger.CmdLinkBankAccount, BankAccountID: bankID, Code: code})
}
