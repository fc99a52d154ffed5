package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/kasboek/internal/accounts"
	"github.com/cleared-dev/kasboek/internal/config"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/store"
)

func newInitCommand() *cobra.Command {
	var name, currency, schemeFile string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new bookkeeping directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, name, currency, schemeFile)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "administration name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&currency, "currency", "EUR", "ledger currency")
	cmd.Flags().StringVar(&schemeFile, "scheme", "", "chart of accounts JSON file (default: built-in scheme)")

	return cmd
}

func runInit(out io.Writer, dir, name, currency, schemeFile string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default(name)
	cfg.Business.Currency = currency
	if err := cfg.Validate(); err != nil {
		return err
	}

	for _, d := range []string{
		"logs",
		cfg.Storage.ImportDir,
		filepath.Join(cfg.Storage.ImportDir, "processed"),
		"exports",
	} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	scheme := accounts.DefaultScheme()
	if schemeFile != "" {
		var err error
		if scheme, err = accounts.LoadFile(schemeFile); err != nil {
			return fmt.Errorf("reading chart of accounts: %w", err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	gitignore := "kasboek.db\n.env\nexports/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	st, err := store.Open(config.Resolve(dir, cfg.Storage.Database))
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveScheme(scheme); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	if err := st.SaveState(model.NewAccountingState(name)); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}

	fmt.Fprintf(out, "Initialized %s at %s (%d ledger accounts)\n", name, dir, len(scheme))
	return nil
}
