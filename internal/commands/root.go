package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/kasboek/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "kasboek",
		Short:   "Double-entry bookkeeping for bank reconciliation and VAT returns",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("dir", ".", "bookkeeping directory")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(),
		newAllocationsCommand(),
		newSetPeriodCommand(),
		newSetAccountCommand(),
		newSetReasonCommand(),
		newSetVATCommand(),
		newLinkBankCommand(),
		newTrialBalanceCommand(),
		newVATCommand(),
		newAccountsCommand(),
		newJournalCommand(),
		newLogCommand(),
	)

	return rootCmd
}
