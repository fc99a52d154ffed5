package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/kasboek/internal/accounts"
)

func newAccountsCommand() *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Chart of accounts",
	}
	accountsCmd.AddCommand(newAccountsSearchCommand(), newAccountsListCommand(), newAccountsExportCommand())
	return accountsCmd
}

func newAccountsSearchCommand() *cobra.Command {
	var parents bool

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Find ledger accounts by code or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			return printAccounts(cmd.OutOrStdout(), b.ledger.Registry().MatchingAccounts(args[0], parents))
		},
	}

	cmd.Flags().BoolVar(&parents, "parents", false, "include the parents of every match")
	return cmd
}

func newAccountsListCommand() *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			reg := b.ledger.Registry()
			var list []accounts.Account
			switch view {
			case "all":
				list = reg.All()
			case "posting":
				list = reg.PostingAccounts()
			case "bank":
				list = reg.BankAccounts()
			case "balance-sheet":
				list = reg.BalanceSheetAccounts()
			default:
				return fmt.Errorf("unknown view %q (all, posting, bank, balance-sheet)", view)
			}
			return printAccounts(cmd.OutOrStdout(), list)
		},
	}

	cmd.Flags().StringVar(&view, "view", "posting", "all, posting, bank or balance-sheet")
	return cmd
}

func newAccountsExportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the chart of accounts to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			records := b.ledger.Registry().Records()
			switch format {
			case "json":
				return accounts.WriteJSON(cmd.OutOrStdout(), records)
			case "csv":
				return accounts.WriteRecords(cmd.OutOrStdout(), records)
			}
			return fmt.Errorf("unknown format %q (json, csv)", format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "json or csv")
	return cmd
}

func printAccounts(out io.Writer, list []accounts.Account) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tLEVEL\tCATEGORY\tDESCRIPTION")
	for _, a := range list {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", a.Code, a.Level, a.Category(), a.ShortDescription)
	}
	return tw.Flush()
}
