package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/kasboek/internal/allocation"
	"github.com/cleared-dev/kasboek/internal/ledger"
	"github.com/cleared-dev/kasboek/internal/period"
	"github.com/cleared-dev/kasboek/internal/worker"
)

func newAllocationsCommand() *cobra.Command {
	var periodFlag, account, sortKey string
	var unmapped bool

	cmd := &cobra.Command{
		Use:   "allocations",
		Short: "List allocations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			f := allocation.Filter{Code: account}
			if periodFlag != "" {
				if f.Period, err = period.Parse(periodFlag); err != nil {
					return err
				}
			}
			key, err := allocation.ParseSortKey(sortKey)
			if err != nil {
				return err
			}

			allocs := b.ledger.Allocations().Filter(f)
			if unmapped {
				kept := allocs[:0]
				for _, a := range allocs {
					if a.IsUnmapped() {
						kept = append(kept, a)
					}
				}
				allocs = kept
			}
			allocation.Sort(allocs, key)
			return printAllocations(cmd.OutOrStdout(), allocs)
		},
	}

	cmd.Flags().StringVar(&periodFlag, "period", "", "only allocations booked in this period")
	cmd.Flags().StringVar(&account, "account", "", "only allocations booked on this ledger account")
	cmd.Flags().StringVar(&sortKey, "sort", "date", "sort by date, amount, counterparty or account")
	cmd.Flags().BoolVar(&unmapped, "unmapped", false, "only allocations without ledger account")

	cmd.AddCommand(newSimilarCommand())
	return cmd
}

func newSimilarCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "similar <allocation>",
		Short: "List allocations similar to one allocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			if _, ok := b.ledger.Allocations().Lookup(args[0]); !ok {
				return fmt.Errorf("unknown allocation %s", args[0])
			}

			w := worker.Start(cmd.Context(), b.log)
			defer w.Close()

			ids, err := w.SimilarAllocations(cmd.Context(), worker.NewSnapshot(b.ledger), args[0])
			if err != nil {
				return err
			}
			allocs := make([]allocation.Allocation, 0, len(ids))
			for _, id := range ids {
				allocs = append(allocs, b.ledger.Allocations().Allocation(id))
			}
			return printAllocations(cmd.OutOrStdout(), allocs)
		},
	}
}

func printAllocations(out io.Writer, allocs []allocation.Allocation) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tPERIOD\tAMOUNT\tACCOUNT\tSTATE\tCOUNTERPARTY\tREASON")
	for _, a := range allocs {
		counterparty := ""
		if se := a.StatementEntry(); se != nil {
			counterparty = se.CounterpartyName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID(), a.Date(), a.Period(), a.Amount(), a.LedgerAccountCode(), a.State(), counterparty, a.Entry().Reason())
	}
	return tw.Flush()
}

func newSetPeriodCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-period <allocation> <period>",
		Short: "Book an allocation in another period",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ledger.Command{Name: ledger.CmdSetPeriod, AllocationIDs: args[:1], Period: args[1]})
		},
	}
}

func newSetAccountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-account <allocation>... <code>",
		Short: "Book allocations on a ledger account",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			last := len(args) - 1
			return runCommand(cmd, ledger.Command{Name: ledger.CmdSetLedgerAccount, AllocationIDs: args[:last], Code: args[last]})
		},
	}
}

func newSetReasonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-reason <allocation> <reason>",
		Short: "Describe why an allocation was booked",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ledger.Command{Name: ledger.CmdSetReason, AllocationIDs: args[:1], Reason: args[1]})
		},
	}
}

func newLinkBankCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "link-bank <bank-account> <code>",
		Short: "Link a bank account to its ledger account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ledger.Command{Name: ledger.CmdLinkBankAccount, BankAccountID: args[0], Code: args[1]})
		},
	}
}

// runCommand applies c to the books in --dir.
func runCommand(cmd *cobra.Command, c ledger.Command) error {
	b, err := openBooks(cmd)
	if err != nil {
		return err
	}
	defer b.close()

	if err := b.apply(c); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", c.Name, c.Target())
	return nil
}
