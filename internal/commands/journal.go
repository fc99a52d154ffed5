package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/kasboek/internal/journal"
	"github.com/cleared-dev/kasboek/internal/ledger"
	"github.com/cleared-dev/kasboek/internal/period"
)

func newJournalCommand() *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Journal entries",
	}
	journalCmd.AddCommand(newJournalExportCommand(), newJournalImportCommand(), newJournalDeleteCommand(), newJournalPeriodsCommand())
	return journalCmd
}

func newJournalPeriodsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "periods",
		Short: "List the periods entries are booked in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			j := b.ledger.Journal()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PERIOD\tENTRIES")
			for _, p := range j.Periods() {
				fmt.Fprintf(tw, "%s\t%d\n", p, j.InPeriod(p).Len())
			}
			return tw.Flush()
		},
	}
}

func newJournalExportCommand() *cobra.Command {
	var periodFlag, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the journal as CSV, one row per leg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			j := b.ledger.Journal()
			if periodFlag != "" {
				p, err := period.Parse(periodFlag)
				if err != nil {
					return err
				}
				j = j.InPeriod(p)
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}
			return journal.WriteEntries(out, j.Entries())
		},
	}

	cmd.Flags().StringVar(&periodFlag, "period", "", "only entries booked in this period")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newJournalImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add or replace manual journal entries from a journal CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			records, err := journal.ReadEntries(f)
			if err != nil {
				return err
			}

			b, err := openBooks(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			for _, rec := range records {
				if err := b.apply(ledger.Command{Name: ledger.CmdUpdateJournalEntry, JournalEntry: rec}); err != nil {
					return fmt.Errorf("entry %s: %w", rec.ID, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d journal entries\n", len(records))
			return nil
		},
	}
}

func newJournalDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry>",
		Short: "Delete a manual journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ledger.Command{Name: ledger.CmdDeleteJournalEntry, EntryID: args[0]})
		},
	}
}
