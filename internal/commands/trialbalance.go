package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/kasboek/internal/worker"
)

func newTrialBalanceCommand() *cobra.Command {
	var periodFlag string

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			w := worker.Start(cmd.Context(), b.log)
			defer w.Close()

			res, err := w.TrialBalance(cmd.Context(), worker.NewSnapshot(b.ledger), periodFlag)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tDESCRIPTION\tBOOKINGS\tDEBIT\tCREDIT\tBALANCE")
			for _, r := range res.Rows {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", r.Code, r.Description, r.Bookings, r.Debit, r.Credit, r.Balance)
			}
			for _, r := range append(res.Subtotals, res.Total) {
				fmt.Fprintf(tw, "\t%s\t%d\t%s\t%s\t%s\n", r.Description, r.Bookings, r.Debit, r.Credit, r.Balance)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&periodFlag, "period", "", "only entries booked in this period")
	return cmd
}
