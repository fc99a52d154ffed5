package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/kasboek/internal/ledger"
	"github.com/cleared-dev/kasboek/internal/model"
	"github.com/cleared-dev/kasboek/internal/vat"
	"github.com/cleared-dev/kasboek/internal/worker"
)

func newSetVATCommand() *cobra.Command {
	var noBalance bool

	cmd := &cobra.Command{
		Use:   "set-vat <allocation> [rate=bruto...]",
		Short: "Set the VAT lines of an allocation; without lines the VAT is cleared",
		Long: "Each line is a rate id (high, low, zero, none) and its gross amount. Unless\n" +
			"--no-balance is given the lines are balanced to the allocation amount.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBooks(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			a, ok := b.ledger.Allocations().Lookup(args[0])
			if !ok {
				return &model.UnknownReferenceError{Kind: "allocation", ID: args[0]}
			}
			date := a.VATDate()

			var spec *model.VATSpecificationData
			if len(args) > 1 {
				lines, err := parseVATLines(date, args[1:])
				if err != nil {
					return err
				}
				lines = vat.UpdateVATChoices(lines, a.Amount().Value(), !noBalance)
				spec = vat.Spec(date, lines)
			}

			c := ledger.Command{Name: ledger.CmdSetVAT, AllocationIDs: args[:1], VAT: spec}
			if err := b.apply(c); err != nil {
				return err
			}
			return printVATLines(cmd.OutOrStdout(), vat.LinesFromSpec(spec))
		},
	}

	cmd.Flags().BoolVar(&noBalance, "no-balance", false, "keep the lines as given")
	return cmd
}

func parseVATLines(date model.Date, args []string) ([]vat.Line, error) {
	lines := make([]vat.Line, 0, len(args))
	for _, arg := range args {
		rateID, amount, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("VAT line %q: expected rate=bruto", arg)
		}
		rate, ok := vat.RateAt(date.Time, rateID)
		if !ok {
			return nil, fmt.Errorf("VAT line %q: no rate %q on %s", arg, rateID, date)
		}
		bruto, err := model.ParseDecimal("bruto", amount)
		if err != nil {
			return nil, fmt.Errorf("VAT line %q: %w", arg, err)
		}
		line := vat.Line{Rate: &rate}
		line.Set(vat.FieldBruto, vat.Amount(bruto), true)
		lines = append(lines, line)
	}
	return lines, nil
}

func printVATLines(out io.Writer, lines []vat.Line) error {
	if len(lines) == 0 {
		_, err := fmt.Fprintln(out, "VAT cleared")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RATE\tBRUTO\tVAT\tNETTO")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.Rate.ID, figureText(l.Bruto), figureText(l.VAT), figureText(l.Netto))
	}
	return tw.Flush()
}

func figureText(f vat.Figure) string {
	switch f.State() {
	case vat.Unset:
		return "-"
	case vat.Invalid:
		return "invalid: " + f.String()
	}
	return f.String()
}

func newVATCommand() *cobra.Command {
	vatCmd := &cobra.Command{
		Use:   "vat",
		Short: "VAT returns",
	}
	vatCmd.AddCommand(newVATDeclareCommand())
	return vatCmd
}

func newVATDeclareCommand() *cobra.Command {
	var year, quarter int
	var manual []string
	var post bool

	cmd := &cobra.Command{
		Use:   "declare",
		Short: "Compute the VAT return of a quarter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBooks(cmd)
			if err != nil {
				return err
			}
			defer b.close()

			amounts, err := parseManual(manual)
			if err != nil {
				return err
			}

			w := worker.Start(cmd.Context(), b.log)
			defer w.Close()

			res, err := w.VATDeclaration(cmd.Context(), worker.NewSnapshot(b.ledger), year, quarter, amounts)
			if err != nil {
				return err
			}
			if err := printDeclaration(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !post {
				return nil
			}

			params := ledger.DeclarationParams{Year: year, Quarter: quarter, Manual: amounts}
			e, err := b.ledger.PostVATDeclaration(params)
			target := vat.EntryID(vat.Quarter{Year: year, Quarter: quarter})
			b.audit("post-vat-declaration", target, res, err)
			if err != nil {
				return err
			}
			if err := b.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted journal entry %s\n", e.ID())
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year (required)")
	cmd.Flags().IntVar(&quarter, "quarter", 0, "quarter 1-4 (required)")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("quarter")
	cmd.Flags().StringArrayVar(&manual, "manual", nil, "manual VAT amount as category=amount, e.g. private-use=12.50")
	cmd.Flags().BoolVar(&post, "post", false, "book the return in the journal")
	return cmd
}

func parseManual(args []string) (map[vat.Category]decimal.Decimal, error) {
	out := make(map[vat.Category]decimal.Decimal, len(args))
	for _, arg := range args {
		name, amount, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("manual amount %q: expected category=amount", arg)
		}
		c, err := vat.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		d, err := model.ParseDecimal("manual "+name, amount)
		if err != nil {
			return nil, err
		}
		out[c] = d
	}
	return out, nil
}

func printDeclaration(out io.Writer, res worker.DeclarationResult) error {
	fmt.Fprintf(out, "VAT return %s\n", res.Quarter)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CATEGORY\tBRUTO\tVAT\tMANUAL\tRAW\tDECLARED\t")
	for _, r := range res.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n", r.Category, r.Bruto, r.VAT, r.Manual, r.Raw, r.Declared)
	}
	fmt.Fprintf(tw, "total\t\t\t\t%s\t%s\t\n", res.RawTotal, res.Total)
	return tw.Flush()
}
