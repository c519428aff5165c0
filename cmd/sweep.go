package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sells-group/rd-benefit/internal/benefit"
	"github.com/sells-group/rd-benefit/internal/report"
)

var (
	sweepSales   string
	sweepOpex    string
	sweepRegime  string
	sweepTaxRate string
	sweepFrom    string
	sweepTo      string
	sweepSteps   int
	sweepFormat  string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Show how the benefit changes across a range of R&D investment",
	Long: `Evaluates the scenario at evenly spaced R&D investment levels between
--from and --to, holding sales, expenses and tax rate fixed. When --to is
omitted the sweep runs to twice the break-even investment.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("evaluate"); err != nil {
			return err
		}

		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		reg, err := catalog.Resolve(sweepRegime, sweepTaxRate, cfg.Regimes.Default)
		if err != nil {
			return err
		}
		in, err := parseInputs(sweepSales, sweepOpex, "0", reg)
		if err != nil {
			return err
		}

		from, err := decimal.NewFromString(sweepFrom)
		if err != nil {
			return eris.Wrapf(err, "parse --from %q", sweepFrom)
		}
		var to decimal.Decimal
		if sweepTo == "" {
			profit := decimal.Max(decimal.Zero, in.Sales.Sub(in.OperatingExpenses))
			to = benefit.BreakEven(profit, in.TaxRate).Mul(decimal.NewFromInt(2)).Round(0)
		} else if to, err = decimal.NewFromString(sweepTo); err != nil {
			return eris.Wrapf(err, "parse --to %q", sweepTo)
		}

		points, err := benefit.Sweep(in, from, to, sweepSteps)
		if err != nil {
			return eris.Wrap(err, "sweep")
		}

		switch sweepFormat {
		case "text":
			f, err := newFormatter()
			if err != nil {
				return err
			}
			formatSweep(cmd.OutOrStdout(), points, f)
			return nil
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(points), "sweep: encode json")
		default:
			return eris.Errorf("sweep: unknown format %q (want text or json)", sweepFormat)
		}
	},
}

func formatSweep(out io.Writer, points []benefit.SweepPoint, f *report.Formatter) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RD_SPEND\tFINAL_TAX\tUNUSED_CREDIT\tNET_SAVINGS\tRECOVERY\tPOSITION")
	_, _ = fmt.Fprintln(w, "--------\t---------\t-------------\t-----------\t--------\t--------")

	for _, p := range points {
		res := p.Result
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.Money(p.RDSpend),
			f.Money(res.Incentive.FinalTax),
			f.Money(res.Incentive.UnusedCredit),
			f.Money(res.Comparison.NetCashSavings),
			f.Percent(res.Comparison.EffectiveRecoveryRatePct, 1),
			res.Optimization.Position,
		)
	}
	_ = w.Flush()
}

func init() {
	addInputFlags(sweepCmd, &sweepSales, &sweepOpex, nil, &sweepRegime, &sweepTaxRate)
	sweepCmd.Flags().StringVar(&sweepFrom, "from", "0", "lowest R&D investment")
	sweepCmd.Flags().StringVar(&sweepTo, "to", "", "highest R&D investment (default twice the break-even)")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of intervals between --from and --to")
	sweepCmd.Flags().StringVar(&sweepFormat, "format", "text", "output format: text or json")
	rootCmd.AddCommand(sweepCmd)
}
