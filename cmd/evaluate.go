package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rd-benefit/internal/benefit"
	"github.com/sells-group/rd-benefit/internal/regime"
	"github.com/sells-group/rd-benefit/internal/report"
)

var (
	evalSales   string
	evalOpex    string
	evalRD      string
	evalRegime  string
	evalTaxRate string
	evalFormat  string
	evalOutput  string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare taxes and cash flow with and without the R&D incentive",
	Long: `Evaluates one scenario and prints the comparison metrics, the break-even
R&D investment and the comparative income and cash-flow statements.

Examples:
  # Default scenario under the Pro-Pyme General regime
  rd-benefit evaluate

  # Custom figures under the general regime, as JSON
  rd-benefit evaluate --sales 50000000 --opex 30000000 --rd 4000000 --regime general --format json

  # Workbook export
  rd-benefit evaluate --format xlsx --output benefit.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("evaluate"); err != nil {
			return err
		}

		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		reg, err := catalog.Resolve(evalRegime, evalTaxRate, cfg.Regimes.Default)
		if err != nil {
			return err
		}
		in, err := parseInputs(evalSales, evalOpex, evalRD, reg)
		if err != nil {
			return err
		}

		res, err := benefit.Evaluate(in)
		if err != nil {
			return eris.Wrap(err, "evaluate")
		}

		f, err := newFormatter()
		if err != nil {
			return err
		}
		rep := report.Build(reg, res, f)

		zap.L().Info("evaluate: complete",
			zap.String("regime", reg.Key),
			zap.Stringer("net_cash_savings", res.Comparison.NetCashSavings),
			zap.String("position", string(res.Optimization.Position)),
		)

		return writeReport(cmd.OutOrStdout(), rep, f, evalFormat, evalOutput)
	},
}

func parseInputs(sales, opex, rd string, reg regime.Regime) (benefit.Inputs, error) {
	in := benefit.Inputs{TaxRate: reg.Rate}
	for _, p := range []struct {
		flag string
		raw  string
		dst  *decimal.Decimal
	}{
		{"sales", sales, &in.Sales},
		{"opex", opex, &in.OperatingExpenses},
		{"rd", rd, &in.RDSpend},
	} {
		v, err := decimal.NewFromString(p.raw)
		if err != nil {
			return benefit.Inputs{}, eris.Wrapf(err, "parse --%s %q", p.flag, p.raw)
		}
		*p.dst = v
	}
	return in, nil
}

func writeReport(stdout io.Writer, rep report.Report, f *report.Formatter, format, output string) error {
	if format == "xlsx" {
		if output == "" {
			return eris.New("evaluate: --output is required for xlsx")
		}
		return rep.SaveXLSX(output)
	}

	out := stdout
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return eris.Wrapf(err, "evaluate: create %s", output)
		}
		defer file.Close() //nolint:errcheck
		out = file
	}

	switch format {
	case "text":
		return rep.WriteText(out, f)
	case "json":
		return rep.WriteJSON(out)
	default:
		return eris.Errorf("evaluate: unknown format %q (want text, json or xlsx)", format)
	}
}

func addInputFlags(cmd *cobra.Command, sales, opex, rd, regimeKey, taxRate *string) {
	cmd.Flags().StringVar(sales, "sales", "20000000", "total sales")
	cmd.Flags().StringVar(opex, "opex", "7000000", "operating expenses excluding R&D")
	cmd.Flags().StringVar(regimeKey, "regime", "", "tax regime key (default from config)")
	cmd.Flags().StringVar(taxRate, "tax-rate", "", "explicit tax rate, overrides --regime (e.g. 0.25)")
	if rd != nil {
		cmd.Flags().StringVar(rd, "rd", "3000000", "R&D investment")
	}
}

func init() {
	addInputFlags(evaluateCmd, &evalSales, &evalOpex, &evalRD, &evalRegime, &evalTaxRate)
	evaluateCmd.Flags().StringVar(&evalFormat, "format", "text", "output format: text, json or xlsx")
	evaluateCmd.Flags().StringVarP(&evalOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(evaluateCmd)
}
