package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

const moneyFormat = "#,##0"

// WriteText renders the report as aligned plain-text tables with callouts.
func (r Report) WriteText(out io.Writer, f *Formatter) error {
	cmp := r.Result.Comparison
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "R&D TAX BENEFIT (%s)\n\n", r.Regime.Name)
	_, _ = fmt.Fprintf(w, "Net cash savings:\t%s\n", f.Money(cmp.NetCashSavings))
	_, _ = fmt.Fprintf(w, "Liquidity increase:\t%s\n", f.Percent(cmp.LiquidityIncreasePct, 2))
	_, _ = fmt.Fprintf(w, "Investment recovery:\t%s\n", f.Percent(cmp.EffectiveRecoveryRatePct, 1))
	_, _ = fmt.Fprintf(w, "Final tax:\t%s\t(-%s)\n", f.Money(r.Result.Incentive.FinalTax), f.Money(cmp.TaxReduction))
	if r.Carryforward != "" {
		_, _ = fmt.Fprintf(w, "\nNote: %s\n", r.Carryforward)
	}

	_, _ = fmt.Fprintf(w, "\nTAX OPTIMIZATION\n")
	_, _ = fmt.Fprintf(w, "Break-even R&D investment:\t%s\n", f.Money(r.Result.Optimization.OptimalRDInvestment))
	_, _ = fmt.Fprintf(w, "%s\n", r.Guidance)

	for _, st := range []Statement{r.Income, r.CashFlow} {
		_, _ = fmt.Fprintf(w, "\n%s\n", st.Title)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", ColumnConcept, ColumnBaseline, ColumnIncentive)
		for _, l := range st.Lines {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", l.Concept, f.Money(l.Baseline), f.Money(l.Incentive))
		}
	}

	return eris.Wrap(w.Flush(), "report: flush text")
}

// WriteJSON renders the report as indented JSON with exact decimal strings.
func (r Report) WriteJSON(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "report: encode json")
	}
	return nil
}

// SaveXLSX writes a workbook with Summary, Income Statement and Cash Flow sheets.
func (r Report) SaveXLSX(path string) error {
	file := xlsx.NewFile()

	summary, err := file.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	res := r.Result
	addLabelRow(summary, "Regime", r.Regime.Name)
	addNumberRow(summary, "Tax rate", res.Inputs.TaxRate.InexactFloat64(), "0.0%")
	addNumberRow(summary, "Sales", res.Inputs.Sales.InexactFloat64(), moneyFormat)
	addNumberRow(summary, "Operating expenses", res.Inputs.OperatingExpenses.InexactFloat64(), moneyFormat)
	addNumberRow(summary, "R&D investment", res.Inputs.RDSpend.InexactFloat64(), moneyFormat)
	addNumberRow(summary, "Net cash savings", res.Comparison.NetCashSavings.InexactFloat64(), moneyFormat)
	addNumberRow(summary, "Liquidity increase %", res.Comparison.LiquidityIncreasePct.Round(2).InexactFloat64(), "0.00")
	addNumberRow(summary, "Investment recovery %", res.Comparison.EffectiveRecoveryRatePct.Round(1).InexactFloat64(), "0.0")
	addNumberRow(summary, "Final tax", res.Incentive.FinalTax.InexactFloat64(), moneyFormat)
	addNumberRow(summary, "Unused credit", res.Incentive.UnusedCredit.InexactFloat64(), moneyFormat)
	addNumberRow(summary, "Break-even R&D investment", res.Optimization.OptimalRDInvestment.Round(0).InexactFloat64(), moneyFormat)
	addLabelRow(summary, "Guidance", r.Guidance)

	for _, st := range []Statement{r.Income, r.CashFlow} {
		sheet, err := file.AddSheet(st.Title)
		if err != nil {
			return eris.Wrapf(err, "report: add sheet %s", st.Title)
		}
		header := sheet.AddRow()
		for _, h := range []string{ColumnConcept, ColumnBaseline, ColumnIncentive} {
			header.AddCell().SetString(h)
		}
		for _, l := range st.Lines {
			row := sheet.AddRow()
			row.AddCell().SetString(l.Concept)
			row.AddCell().SetFloatWithFormat(l.Baseline.Round(0).InexactFloat64(), moneyFormat)
			row.AddCell().SetFloatWithFormat(l.Incentive.Round(0).InexactFloat64(), moneyFormat)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: save xlsx %s", path)
	}
	return nil
}

func addLabelRow(sheet *xlsx.Sheet, label, value string) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetString(value)
}

func addNumberRow(sheet *xlsx.Sheet, label string, value float64, format string) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetFloatWithFormat(value, format)
}
