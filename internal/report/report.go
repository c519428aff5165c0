// Package report turns a benefit evaluation into comparative financial
// statements and renders them as text, JSON or XLSX.
package report

import (
	"github.com/shopspring/decimal"

	"github.com/sells-group/rd-benefit/internal/benefit"
	"github.com/sells-group/rd-benefit/internal/regime"
)

// Column headers shared by every renderer.
const (
	ColumnConcept   = "Concept"
	ColumnBaseline  = "Without benefit"
	ColumnIncentive = "With benefit"
)

// Line is one row of a comparative statement.
type Line struct {
	Concept   string          `json:"concept"`
	Baseline  decimal.Decimal `json:"baseline"`
	Incentive decimal.Decimal `json:"incentive"`
}

// Statement is a titled list of comparative lines.
type Statement struct {
	Title string `json:"title"`
	Lines []Line `json:"lines"`
}

// Report is the full presentation of one evaluation.
type Report struct {
	Regime       regime.Regime  `json:"regime"`
	Result       benefit.Result `json:"result"`
	Income       Statement      `json:"income_statement"`
	CashFlow     Statement      `json:"cash_flow"`
	Guidance     string         `json:"guidance"`
	Carryforward string         `json:"carryforward,omitempty"`
}

// Build assembles a Report. The formatter is only used for the prose callouts.
func Build(r regime.Regime, res benefit.Result, f *Formatter) Report {
	return Report{
		Regime:       r,
		Result:       res,
		Income:       IncomeStatement(res),
		CashFlow:     CashFlowStatement(res),
		Guidance:     Guidance(res, f),
		Carryforward: CarryforwardNote(res, f),
	}
}

// IncomeStatement lays out both scenarios as an income statement. Expenses
// and taxes are negative, the applied credit is positive.
func IncomeStatement(res benefit.Result) Statement {
	in, b, i := res.Inputs, res.Baseline, res.Incentive
	return Statement{
		Title: "Income Statement",
		Lines: []Line{
			{"Sales", in.Sales, in.Sales},
			{"Operating expenses", in.OperatingExpenses.Neg(), in.OperatingExpenses.Neg()},
			{"Deductible R&D expense", in.RDSpend.Neg(), i.AcceptedExpense.Neg()},
			{"Taxable base", b.TaxableBase, i.TaxableBase},
			{"Tax determined", b.TaxDue.Neg(), i.TheoreticalTax.Neg()},
			{"R&D credit applied", decimal.Zero, i.CreditApplied},
			{"Net income", b.TaxableBase.Sub(b.TaxDue), i.TaxableBase.Sub(i.FinalTax)},
		},
	}
}

// CashFlowStatement lays out both scenarios as a cash-flow statement. The
// full R&D outlay leaves the company in both columns.
func CashFlowStatement(res benefit.Result) Statement {
	in, b, i := res.Inputs, res.Baseline, res.Incentive
	return Statement{
		Title: "Cash Flow",
		Lines: []Line{
			{"Sales receipts", in.Sales, in.Sales},
			{"Operating outlays", in.OperatingExpenses.Neg(), in.OperatingExpenses.Neg()},
			{"Actual R&D outlay", in.RDSpend.Neg(), in.RDSpend.Neg()},
			{"Tax payment", b.TaxDue.Neg(), i.FinalTax.Neg()},
			{"Net cash flow", b.NetCashFlow, i.NetCashFlow},
		},
	}
}

// Guidance describes where current R&D spend sits against break-even.
func Guidance(res benefit.Result, f *Formatter) string {
	opt := res.Optimization
	switch opt.Position {
	case benefit.PositionAt:
		return "Your R&D investment sits at the tax break-even point, maximizing this year's benefit."
	case benefit.PositionAbove:
		return "Your R&D investment exceeds the tax break-even point. You are accumulating credit for future periods."
	default:
		return "You could invest up to " + f.Money(opt.AdditionalCapacity) +
			" more in R&D this year without paying any tax."
	}
}

// CarryforwardNote returns a note about unused credit, or "" when all credit was used.
func CarryforwardNote(res benefit.Result, f *Formatter) string {
	if !res.Incentive.UnusedCredit.IsPositive() {
		return ""
	}
	return "Unused credit of " + f.Money(res.Incentive.UnusedCredit) +
		" could not be applied this year and remains available for future periods."
}
