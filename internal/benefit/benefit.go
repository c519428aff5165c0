// Package benefit computes the tax effect of R&D spending with and without the
// R&D incentive scheme (65% ordinary deduction, 35% direct tax credit).
package benefit

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInvalidInput is returned when inputs fall outside the calculator's domain.
var ErrInvalidInput = eris.New("benefit: invalid input")

var (
	// AcceptedExpenseShare is the portion of R&D spend treated as an ordinary deductible expense.
	AcceptedExpenseShare = decimal.RequireFromString("0.65")
	// CreditShare is the portion of R&D spend granted as a direct tax credit.
	CreditShare = decimal.RequireFromString("0.35")
	// BreakEvenTolerance is how far (in currency units) R&D spend may sit from
	// the optimum and still count as exactly at break-even.
	BreakEvenTolerance = decimal.NewFromInt(1)

	hundred = decimal.NewFromInt(100)
)

// Inputs holds the four values a single evaluation depends on.
type Inputs struct {
	Sales             decimal.Decimal `json:"sales"`
	OperatingExpenses decimal.Decimal `json:"operating_expenses"`
	RDSpend           decimal.Decimal `json:"rd_spend"`
	TaxRate           decimal.Decimal `json:"tax_rate"`
}

// Validate checks non-negativity of amounts and a positive tax rate.
func (in Inputs) Validate() error {
	switch {
	case in.Sales.IsNegative():
		return eris.Wrap(ErrInvalidInput, "sales must be >= 0")
	case in.OperatingExpenses.IsNegative():
		return eris.Wrap(ErrInvalidInput, "operating_expenses must be >= 0")
	case in.RDSpend.IsNegative():
		return eris.Wrap(ErrInvalidInput, "rd_spend must be >= 0")
	case !in.TaxRate.IsPositive():
		return eris.Wrap(ErrInvalidInput, "tax_rate must be > 0")
	}
	return nil
}

// Baseline is the scenario where R&D is deducted as an ordinary expense only.
type Baseline struct {
	TaxableBase decimal.Decimal `json:"taxable_base"`
	TaxDue      decimal.Decimal `json:"tax_due"`
	NetCashFlow decimal.Decimal `json:"net_cash_flow"`
}

// Incentive is the scenario where the R&D incentive scheme applies.
type Incentive struct {
	AcceptedExpense decimal.Decimal `json:"accepted_expense"`
	DirectCredit    decimal.Decimal `json:"direct_credit"`
	TaxableBase     decimal.Decimal `json:"taxable_base"`
	TheoreticalTax  decimal.Decimal `json:"theoretical_tax"`
	CreditApplied   decimal.Decimal `json:"credit_applied"`
	FinalTax        decimal.Decimal `json:"final_tax"`
	UnusedCredit    decimal.Decimal `json:"unused_credit"` // carryforward, reported only
	NetCashFlow     decimal.Decimal `json:"net_cash_flow"`
}

// Comparison holds the metrics contrasting both scenarios.
type Comparison struct {
	NetCashSavings           decimal.Decimal `json:"net_cash_savings"`
	TaxReduction             decimal.Decimal `json:"tax_reduction"`
	LiquidityIncreasePct     decimal.Decimal `json:"liquidity_increase_pct"`
	EffectiveRecoveryRatePct decimal.Decimal `json:"effective_recovery_rate_pct"`
}

// Position places current R&D spend relative to the break-even investment.
type Position string

// Break-even positions.
const (
	PositionBelow Position = "below" // room left to invest tax-free
	PositionAt    Position = "at"
	PositionAbove Position = "above" // accumulating carryforward
)

// Optimization describes the R&D spend at which final tax becomes zero.
type Optimization struct {
	ProfitBeforeRD      decimal.Decimal `json:"profit_before_rd"`
	OptimalRDInvestment decimal.Decimal `json:"optimal_rd_investment"`
	AdditionalCapacity  decimal.Decimal `json:"additional_capacity"`
	Position            Position        `json:"position"`
}

// Result bundles everything a single evaluation produces.
type Result struct {
	Inputs       Inputs       `json:"inputs"`
	Baseline     Baseline     `json:"baseline"`
	Incentive    Incentive    `json:"incentive"`
	Comparison   Comparison   `json:"comparison"`
	Optimization Optimization `json:"optimization"`
}

// Evaluate computes both scenarios, their comparison and the break-even
// investment. It has no side effects; identical inputs give identical results.
func Evaluate(in Inputs) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	baseline := evaluateBaseline(in)
	incentive := evaluateIncentive(in)
	res := Result{
		Inputs:       in,
		Baseline:     baseline,
		Incentive:    incentive,
		Comparison:   compare(in, baseline, incentive),
		Optimization: optimize(in),
	}

	zap.L().Debug("benefit: evaluated",
		zap.Stringer("rd_spend", in.RDSpend),
		zap.Stringer("tax_rate", in.TaxRate),
		zap.Stringer("final_tax", res.Incentive.FinalTax),
		zap.Stringer("net_cash_savings", res.Comparison.NetCashSavings),
		zap.String("position", string(res.Optimization.Position)),
	)

	return res, nil
}

func evaluateBaseline(in Inputs) Baseline {
	base := in.Sales.Sub(in.OperatingExpenses).Sub(in.RDSpend)
	tax := decimal.Max(decimal.Zero, base.Mul(in.TaxRate))
	return Baseline{
		TaxableBase: base,
		TaxDue:      tax,
		NetCashFlow: in.Sales.Sub(in.OperatingExpenses).Sub(in.RDSpend).Sub(tax),
	}
}

func evaluateIncentive(in Inputs) Incentive {
	accepted := in.RDSpend.Mul(AcceptedExpenseShare)
	credit := in.RDSpend.Mul(CreditShare)

	base := in.Sales.Sub(in.OperatingExpenses).Sub(accepted)
	theoretical := decimal.Max(decimal.Zero, base.Mul(in.TaxRate))

	// The credit is non-refundable: whatever theoretical tax cannot absorb is carried forward.
	finalTax := decimal.Max(decimal.Zero, theoretical.Sub(credit))
	unused := decimal.Max(decimal.Zero, credit.Sub(theoretical))

	return Incentive{
		AcceptedExpense: accepted,
		DirectCredit:    credit,
		TaxableBase:     base,
		TheoreticalTax:  theoretical,
		CreditApplied:   decimal.Min(credit, theoretical),
		FinalTax:        finalTax,
		UnusedCredit:    unused,
		NetCashFlow:     in.Sales.Sub(in.OperatingExpenses).Sub(in.RDSpend).Sub(finalTax),
	}
}

func compare(in Inputs, b Baseline, i Incentive) Comparison {
	savings := i.NetCashFlow.Sub(b.NetCashFlow)

	liquidity := decimal.Zero
	if b.NetCashFlow.IsPositive() {
		liquidity = savings.Div(b.NetCashFlow).Mul(hundred)
	}

	recovery := decimal.Zero
	if in.RDSpend.IsPositive() {
		recovery = savings.Div(in.RDSpend).Mul(hundred)
	}

	return Comparison{
		NetCashSavings:           savings,
		TaxReduction:             b.TaxDue.Sub(i.FinalTax),
		LiquidityIncreasePct:     liquidity,
		EffectiveRecoveryRatePct: recovery,
	}
}

// optimize solves (profit - 0.65x) * rate = 0.35x for x, the spend at which
// the credit exactly absorbs the theoretical tax.
func optimize(in Inputs) Optimization {
	profit := decimal.Max(decimal.Zero, in.Sales.Sub(in.OperatingExpenses))
	optimal := BreakEven(profit, in.TaxRate)

	opt := Optimization{
		ProfitBeforeRD:      profit,
		OptimalRDInvestment: optimal,
		AdditionalCapacity:  decimal.Zero,
	}

	switch {
	case in.RDSpend.Sub(optimal).Abs().LessThanOrEqual(BreakEvenTolerance):
		opt.Position = PositionAt
	case in.RDSpend.GreaterThan(optimal):
		opt.Position = PositionAbove
	default:
		opt.Position = PositionBelow
		opt.AdditionalCapacity = optimal.Sub(in.RDSpend)
	}
	return opt
}

// BreakEven returns the R&D investment at which the incentive scenario owes
// no tax, for a given profit before R&D and tax rate.
func BreakEven(profitBeforeRD, taxRate decimal.Decimal) decimal.Decimal {
	denom := CreditShare.Add(AcceptedExpenseShare.Mul(taxRate))
	if denom.IsZero() {
		return decimal.Zero
	}
	return profitBeforeRD.Mul(taxRate).Div(denom)
}
