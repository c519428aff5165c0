package benefit

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func inputs(sales, opex, rd, rate string) Inputs {
	return Inputs{
		Sales:             d(sales),
		OperatingExpenses: d(opex),
		RDSpend:           d(rd),
		TaxRate:           d(rate),
	}
}

func TestEvaluate_ReferenceScenario(t *testing.T) {
	t.Parallel()

	res, err := Evaluate(inputs("20000000", "7000000", "3000000", "0.25"))
	require.NoError(t, err)

	assertDec(t, "10000000", res.Baseline.TaxableBase, "baseline taxable base")
	assertDec(t, "2500000", res.Baseline.TaxDue, "baseline tax due")
	assertDec(t, "7500000", res.Baseline.NetCashFlow, "baseline net cash flow")

	assertDec(t, "1950000", res.Incentive.AcceptedExpense, "accepted expense")
	assertDec(t, "1050000", res.Incentive.DirectCredit, "direct credit")
	assertDec(t, "11050000", res.Incentive.TaxableBase, "incentive taxable base")
	assertDec(t, "2762500", res.Incentive.TheoreticalTax, "theoretical tax")
	assertDec(t, "1050000", res.Incentive.CreditApplied, "credit applied")
	assertDec(t, "1712500", res.Incentive.FinalTax, "final tax")
	assertDec(t, "0", res.Incentive.UnusedCredit, "unused credit")
	assertDec(t, "8287500", res.Incentive.NetCashFlow, "incentive net cash flow")

	assertDec(t, "787500", res.Comparison.NetCashSavings, "net cash savings")
	assertDec(t, "787500", res.Comparison.TaxReduction, "tax reduction")
	assertDec(t, "10.5", res.Comparison.LiquidityIncreasePct, "liquidity increase")
	assertDec(t, "26.25", res.Comparison.EffectiveRecoveryRatePct, "recovery rate")

	assertDec(t, "13000000", res.Optimization.ProfitBeforeRD, "profit before rd")
	assert.Equal(t, "6341463", res.Optimization.OptimalRDInvestment.Round(0).String())
	assert.Equal(t, PositionBelow, res.Optimization.Position)
	assert.Equal(t, "3341463", res.Optimization.AdditionalCapacity.Round(0).String())
}

func TestEvaluate_Carryforward(t *testing.T) {
	t.Parallel()

	res, err := Evaluate(inputs("20000000", "7000000", "10000000", "0.25"))
	require.NoError(t, err)

	assertDec(t, "750000", res.Baseline.TaxDue, "baseline tax due")
	assertDec(t, "2250000", res.Baseline.NetCashFlow, "baseline net cash flow")
	assertDec(t, "1625000", res.Incentive.TheoreticalTax, "theoretical tax")
	assertDec(t, "1625000", res.Incentive.CreditApplied, "credit applied")
	assertDec(t, "0", res.Incentive.FinalTax, "final tax")
	assertDec(t, "1875000", res.Incentive.UnusedCredit, "unused credit")
	assertDec(t, "3000000", res.Incentive.NetCashFlow, "incentive net cash flow")
	assertDec(t, "750000", res.Comparison.NetCashSavings, "net cash savings")

	assert.Equal(t, PositionAbove, res.Optimization.Position)
	assert.True(t, res.Optimization.AdditionalCapacity.IsZero())
}

func TestEvaluate_AtBreakEven(t *testing.T) {
	t.Parallel()

	optimal := BreakEven(d("13000000"), d("0.25"))

	t.Run("exact optimum owes no tax", func(t *testing.T) {
		t.Parallel()
		in := inputs("20000000", "7000000", "0", "0.25")
		in.RDSpend = optimal
		res, err := Evaluate(in)
		require.NoError(t, err)

		assert.True(t, res.Incentive.FinalTax.LessThan(d("0.000001")), "final tax %s", res.Incentive.FinalTax)
		assert.True(t, res.Incentive.UnusedCredit.LessThan(d("0.000001")), "unused credit %s", res.Incentive.UnusedCredit)
		assert.Equal(t, PositionAt, res.Optimization.Position)
	})

	t.Run("rounded optimum is within tolerance", func(t *testing.T) {
		t.Parallel()
		res, err := Evaluate(inputs("20000000", "7000000", "6341463", "0.25"))
		require.NoError(t, err)
		assert.Equal(t, PositionAt, res.Optimization.Position)
		assert.True(t, res.Optimization.AdditionalCapacity.IsZero())
	})

	t.Run("just past tolerance", func(t *testing.T) {
		t.Parallel()
		res, err := Evaluate(inputs("20000000", "7000000", "6341465", "0.25"))
		require.NoError(t, err)
		assert.Equal(t, PositionAbove, res.Optimization.Position)
	})
}

func TestEvaluate_ZeroRDCollapsesScenarios(t *testing.T) {
	t.Parallel()

	res, err := Evaluate(inputs("20000000", "7000000", "0", "0.27"))
	require.NoError(t, err)

	assert.True(t, res.Baseline.TaxableBase.Equal(res.Incentive.TaxableBase))
	assert.True(t, res.Baseline.TaxDue.Equal(res.Incentive.FinalTax))
	assert.True(t, res.Baseline.NetCashFlow.Equal(res.Incentive.NetCashFlow))
	assert.True(t, res.Incentive.DirectCredit.IsZero())
	assert.True(t, res.Comparison.NetCashSavings.IsZero())
	assert.True(t, res.Comparison.EffectiveRecoveryRatePct.IsZero())
	assert.Equal(t, PositionBelow, res.Optimization.Position)
	assert.True(t, res.Optimization.AdditionalCapacity.Equal(res.Optimization.OptimalRDInvestment))
}

func TestEvaluate_LossMaking(t *testing.T) {
	t.Parallel()

	res, err := Evaluate(inputs("5000000", "7000000", "1000000", "0.25"))
	require.NoError(t, err)

	assertDec(t, "-3000000", res.Baseline.TaxableBase, "baseline taxable base")
	assertDec(t, "0", res.Baseline.TaxDue, "baseline tax due")
	assertDec(t, "-3000000", res.Baseline.NetCashFlow, "baseline net cash flow")
	assertDec(t, "0", res.Incentive.FinalTax, "final tax")
	assertDec(t, "350000", res.Incentive.UnusedCredit, "unused credit")
	assertDec(t, "0", res.Incentive.CreditApplied, "credit applied")

	// Negative baseline flow keeps the liquidity metric at zero.
	assert.True(t, res.Comparison.LiquidityIncreasePct.IsZero())
	assertDec(t, "0", res.Optimization.ProfitBeforeRD, "profit before rd")
	assertDec(t, "0", res.Optimization.OptimalRDInvestment, "optimal investment")
	assert.Equal(t, PositionAbove, res.Optimization.Position)
}

func TestEvaluate_NothingAtAll(t *testing.T) {
	t.Parallel()

	res, err := Evaluate(inputs("0", "0", "0", "0.125"))
	require.NoError(t, err)
	assert.Equal(t, PositionAt, res.Optimization.Position)
	assert.True(t, res.Comparison.LiquidityIncreasePct.IsZero())
	assert.True(t, res.Comparison.EffectiveRecoveryRatePct.IsZero())
}

func TestEvaluate_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    Inputs
		field string
	}{
		{"negative sales", inputs("-1", "0", "0", "0.25"), "sales"},
		{"negative opex", inputs("10", "-1", "0", "0.25"), "operating_expenses"},
		{"negative rd", inputs("10", "0", "-5", "0.25"), "rd_spend"},
		{"zero rate", inputs("10", "0", "0", "0"), "tax_rate"},
		{"negative rate", inputs("10", "0", "0", "-0.1"), "tax_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Evaluate(tt.in)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestEvaluate_Invariants(t *testing.T) {
	t.Parallel()

	sales := []string{"0", "1000000", "20000000", "150000000"}
	opex := []string{"0", "7000000", "30000000"}
	rd := []string{"0", "1", "500000", "3000000", "6341463", "25000000"}
	rates := []string{"0.125", "0.25", "0.27", "0.4"}

	for _, s := range sales {
		for _, o := range opex {
			for _, r := range rd {
				for _, rate := range rates {
					res, err := Evaluate(inputs(s, o, r, rate))
					require.NoError(t, err)

					inc := res.Incentive
					assert.False(t, inc.FinalTax.IsNegative())
					assert.False(t, inc.UnusedCredit.IsNegative())
					assert.Equal(t, inc.UnusedCredit.IsPositive(), inc.TheoreticalTax.LessThan(inc.DirectCredit),
						"carryforward iff theoretical < credit (sales=%s opex=%s rd=%s rate=%s)", s, o, r, rate)

					opt := res.Optimization
					hasCapacity := opt.AdditionalCapacity.IsPositive()
					atOrPast := opt.Position == PositionAt || opt.Position == PositionAbove
					assert.NotEqual(t, hasCapacity, atOrPast,
						"exactly one of capacity/at-or-past (sales=%s opex=%s rd=%s rate=%s)", s, o, r, rate)
				}
			}
		}
	}
}

func TestEvaluate_Monotonicity(t *testing.T) {
	t.Parallel()

	delta := d("100000")
	prev, err := Evaluate(inputs("20000000", "7000000", "0", "0.25"))
	require.NoError(t, err)

	for i := 1; i <= 20; i++ {
		in := prev.Inputs
		in.RDSpend = in.RDSpend.Add(delta)
		cur, err := Evaluate(in)
		require.NoError(t, err)

		drop := prev.Baseline.NetCashFlow.Sub(cur.Baseline.NetCashFlow)
		assert.True(t, drop.IsPositive(), "baseline flow must strictly decrease")
		assert.True(t, drop.LessThanOrEqual(delta), "baseline flow drops by at most delta")

		incDrop := prev.Incentive.NetCashFlow.Sub(cur.Incentive.NetCashFlow)
		assert.True(t, incDrop.LessThanOrEqual(drop), "incentive flow drops no more than baseline")
		assert.False(t, cur.Comparison.NetCashSavings.IsNegative())

		prev = cur
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	t.Parallel()

	in := inputs("20000000", "7000000", "3000000", "0.27")
	first, err := Evaluate(in)
	require.NoError(t, err)
	second, err := Evaluate(in)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBreakEven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		profit string
		rate   string
		want   string
	}{
		{"pro-pyme general", "13000000", "0.25", "6341463"},
		{"general regime", "13000000", "0.27", "6679353"},
		{"transitorio", "13000000", "0.125", "3768116"},
		{"no profit", "0", "0.25", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := BreakEven(d(tt.profit), d(tt.rate))
			assert.Equal(t, tt.want, got.Round(0).String())
		})
	}
}
