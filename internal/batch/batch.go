// Package batch evaluates many benefit scenarios read from CSV.
package batch

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync/atomic"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rd-benefit/internal/benefit"
	"github.com/sells-group/rd-benefit/internal/regime"
)

// Scenario is one input row. Either Regime or TaxRate may be set; TaxRate wins.
// Amounts stay as raw cell text so a malformed cell fails only its own row.
type Scenario struct {
	Name              string `csv:"name"`
	Sales             string `csv:"sales"`
	OperatingExpenses string `csv:"operating_expenses"`
	RDSpend           string `csv:"rd_spend"`
	Regime            string `csv:"regime,omitempty"`
	TaxRate           string `csv:"tax_rate,omitempty"`
}

// Inputs parses the amount cells. Empty cells are rejected.
func (sc Scenario) Inputs() (benefit.Inputs, error) {
	var in benefit.Inputs
	for _, a := range []struct {
		column string
		raw    string
		dst    *decimal.Decimal
	}{
		{"sales", sc.Sales, &in.Sales},
		{"operating_expenses", sc.OperatingExpenses, &in.OperatingExpenses},
		{"rd_spend", sc.RDSpend, &in.RDSpend},
	} {
		raw := strings.TrimSpace(a.raw)
		if raw == "" {
			return benefit.Inputs{}, eris.Errorf("batch: %s is required", a.column)
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return benefit.Inputs{}, eris.Wrapf(err, "batch: parse %s %q", a.column, raw)
		}
		*a.dst = v
	}
	return in, nil
}

// Outcome is one output row. Error is set when the scenario could not be evaluated.
type Outcome struct {
	Name                     string          `csv:"name"`
	Regime                   string          `csv:"regime"`
	TaxRate                  decimal.Decimal `csv:"tax_rate"`
	BaselineTax              decimal.Decimal `csv:"baseline_tax"`
	FinalTax                 decimal.Decimal `csv:"final_tax"`
	UnusedCredit             decimal.Decimal `csv:"unused_credit"`
	NetCashSavings           decimal.Decimal `csv:"net_cash_savings"`
	LiquidityIncreasePct     decimal.Decimal `csv:"liquidity_increase_pct"`
	EffectiveRecoveryRatePct decimal.Decimal `csv:"effective_recovery_rate_pct"`
	OptimalRDInvestment      decimal.Decimal `csv:"optimal_rd_investment"`
	AdditionalCapacity       decimal.Decimal `csv:"additional_capacity"`
	Position                 string          `csv:"position"`
	Error                    string          `csv:"error"`
}

// ParseCSV decodes scenarios from CSV with a header row.
func ParseCSV(r io.Reader) ([]Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "batch: read csv")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, eris.New("batch: csv is empty")
	}

	var scenarios []Scenario
	if err := csvutil.Unmarshal(data, &scenarios); err != nil {
		return nil, eris.Wrap(err, "batch: decode csv")
	}
	if len(scenarios) == 0 {
		return nil, eris.New("batch: csv has no data rows")
	}
	return scenarios, nil
}

// WriteCSV encodes outcomes with a header row, rounding amounts to cents.
func WriteCSV(w io.Writer, outcomes []Outcome) error {
	rounded := make([]Outcome, len(outcomes))
	for i, o := range outcomes {
		o.BaselineTax = o.BaselineTax.Round(2)
		o.FinalTax = o.FinalTax.Round(2)
		o.UnusedCredit = o.UnusedCredit.Round(2)
		o.NetCashSavings = o.NetCashSavings.Round(2)
		o.LiquidityIncreasePct = o.LiquidityIncreasePct.Round(2)
		o.EffectiveRecoveryRatePct = o.EffectiveRecoveryRatePct.Round(2)
		o.OptimalRDInvestment = o.OptimalRDInvestment.Round(2)
		o.AdditionalCapacity = o.AdditionalCapacity.Round(2)
		rounded[i] = o
	}

	data, err := csvutil.Marshal(rounded)
	if err != nil {
		return eris.Wrap(err, "batch: encode csv")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "batch: write csv")
	}
	return nil
}

// Runner evaluates scenarios concurrently.
type Runner struct {
	catalog       *regime.Catalog
	defaultRegime string
	concurrency   int
}

// NewRunner creates a Runner. Concurrency below 1 is treated as 1.
func NewRunner(catalog *regime.Catalog, defaultRegime string, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{catalog: catalog, defaultRegime: defaultRegime, concurrency: concurrency}
}

// Run evaluates every scenario and returns outcomes in input order. A failing
// scenario produces an Outcome with Error set and does not stop the batch.
// Scenarios not yet started when ctx is cancelled are reported as cancelled.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) []Outcome {
	outcomes := make([]Outcome, len(scenarios))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	var failed atomic.Int64
	for i, sc := range scenarios {
		name := strings.TrimSpace(sc.Name)
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				outcomes[i] = Outcome{Name: name, Error: "cancelled"}
				failed.Add(1)
				return nil
			}

			out, err := r.evaluate(sc)
			if err != nil {
				failed.Add(1)
				zap.L().Warn("batch: scenario failed",
					zap.Int("row", i+1),
					zap.String("name", name),
					zap.Error(err),
				)
				out = Outcome{Name: name, Regime: strings.TrimSpace(sc.Regime), Error: err.Error()}
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch: complete",
		zap.Int("total", len(scenarios)),
		zap.Int64("failed", failed.Load()),
	)
	return outcomes
}

func (r *Runner) evaluate(sc Scenario) (Outcome, error) {
	in, err := sc.Inputs()
	if err != nil {
		return Outcome{}, err
	}

	reg, err := r.catalog.Resolve(sc.Regime, sc.TaxRate, r.defaultRegime)
	if err != nil {
		return Outcome{}, err
	}
	in.TaxRate = reg.Rate

	res, err := benefit.Evaluate(in)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Name:                     strings.TrimSpace(sc.Name),
		Regime:                   reg.Key,
		TaxRate:                  reg.Rate,
		BaselineTax:              res.Baseline.TaxDue,
		FinalTax:                 res.Incentive.FinalTax,
		UnusedCredit:             res.Incentive.UnusedCredit,
		NetCashSavings:           res.Comparison.NetCashSavings,
		LiquidityIncreasePct:     res.Comparison.LiquidityIncreasePct,
		EffectiveRecoveryRatePct: res.Comparison.EffectiveRecoveryRatePct,
		OptimalRDInvestment:      res.Optimization.OptimalRDInvestment,
		AdditionalCapacity:       res.Optimization.AdditionalCapacity,
		Position:                 string(res.Optimization.Position),
	}, nil
}
