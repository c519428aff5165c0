package benefit

import (
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// MaxSweepSteps caps the number of intervals a single sweep may evaluate.
const MaxSweepSteps = 1000

// SweepPoint is one evaluation along an R&D spend sweep.
type SweepPoint struct {
	RDSpend decimal.Decimal `json:"rd_spend"`
	Result  Result          `json:"result"`
}

// Sweep evaluates base at steps+1 evenly spaced R&D spend levels from `from`
// to `to` inclusive. All other inputs are held fixed.
func Sweep(base Inputs, from, to decimal.Decimal, steps int) ([]SweepPoint, error) {
	if steps < 1 || steps > MaxSweepSteps {
		return nil, eris.Wrapf(ErrInvalidInput, "steps must be between 1 and %d", MaxSweepSteps)
	}
	if from.IsNegative() || to.IsNegative() {
		return nil, eris.Wrap(ErrInvalidInput, "sweep bounds must be >= 0")
	}
	if to.LessThan(from) {
		return nil, eris.Wrap(ErrInvalidInput, "sweep upper bound must be >= lower bound")
	}

	stride := to.Sub(from).Div(decimal.NewFromInt(int64(steps)))
	points := make([]SweepPoint, 0, steps+1)
	for i := 0; i <= steps; i++ {
		rd := from.Add(stride.Mul(decimal.NewFromInt(int64(i))))
		if i == steps {
			rd = to // avoid drift from a rounded stride
		}

		in := base
		in.RDSpend = rd
		res, err := Evaluate(in)
		if err != nil {
			return nil, eris.Wrapf(err, "benefit: sweep at rd_spend %s", rd)
		}
		points = append(points, SweepPoint{RDSpend: rd, Result: res})
	}
	return points, nil
}
