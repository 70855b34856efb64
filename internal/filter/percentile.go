package filter

import (
	"fmt"
	"math"
	"slices"

	"github.com/roach88/sieve/internal/ir"
	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

// PercentileFilter keeps, in each row, the entities whose factor value lies
// between the row's minPercentile and maxPercentile values, inclusive.
//
// Masked-out entities are removed before the percentiles are computed, so
// they never shift the bounds. Rows with no valid entity pass nothing; a row
// with one valid entity passes exactly that entity.
type PercentileFilter struct {
	Base
	min float64
	max float64
}

// NewPercentileFilter returns the interned percentile filter over factor.
// factor must have a numeric dtype, and 0 <= min < max <= 100.
func NewPercentileFilter(factor term.Term, min, max float64) (*PercentileFilter, error) {
	if factor == nil || !factor.DType().IsNumeric() {
		return nil, term.NewExpectedFactor(factor)
	}
	if !(0 <= min && min < max && max <= 100) {
		return nil, term.NewBadPercentileBounds(min, max)
	}
	b, err := NewBase("PercentileFilter", []term.Term{factor}, 0, ir.Float(min), ir.Float(max))
	if err != nil {
		return nil, err
	}
	return term.Intern(&PercentileFilter{Base: b, min: min, max: max}), nil
}

// MinPercentile returns the lower bound.
func (f *PercentileFilter) MinPercentile() float64 { return f.min }

// MaxPercentile returns the upper bound.
func (f *PercentileFilter) MaxPercentile() float64 { return f.max }

func (f *PercentileFilter) ComputeFromArrays(arrays []panel.Array, mask *panel.BoolArray) (panel.Array, error) {
	if len(arrays) != 1 {
		return nil, term.NewShapeMismatch(f, fmt.Errorf("expected 1 input array, got %d", len(arrays)))
	}
	if err := checkMask(f, mask); err != nil {
		return nil, err
	}
	data, err := panel.AsFloat64(arrays[0])
	if err != nil {
		return nil, term.NewShapeMismatch(f, err)
	}
	if err := data.FillMasked(mask); err != nil {
		return nil, term.NewShapeMismatch(f, err)
	}

	shape := data.Shape()
	out := make([]bool, shape.Len())
	valid := make([]float64, 0, shape.Cols)
	for r := 0; r < shape.Rows; r++ {
		row := data.Row(r)

		valid = valid[:0]
		for _, v := range row {
			if !math.IsNaN(v) {
				valid = append(valid, v)
			}
		}
		slices.Sort(valid)
		lower := percentile(valid, f.min)
		upper := percentile(valid, f.max)

		for c, v := range row {
			out[r*shape.Cols+c] = lower <= v && v <= upper
		}
	}
	return panel.NewBool(shape.Rows, shape.Cols, out)
}

// percentile returns the p-th percentile of sorted by linear interpolation
// between closest ranks, at rank p/100*(n-1). It is NaN when sorted is empty.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	// Weighted form: an infinite neighbour yields that infinity, not NaN.
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
