package testutil

import (
	"fmt"
	"math"

	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

// Loop is a term whose inputs can be rewired after construction, which real
// terms never allow. It exists to build cyclic graphs.
type Loop struct {
	name   string
	inputs []term.Term
}

// NewLoop creates a Loop with no inputs.
func NewLoop(name string) *Loop {
	return &Loop{name: name}
}

// SetInputs replaces l's inputs.
func (l *Loop) SetInputs(inputs ...term.Term) { l.inputs = inputs }

func (l *Loop) ID() string          { return "loop-" + l.name }
func (l *Loop) Kind() string        { return "Loop" }
func (l *Loop) Inputs() []term.Term { return l.inputs }
func (l *Loop) WindowLength() int   { return 0 }
func (l *Loop) DType() panel.DType  { return panel.Bool }
func (l *Loop) String() string      { return l.name }

func (l *Loop) ComputeFromArrays([]panel.Array, *panel.BoolArray) (panel.Array, error) {
	return nil, fmt.Errorf("loop %s cannot be computed", l.name)
}

// RollingSum sums its single float input over a trailing window. Rows
// without a full window are NaN. It gives graph and engine tests a term with
// a real lookback.
type RollingSum struct {
	term.Base
}

// NewRollingSum creates a rolling sum over input with the given window.
func NewRollingSum(input term.Term, window int) (*RollingSum, error) {
	if window < 1 {
		return nil, fmt.Errorf("rolling sum window must be positive, got %d", window)
	}
	b, err := term.NewBase("RollingSum", []term.Term{input}, window, panel.Float64)
	if err != nil {
		return nil, err
	}
	return &RollingSum{Base: b}, nil
}

func (r *RollingSum) ComputeFromArrays(arrays []panel.Array, mask *panel.BoolArray) (panel.Array, error) {
	if len(arrays) != 1 {
		return nil, term.NewShapeMismatch(r, fmt.Errorf("expected 1 input array, got %d", len(arrays)))
	}
	in, err := panel.AsFloat64(arrays[0])
	if err != nil {
		return nil, term.NewShapeMismatch(r, err)
	}
	if err := panel.SameShape(mask.Shape(), in); err != nil {
		return nil, term.NewShapeMismatch(r, err)
	}

	shape := in.Shape()
	window := r.WindowLength()
	out := make([]float64, shape.Len())
	for row := 0; row < shape.Rows; row++ {
		for col := 0; col < shape.Cols; col++ {
			idx := row*shape.Cols + col
			if row < window-1 || !mask.Values[idx] {
				out[idx] = math.NaN()
				continue
			}
			sum := 0.0
			for k := row - window + 1; k <= row; k++ {
				sum += in.At(k, col)
			}
			out[idx] = sum
		}
	}
	return panel.NewFloat64(shape.Rows, shape.Cols, out)
}
