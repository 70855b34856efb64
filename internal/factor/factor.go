// Package factor implements numeric terms: loaded columns and expressions
// built from them with arithmetic and comparison operators.
//
// Arithmetic between factors yields a NumExprFactor. Comparisons yield a
// filter.NumExprFilter, which is how numeric data enters the filter algebra.
package factor

import (
	"fmt"

	"github.com/roach88/sieve/internal/filter"
	"github.com/roach88/sieve/internal/numexpr"
	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

// Factor is a term with numeric output.
type Factor interface {
	term.Term
	isFactor()
}

// Base is embedded by every factor.
type Base struct {
	term.Base
}

func (*Base) isFactor() {}

// NewBase builds the shared state of a numeric term.
func NewBase(kind string, inputs []term.Term, window int, dtype panel.DType, params ...any) (Base, error) {
	if !dtype.IsNumeric() {
		return Base{}, fmt.Errorf("%s: factor dtype must be numeric, got %q", kind, dtype)
	}
	b, err := term.NewBase(kind, inputs, window, dtype, params...)
	if err != nil {
		return Base{}, err
	}
	return Base{Base: b}, nil
}

// Column is a numeric leaf loaded by name.
type Column struct {
	Base
	name string
}

// NewColumn returns the interned column called name with the given dtype.
func NewColumn(name string, dtype panel.DType) (*Column, error) {
	b, err := NewBase("Column", nil, 0, dtype, name, string(dtype))
	if err != nil {
		return nil, err
	}
	return term.Intern(&Column{Base: b, name: name}), nil
}

// ColumnName returns the loader column backing c.
func (c *Column) ColumnName() string { return c.name }

func (c *Column) ComputeFromArrays([]panel.Array, *panel.BoolArray) (panel.Array, error) {
	return nil, term.NewNotComputable(c)
}

// NumExprFactor is a float64 factor computed from an expression.
type NumExprFactor struct {
	Base
	expr numexpr.Expression
}

// NewNumExprFactor returns the interned factor evaluating text over binds.
func NewNumExprFactor(text string, binds []term.Term) (*NumExprFactor, error) {
	e, err := numexpr.NewExpression(text, binds)
	if err != nil {
		return nil, err
	}
	b, err := NewBase("NumExprFactor", binds, 0, panel.Float64, text)
	if err != nil {
		return nil, err
	}
	return term.Intern(&NumExprFactor{Base: b, expr: e}), nil
}

// Expression returns the bound expression.
func (f *NumExprFactor) Expression() numexpr.Expression { return f.expr }

// ComputeFromArrays evaluates the expression; masked-out entities are NaN.
func (f *NumExprFactor) ComputeFromArrays(arrays []panel.Array, mask *panel.BoolArray) (panel.Array, error) {
	raw, err := numexpr.Evaluate(f.expr.Text(), arrays, panel.Float64)
	if err != nil {
		return nil, err
	}
	out := raw.(*panel.Float64Array)
	if err := out.FillMasked(mask); err != nil {
		return nil, term.NewShapeMismatch(f, err)
	}
	return out, nil
}

// Percentile returns a filter keeping entities between f's min and max
// percentiles in each row.
func Percentile(f Factor, min, max float64) (*filter.PercentileFilter, error) {
	return filter.NewPercentileFilter(f, min, max)
}
