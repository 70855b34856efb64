package filter

import (
	"github.com/roach88/sieve/internal/numexpr"
	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

// NumExprFilter is a filter computed from an expression over its inputs.
type NumExprFilter struct {
	Base
	expr numexpr.Expression
}

// NewNumExprFilter returns the interned filter evaluating text over binds.
// Identity is (binds, text), so equal constructions share one node.
func NewNumExprFilter(text string, binds []term.Term) (*NumExprFilter, error) {
	e, err := numexpr.NewExpression(text, binds)
	if err != nil {
		return nil, err
	}
	b, err := NewBase("NumExprFilter", binds, 0, text)
	if err != nil {
		return nil, err
	}
	return term.Intern(&NumExprFilter{Base: b, expr: e}), nil
}

// Expression returns the bound expression.
func (f *NumExprFilter) Expression() numexpr.Expression { return f.expr }

// ComputeFromArrays evaluates the expression and ANDs the result with mask.
// Masked-out entities never pass, whatever the raw expression says.
func (f *NumExprFilter) ComputeFromArrays(arrays []panel.Array, mask *panel.BoolArray) (panel.Array, error) {
	if err := checkMask(f, mask); err != nil {
		return nil, err
	}
	raw, err := numexpr.Evaluate(f.expr.Text(), arrays, panel.Bool)
	if err != nil {
		return nil, err
	}
	out, err := raw.(*panel.BoolArray).And(mask)
	if err != nil {
		return nil, term.NewShapeMismatch(f, err)
	}
	return out, nil
}
