// Package filter implements boolean-valued terms and their algebra.
//
// Filters combine with & and | into NumExprFilters whose inputs are the
// flattened, deduplicated upstream terms. PercentileFilter derives a filter
// from a numeric factor; SequencedFilter evaluates one filter under the mask
// left by another. Every constructor validates its arguments before
// interning, so each reachable filter is well-formed.
//
// Nothing here logs or performs I/O; ComputeFromArrays is pure.
package filter

import (
	"errors"

	"github.com/roach88/sieve/internal/numexpr"
	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

// Filter is a term with boolean output.
type Filter interface {
	term.Term
	isFilter()
}

// Base is embedded by every filter. Filters defined in other packages embed
// it too, which is what makes them Filters.
type Base struct {
	term.Base
}

func (*Base) isFilter() {}

// NewBase builds the shared state of a boolean term.
func NewBase(kind string, inputs []term.Term, window int, params ...any) (Base, error) {
	b, err := term.NewBase(kind, inputs, window, panel.Bool, params...)
	if err != nil {
		return Base{}, err
	}
	return Base{Base: b}, nil
}

// Column is a boolean leaf loaded by name, such as a universe flag.
type Column struct {
	Base
	name string
}

// NewColumn returns the interned boolean column called name.
func NewColumn(name string) (*Column, error) {
	b, err := NewBase("BoolColumn", nil, 0, name)
	if err != nil {
		return nil, err
	}
	return term.Intern(&Column{Base: b, name: name}), nil
}

// ColumnName returns the loader column backing c.
func (c *Column) ColumnName() string { return c.name }

// ComputeFromArrays always fails: columns are loaded, not computed.
func (c *Column) ComputeFromArrays([]panel.Array, *panel.BoolArray) (panel.Array, error) {
	return nil, term.NewNotComputable(c)
}

// Then returns a filter that computes first, then computes other over the
// entities first let through.
func Then(first Filter, other term.Term) (*SequencedFilter, error) {
	return NewSequencedFilter(first, other)
}

// Not returns the elementwise negation of f.
func Not(f Filter) (*NumExprFilter, error) {
	if f == nil {
		return nil, term.NewExpectedFilter(f)
	}
	if node, ok := f.(numexpr.Node); ok {
		e := node.Expression()
		return NewNumExprFilter("~("+e.Text()+")", e.Binds())
	}
	return NewNumExprFilter("~x_0", []term.Term{f})
}

var errNilMask = errors.New("mask is nil")

// checkMask rejects a nil mask before a filter dereferences it.
func checkMask(t term.Term, mask *panel.BoolArray) error {
	if mask == nil {
		return term.NewShapeMismatch(t, errNilMask)
	}
	return nil
}
