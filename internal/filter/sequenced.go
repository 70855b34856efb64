package filter

import (
	"fmt"

	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

// SequencedFilter computes then under a mask narrowed by first.
//
// Its inputs are first followed by then's own inputs. The engine still
// computes all of then's inputs; only the mask handed to then changes.
type SequencedFilter struct {
	Base
	first Filter
	then  Filter
}

// NewSequencedFilter returns the interned filter computing first, then then.
// Both must be filters, and then must be computed rather than loaded.
func NewSequencedFilter(first, then term.Term) (*SequencedFilter, error) {
	f, ok := first.(Filter)
	if !ok {
		return nil, term.NewExpectedFilter(first)
	}
	t, ok := then.(Filter)
	if !ok {
		return nil, term.NewExpectedFilter(then)
	}
	if _, loaded := t.(term.Loadable); loaded {
		return nil, term.NewNotComputable(t)
	}

	inputs := append([]term.Term{f}, t.Inputs()...)
	b, err := NewBase("SequencedFilter", inputs, 0, t.ID())
	if err != nil {
		return nil, err
	}
	return term.Intern(&SequencedFilter{Base: b, first: f, then: t}), nil
}

// First returns the filter applied first.
func (s *SequencedFilter) First() Filter { return s.first }

// Next returns the filter computed under first's result.
func (s *SequencedFilter) Next() Filter { return s.then }

func (s *SequencedFilter) ComputeFromArrays(arrays []panel.Array, mask *panel.BoolArray) (panel.Array, error) {
	if want := 1 + len(s.then.Inputs()); len(arrays) != want {
		return nil, term.NewShapeMismatch(s, fmt.Errorf("expected %d input arrays, got %d", want, len(arrays)))
	}
	if err := checkMask(s, mask); err != nil {
		return nil, err
	}
	firstResult, err := panel.AsBool(arrays[0])
	if err != nil {
		return nil, term.NewShapeMismatch(s, err)
	}
	narrowed, err := mask.And(firstResult)
	if err != nil {
		return nil, term.NewShapeMismatch(s, err)
	}
	return s.then.ComputeFromArrays(arrays[1:], narrowed)
}
