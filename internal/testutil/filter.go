// Package testutil provides terms for exercising filters, the graph and the
// engine in tests.
package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/roach88/sieve/internal/filter"
	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

// ComputeFunc computes a boolean result from input arrays and a mask.
type ComputeFunc func(arrays []panel.Array, mask *panel.BoolArray) (*panel.BoolArray, error)

// TestingFilter is a filter whose computation is supplied by the test.
//
// Before calling its ComputeFunc it checks that every input array has the
// mask's shape, and it records the mask it was given so tests can assert on
// what upstream sequencing handed it.
//
// TestingFilters are not interned, and every construction gets a distinct ID
// so state recorded by one test never leaks into another.
//
// Thread-safety: safe for concurrent use.
type TestingFilter struct {
	filter.Base
	compute ComputeFunc

	mu    sync.Mutex
	masks []*panel.BoolArray
}

var instances atomic.Int64

// NewTestingFilter creates a testing filter. A nil compute returns its mask
// unchanged, i.e. every valid entity passes.
func NewTestingFilter(name string, inputs []term.Term, compute ComputeFunc) (*TestingFilter, error) {
	b, err := filter.NewBase("TestingFilter", inputs, 0, name, instances.Add(1))
	if err != nil {
		return nil, err
	}
	if compute == nil {
		compute = func(_ []panel.Array, mask *panel.BoolArray) (*panel.BoolArray, error) {
			return mask.Clone(), nil
		}
	}
	return &TestingFilter{Base: b, compute: compute}, nil
}

// Constant returns a testing filter with no inputs that always yields values,
// ignoring the mask.
func Constant(name string, values *panel.BoolArray) (*TestingFilter, error) {
	return NewTestingFilter(name, nil, func(_ []panel.Array, mask *panel.BoolArray) (*panel.BoolArray, error) {
		if values.Shape() != mask.Shape() {
			return nil, fmt.Errorf("constant %s has shape %s, mask has %s", name, values.Shape(), mask.Shape())
		}
		return values.Clone(), nil
	})
}

func (f *TestingFilter) ComputeFromArrays(arrays []panel.Array, mask *panel.BoolArray) (panel.Array, error) {
	if len(arrays) != len(f.Inputs()) {
		return nil, term.NewShapeMismatch(f, fmt.Errorf("expected %d input arrays, got %d", len(f.Inputs()), len(arrays)))
	}
	if err := panel.SameShape(mask.Shape(), arrays...); err != nil {
		return nil, term.NewShapeMismatch(f, err)
	}

	f.mu.Lock()
	f.masks = append(f.masks, mask.Clone())
	f.mu.Unlock()

	return f.compute(arrays, mask)
}

// Masks returns every mask ComputeFromArrays has received, in call order.
func (f *TestingFilter) Masks() []*panel.BoolArray {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*panel.BoolArray(nil), f.masks...)
}

// LastMask returns the most recent mask, or nil if never computed.
func (f *TestingFilter) LastMask() *panel.BoolArray {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.masks) == 0 {
		return nil
	}
	return f.masks[len(f.masks)-1]
}
