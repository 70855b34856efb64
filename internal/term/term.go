// Package term defines the computation node contract shared by filters,
// factors and the engine.
//
// A Term is an immutable node in a pipeline's dependency graph. Its identity
// is a content hash over (kind, ordered input IDs, ordered parameters), so two
// structurally identical constructions intern to the same node. Terms never
// own their inputs; inputs are shared interned references.
package term

import (
	"fmt"
	"slices"

	"github.com/roach88/sieve/internal/ir"
	"github.com/roach88/sieve/internal/panel"
)

// Term is a node in the dependency graph.
type Term interface {
	// ID is the identity key. Equal IDs mean structurally identical terms.
	ID() string

	// Kind names the node type, e.g. "PercentileFilter".
	Kind() string

	// Inputs returns the ordered upstream terms.
	Inputs() []Term

	// WindowLength is the number of rows needed to compute one output row.
	// 0 means the current row only.
	WindowLength() int

	// DType is the declared output element type.
	DType() panel.DType

	// ComputeFromArrays computes the term's output from the materialized
	// arrays of its inputs, in Inputs order, and a validity mask of the
	// output's shape. It must not retain or modify its arguments.
	ComputeFromArrays(inputs []panel.Array, mask *panel.BoolArray) (panel.Array, error)
}

// Loadable is a leaf term whose values come from the engine's loader rather
// than from ComputeFromArrays.
type Loadable interface {
	Term
	ColumnName() string
}

// Base carries the state every concrete term shares. Embed it and implement
// ComputeFromArrays.
type Base struct {
	id     string
	kind   string
	inputs []Term
	window int
	dtype  panel.DType
}

// NewBase computes the identity of a term and returns its shared state.
// params are the term's own parameters in a fixed order; see ir.FromGo for
// the accepted types.
func NewBase(kind string, inputs []Term, window int, dtype panel.DType, params ...any) (Base, error) {
	if window < 0 {
		return Base{}, fmt.Errorf("%s: negative window length %d", kind, window)
	}
	if !panel.ValidDTypes[dtype] {
		return Base{}, fmt.Errorf("%s: invalid dtype %q", kind, dtype)
	}
	id, err := Identity(kind, inputs, params...)
	if err != nil {
		return Base{}, err
	}
	return Base{
		id:     id,
		kind:   kind,
		inputs: slices.Clone(inputs),
		window: window,
		dtype:  dtype,
	}, nil
}

// Identity returns the identity key for a term of the given kind, inputs and
// parameters.
func Identity(kind string, inputs []Term, params ...any) (string, error) {
	ids := make([]string, len(inputs))
	for i, in := range inputs {
		if in == nil {
			return "", fmt.Errorf("%s: input %d is nil", kind, i)
		}
		ids[i] = in.ID()
	}
	return ir.TermID(kind, ids, params...)
}

func (b *Base) ID() string         { return b.id }
func (b *Base) Kind() string       { return b.kind }
func (b *Base) WindowLength() int  { return b.window }
func (b *Base) DType() panel.DType { return b.dtype }
func (b *Base) Inputs() []Term     { return slices.Clone(b.inputs) }
func (b *Base) String() string     { return Describe(b) }
func (b *Base) ShortID() string    { return ShortID(b.id) }

// ShortID returns the first 8 characters of id.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Describe renders v for error messages: Kind(shortid) for terms, the Go
// type and value for anything else.
func Describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case interface {
		Kind() string
		ID() string
	}:
		return fmt.Sprintf("%s(%s)", t.Kind(), ShortID(t.ID()))
	default:
		return fmt.Sprintf("%T(%v)", v, v)
	}
}

// TypeName names v's type for "expected X, got Y" messages.
func TypeName(v any) string {
	if t, ok := v.(Term); ok {
		return t.Kind()
	}
	return fmt.Sprintf("%T", v)
}

// ExtraInputRows is the number of rows before the first output row that t
// needs loaded to compute it.
func ExtraInputRows(t Term) int {
	return max(t.WindowLength()-1, 0)
}

// SingleInput returns t's only input. It panics if t has any other number of
// inputs, which is a construction bug rather than a runtime condition.
func SingleInput(t Term) Term {
	inputs := t.Inputs()
	if len(inputs) != 1 {
		panic(fmt.Sprintf("%s: expected exactly one input, got %d", Describe(t), len(inputs)))
	}
	return inputs[0]
}

// Same reports whether a and b are the same node.
func Same(a, b Term) bool {
	return a != nil && b != nil && a.ID() == b.ID()
}

// IndexOf returns the position of t in inputs by identity, or -1.
func IndexOf(inputs []Term, t Term) int {
	return slices.IndexFunc(inputs, func(in Term) bool { return Same(in, t) })
}
