// Package pipeline loads pipeline definitions written in CUE and compiles
// them into terms.
//
// A pipeline names its loader columns, a set of derived terms and the terms
// it outputs:
//
//	pipeline: screen: {
//		columns: {close: "float64", volume: "int64", tradable: "bool"}
//		terms: {
//			liquid: {kind: "percentile", input: "volume", min: 20, max: 100}
//			cheap:  {kind: "binop", op: "<", left: "close", right: 50}
//			both:   {kind: "binop", op: "&", left: "liquid", right: "cheap"}
//			staged: {kind: "then", first: "tradable", then: "liquid"}
//		}
//		outputs: ["both", "staged"]
//	}
//
// Loading produces a Definition, which is plain data. Compile resolves its
// names into interned terms.
package pipeline

import (
	"cuelang.org/go/cue/token"
)

// Term kinds.
const (
	KindPercentile = "percentile"
	KindBinop      = "binop"
	KindThen       = "then"
	KindNot        = "not"
	KindExpr       = "expr"
)

// Kinds lists the supported term kinds.
var Kinds = []string{KindPercentile, KindBinop, KindThen, KindNot, KindExpr}

// Definition is a parsed, unresolved pipeline.
type Definition struct {
	Name    string
	Columns []ColumnDef
	Terms   []TermDef
	Outputs []string
	Pos     token.Pos
}

// ColumnDef declares a loader column.
type ColumnDef struct {
	Name  string
	DType string
	Pos   token.Pos
}

// Operand is a binop operand: either a reference to a column or term, or a
// constant (int64, float64 or bool).
type Operand struct {
	Ref   string
	Value any
}

// IsRef reports whether o names a column or term.
func (o Operand) IsRef() bool { return o.Ref != "" }

// TermDef is one entry of a pipeline's terms. Which fields are meaningful
// depends on Kind:
//   - percentile: Input, Min, Max
//   - binop: Op, Left, Right, Reflected
//   - then: First, Then
//   - not: Input
//   - expr: Expr, Inputs, DType (default "bool")
type TermDef struct {
	Name string
	Kind string
	Pos  token.Pos

	Input    string
	Min, Max *float64

	Op          string
	Left, Right *Operand
	Reflected   bool

	First, Then string

	Expr   string
	Inputs []string
	DType  string
}

// refs returns every name t refers to, in field order.
func (t TermDef) refs() []string {
	var out []string
	add := func(s string) {
		if s != "" {
			out = append(out, s)
		}
	}
	add(t.Input)
	if t.Left != nil {
		add(t.Left.Ref)
	}
	if t.Right != nil {
		add(t.Right.Ref)
	}
	add(t.First)
	add(t.Then)
	for _, in := range t.Inputs {
		add(in)
	}
	return out
}

// Term returns the term definition called name.
func (d *Definition) Term(name string) (TermDef, bool) {
	for _, t := range d.Terms {
		if t.Name == name {
			return t, true
		}
	}
	return TermDef{}, false
}

// Column returns the column definition called name.
func (d *Definition) Column(name string) (ColumnDef, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}
