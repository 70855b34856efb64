package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/sieve/internal/factor"
	"github.com/roach88/sieve/internal/filter"
	"github.com/roach88/sieve/internal/numexpr"
	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

// Pipeline is a compiled definition.
type Pipeline struct {
	Name string

	// Outputs maps each output name to its term.
	Outputs map[string]term.Term

	// Terms maps every column and term name to its node.
	Terms map[string]term.Term
}

// OutputNames returns the output names in sorted order.
func (p *Pipeline) OutputNames() []string {
	names := make([]string, 0, len(p.Outputs))
	for name := range p.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compile validates def and builds its terms. It fails with the first
// *ValidationError; use Validate to see them all.
func Compile(def *Definition) (*Pipeline, error) {
	if errs := Validate(def); len(errs) > 0 {
		return nil, errs[0]
	}

	c := &compiler{
		def:   def,
		terms: make(map[string]term.Term),
	}
	for _, col := range def.Columns {
		if _, err := c.resolve(col.Name); err != nil {
			return nil, err
		}
	}
	for _, t := range def.Terms {
		if _, err := c.resolve(t.Name); err != nil {
			return nil, err
		}
	}

	p := &Pipeline{
		Name:    def.Name,
		Outputs: make(map[string]term.Term, len(def.Outputs)),
		Terms:   c.terms,
	}
	for _, out := range def.Outputs {
		p.Outputs[out] = c.terms[out]
	}
	return p, nil
}

type compiler struct {
	def   *Definition
	terms map[string]term.Term
}

// resolve returns the term for name, building it and its references first.
// Validate has already rejected unknown names and cycles.
func (c *compiler) resolve(name string) (term.Term, error) {
	if t, ok := c.terms[name]; ok {
		return t, nil
	}

	if col, ok := c.def.Column(name); ok {
		t, err := buildColumn(col)
		if err != nil {
			return nil, &ValidationError{Code: ErrTermConstruction, Field: "columns." + name, Message: err.Error(), Pos: col.Pos, Err: err}
		}
		c.terms[name] = t
		return t, nil
	}

	def, ok := c.def.Term(name)
	if !ok {
		return nil, &ValidationError{Code: ErrUnknownReference, Field: name, Message: fmt.Sprintf("unknown reference %q", name)}
	}
	t, err := c.build(def)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return nil, err
		}
		return nil, &ValidationError{
			Code:    ErrTermConstruction,
			Field:   "terms." + name,
			Message: err.Error(),
			Pos:     def.Pos,
			Err:     err,
		}
	}
	c.terms[name] = t
	return t, nil
}

func buildColumn(col ColumnDef) (term.Term, error) {
	dtype := panel.DType(col.DType)
	if dtype == panel.Bool {
		return filter.NewColumn(col.Name)
	}
	return factor.NewColumn(col.Name, dtype)
}

func (c *compiler) build(def TermDef) (term.Term, error) {
	switch def.Kind {
	case KindPercentile:
		in, err := c.resolve(def.Input)
		if err != nil {
			return nil, err
		}
		return filter.NewPercentileFilter(in, *def.Min, *def.Max)

	case KindBinop:
		return c.buildBinop(def)

	case KindThen:
		first, err := c.resolve(def.First)
		if err != nil {
			return nil, err
		}
		then, err := c.resolve(def.Then)
		if err != nil {
			return nil, err
		}
		return filter.NewSequencedFilter(first, then)

	case KindNot:
		in, err := c.resolve(def.Input)
		if err != nil {
			return nil, err
		}
		f, ok := in.(filter.Filter)
		if !ok {
			return nil, term.NewExpectedFilter(in)
		}
		return filter.Not(f)

	case KindExpr:
		binds := make([]term.Term, len(def.Inputs))
		for i, name := range def.Inputs {
			t, err := c.resolve(name)
			if err != nil {
				return nil, err
			}
			binds[i] = t
		}
		if def.DType == "" || panel.DType(def.DType) == panel.Bool {
			return filter.NewNumExprFilter(def.Expr, binds)
		}
		return factor.NewNumExprFactor(def.Expr, binds)
	}
	return nil, fmt.Errorf("unknown kind %q", def.Kind)
}

// buildBinop applies op to the operands. A constant left operand is moved to
// the right and the operator reflected, so "100 - close" is close.RSub(100).
func (c *compiler) buildBinop(def TermDef) (term.Term, error) {
	op, err := numexpr.ParseOp(def.Op)
	if err != nil {
		return nil, err
	}
	bop := numexpr.BinaryOperator{Op: op, Reflected: def.Reflected}

	left, right := *def.Left, *def.Right
	if !left.IsRef() {
		left, right = right, left
		bop.Reflected = !bop.Reflected
	}

	self, err := c.resolve(left.Ref)
	if err != nil {
		return nil, err
	}
	var other any = right.Value
	if right.IsRef() {
		if other, err = c.resolve(right.Ref); err != nil {
			return nil, err
		}
	}

	if op.IsFilterBinop() {
		f, ok := self.(filter.Filter)
		if !ok {
			return nil, term.NewUnsupportedBinaryOperator(def.Op, self, other)
		}
		return filter.Apply(bop, f, other)
	}
	f, ok := self.(factor.Factor)
	if !ok {
		return nil, term.NewUnsupportedBinaryOperator(def.Op, self, other)
	}
	return factor.Apply(bop, f, other)
}

// Columns returns the loadable columns p reads, sorted by name.
func (p *Pipeline) Columns() []term.Loadable {
	var cols []term.Loadable
	for _, t := range p.Terms {
		if l, ok := t.(term.Loadable); ok {
			cols = append(cols, l)
		}
	}
	slices.SortFunc(cols, func(a, b term.Loadable) int {
		switch {
		case a.ColumnName() < b.ColumnName():
			return -1
		case a.ColumnName() > b.ColumnName():
			return 1
		}
		return 0
	})
	return cols
}
