package pipeline

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError reports a CUE value that does not have the shape of a
// pipeline definition.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Parse reads a pipeline definition from a CUE value. The value should be
// the pipeline struct itself; its name is the last path selector:
//
//	v := ctx.CompileString(`pipeline: screen: { ... }`)
//	def, err := Parse(v.LookupPath(cue.ParsePath("pipeline.screen")))
//
// Parse checks structure only. Names, kinds and dtypes are checked by
// Validate.
func Parse(v cue.Value) (*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &Definition{Pos: v.Pos()}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		def.Name = sels[len(sels)-1].String()
	}

	var err error
	if def.Columns, err = parseColumns(v); err != nil {
		return nil, err
	}
	if def.Terms, err = parseTerms(v); err != nil {
		return nil, err
	}
	if def.Outputs, err = parseStrings(v, "outputs"); err != nil {
		return nil, err
	}
	return def, nil
}

func parseColumns(v cue.Value) ([]ColumnDef, error) {
	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, nil
	}
	iter, err := colsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var cols []ColumnDef
	for iter.Next() {
		dtype, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "columns." + iter.Selector().String(),
				Message: "column dtype must be a string",
				Pos:     iter.Value().Pos(),
			}
		}
		cols = append(cols, ColumnDef{
			Name:  iter.Selector().Unquoted(),
			DType: dtype,
			Pos:   iter.Value().Pos(),
		})
	}
	return cols, nil
}

func parseTerms(v cue.Value) ([]TermDef, error) {
	termsVal := v.LookupPath(cue.ParsePath("terms"))
	if !termsVal.Exists() {
		return nil, nil
	}
	iter, err := termsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var terms []TermDef
	for iter.Next() {
		t, err := parseTerm(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, nil
}

func parseTerm(name string, v cue.Value) (TermDef, error) {
	t := TermDef{Name: name, Pos: v.Pos()}
	field := "terms." + name

	var err error
	strs := []struct {
		label string
		dst   *string
	}{
		{"kind", &t.Kind},
		{"input", &t.Input},
		{"op", &t.Op},
		{"first", &t.First},
		{"then", &t.Then},
		{"expr", &t.Expr},
		{"dtype", &t.DType},
	}
	for _, s := range strs {
		if *s.dst, err = optionalString(v, field, s.label); err != nil {
			return t, err
		}
	}

	if t.Min, err = optionalFloat(v, field, "min"); err != nil {
		return t, err
	}
	if t.Max, err = optionalFloat(v, field, "max"); err != nil {
		return t, err
	}
	if t.Left, err = optionalOperand(v, field, "left"); err != nil {
		return t, err
	}
	if t.Right, err = optionalOperand(v, field, "right"); err != nil {
		return t, err
	}
	if t.Inputs, err = parseStrings(v, "inputs"); err != nil {
		return t, err
	}

	if r := v.LookupPath(cue.ParsePath("reflected")); r.Exists() {
		if t.Reflected, err = r.Bool(); err != nil {
			return t, &CompileError{Field: field + ".reflected", Message: "must be a bool", Pos: r.Pos()}
		}
	}
	return t, nil
}

func optionalString(v cue.Value, field, label string) (string, error) {
	f := v.LookupPath(cue.ParsePath(label))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", &CompileError{Field: field + "." + label, Message: "must be a string", Pos: f.Pos()}
	}
	return s, nil
}

func optionalFloat(v cue.Value, field, label string) (*float64, error) {
	f := v.LookupPath(cue.ParsePath(label))
	if !f.Exists() {
		return nil, nil
	}
	x, err := f.Float64()
	if err != nil {
		return nil, &CompileError{Field: field + "." + label, Message: "must be a number", Pos: f.Pos()}
	}
	return &x, nil
}

func optionalOperand(v cue.Value, field, label string) (*Operand, error) {
	f := v.LookupPath(cue.ParsePath(label))
	if !f.Exists() {
		return nil, nil
	}
	switch f.IncompleteKind() {
	case cue.StringKind:
		s, err := f.String()
		if err != nil || s == "" {
			break
		}
		return &Operand{Ref: s}, nil
	case cue.IntKind:
		n, err := f.Int64()
		if err != nil {
			break
		}
		return &Operand{Value: n}, nil
	case cue.FloatKind, cue.NumberKind:
		x, err := f.Float64()
		if err != nil {
			break
		}
		return &Operand{Value: x}, nil
	case cue.BoolKind:
		b, err := f.Bool()
		if err != nil {
			break
		}
		return &Operand{Value: b}, nil
	}
	return nil, &CompileError{
		Field:   field + "." + label,
		Message: "operand must be a name, a number or a bool",
		Pos:     f.Pos(),
	}
}

func parseStrings(v cue.Value, label string) ([]string, error) {
	f := v.LookupPath(cue.ParsePath(label))
	if !f.Exists() {
		return nil, nil
	}
	iter, err := f.List()
	if err != nil {
		return nil, &CompileError{Field: label, Message: "must be a list of strings", Pos: f.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: label, Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
