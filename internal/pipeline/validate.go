package pipeline

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue/token"

	"github.com/roach88/sieve/internal/numexpr"
	"github.com/roach88/sieve/internal/panel"
)

// Validation error codes (E200-E299)
const (
	ErrUnknownDType     = "E201" // column or expr dtype is not bool, float64 or int64
	ErrUnknownReference = "E202" // name is neither a column nor a term
	ErrReferenceCycle   = "E203" // terms refer to each other in a loop
	ErrUnknownKind      = "E204" // term kind is not supported
	ErrMissingField     = "E205" // a field the kind requires is absent
	ErrUndefinedOutput  = "E206" // output names no column or term
	ErrTermConstruction = "E207" // term constructor rejected the definition
	ErrDuplicateName    = "E208" // a name is both a column and a term
)

// ValidationError reports a pipeline definition that cannot be compiled.
type ValidationError struct {
	Code    string    `json:"code"`
	Field   string    `json:"field"`
	Message string    `json:"message"`
	Pos     token.Pos `json:"-"`

	// Err is the term construction error behind an E207.
	Err error `json:"-"`
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("[%s] %s:%d: %s: %s", e.Code, e.Pos.Filename(), e.Pos.Line(), e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks a definition's dtypes, kinds, required fields, references,
// outputs and reference cycles. It returns every problem found; term
// construction errors (E207) are only found by Compile.
func Validate(def *Definition) []*ValidationError {
	var errs []*ValidationError
	add := func(code, field string, pos token.Pos, format string, args ...any) {
		errs = append(errs, &ValidationError{Code: code, Field: field, Message: fmt.Sprintf(format, args...), Pos: pos})
	}

	for _, c := range def.Columns {
		if !panel.ValidDTypes[panel.DType(c.DType)] {
			add(ErrUnknownDType, "columns."+c.Name, c.Pos, "unknown dtype %q", c.DType)
		}
		if _, dup := def.Term(c.Name); dup {
			add(ErrDuplicateName, "columns."+c.Name, c.Pos, "%q is both a column and a term", c.Name)
		}
	}

	known := func(name string) bool {
		if _, ok := def.Column(name); ok {
			return true
		}
		_, ok := def.Term(name)
		return ok
	}

	for _, t := range def.Terms {
		field := "terms." + t.Name
		for _, missing := range missingFields(t) {
			add(ErrMissingField, field+"."+missing, t.Pos, "%s term requires %q", kindName(t.Kind), missing)
		}
		if !slices.Contains(Kinds, t.Kind) && t.Kind != "" {
			add(ErrUnknownKind, field+".kind", t.Pos, "unknown kind %q", t.Kind)
		}
		if t.Kind == KindBinop && t.Op != "" {
			if _, err := numexpr.ParseOp(t.Op); err != nil {
				add(ErrUnknownKind, field+".op", t.Pos, "%v", err)
			}
		}
		if t.Kind == KindBinop && t.Left != nil && t.Right != nil && !t.Left.IsRef() && !t.Right.IsRef() {
			add(ErrMissingField, field, t.Pos, "binop needs at least one operand that names a term")
		}
		if t.Kind == KindExpr && t.DType != "" && !panel.ValidDTypes[panel.DType(t.DType)] {
			add(ErrUnknownDType, field+".dtype", t.Pos, "unknown dtype %q", t.DType)
		}
		for _, ref := range t.refs() {
			if !known(ref) {
				add(ErrUnknownReference, field, t.Pos, "unknown reference %q", ref)
			}
		}
	}

	for i, out := range def.Outputs {
		if !known(out) {
			add(ErrUndefinedOutput, fmt.Sprintf("outputs[%d]", i), def.Pos, "output %q is not defined", out)
		}
	}
	if len(def.Outputs) == 0 {
		add(ErrUndefinedOutput, "outputs", def.Pos, "pipeline %q has no outputs", def.Name)
	}

	errs = append(errs, findCycles(def)...)
	return errs
}

func kindName(kind string) string {
	if kind == "" {
		return "a"
	}
	return "a " + kind
}

// missingFields lists the required fields t lacks.
func missingFields(t TermDef) []string {
	if t.Kind == "" {
		return []string{"kind"}
	}
	var missing []string
	need := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name)
		}
	}
	switch t.Kind {
	case KindPercentile:
		need(t.Input != "", "input")
		need(t.Min != nil, "min")
		need(t.Max != nil, "max")
	case KindBinop:
		need(t.Op != "", "op")
		need(t.Left != nil, "left")
		need(t.Right != nil, "right")
	case KindThen:
		need(t.First != "", "first")
		need(t.Then != "", "then")
	case KindNot:
		need(t.Input != "", "input")
	case KindExpr:
		need(t.Expr != "", "expr")
		need(len(t.Inputs) > 0, "inputs")
	}
	return missing
}

// findCycles reports each reference cycle among terms once, starting from
// the first term of the cycle in definition order.
func findCycles(def *Definition) []*ValidationError {
	const (
		visiting = iota + 1
		done
	)
	state := make(map[string]int)
	var errs []*ValidationError
	var stack []string

	var visit func(name string)
	visit = func(name string) {
		t, ok := def.Term(name)
		if !ok {
			return
		}
		switch state[name] {
		case done:
			return
		case visiting:
			i := slices.Index(stack, name)
			path := append(slices.Clone(stack[i:]), name)
			errs = append(errs, &ValidationError{
				Code:    ErrReferenceCycle,
				Field:   "terms." + name,
				Message: fmt.Sprintf("reference cycle: %v", path),
				Pos:     t.Pos,
			})
			return
		}
		state[name] = visiting
		stack = append(stack, name)
		for _, ref := range t.refs() {
			visit(ref)
		}
		stack = stack[:len(stack)-1]
		state[name] = done
	}

	for _, t := range def.Terms {
		visit(t.Name)
	}
	return errs
}
