package numexpr

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/sieve/internal/term"
)

// MaxInputs is the most inputs one expression may bind.
const MaxInputs = 32

// Node is a term backed by an expression over its inputs.
type Node interface {
	term.Term
	Expression() Expression
}

// Expression is expression text over positional placeholders x_0..x_{n-1},
// plus the n terms bound to them.
type Expression struct {
	text  string
	binds []term.Term
	toks  []token
}

// NewExpression validates text against binds. Every placeholder from x_0 to
// x_{len(binds)-1} must appear, and no other.
func NewExpression(text string, binds []term.Term) (Expression, error) {
	if len(binds) == 0 {
		return Expression{}, term.NewInvalidExpression(text, "expression binds no inputs")
	}
	if len(binds) > MaxInputs {
		return Expression{}, term.NewInvalidExpression(text,
			fmt.Sprintf("expression binds %d inputs, the limit is %d", len(binds), MaxInputs))
	}
	for i, b := range binds {
		if b == nil {
			return Expression{}, term.NewInvalidExpression(text, fmt.Sprintf("bind %d is nil", i))
		}
	}

	toks, err := lex(text)
	if err != nil {
		return Expression{}, term.NewInvalidExpression(text, err.Error())
	}

	got := placeholders(toks)
	slices.Sort(got)
	want := make([]int, len(binds))
	for i := range want {
		want[i] = i
	}
	if !slices.Equal(got, want) {
		return Expression{}, term.NewInvalidExpression(text,
			fmt.Sprintf("expected placeholders %s, found %s", formatPlaceholders(want), formatPlaceholders(got)))
	}

	dtypes := make([]string, len(binds))
	for i, b := range binds {
		dtypes[i] = string(b.DType())
	}
	if _, err := compile(text, toks, dtypes); err != nil {
		return Expression{}, term.NewInvalidExpression(text, err.Error())
	}

	return Expression{text: text, binds: slices.Clone(binds), toks: toks}, nil
}

func formatPlaceholders(idx []int) string {
	names := make([]string, len(idx))
	for i, n := range idx {
		names[i] = Placeholder(n)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// Text returns the expression text.
func (e Expression) Text() string { return e.text }

// Binds returns the bound inputs in placeholder order.
func (e Expression) Binds() []term.Term { return slices.Clone(e.binds) }

// Rebind returns e's text with every placeholder renumbered to the position of
// its bound term in inputs. Every bind must be present in inputs.
func (e Expression) Rebind(inputs []term.Term) (string, error) {
	mapping := make([]int, len(e.binds))
	for i, b := range e.binds {
		mapping[i] = term.IndexOf(inputs, b)
		if mapping[i] < 0 {
			return "", fmt.Errorf("rebind %q: %s is not among the new inputs", e.text, term.Describe(b))
		}
	}
	return rewrite(e.toks, func(t token) string {
		if t.kind == tokPlaceholder {
			return Placeholder(mapping[t.index])
		}
		return t.text
	}), nil
}

// Merge combines the inputs of a and b: a's inputs keep their order and
// positions, and b's inputs not already present are appended. It returns both
// texts renumbered against the merged list.
func Merge(a, b Expression) (aText, bText string, inputs []term.Term, err error) {
	inputs = slices.Clone(a.binds)
	for _, in := range b.binds {
		if term.IndexOf(inputs, in) < 0 {
			inputs = append(inputs, in)
		}
	}
	if aText, err = a.Rebind(inputs); err != nil {
		return "", "", nil, err
	}
	if bText, err = b.Rebind(inputs); err != nil {
		return "", "", nil, err
	}
	return aText, bText, inputs, nil
}

// BuildBinaryOp prepares e and other as the two operands of op. It returns
// both operand texts over a shared input list:
//   - an expression node is merged, with shared inputs reused and renumbered;
//   - any other term is appended to e's inputs unless already bound;
//   - a numeric or bool constant becomes a literal.
//
// Anything else is an unsupported operator error.
func (e Expression) BuildBinaryOp(op Op, other any) (selfText, otherText string, inputs []term.Term, err error) {
	switch o := other.(type) {
	case Node:
		return Merge(e, o.Expression())
	case term.Term:
		inputs = slices.Clone(e.binds)
		idx := term.IndexOf(inputs, o)
		if idx < 0 {
			inputs = append(inputs, o)
			idx = len(inputs) - 1
		}
		return e.text, Placeholder(idx), inputs, nil
	default:
		lit, ok := NumberLiteral(other)
		if !ok {
			return "", "", nil, term.NewUnsupportedBinaryOperator(string(op), e.text, other)
		}
		return e.text, lit, slices.Clone(e.binds), nil
	}
}

// IntLiteral renders integers of any width and bools (as 1 or 0).
func IntLiteral(v any) (string, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return "1", true
		}
		return "0", true
	case int:
		return strconv.FormatInt(int64(n), 10), true
	case int8:
		return strconv.FormatInt(int64(n), 10), true
	case int16:
		return strconv.FormatInt(int64(n), 10), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint:
		return strconv.FormatUint(uint64(n), 10), true
	case uint8:
		return strconv.FormatUint(uint64(n), 10), true
	case uint16:
		return strconv.FormatUint(uint64(n), 10), true
	case uint32:
		return strconv.FormatUint(uint64(n), 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	}
	return "", false
}

// NumberLiteral renders integers, bools and finite floats. Floats always
// carry a decimal point so they stay floats in the evaluator.
func NumberLiteral(v any) (string, bool) {
	if s, ok := IntLiteral(v); ok {
		return s, true
	}
	var f float64
	switch n := v.(type) {
	case float32:
		f = float64(n)
	case float64:
		f = n
	default:
		return "", false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, true
}
