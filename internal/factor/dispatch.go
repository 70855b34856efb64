package factor

import (
	"fmt"

	"github.com/roach88/sieve/internal/filter"
	"github.com/roach88/sieve/internal/numexpr"
	"github.com/roach88/sieve/internal/term"
)

// Methods maps operator method names ("Add", "RSub", "Lt", ...) to the
// operator each one applies. Comparisons have no reflected names: a swapped
// comparison is the flipped comparison.
var Methods = buildMethods()

func buildMethods() map[string]numexpr.BinaryOperator {
	methods := make(map[string]numexpr.BinaryOperator)
	for _, op := range numexpr.ArithOps {
		for _, reflected := range []bool{false, true} {
			bop := numexpr.BinaryOperator{Op: op, Reflected: reflected}
			methods[bop.MethodName()] = bop
		}
	}
	for _, op := range numexpr.Comparisons {
		bop := numexpr.BinaryOperator{Op: op}
		methods[bop.MethodName()] = bop
	}
	return methods
}

// Invoke applies the operator method called name to left and right.
func Invoke(name string, left Factor, right any) (term.Term, error) {
	bop, ok := Methods[name]
	if !ok {
		return nil, fmt.Errorf("factor has no operator method %q", name)
	}
	return Apply(bop, left, right)
}

// Apply combines left and right with bop. Arithmetic returns a
// *NumExprFactor; comparisons return a *filter.NumExprFilter. right may be
// an expression-backed term, another factor, or a numeric constant.
func Apply(bop numexpr.BinaryOperator, left Factor, right any) (term.Term, error) {
	if left == nil {
		return nil, term.NewExpectedFactor(left)
	}
	if !bop.Op.IsArith() && !bop.Op.IsComparison() {
		return nil, term.NewUnsupportedBinaryOperator(string(bop.Op), left, right)
	}
	return apply(bop, left, right)
}

func apply(bop numexpr.BinaryOperator, left term.Term, right any) (term.Term, error) {
	op := string(bop.Op)

	if node, ok := left.(numexpr.Node); ok {
		selfText, otherText, inputs, err := node.Expression().BuildBinaryOp(bop.Op, right)
		if err != nil {
			if term.IsUnsupportedBinaryOperator(err) {
				return nil, term.NewUnsupportedBinaryOperator(op, left, right)
			}
			return nil, err
		}
		return build(bop, bop.Format(selfText, otherText), inputs)
	}

	if node, ok := right.(numexpr.Node); ok {
		return apply(bop.Commuted(), node, left)
	}

	switch r := right.(type) {
	case Factor:
		if term.Same(left, r) {
			return build(bop, fmt.Sprintf("x_0 %s x_0", op), []term.Term{left})
		}
		inputs := []term.Term{left, r}
		if bop.Reflected {
			inputs = []term.Term{r, left}
		}
		return build(bop, fmt.Sprintf("x_0 %s x_1", op), inputs)
	}

	if lit, ok := numexpr.NumberLiteral(right); ok {
		text := fmt.Sprintf("x_0 %s (%s)", op, lit)
		if bop.Reflected {
			text = fmt.Sprintf("(%s) %s x_0", lit, op)
		}
		return build(bop, text, []term.Term{left})
	}

	return nil, term.NewUnsupportedBinaryOperator(op, left, right)
}

func build(bop numexpr.BinaryOperator, text string, inputs []term.Term) (term.Term, error) {
	if bop.Op.IsComparison() {
		f, err := filter.NewNumExprFilter(text, inputs)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	f, err := NewNumExprFactor(text, inputs)
	if err != nil {
		return nil, err
	}
	return f, nil
}
