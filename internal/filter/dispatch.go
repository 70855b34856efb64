package filter

import (
	"fmt"

	"github.com/roach88/sieve/internal/numexpr"
	"github.com/roach88/sieve/internal/term"
)

// Methods maps operator method names ("And", "RAnd", "Or", "ROr") to the
// operator each one applies.
var Methods = buildMethods()

func buildMethods() map[string]numexpr.BinaryOperator {
	methods := make(map[string]numexpr.BinaryOperator)
	for _, op := range numexpr.FilterBinops {
		for _, reflected := range []bool{false, true} {
			bop := numexpr.BinaryOperator{Op: op, Reflected: reflected}
			methods[bop.MethodName()] = bop
		}
	}
	return methods
}

// Invoke applies the operator method called name to left and right.
func Invoke(name string, left Filter, right any) (*NumExprFilter, error) {
	bop, ok := Methods[name]
	if !ok {
		return nil, fmt.Errorf("filter has no operator method %q", name)
	}
	return Apply(bop, left, right)
}

// And returns left & right.
func And(left Filter, right any) (*NumExprFilter, error) { return Invoke("And", left, right) }

// Or returns left | right.
func Or(left Filter, right any) (*NumExprFilter, error) { return Invoke("Or", left, right) }

// RAnd returns right & left.
func RAnd(left Filter, right any) (*NumExprFilter, error) { return Invoke("RAnd", left, right) }

// ROr returns right | left.
func ROr(left Filter, right any) (*NumExprFilter, error) { return Invoke("ROr", left, right) }

// Apply combines left and right with bop into a new filter. right may be an
// expression-backed term, another filter, or an integer or bool constant.
//
// Dispatch order:
//  1. left is expression-backed: merge both sides' inputs and wrap
//     "(left) op (right)";
//  2. right is expression-backed: swap the operands, commute bop, and apply 1;
//  3. right is a filter: "x_0 op x_0" when it is left itself, else
//     "x_0 op x_1";
//  4. right is an integer or bool: "x_0 op (k)";
//  5. anything else is UNSUPPORTED_BINARY_OPERATOR.
func Apply(bop numexpr.BinaryOperator, left Filter, right any) (*NumExprFilter, error) {
	if left == nil {
		return nil, term.NewExpectedFilter(left)
	}
	return apply(bop, left, right)
}

// apply takes left as a term so that rule 2 can hand it an expression node
// of any dtype.
func apply(bop numexpr.BinaryOperator, left term.Term, right any) (*NumExprFilter, error) {
	op := string(bop.Op)

	if node, ok := left.(numexpr.Node); ok {
		selfText, otherText, inputs, err := node.Expression().BuildBinaryOp(bop.Op, right)
		if err != nil {
			if term.IsUnsupportedBinaryOperator(err) {
				return nil, term.NewUnsupportedBinaryOperator(op, left, right)
			}
			return nil, err
		}
		return NewNumExprFilter(bop.Format(selfText, otherText), inputs)
	}

	if node, ok := right.(numexpr.Node); ok {
		return apply(bop.Commuted(), node, left)
	}

	switch r := right.(type) {
	case Filter:
		if term.Same(left, r) {
			return NewNumExprFilter(fmt.Sprintf("x_0 %s x_0", op), []term.Term{left})
		}
		inputs := []term.Term{left, r}
		if bop.Reflected {
			inputs = []term.Term{r, left}
		}
		return NewNumExprFilter(fmt.Sprintf("x_0 %s x_1", op), inputs)
	}

	if lit, ok := numexpr.IntLiteral(right); ok {
		text := fmt.Sprintf("x_0 %s (%s)", op, lit)
		if bop.Reflected {
			text = fmt.Sprintf("(%s) %s x_0", lit, op)
		}
		return NewNumExprFilter(text, []term.Term{left})
	}

	return nil, term.NewUnsupportedBinaryOperator(op, left, right)
}
