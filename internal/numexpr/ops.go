package numexpr

import (
	"fmt"
)

// Op is an operator symbol as it appears in expression text.
type Op string

const (
	And Op = "&"
	Or  Op = "|"

	Add Op = "+"
	Sub Op = "-"
	Mul Op = "*"
	Div Op = "/"
	Mod Op = "%"
	Pow Op = "**"

	Lt Op = "<"
	Le Op = "<="
	Eq Op = "=="
	Ne Op = "!="
	Ge Op = ">="
	Gt Op = ">"
)

// Operator sets, in a fixed order.
var (
	FilterBinops = []Op{And, Or}
	ArithOps     = []Op{Add, Sub, Mul, Div, Mod, Pow}
	Comparisons  = []Op{Lt, Le, Eq, Ne, Ge, Gt}
)

var methodNames = map[Op]string{
	And: "And",
	Or:  "Or",
	Add: "Add",
	Sub: "Sub",
	Mul: "Mul",
	Div: "Div",
	Mod: "Mod",
	Pow: "Pow",
	Lt:  "Lt",
	Le:  "Le",
	Eq:  "Eq",
	Ne:  "Ne",
	Ge:  "Ge",
	Gt:  "Gt",
}

// flipped maps a comparison to the one that holds with operands swapped.
var flipped = map[Op]Op{
	Lt: Gt,
	Le: Ge,
	Eq: Eq,
	Ne: Ne,
	Ge: Le,
	Gt: Lt,
}

// ParseOp returns the Op spelled s.
func ParseOp(s string) (Op, error) {
	op := Op(s)
	if _, ok := methodNames[op]; !ok {
		return "", fmt.Errorf("unknown operator %q", s)
	}
	return op, nil
}

// IsFilterBinop reports whether op combines two boolean operands.
func (op Op) IsFilterBinop() bool { return op == And || op == Or }

// IsComparison reports whether op is a relational operator.
func (op Op) IsComparison() bool {
	_, ok := flipped[op]
	return ok
}

// IsArith reports whether op is an arithmetic operator.
func (op Op) IsArith() bool {
	switch op {
	case Add, Sub, Mul, Div, Mod, Pow:
		return true
	}
	return false
}

// MethodNameForOp returns the method name implementing op. With commute set
// it returns the method implementing op with its operands swapped: the
// reflected name ("RAnd") for symmetric and arithmetic ops, and the flipped
// comparison ("Gt" for "<").
func MethodNameForOp(op Op, commute bool) (string, error) {
	name, ok := methodNames[op]
	if !ok {
		return "", fmt.Errorf("unknown operator %q", op)
	}
	if !commute {
		return name, nil
	}
	if f, ok := flipped[op]; ok {
		return methodNames[f], nil
	}
	return "R" + name, nil
}

// BinaryOperator is an operator bound to an operand order. A reflected
// operator computes "right op left".
type BinaryOperator struct {
	Op        Op
	Reflected bool
}

// Commuted returns the operator that gives the same result when the operands
// are swapped. Comparisons flip; everything else toggles Reflected.
func (b BinaryOperator) Commuted() BinaryOperator {
	if f, ok := flipped[b.Op]; ok {
		return BinaryOperator{Op: f, Reflected: b.Reflected}
	}
	return BinaryOperator{Op: b.Op, Reflected: !b.Reflected}
}

// MethodName returns the name this operator is registered under.
func (b BinaryOperator) MethodName() string {
	name, err := MethodNameForOp(b.Op, b.Reflected)
	if err != nil {
		return string(b.Op)
	}
	return name
}

// Format combines two parenthesized operand expressions in operand order.
func (b BinaryOperator) Format(self, other string) string {
	if b.Reflected {
		return fmt.Sprintf("(%s) %s (%s)", other, b.Op, self)
	}
	return fmt.Sprintf("(%s) %s (%s)", self, b.Op, other)
}

func (b BinaryOperator) String() string {
	return b.MethodName()
}
