package numexpr

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
)

// operand is a normalized evaluator value.
type operand struct {
	kind byte // 'b', 'i' or 'f'
	b    bool
	i    int64
	f    float64
}

func toOperand(v any) (operand, error) {
	switch x := v.(type) {
	case bool:
		return operand{kind: 'b', b: x}, nil
	case int:
		return operand{kind: 'i', i: int64(x)}, nil
	case int64:
		return operand{kind: 'i', i: x}, nil
	case int32:
		return operand{kind: 'i', i: int64(x)}, nil
	case float64:
		return operand{kind: 'f', f: x}, nil
	case float32:
		return operand{kind: 'f', f: float64(x)}, nil
	}
	return operand{}, fmt.Errorf("unsupported operand %v (%T)", v, v)
}

func (o operand) asInt() int64 {
	if o.kind == 'b' {
		if o.b {
			return 1
		}
		return 0
	}
	return o.i
}

func (o operand) asFloat() float64 {
	switch o.kind {
	case 'f':
		return o.f
	case 'b':
		return float64(o.asInt())
	}
	return float64(o.i)
}

// bitwise implements & and |: logical when both operands are bool, bitwise
// on integers (bools count as 0 or 1), an error for floats.
func bitwise(symbol string, logical func(a, b bool) bool, bits func(a, b int64) int64) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("%s takes 2 operands, got %d", symbol, len(params))
		}
		a, err := toOperand(params[0])
		if err != nil {
			return nil, err
		}
		b, err := toOperand(params[1])
		if err != nil {
			return nil, err
		}
		if a.kind == 'f' || b.kind == 'f' {
			return nil, fmt.Errorf("unsupported operand types for %s: float", symbol)
		}
		if a.kind == 'b' && b.kind == 'b' {
			return logical(a.b, b.b), nil
		}
		return bits(a.asInt(), b.asInt()), nil
	}
}

func bnot(params ...any) (any, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("~ takes 1 operand, got %d", len(params))
	}
	a, err := toOperand(params[0])
	if err != nil {
		return nil, err
	}
	switch a.kind {
	case 'b':
		return !a.b, nil
	case 'i':
		return ^a.i, nil
	}
	return nil, fmt.Errorf("unsupported operand type for ~: float")
}

// mod is floored modulo: the result takes the divisor's sign. Integer modulo
// by zero yields 0; float modulo by zero yields NaN.
func mod(params ...any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("%% takes 2 operands, got %d", len(params))
	}
	a, err := toOperand(params[0])
	if err != nil {
		return nil, err
	}
	b, err := toOperand(params[1])
	if err != nil {
		return nil, err
	}
	if a.kind != 'f' && b.kind != 'f' {
		x, y := a.asInt(), b.asInt()
		if y == 0 {
			return int64(0), nil
		}
		r := x % y
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return r, nil
	}
	x, y := a.asFloat(), b.asFloat()
	r := math.Mod(x, y)
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return r, nil
}

func unaryFloat(name string, fn func(float64) float64) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s takes 1 argument, got %d", name, len(params))
		}
		a, err := toOperand(params[0])
		if err != nil {
			return nil, err
		}
		return fn(a.asFloat()), nil
	}
}

func isnan(params ...any) (any, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("isnan takes 1 argument, got %d", len(params))
	}
	a, err := toOperand(params[0])
	if err != nil {
		return nil, err
	}
	return a.kind == 'f' && math.IsNaN(a.f), nil
}

func functionOptions() []expr.Option {
	return []expr.Option{
		expr.Function("fn_band", bitwise("&",
			func(a, b bool) bool { return a && b },
			func(a, b int64) int64 { return a & b },
		)),
		expr.Function("fn_bor", bitwise("|",
			func(a, b bool) bool { return a || b },
			func(a, b int64) int64 { return a | b },
		)),
		expr.Function("fn_bnot", bnot),
		expr.Function("fn_mod", mod),
		expr.Function("fn_abs", unaryFloat("abs", math.Abs)),
		expr.Function("fn_sqrt", unaryFloat("sqrt", math.Sqrt)),
		expr.Function("fn_log", unaryFloat("log", math.Log)),
		expr.Function("fn_exp", unaryFloat("exp", math.Exp)),
		expr.Function("fn_isnan", isnan),
	}
}
