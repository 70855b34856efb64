package numexpr

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"

	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

// Expression text uses array-language spelling: & | ~ are elementwise
// and/or/not, logical on bools and bitwise on integers, and & | bind tighter
// than comparisons. translate parses the text with those rules and emits
// fully parenthesized evaluator text using && || !. bitwisePatcher then
// replaces those nodes with calls that dispatch on the operand types. Modulo
// is patched too, since the evaluator restricts % to integers.

type bitwisePatcher struct{}

func (bitwisePatcher) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.BinaryNode:
		var fn string
		switch n.Operator {
		case "&&", "and":
			fn = "fn_band"
		case "||", "or":
			fn = "fn_bor"
		case "%":
			fn = "fn_mod"
		default:
			return
		}
		ast.Patch(node, &ast.CallNode{
			Callee:    &ast.IdentifierNode{Value: fn},
			Arguments: []ast.Node{n.Left, n.Right},
		})
	case *ast.UnaryNode:
		if n.Operator == "!" || n.Operator == "not" {
			ast.Patch(node, &ast.CallNode{
				Callee:    &ast.IdentifierNode{Value: "fn_bnot"},
				Arguments: []ast.Node{n.Node},
			})
		}
	}
}

var zeroes = map[string]any{
	string(panel.Bool):    false,
	string(panel.Float64): float64(0),
	string(panel.Int64):   int64(0),
}

type programCache struct {
	mu       sync.Mutex
	programs map[string]*vm.Program
}

var cache = &programCache{programs: make(map[string]*vm.Program)}

// compile returns the cached program for text over inputs of the given dtypes.
func compile(text string, toks []token, dtypes []string) (*vm.Program, error) {
	key := text + "\x00" + strings.Join(dtypes, ",")

	cache.mu.Lock()
	p, ok := cache.programs[key]
	cache.mu.Unlock()
	if ok {
		return p, nil
	}

	env := make(map[string]any, len(dtypes))
	for i, d := range dtypes {
		zero, ok := zeroes[d]
		if !ok {
			return nil, fmt.Errorf("input %d has unsupported dtype %q", i, d)
		}
		env[Placeholder(i)] = zero
	}

	opts := []expr.Option{
		expr.Env(env),
		expr.Patch(bitwisePatcher{}),
	}
	opts = append(opts, functionOptions()...)

	src, err := translate(toks)
	if err != nil {
		return nil, err
	}
	p, err = expr.Compile(src, opts...)
	if err != nil {
		return nil, err
	}

	cache.mu.Lock()
	cache.programs[key] = p
	cache.mu.Unlock()
	return p, nil
}

// Evaluate computes text elementwise over inputs, which must share a shape,
// and converts the result to out (panel.Bool or panel.Float64). Numbers
// convert to bool as "non-zero".
func Evaluate(text string, inputs []panel.Array, out panel.DType) (panel.Array, error) {
	if len(inputs) == 0 {
		return nil, term.NewInvalidExpression(text, "no input arrays")
	}
	if out != panel.Bool && out != panel.Float64 {
		return nil, fmt.Errorf("evaluate %q: unsupported output dtype %q", text, out)
	}
	shape := inputs[0].Shape()
	if err := panel.SameShape(shape, inputs...); err != nil {
		return nil, term.NewEvaluationFailed(text, err)
	}

	toks, err := lex(text)
	if err != nil {
		return nil, term.NewInvalidExpression(text, err.Error())
	}
	dtypes := make([]string, len(inputs))
	for i, in := range inputs {
		dtypes[i] = string(in.DType())
	}
	program, err := compile(text, toks, dtypes)
	if err != nil {
		return nil, term.NewInvalidExpression(text, err.Error())
	}

	n := shape.Len()
	var (
		bools  []bool
		floats []float64
	)
	if out == panel.Bool {
		bools = make([]bool, n)
	} else {
		floats = make([]float64, n)
	}

	names := make([]string, len(inputs))
	for i := range inputs {
		names[i] = Placeholder(i)
	}
	env := make(map[string]any, len(inputs))
	var machine vm.VM

	for idx := 0; idx < n; idx++ {
		for i, in := range inputs {
			env[names[i]] = element(in, idx)
		}
		v, err := machine.Run(program, env)
		if err != nil {
			return nil, term.NewEvaluationFailed(text, fmt.Errorf("element %d: %w", idx, err))
		}
		if out == panel.Bool {
			b, err := toBool(v)
			if err != nil {
				return nil, term.NewEvaluationFailed(text, err)
			}
			bools[idx] = b
		} else {
			f, err := toFloat(v)
			if err != nil {
				return nil, term.NewEvaluationFailed(text, err)
			}
			floats[idx] = f
		}
	}

	if out == panel.Bool {
		return panel.NewBool(shape.Rows, shape.Cols, bools)
	}
	return panel.NewFloat64(shape.Rows, shape.Cols, floats)
}

func element(a panel.Array, idx int) any {
	switch v := a.(type) {
	case *panel.BoolArray:
		return v.Values[idx]
	case *panel.Float64Array:
		return v.Values[idx]
	case *panel.Int64Array:
		return v.Values[idx]
	}
	return nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int:
		return x != 0, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	}
	return false, fmt.Errorf("result %v (%T) is not boolean or numeric", v, v)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	return math.NaN(), fmt.Errorf("result %v (%T) is not numeric", v, v)
}
