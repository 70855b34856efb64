package harness

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/sieve/internal/engine"
	"github.com/roach88/sieve/internal/graph"
	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/pipeline"
	"github.com/roach88/sieve/internal/term"
)

// floatTolerance bounds the absolute difference between an expected and an
// actual float.
const floatTolerance = 1e-9

// AssertionError is returned when an output differs from its expectation.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Output   string // Output name
	Row, Col int    // First mismatching cell, or -1 for a shape mismatch
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: output %s", e.Output)
	if e.Row >= 0 {
		fmt.Fprintf(&buf, " at [%d][%d]", e.Row, e.Col)
	}
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	return buf.String()
}

// EvaluateExpectations compares every expected output with the computed
// one and returns one message per failure, in output name order.
func EvaluateExpectations(outputs map[string]panel.Array, expect map[string]Matrix) []string {
	names := make([]string, 0, len(expect))
	for name := range expect {
		names = append(names, name)
	}
	sort.Strings(names)

	var failures []string
	for _, name := range names {
		got, ok := outputs[name]
		if !ok {
			failures = append(failures, (&AssertionError{
				Output:   name,
				Row:      -1,
				Expected: "output to be computed",
				Actual:   fmt.Sprintf("no such output (have %v)", sortedKeys(outputs)),
			}).Error())
			continue
		}
		if err := compareOutput(name, expect[name], got); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

// compareOutput reports the first cell of got that differs from want.
func compareOutput(name string, want Matrix, got panel.Array) error {
	shape := got.Shape()
	wantCols := 0
	if len(want) > 0 {
		wantCols = len(want[0])
	}
	if shape.Rows != len(want) || shape.Cols != wantCols {
		return &AssertionError{
			Output:   name,
			Row:      -1,
			Expected: fmt.Sprintf("shape %dx%d", len(want), wantCols),
			Actual:   fmt.Sprintf("shape %s", shape),
		}
	}

	for i, row := range want {
		for j, w := range row {
			actual := cell(got, i, j)
			if !cellEqual(w, actual) {
				return &AssertionError{
					Output:   name,
					Row:      i,
					Col:      j,
					Expected: formatValue(w),
					Actual:   formatValue(actual),
				}
			}
		}
	}
	return nil
}

// cell returns the element at (row, col) as a bool, float64 or int64.
func cell(a panel.Array, row, col int) any {
	switch v := a.(type) {
	case *panel.BoolArray:
		return v.At(row, col)
	case *panel.Float64Array:
		return v.At(row, col)
	case *panel.Int64Array:
		return v.At(row, col)
	}
	return nil
}

// Values returns a's rows in scenario form: bools, float64s and int64s,
// with NaN as nil so the rows can be pasted into an expect block.
func Values(a panel.Array) Matrix {
	shape := a.Shape()
	rows := make(Matrix, shape.Rows)
	for i := range rows {
		rows[i] = make([]any, shape.Cols)
		for j := range rows[i] {
			v := cell(a, i, j)
			if f, ok := v.(float64); ok && math.IsNaN(f) {
				v = nil
			}
			rows[i][j] = v
		}
	}
	return rows
}

// cellEqual compares a YAML scalar with an array element. null matches NaN;
// numbers compare across int and float within floatTolerance.
func cellEqual(want, got any) bool {
	if b, ok := want.(bool); ok {
		g, ok := got.(bool)
		return ok && b == g
	}
	w, ok := toFloat(want)
	if !ok {
		return false
	}
	var g float64
	switch v := got.(type) {
	case float64:
		g = v
	case int64:
		g = float64(v)
	default:
		return false
	}
	if math.IsNaN(w) || math.IsNaN(g) {
		return math.IsNaN(w) && math.IsNaN(g)
	}
	return math.Abs(w-g) <= floatTolerance
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		return fmt.Sprintf("%g", x)
	}
	return fmt.Sprintf("%v", v)
}

func sortedKeys(m map[string]panel.Array) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ErrorCodes returns the codes carried by err and the errors it wraps,
// outermost first. Pipeline, engine, graph and term errors carry codes.
func ErrorCodes(err error) []string {
	var codes []string
	add := func(code string) {
		if code != "" && !slices.Contains(codes, code) {
			codes = append(codes, code)
		}
	}

	var le *pipeline.LoadError
	if errors.As(err, &le) {
		add(le.Code)
	}
	var ve *pipeline.ValidationError
	if errors.As(err, &ve) {
		add(ve.Code)
	}
	add(string(engine.Code(err)))
	if graph.IsCyclicDependency(err) {
		add("CYCLIC_DEPENDENCY")
	}
	add(string(term.Code(err)))
	return codes
}
