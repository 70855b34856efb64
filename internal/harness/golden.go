package harness

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Render writes a result as plain text: a header, then every output as one
// line per period. Booleans print as T or F, floats in shortest form, NaN as
// NaN.
//
//	scenario: screen
//	pipeline: screen
//	run: scenario-screen seq=1 computed=3 cache_hits=0
//	entities: A B C
//
//	output both bool 2x3
//	[0] T F T
//	[1] F F T
func Render(scenarioName string, entities []string, r *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", scenarioName)
	if r.Pipeline != "" {
		fmt.Fprintf(&buf, "pipeline: %s\n", r.Pipeline)
	}
	if r.ErrorCode != "" {
		fmt.Fprintf(&buf, "error: %s\n", r.ErrorCode)
		return buf.Bytes()
	}
	fmt.Fprintf(&buf, "run: %s seq=%d computed=%d cache_hits=%d\n", r.RunID, r.Seq, r.Computed, r.CacheHits)
	fmt.Fprintf(&buf, "entities: %s\n", strings.Join(entities, " "))

	for _, name := range r.OutputNames() {
		a := r.Outputs[name]
		shape := a.Shape()
		fmt.Fprintf(&buf, "\noutput %s %s %dx%d\n", name, a.DType(), shape.Rows, shape.Cols)
		for i := 0; i < shape.Rows; i++ {
			cells := make([]string, shape.Cols)
			for j := range cells {
				cells[j] = renderCell(cell(a, i, j))
			}
			fmt.Fprintf(&buf, "[%d] %s\n", i, strings.Join(cells, " "))
		}
	}
	return buf.Bytes()
}

func renderCell(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "T"
		}
		return "F"
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return "?"
}

// RunWithGolden executes a scenario and compares its rendered outputs
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the rendering doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, scenario.Entities, result)
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, entities []string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Render(scenarioName, entities, result))
}
