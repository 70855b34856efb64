package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sieve/internal/engine"
	"github.com/roach88/sieve/internal/store"
)

func liquidityScenario(t *testing.T) *Scenario {
	t.Helper()
	dir := t.TempDir()
	return &Scenario{
		Name:        "liquidity",
		Description: "20-80 percentile screen",
		Pipeline:    writePipeline(t, dir, "liquidity", liquidityBody),
		Entities:    []string{"A", "B", "C", "D", "E"},
		Columns: map[string]Matrix{
			"volume": {{10, 20, 30, 40, 50}, {50, 40, 30, 20, 10}},
		},
		Expect: map[string]Matrix{
			"liquid": {
				{false, true, true, true, false},
				{false, true, true, true, false},
			},
		},
	}
}

func TestRun_Pass(t *testing.T) {
	result, err := Run(liquidityScenario(t))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "liquidity", result.Pipeline)
	assert.Equal(t, "scenario-liquidity", result.RunID)
	assert.Equal(t, int64(1), result.Seq)
	assert.Equal(t, 1, result.Computed)
	assert.Equal(t, 0, result.CacheHits)
	assert.Equal(t, []string{"liquid"}, result.OutputNames())
}

func TestRun_Mismatch(t *testing.T) {
	s := liquidityScenario(t)
	s.Expect["liquid"][1] = []any{true, true, true, true, false}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "output liquid at [1][0]")
	assert.Contains(t, result.Errors[0], "Expected: true")
	assert.Contains(t, result.Errors[0], "Actual: false")
}

func TestRun_UnknownOutput(t *testing.T) {
	s := liquidityScenario(t)
	s.Expect["illiquid"] = Matrix{{true, true, true, true, true}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no such output")
}

func TestRun_ExpectError(t *testing.T) {
	s := liquidityScenario(t)
	s.Expect = nil
	s.Columns = map[string]Matrix{"price": {{1, 2, 3, 4, 5}}}
	s.ExpectError = string(engine.ErrCodeMissingColumn)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "MISSING_COLUMN", result.ErrorCode)
}

func TestRun_ExpectErrorWrongCode(t *testing.T) {
	s := liquidityScenario(t)
	s.Expect = nil
	s.Columns = map[string]Matrix{"price": {{1, 2, 3, 4, 5}}}
	s.ExpectError = "E207"

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "MISSING_COLUMN", result.ErrorCode)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error E207")
}

func TestRun_ExpectErrorButSucceeds(t *testing.T) {
	s := liquidityScenario(t)
	s.Expect = nil
	s.ExpectError = "E207"

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "run succeeded")
}

func TestRun_UnexpectedErrorReturned(t *testing.T) {
	s := liquidityScenario(t)
	s.Columns = map[string]Matrix{"volume": {{1.5, 2, 3, 4, 5}}}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "columns.volume")
}

func TestRun_CompileErrorCode(t *testing.T) {
	dir := t.TempDir()
	s := &Scenario{
		Name:        "bad",
		Description: "inverted bounds",
		Pipeline: writePipeline(t, dir, "bad", `
	columns: volume: "int64"
	terms: inverted: {kind: "percentile", input: "volume", min: 80, max: 20}
	outputs: ["inverted"]`),
		Entities:    []string{"A"},
		Columns:     map[string]Matrix{"volume": {{1}}},
		ExpectError: "BAD_PERCENTILE_BOUNDS",
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "E207", result.ErrorCode, "outermost code is reported")
}

func TestExecute_SharedStoreHitsCache(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer st.Close()

	h := New(st, WithParallelism(2), WithRunIDGenerator(engine.NewFixedGenerator("run-1", "run-2")))
	ctx := context.Background()

	s := liquidityScenario(t)
	first, err := h.Execute(ctx, s)
	require.NoError(t, err)
	assert.True(t, first.Pass)
	assert.Equal(t, 1, first.Computed)
	assert.Equal(t, int64(1), first.Seq)

	second, err := h.Execute(ctx, s)
	require.NoError(t, err)
	assert.True(t, second.Pass)
	assert.Equal(t, 0, second.Computed)
	assert.Equal(t, 1, second.CacheHits)
	assert.Equal(t, "run-2", second.RunID)
	assert.Equal(t, int64(2), second.Seq)

	runs, err := st.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "liquidity", runs[1].Pipeline)
	assert.Equal(t, []string{"liquid"}, runs[1].Outputs)
}

func TestRun_Deterministic(t *testing.T) {
	s := liquidityScenario(t)
	a, err := Run(s)
	require.NoError(t, err)
	b, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, Render(s.Name, s.Entities, a), Render(s.Name, s.Entities, b))
}

func TestErrorCodes(t *testing.T) {
	err := &engine.RunError{Code: engine.ErrCodeComputeFailed, Message: "boom"}
	assert.Equal(t, []string{"COMPUTE_FAILED"}, ErrorCodes(err))
	assert.Empty(t, ErrorCodes(assert.AnError))
}
