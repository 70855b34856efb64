package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidPipelines(t *testing.T) {
	buf, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join(pipelinesDir, "screen"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ All pipelines valid (1)")

	buf, err = execute(NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join(pipelinesDir, "liquidity"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ All pipelines valid (2)")
}

func TestValidate_ValidPipelinesJSON(t *testing.T) {
	buf, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), filepath.Join(pipelinesDir, "liquidity"))
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, buf, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, []string{"liquidity", "staged"}, result.Pipelines)
}

func TestValidate_NonExistentDirectory(t *testing.T) {
	buf, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, buf.String(), "Error [E005]")
	assert.Contains(t, buf.String(), "not found")
}

func TestValidate_EmptyDirectory(t *testing.T) {
	buf, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
	assert.Contains(t, buf.String(), "no CUE files found")
}

func TestValidate_InvalidPipeline(t *testing.T) {
	dir := writePipeline(t, "bad", `
	columns: close: "float64"
	terms: cheap: {kind: "binop", op: "<", left: "closee", right: 50}
	outputs: ["cheap", "missing"]`)

	buf, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")

	out := buf.String()
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "bad: terms.cheap")
	assert.Contains(t, out, "E202")
	assert.Contains(t, out, "E206")
}

func TestValidate_ConstructionError(t *testing.T) {
	buf, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join(pipelinesDir, "badbounds"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "badbounds: terms.inverted")
	assert.Contains(t, buf.String(), "E207")
}

func TestValidate_InvalidPipelineJSON(t *testing.T) {
	buf, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), filepath.Join(pipelinesDir, "badbounds"))
	require.Error(t, err)

	var result ValidationResult
	resp := decodeResponse(t, buf, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E207", resp.Error.Code)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "badbounds", result.Errors[0].Pipeline)
	assert.Equal(t, "terms.inverted", result.Errors[0].Field)
}
