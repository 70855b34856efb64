package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sieve/internal/engine"
)

const volumeData = `
entities: [A, B, C, D, E]
columns:
  volume:
    - [10, 20, 30, 40, 50]
`

func writeData(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCommand(format string, ids ...string) *RunOptions {
	return &RunOptions{
		RootOptions: &RootOptions{Format: format},
		RunIDs:      engine.NewFixedGenerator(ids...),
	}
}

func TestRun_MissingDataFlag(t *testing.T) {
	_, err := execute(NewRunCommand(&RootOptions{Format: "text"}), filepath.Join(pipelinesDir, "screen"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "data")
}

func TestRun_Text(t *testing.T) {
	data := writeData(t, volumeData)
	dir := filepath.Join(pipelinesDir, "liquidity")

	buf, err := execute(newRunCommand(runCommand("text", "run-1")), dir, "--data", data, "--pipeline", "liquidity")
	require.NoError(t, err)

	want := "scenario: prices\n" +
		"pipeline: liquidity\n" +
		"run: run-1 seq=1 computed=1 cache_hits=0\n" +
		"entities: A B C D E\n" +
		"\n" +
		"output liquid bool 1x5\n" +
		"[0] F T T T F\n"
	assert.Equal(t, want, buf.String())
}

func TestRun_JSON(t *testing.T) {
	data := writeData(t, volumeData)
	dir := filepath.Join(pipelinesDir, "liquidity")

	buf, err := execute(newRunCommand(runCommand("json", "run-1")), dir, "--data", data, "-p", "liquidity")
	require.NoError(t, err)

	var result RunResult
	resp := decodeResponse(t, buf, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "liquidity", result.Pipeline)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, result.Entities)
	assert.Equal(t, [][]any{{false, true, true, true, false}}, [][]any(result.Outputs["liquid"]))
}

func TestRun_CachedAcrossInvocations(t *testing.T) {
	data := writeData(t, volumeData)
	dir := filepath.Join(pipelinesDir, "liquidity")
	db := filepath.Join(t.TempDir(), "sieve.db")

	_, err := execute(newRunCommand(runCommand("text", "run-1")), dir, "--data", data, "-p", "liquidity", "--db", db)
	require.NoError(t, err)

	buf, err := execute(newRunCommand(runCommand("text", "run-2")), dir, "--data", data, "-p", "liquidity", "--db", db, "--parallelism", "2")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "run: run-2 seq=2 computed=0 cache_hits=1")
	assert.Contains(t, buf.String(), "[0] F T T T F")
}

func TestRun_MissingColumn(t *testing.T) {
	data := writeData(t, "entities: [A]\ncolumns:\n  price:\n    - [1]\n")

	buf, err := execute(newRunCommand(runCommand("text", "run-1")), filepath.Join(pipelinesDir, "liquidity"), "--data", data, "-p", "liquidity")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [MISSING_COLUMN]")
}

func TestRun_BadDataFile(t *testing.T) {
	data := writeData(t, "columns:\n  volume:\n    - [1]\n")

	buf, err := execute(newRunCommand(runCommand("text", "run-1")), filepath.Join(pipelinesDir, "liquidity"), "--data", data)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "entities list is required")
}

func TestRun_InvalidPipeline(t *testing.T) {
	data := writeData(t, "entities: [A]\ncolumns:\n  volume:\n    - [1]\n")

	buf, err := execute(newRunCommand(runCommand("json", "run-1")), filepath.Join(pipelinesDir, "badbounds"), "--data", data)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, buf, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E207", resp.Error.Code)
}
