package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_Text(t *testing.T) {
	buf, err := execute(NewGraphCommand(&RootOptions{Format: "text"}), filepath.Join(pipelinesDir, "screen"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "pipeline screen: 7 terms, 3 levels, 0 lookback rows")
	assert.Contains(t, out, "PercentileFilter")
	assert.Contains(t, out, "SequencedFilter")
	assert.Contains(t, out, "[liquid]")
	assert.Contains(t, out, "output both = ")
	assert.Contains(t, out, "output staged = ")
}

func TestGraph_JSONIsTopological(t *testing.T) {
	buf, err := execute(NewGraphCommand(&RootOptions{Format: "json"}), filepath.Join(pipelinesDir, "screen"))
	require.NoError(t, err)

	var result GraphResult
	resp := decodeResponse(t, buf, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "screen", result.Pipeline)
	assert.Equal(t, 3, result.Levels)
	require.Len(t, result.Terms, 7)
	assert.Len(t, result.Outputs, 2)

	seen := make(map[string]GraphNode)
	for _, n := range result.Terms {
		for _, in := range n.Inputs {
			parent, ok := seen[in]
			require.True(t, ok, "%s listed before its input %s", n.ID, in)
			assert.Less(t, parent.Level, n.Level)
		}
		seen[n.ID] = n
	}
	for name, id := range result.Outputs {
		assert.Contains(t, seen, id, "output %s", name)
	}
}

func TestGraph_PickPipeline(t *testing.T) {
	dir := filepath.Join(pipelinesDir, "liquidity")

	buf, err := execute(NewGraphCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "choose one by name")

	buf, err = execute(NewGraphCommand(&RootOptions{Format: "text"}), dir, "--pipeline", "staged")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "pipeline staged: 4 terms")
}

func TestGraph_InvalidPipeline(t *testing.T) {
	buf, err := execute(NewGraphCommand(&RootOptions{Format: "text"}), filepath.Join(pipelinesDir, "badbounds"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E207]")
}
