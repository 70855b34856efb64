package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// pipelinesDir and scenariosDir hold the demo pipelines and scenarios
// shipped at the project root.
const (
	pipelinesDir = "../../testdata/pipelines"
	scenariosDir = "../../testdata/scenarios"
)

// jsonResponse mirrors CLIResponse with Data left raw for typed decoding.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
	RunID  string          `json:"run_id"`
}

func decodeResponse(t *testing.T, buf *bytes.Buffer, data any) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), "output: %s", buf.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

// writePipeline writes a one-pipeline CUE package called name into a new
// temporary directory and returns the directory.
func writePipeline(t *testing.T, name, body string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	src := "package " + name + "\n\npipeline: " + name + ": {\n" + body + "\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".cue"), []byte(src), 0644))
	return dir
}

func execute(cmd *cobra.Command, args ...string) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}
