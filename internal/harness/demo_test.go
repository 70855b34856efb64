package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioDir holds the demo scenarios shipped at the project root.
const scenarioDir = "../../testdata/scenarios"

// TestDemoScenarios runs every demo scenario and compares its rendering
// with testdata/golden/<name>.golden.
func TestDemoScenarios(t *testing.T) {
	scenarios, err := LoadScenarios(scenarioDir, "")
	require.NoError(t, err)
	require.Len(t, scenarios, 6)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			assert.Equal(t, s.Name+".yaml", filepath.Base(s.Path()), "scenario name matches file name")

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

// TestDemoScenariosReplay validates deterministic replay.
// Running the same scenario twice should produce identical renderings.
func TestDemoScenariosReplay(t *testing.T) {
	s, err := LoadScenario(filepath.Join(scenarioDir, "staged_screen.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, string(Render(s.Name, s.Entities, first)), string(Render(s.Name, s.Entities, second)))
}

func TestDemoScenarios_Filter(t *testing.T) {
	scenarios, err := LoadScenarios(scenarioDir, "*_screen.yaml")
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"percentile_screen", "staged_screen"}, names)
}
