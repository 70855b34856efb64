package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario pairs a pipeline with input data and the outputs it should
// produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Pipeline is the directory holding the pipeline's CUE package.
	// Relative paths are resolved against the scenario file's directory.
	Pipeline string `yaml:"pipeline"`

	// PipelineName selects one pipeline when the directory defines several.
	PipelineName string `yaml:"pipeline_name,omitempty"`

	// Entities names the columns of every matrix.
	Entities []string `yaml:"entities"`

	// Columns holds the loader data, one row-major matrix per column name.
	// It must include any lookback rows the pipeline needs.
	Columns map[string]Matrix `yaml:"columns"`

	// Mask selects the assets per period. When absent every asset is
	// selected in every period after the lookback rows.
	Mask [][]bool `yaml:"mask,omitempty"`

	// Expect maps output names to their expected matrices. Outputs not
	// listed are computed but not checked.
	Expect map[string]Matrix `yaml:"expect,omitempty"`

	// ExpectError is the code of an error the run must fail with, such as
	// "E207" or "INSUFFICIENT_HISTORY".
	ExpectError string `yaml:"expect_error,omitempty"`

	// RunID fixes the run ID for reproducible output. Defaults to
	// "scenario-<name>".
	RunID string `yaml:"run_id,omitempty"`

	// path is the file the scenario was read from.
	path string
}

// Matrix is a row-major grid of YAML scalars: bools, numbers, or null for
// a missing float.
type Matrix [][]any

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	scenario, err := decodeScenario(path)
	if err != nil {
		return nil, err
	}
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// LoadData reads a data file: a scenario without name, pipeline or
// expectations. Only entities, columns and mask are checked.
func LoadData(path string) (*Scenario, error) {
	scenario, err := decodeScenario(path)
	if err != nil {
		return nil, err
	}
	if err := validateData(scenario); err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	return scenario, nil
}

func decodeScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.path = path
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir whose base name matches
// pattern (a filepath.Match glob; empty matches all), sorted by file name.
func LoadScenarios(dir, pattern string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	var out []*Scenario
	for _, p := range paths {
		if pattern != "" {
			ok, err := filepath.Match(pattern, filepath.Base(p))
			if err != nil {
				return nil, fmt.Errorf("bad filter %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
		}
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// PipelineDir returns the pipeline directory, resolved against the scenario
// file's directory when relative.
func (s *Scenario) PipelineDir() string {
	if filepath.IsAbs(s.Pipeline) || s.path == "" {
		return s.Pipeline
	}
	return filepath.Join(filepath.Dir(s.path), s.Pipeline)
}

// Path returns the file the scenario was loaded from, if any.
func (s *Scenario) Path() string { return s.path }

func (s *Scenario) runID() string {
	if s.RunID != "" {
		return s.RunID
	}
	return "scenario-" + s.Name
}

// validateScenario checks that required fields are present and every matrix
// has one value per entity.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Pipeline == "" {
		return fmt.Errorf("pipeline is required")
	}

	if len(s.Expect) == 0 && s.ExpectError == "" {
		return fmt.Errorf("one of expect or expect_error is required")
	}
	if len(s.Expect) > 0 && s.ExpectError != "" {
		return fmt.Errorf("expect and expect_error are mutually exclusive")
	}

	if info, err := os.Stat(s.PipelineDir()); err != nil || !info.IsDir() {
		return fmt.Errorf("pipeline directory not found: %s", s.PipelineDir())
	}

	if err := validateData(s); err != nil {
		return err
	}
	for name, m := range s.Expect {
		if err := m.check(len(s.Entities)); err != nil {
			return fmt.Errorf("expect.%s: %w", name, err)
		}
	}
	return nil
}

// validateData checks that every column and mask row has one value per
// entity.
func validateData(s *Scenario) error {
	if len(s.Entities) == 0 {
		return fmt.Errorf("entities list is required and must be non-empty")
	}

	width := len(s.Entities)
	for name, m := range s.Columns {
		if err := m.check(width); err != nil {
			return fmt.Errorf("columns.%s: %w", name, err)
		}
	}
	for i, row := range s.Mask {
		if len(row) != width {
			return fmt.Errorf("mask[%d]: has %d values, want %d", i, len(row), width)
		}
	}

	return nil
}

func (m Matrix) check(width int) error {
	if len(m) == 0 {
		return fmt.Errorf("no rows")
	}
	for i, row := range m {
		if len(row) != width {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), width)
		}
	}
	return nil
}
