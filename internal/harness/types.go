package harness

import (
	"sort"

	"github.com/roach88/sieve/internal/panel"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expected output matched, or the expected error occurred.
	Pass bool `json:"pass"`

	// Pipeline is the name of the pipeline that ran.
	Pipeline string `json:"pipeline"`

	// RunID and Seq identify the run in the result store.
	RunID string `json:"run_id"`
	Seq   int64  `json:"seq"`

	// Outputs holds every output the pipeline computed.
	Outputs map[string]panel.Array `json:"-"`

	// Computed and CacheHits count term evaluations.
	Computed  int `json:"computed"`
	CacheHits int `json:"cache_hits"`

	// ErrorCode is the code of the error the run failed with, when the
	// scenario expected one.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Outputs: make(map[string]panel.Array),
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// OutputNames returns the computed output names in sorted order.
func (r *Result) OutputNames() []string {
	names := make([]string, 0, len(r.Outputs))
	for name := range r.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
