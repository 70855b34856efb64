package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sieve/internal/panel"
)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(id, fingerprint string, outputs ...string) Run {
	return Run{
		ID:          id,
		Pipeline:    "screen",
		Fingerprint: fingerprint,
		Outputs:     outputs,
		Terms:       4,
		Computed:    3,
	}
}

func mustFloats(t *testing.T, rows ...[]float64) *panel.Float64Array {
	t.Helper()
	a, err := panel.Float64Rows(rows)
	if err != nil {
		t.Fatalf("Float64Rows() failed: %v", err)
	}
	return a
}
