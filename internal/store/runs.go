package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/sieve/internal/ir"
)

// Run is one engine run as recorded in the run log.
type Run struct {
	ID          string   `json:"id"`
	Seq         int64    `json:"seq"`
	Pipeline    string   `json:"pipeline"`
	Fingerprint string   `json:"fingerprint"`
	Outputs     []string `json:"outputs"`
	Terms       int      `json:"terms"`
	Computed    int      `json:"computed"`
	CacheHits   int      `json:"cache_hits"`
}

// RecordRun appends run to the run log and returns its assigned seq.
// run.Seq is ignored. Recording an existing run ID is a no-op that returns
// the seq already assigned.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	outputs, err := marshalOutputs(run.Outputs)
	if err != nil {
		return 0, fmt.Errorf("record run %s: %w", run.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seq, pipeline, fingerprint, outputs, terms, computed, cache_hits)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Pipeline,
		run.Fingerprint,
		outputs,
		run.Terms,
		run.Computed,
		run.CacheHits,
	)
	if err != nil {
		return 0, fmt.Errorf("record run %s: %w", run.ID, err)
	}

	var seq int64
	if err := s.db.QueryRowContext(ctx, "SELECT seq FROM runs WHERE id = ?", run.ID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("record run %s: read seq: %w", run.ID, err)
	}
	return seq, nil
}

// Runs returns every recorded run in seq order.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, pipeline, fingerprint, outputs, terms, computed, cache_hits
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			outputs string
		)
		if err := rows.Scan(&r.ID, &r.Seq, &r.Pipeline, &r.Fingerprint, &outputs, &r.Terms, &r.Computed, &r.CacheHits); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.Outputs, err = unmarshalOutputs(outputs); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	return runs, nil
}

// marshalOutputs converts output names to canonical JSON TEXT for storage.
func marshalOutputs(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	data, err := ir.MarshalCanonical(names)
	if err != nil {
		return "", fmt.Errorf("marshal outputs: %w", err)
	}
	return string(data), nil
}

func unmarshalOutputs(data string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal outputs: %w", err)
	}
	return names, nil
}
