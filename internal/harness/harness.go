package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/sieve/internal/engine"
	"github.com/roach88/sieve/internal/graph"
	"github.com/roach88/sieve/internal/pipeline"
	"github.com/roach88/sieve/internal/store"
)

// Harness runs scenarios against a result store.
type Harness struct {
	store       *store.Store
	logger      *slog.Logger
	parallelism int
	runIDs      engine.RunIDGenerator
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to the engine. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithParallelism bounds concurrent term evaluation per level.
func WithParallelism(n int) Option {
	return func(h *Harness) { h.parallelism = n }
}

// WithRunIDGenerator replaces the per-scenario fixed run ID ("scenario-<name>"
// or the scenario's run_id).
func WithRunIDGenerator(g engine.RunIDGenerator) Option {
	return func(h *Harness) { h.runIDs = g }
}

// New returns a Harness that caches results in st and records each run in
// its run log.
func New(st *store.Store, opts ...Option) *Harness {
	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory result store, so runs do not
// share cached results.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	return New(st).Execute(context.Background(), scenario)
}

// Execute compiles the scenario's pipeline, runs it over the scenario's
// data and checks the outputs.
//
// An error is returned only when the scenario cannot be run at all. A run
// that fails with the scenario's expect_error passes; any other pipeline or
// engine failure is returned as is.
func (h *Harness) Execute(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	res, err := h.run(ctx, scenario, result)
	if err != nil {
		codes := ErrorCodes(err)
		if scenario.ExpectError == "" {
			return nil, err
		}
		if len(codes) > 0 {
			result.ErrorCode = codes[0]
		}
		if !slices.Contains(codes, scenario.ExpectError) {
			result.AddError(fmt.Sprintf("expected error %s, got %v", scenario.ExpectError, err))
		}
		return result, nil
	}
	if scenario.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected error %s, run succeeded", scenario.ExpectError))
	}

	result.RunID = res.RunID
	result.Outputs = res.Outputs
	result.Computed = res.Computed
	result.CacheHits = res.CacheHits

	for _, msg := range EvaluateExpectations(res.Outputs, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, result *Result) (*engine.Result, error) {
	p, err := pipeline.LoadAndCompile(scenario.PipelineDir(), scenario.PipelineName)
	if err != nil {
		return nil, err
	}
	result.Pipeline = p.Name

	g, err := graph.New(p.Outputs)
	if err != nil {
		return nil, err
	}
	mask, err := scenario.RootMask(g.MaxExtraRows())
	if err != nil {
		return nil, err
	}
	loader, err := scenario.Loader(p.Columns())
	if err != nil {
		return nil, err
	}

	var runIDs engine.RunIDGenerator = engine.NewFixedGenerator(scenario.runID())
	if h.runIDs != nil {
		runIDs = h.runIDs
	}
	opts := []engine.Option{
		engine.WithLogger(h.logger),
		engine.WithRunIDGenerator(runIDs),
		engine.WithCache(h.store),
	}
	if h.parallelism > 0 {
		opts = append(opts, engine.WithParallelism(h.parallelism))
	}

	res, err := engine.New(loader, opts...).Run(ctx, p.Outputs, mask)
	if err != nil {
		return nil, err
	}

	seq, err := h.store.RecordRun(ctx, store.Run{
		ID:          res.RunID,
		Pipeline:    p.Name,
		Fingerprint: res.Fingerprint,
		Outputs:     p.OutputNames(),
		Terms:       res.Terms,
		Computed:    res.Computed,
		CacheHits:   res.CacheHits,
	})
	if err != nil {
		return nil, err
	}
	result.Seq = seq
	return res, nil
}
