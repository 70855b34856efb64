package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/sieve/internal/graph"
	"github.com/roach88/sieve/internal/ir"
	"github.com/roach88/sieve/internal/panel"
	"github.com/roach88/sieve/internal/term"
)

// ResultCache stores computed term outputs between runs. Implemented by
// store.Store.
type ResultCache interface {
	// Get returns the array stored under key, decoded as dtype.
	// ok is false on a miss.
	Get(ctx context.Context, key string, dtype panel.DType) (a panel.Array, ok bool, err error)

	// Put stores a under key. Storing an existing key is a no-op.
	Put(ctx context.Context, key string, a panel.Array) error
}

// maskColumn is the fingerprint entry for the root mask. Column names are
// user identifiers and never contain NUL.
const maskColumn = "\x00mask"

// Engine evaluates term graphs against a Loader.
//
// Thread-safety: an Engine holds no per-run state and Run may be called
// concurrently.
type Engine struct {
	loader      Loader
	cache       ResultCache
	logger      *slog.Logger
	parallelism int
	runIDs      RunIDGenerator
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithParallelism bounds how many terms of one level are computed at once.
// Default: runtime.GOMAXPROCS(0). Values below 1 are ignored.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.parallelism = n
		}
	}
}

// WithRunIDGenerator sets the run ID source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.runIDs = g
		}
	}
}

// WithCache enables result caching.
func WithCache(c ResultCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// New creates an Engine reading loadable columns from loader.
func New(loader Loader, opts ...Option) *Engine {
	e := &Engine{
		loader:      loader,
		logger:      slog.Default(),
		parallelism: runtime.GOMAXPROCS(0),
		runIDs:      UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of a Run.
type Result struct {
	// RunID identifies the run.
	RunID string

	// Outputs maps each output name to its array, trimmed to the mask's
	// shape.
	Outputs map[string]panel.Array

	// Terms is the number of distinct terms in the graph.
	Terms int

	// Levels is the number of dependency levels.
	Levels int

	// Computed counts terms whose ComputeFromArrays ran.
	Computed int

	// CacheHits counts terms served from the ResultCache.
	CacheHits int

	// Fingerprint identifies the loaded data and mask.
	Fingerprint string
}

// Run computes outputs over the rows described by mask.
//
// The mask fixes the output shape: one row per period, one column per
// entity. Lookback rows the graph needs are loaded in front of those rows
// and are treated as fully valid.
func (e *Engine) Run(ctx context.Context, outputs map[string]term.Term, mask *panel.BoolArray) (*Result, error) {
	if mask == nil || mask.Shape().Cols == 0 {
		return nil, &RunError{Code: ErrCodeInvalidMask, Message: "mask must be non-nil with at least one column"}
	}

	g, err := graph.New(outputs)
	if err != nil {
		return nil, err
	}

	runID := e.runIDs.Generate()
	extra := g.MaxExtraRows()
	levels := g.Levels()
	shape := panel.Shape{Rows: mask.Shape().Rows + extra, Cols: mask.Shape().Cols}
	log := e.logger.With("run_id", runID)

	log.Info("run starting",
		"outputs", len(outputs),
		"terms", g.Len(),
		"levels", len(levels),
		"extra_rows", extra,
	)
	started := time.Now()

	loaded, err := e.load(ctx, g, shape)
	if err != nil {
		log.Error("load failed", "error", err)
		return nil, err
	}

	rootMask, err := extendMask(mask, extra)
	if err != nil {
		return nil, err
	}

	fp := panel.Fingerprint(withMask(loaded, rootMask))

	r := &run{
		engine:  e,
		log:     log,
		shape:   shape,
		mask:    rootMask,
		fp:      fp,
		results: make(map[string]panel.Array, g.Len()),
	}

	for _, level := range levels {
		if err := r.evalLevel(ctx, level, loaded); err != nil {
			log.Error("run failed", "error", err)
			return nil, err
		}
	}

	res := &Result{
		RunID:       runID,
		Outputs:     make(map[string]panel.Array, len(outputs)),
		Terms:       g.Len(),
		Levels:      len(levels),
		Computed:    r.computed,
		CacheHits:   r.hits,
		Fingerprint: fp,
	}
	for _, name := range g.Outputs() {
		t, _ := g.Output(name)
		res.Outputs[name] = r.results[t.ID()].SliceRows(extra, shape.Rows)
	}

	log.Info("run complete",
		"computed", res.Computed,
		"cache_hits", res.CacheHits,
		"duration", time.Since(started),
	)
	return res, nil
}

// load fetches every loadable term in g and checks its shape and dtype.
func (e *Engine) load(ctx context.Context, g *graph.Graph, shape panel.Shape) (map[string]panel.Array, error) {
	var columns []term.Loadable
	seen := make(map[string]term.Loadable)
	for _, t := range g.Ordered() {
		l, ok := t.(term.Loadable)
		if !ok {
			continue
		}
		name := l.ColumnName()
		if prev, dup := seen[name]; dup {
			if prev.DType() != l.DType() {
				return nil, newColumnMismatchError(name,
					fmt.Sprintf("column declared as both %s and %s", prev.DType(), l.DType()))
			}
			continue
		}
		seen[name] = l
		columns = append(columns, l)
	}
	if len(columns) == 0 {
		return map[string]panel.Array{}, nil
	}

	loaded, err := e.loader.Load(ctx, columns, shape.Rows)
	if err != nil {
		return nil, err
	}
	for _, c := range columns {
		name := c.ColumnName()
		a, ok := loaded[name]
		if !ok {
			return nil, newMissingColumnError(name)
		}
		if a.Shape() != shape {
			return nil, newColumnMismatchError(name,
				fmt.Sprintf("loaded shape %s, expected %s", a.Shape(), shape))
		}
		if a.DType() != c.DType() {
			return nil, newColumnMismatchError(name,
				fmt.Sprintf("loaded dtype %s, declared %s", a.DType(), c.DType()))
		}
	}
	return loaded, nil
}

// run holds the state of one Run.
type run struct {
	engine *Engine
	log    *slog.Logger
	shape  panel.Shape
	mask   *panel.BoolArray
	fp     string

	mu       sync.Mutex
	results  map[string]panel.Array
	computed int
	hits     int
}

func (r *run) evalLevel(ctx context.Context, level []term.Term, loaded map[string]panel.Array) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.engine.parallelism)

	for _, t := range level {
		if l, ok := t.(term.Loadable); ok {
			r.store(t, loaded[l.ColumnName()], false)
			continue
		}
		eg.Go(func() error {
			return r.eval(ctx, t)
		})
	}
	return eg.Wait()
}

func (r *run) eval(ctx context.Context, t term.Term) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cache := r.engine.cache
	key := ir.ResultKey(t.ID(), r.fp)
	if cache != nil {
		a, ok, err := cache.Get(ctx, key, t.DType())
		if err != nil {
			return newCacheError(t, "get", err)
		}
		if ok && a.Shape() == r.shape {
			r.log.Debug("cache hit", "kind", t.Kind(), "term", term.ShortID(t.ID()))
			r.store(t, a, true)
			return nil
		}
	}

	inputs := r.inputs(t)
	started := time.Now()
	out, err := t.ComputeFromArrays(inputs, r.mask)
	if err != nil {
		return newComputeError(t, err)
	}
	if out == nil {
		return newBadOutputError(t, "returned no array")
	}
	if out.Shape() != r.shape {
		return newBadOutputError(t, fmt.Sprintf("output shape %s, expected %s", out.Shape(), r.shape))
	}
	if out.DType() != t.DType() {
		return newBadOutputError(t, fmt.Sprintf("output dtype %s, declared %s", out.DType(), t.DType()))
	}

	r.log.Debug("term computed",
		"kind", t.Kind(),
		"term", term.ShortID(t.ID()),
		"duration", time.Since(started),
	)

	if cache != nil {
		if err := cache.Put(ctx, key, out); err != nil {
			return newCacheError(t, "put", err)
		}
	}
	r.store(t, out, false)
	return nil
}

func (r *run) inputs(t term.Term) []panel.Array {
	r.mu.Lock()
	defer r.mu.Unlock()
	ins := t.Inputs()
	arrays := make([]panel.Array, len(ins))
	for i, in := range ins {
		arrays[i] = r.results[in.ID()]
	}
	return arrays
}

func (r *run) store(t term.Term, a panel.Array, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[t.ID()] = a
	if _, ok := t.(term.Loadable); ok {
		return
	}
	if hit {
		r.hits++
	} else {
		r.computed++
	}
}

// extendMask prepends extra fully valid rows to mask.
func extendMask(mask *panel.BoolArray, extra int) (*panel.BoolArray, error) {
	if extra == 0 {
		return mask.Clone(), nil
	}
	shape := mask.Shape()
	values := make([]bool, 0, (shape.Rows+extra)*shape.Cols)
	for i := 0; i < extra*shape.Cols; i++ {
		values = append(values, true)
	}
	values = append(values, mask.Values...)
	return panel.NewBool(shape.Rows+extra, shape.Cols, values)
}

func withMask(loaded map[string]panel.Array, mask *panel.BoolArray) map[string]panel.Array {
	all := make(map[string]panel.Array, len(loaded)+1)
	for k, v := range loaded {
		all[k] = v
	}
	all[maskColumn] = mask
	return all
}
