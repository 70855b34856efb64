// Package graph builds the dependency graph of a set of named output terms.
//
// A Graph knows, for every reachable term:
//   - how many rows before the first output row must be loaded for it
//     (its extra rows, propagated down from the terms that consume it);
//   - a deterministic topological order;
//   - its dependency level, so terms on the same level can run in parallel.
//
// Terms are identified by ID; a term reachable along several paths appears
// once.
package graph

import (
	"slices"
	"sort"

	"github.com/roach88/sieve/internal/term"
)

// Graph is an immutable dependency graph. Safe for concurrent reads.
type Graph struct {
	outputs map[string]term.Term
	names   []string

	terms map[string]term.Term
	extra map[string]int
	order []term.Term
	level map[string]int
}

// New builds the graph reachable from outputs.
//
// It fails with *CyclicDependencyError when a term is reachable from itself.
func New(outputs map[string]term.Term) (*Graph, error) {
	g := &Graph{
		outputs: make(map[string]term.Term, len(outputs)),
		terms:   make(map[string]term.Term),
		extra:   make(map[string]int),
		level:   make(map[string]int),
	}
	for name, t := range outputs {
		g.outputs[name] = t
		g.names = append(g.names, name)
	}
	sort.Strings(g.names)

	done := make(map[string]bool)
	for _, name := range g.names {
		if err := g.insert(g.outputs[name], 0, nil, done); err != nil {
			return nil, err
		}
	}

	visited := make(map[string]bool)
	for _, name := range g.names {
		g.postOrder(g.outputs[name], visited)
	}
	return g, nil
}

// insert records t with at least extra rows and propagates to its inputs.
// path holds t's ancestors on the current branch.
func (g *Graph) insert(t term.Term, extra int, path []term.Term, done map[string]bool) error {
	id := t.ID()
	if i := slices.IndexFunc(path, func(p term.Term) bool { return p.ID() == id }); i >= 0 {
		return newCyclicDependencyError(append(slices.Clone(path[i:]), t))
	}

	prev, seen := g.extra[id]
	if seen && done[id] && prev >= extra {
		return nil
	}
	g.terms[id] = t
	g.extra[id] = max(prev, extra)

	path = append(path, t)
	next := g.extra[id] + term.ExtraInputRows(t)
	for _, in := range t.Inputs() {
		if err := g.insert(in, next, path, done); err != nil {
			return err
		}
	}
	done[id] = true
	return nil
}

func (g *Graph) postOrder(t term.Term, visited map[string]bool) {
	id := t.ID()
	if visited[id] {
		return
	}
	visited[id] = true

	lvl := 0
	for _, in := range t.Inputs() {
		g.postOrder(in, visited)
		lvl = max(lvl, g.level[in.ID()]+1)
	}
	g.level[id] = lvl
	g.order = append(g.order, t)
}

// Outputs returns the output names in sorted order.
func (g *Graph) Outputs() []string { return slices.Clone(g.names) }

// Output returns the term registered under name.
func (g *Graph) Output(name string) (term.Term, bool) {
	t, ok := g.outputs[name]
	return t, ok
}

// Len returns the number of distinct terms in the graph.
func (g *Graph) Len() int { return len(g.order) }

// Contains reports whether t is part of the graph.
func (g *Graph) Contains(t term.Term) bool {
	_, ok := g.terms[t.ID()]
	return ok
}

// ExtraRows returns how many rows before the first output row must be
// available as input to t. It is 0 for output terms with no consumers and
// for terms not in the graph.
func (g *Graph) ExtraRows(t term.Term) int { return g.extra[t.ID()] }

// MaxExtraRows returns the largest extra rows over all terms, i.e. the
// number of leading rows the loader must supply.
func (g *Graph) MaxExtraRows() int {
	n := 0
	for _, e := range g.extra {
		n = max(n, e)
	}
	return n
}

// Ordered returns every term in dependency order: each term appears after
// all of its inputs. The order depends only on the output names and the
// terms' input lists.
func (g *Graph) Ordered() []term.Term { return slices.Clone(g.order) }

// Level returns t's dependency depth: 0 for leaves, otherwise one more than
// its deepest input.
func (g *Graph) Level(t term.Term) int { return g.level[t.ID()] }

// Levels groups the terms by dependency depth. Terms within a level have no
// dependencies on each other and keep their relative Ordered position.
func (g *Graph) Levels() [][]term.Term {
	var levels [][]term.Term
	for _, t := range g.order {
		lvl := g.level[t.ID()]
		for len(levels) <= lvl {
			levels = append(levels, nil)
		}
		levels[lvl] = append(levels[lvl], t)
	}
	return levels
}
