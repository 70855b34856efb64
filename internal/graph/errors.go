package graph

import (
	"errors"
	"strings"

	"github.com/roach88/sieve/internal/term"
)

// CyclicDependencyError reports a term that depends on itself.
type CyclicDependencyError struct {
	// Path lists term IDs from the repeated term back to itself:
	// ["a", "b", "a"].
	Path []string

	terms []term.Term
}

func newCyclicDependencyError(path []term.Term) *CyclicDependencyError {
	ids := make([]string, len(path))
	for i, t := range path {
		ids[i] = t.ID()
	}
	return &CyclicDependencyError{Path: ids, terms: path}
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.terms))
	for i, t := range e.terms {
		parts[i] = term.Describe(t)
	}
	return "cyclic dependency: " + strings.Join(parts, " -> ")
}

// IsCyclicDependency reports whether err is or wraps a CyclicDependencyError.
func IsCyclicDependency(err error) bool {
	var ce *CyclicDependencyError
	return errors.As(err, &ce)
}
