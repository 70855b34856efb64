package term

import (
	"fmt"
	"sync"
)

// Registry interns terms by identity. It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	terms map[string]Term
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{terms: make(map[string]Term)}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by the constructors in
// filter and factor.
func Default() *Registry {
	return defaultRegistry
}

// Intern returns the registered term with t's ID, registering t if there is
// none yet.
func (r *Registry) Intern(t Term) Term {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.terms[t.ID()]; ok {
		return existing
	}
	r.terms[t.ID()] = t
	return t
}

// Lookup returns the term registered under id.
func (r *Registry) Lookup(id string) (Term, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.terms[id]
	return t, ok
}

// Len returns the number of interned terms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.terms)
}

// Intern interns t in the default registry and returns the canonical node
// with t's concrete type.
//
// Kinds are part of the identity, so a collision between two Go types means
// two term types share a kind string. That is a programming error and panics.
func Intern[T Term](t T) T {
	got := defaultRegistry.Intern(t)
	same, ok := got.(T)
	if !ok {
		panic(fmt.Sprintf("term: %s is registered as %T, not %T", Describe(got), got, t))
	}
	return same
}
