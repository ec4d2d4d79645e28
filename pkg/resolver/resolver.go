// Package resolver orders a requested component set into an installation
// sequence honoring declared dependencies. It detects cycles, unresolvable
// dependencies, and conflicting components before any installation begins.
//
// Resolution is pure graph logic: no I/O, deterministic output for a given
// input, safe to call from any goroutine.
package resolver

import (
	"math"
	"sort"

	"github.com/toolforge/toolforge/pkg/catalog"
)

// Resolver computes installation order over a component catalog.
type Resolver struct {
	catalog *catalog.Catalog
}

// New creates a resolver backed by the given catalog. The catalog supplies
// transitively required components that were not explicitly requested.
func New(cat *catalog.Catalog) *Resolver {
	return &Resolver{catalog: cat}
}

// Resolve returns the requested components plus their transitive
// dependencies in a deterministic topological order: a dependency always
// precedes its dependents, and ties break by original request order, then
// lexicographic id.
func (r *Resolver) Resolve(requested []catalog.Component) ([]catalog.Component, error) {
	closure, rank, err := r.buildClosure(requested)
	if err != nil {
		return nil, err
	}

	if err := checkConflicts(closure, rank); err != nil {
		return nil, err
	}

	return sortTopological(closure, rank)
}

// buildClosure expands the request with transitively required components
// from the catalog. rank records each component's tie-break priority:
// explicitly requested components keep their request index, auto-included
// ones sort after all requested ones.
func (r *Resolver) buildClosure(requested []catalog.Component) (map[string]*catalog.Component, map[string]int, error) {
	closure := make(map[string]*catalog.Component, len(requested))
	rank := make(map[string]int, len(requested))

	queue := make([]string, 0, len(requested))
	for i := range requested {
		comp := requested[i]
		if _, seen := closure[comp.ID]; seen {
			continue
		}
		closure[comp.ID] = &comp
		rank[comp.ID] = i
		queue = append(queue, comp.ID)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, depID := range closure[id].DependsOn {
			if _, seen := closure[depID]; seen {
				continue
			}
			dep, ok := r.lookup(depID)
			if !ok {
				return nil, nil, &MissingDependencyError{Component: id, Missing: depID}
			}
			closure[depID] = dep
			rank[depID] = math.MaxInt32
			queue = append(queue, depID)
		}
	}

	return closure, rank, nil
}

func (r *Resolver) lookup(id string) (*catalog.Component, bool) {
	if r.catalog == nil {
		return nil, false
	}
	comp, ok := r.catalog.Get(id)
	if !ok {
		return nil, false
	}
	clone := *comp
	return &clone, true
}

// checkConflicts reports the first conflicting pair in the closure,
// scanning in deterministic rank order so the same input always names the
// same pair. A declaration on either side suffices.
func checkConflicts(closure map[string]*catalog.Component, rank map[string]int) error {
	ids := sortedIDs(closure, rank)
	for _, id := range ids {
		for _, conflictID := range closure[id].ConflictsWith {
			if _, present := closure[conflictID]; present {
				return &ConflictError{A: id, B: conflictID}
			}
		}
	}
	return nil
}

// sortTopological runs Kahn's algorithm, always emitting the ready node
// with the lowest (rank, id) so output order is reproducible across runs.
func sortTopological(closure map[string]*catalog.Component, rank map[string]int) ([]catalog.Component, error) {
	inDegree := make(map[string]int, len(closure))
	dependents := make(map[string][]string, len(closure))

	for id, comp := range closure {
		if _, ok := inDegree[id]; !ok {
			inDegree[id] = 0
		}
		for _, depID := range comp.DependsOn {
			if _, present := closure[depID]; !present {
				continue
			}
			inDegree[id]++
			dependents[depID] = append(dependents[depID], id)
		}
	}

	ready := make([]string, 0, len(closure))
	for id, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}

	less := func(a, b string) bool {
		if rank[a] != rank[b] {
			return rank[a] < rank[b]
		}
		return a < b
	}

	order := make([]catalog.Component, 0, len(closure))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		id := ready[0]
		ready = ready[1:]

		order = append(order, *closure[id])
		for _, dependent := range dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(closure) {
		return nil, &CycleError{IDs: findCycle(closure)}
	}
	return order, nil
}

// findCycle locates one dependency cycle via DFS so the error can name the
// participating components. Only called after Kahn's algorithm stalled, so
// a cycle is guaranteed to exist.
func findCycle(closure map[string]*catalog.Component) []string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(closure))

	var cycle []string
	var visit func(id string, path []string) bool
	visit = func(id string, path []string) bool {
		state[id] = inStack
		path = append(path, id)
		for _, depID := range closure[id].DependsOn {
			if _, present := closure[depID]; !present {
				continue
			}
			switch state[depID] {
			case inStack:
				for i, p := range path {
					if p == depID {
						cycle = append(append([]string{}, path[i:]...), depID)
						return true
					}
				}
			case unvisited:
				if visit(depID, path) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}

	ids := make([]string, 0, len(closure))
	for id := range closure {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if state[id] == unvisited && visit(id, nil) {
			break
		}
	}
	return cycle
}

func sortedIDs(closure map[string]*catalog.Component, rank map[string]int) []string {
	ids := make([]string, 0, len(closure))
	for id := range closure {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if rank[ids[i]] != rank[ids[j]] {
			return rank[ids[i]] < rank[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
