package resolver

import (
	"errors"
	"reflect"
	"testing"

	"github.com/toolforge/toolforge/pkg/catalog"
)

func comp(id string, deps ...string) catalog.Component {
	return catalog.Component{
		ID:             id,
		Category:       catalog.CategoryTool,
		InstallMethods: []string{"apt"},
		DependsOn:      deps,
	}
}

func mustCatalog(t *testing.T, components ...catalog.Component) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(components)
	if err != nil {
		t.Fatalf("Failed to build catalog: %v", err)
	}
	return cat
}

func ids(order []catalog.Component) []string {
	out := make([]string, len(order))
	for i, c := range order {
		out[i] = c.ID
	}
	return out
}

func TestResolve_DependencyBeforeDependent(t *testing.T) {
	a := comp("a", "b")
	b := comp("b")
	r := New(mustCatalog(t, a, b))

	order, err := r.Resolve([]catalog.Component{a, b})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !reflect.DeepEqual(ids(order), []string{"b", "a"}) {
		t.Errorf("Expected order [b a], got %v", ids(order))
	}
}

func TestResolve_Deterministic(t *testing.T) {
	a := comp("a")
	b := comp("b")
	c := comp("c")
	r := New(mustCatalog(t, a, b, c))

	first, err := r.Resolve([]catalog.Component{c, a, b})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	second, err := r.Resolve([]catalog.Component{c, a, b})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !reflect.DeepEqual(ids(first), ids(second)) {
		t.Errorf("Expected identical order across runs, got %v then %v", ids(first), ids(second))
	}
	// Independent components keep original request order.
	if !reflect.DeepEqual(ids(first), []string{"c", "a", "b"}) {
		t.Errorf("Expected request order [c a b], got %v", ids(first))
	}
}

func TestResolve_AutoIncludesTransitiveDependencies(t *testing.T) {
	app := comp("app", "runtime")
	runtime := comp("runtime", "base")
	base := comp("base")
	r := New(mustCatalog(t, app, runtime, base))

	order, err := r.Resolve([]catalog.Component{app})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !reflect.DeepEqual(ids(order), []string{"base", "runtime", "app"}) {
		t.Errorf("Expected order [base runtime app], got %v", ids(order))
	}
}

func TestResolve_Cycle(t *testing.T) {
	a := comp("a", "b")
	b := comp("b", "c")
	c := comp("c", "a")
	r := New(mustCatalog(t, a, b, c))

	_, err := r.Resolve([]catalog.Component{a})
	if err == nil {
		t.Fatal("Expected cycle error")
	}
	if !errors.Is(err, ErrCycle) {
		t.Errorf("Expected errors.Is(err, ErrCycle), got: %v", err)
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected *CycleError, got %T", err)
	}
	if len(cycleErr.IDs) < 3 {
		t.Errorf("Expected cycle to name its components, got %v", cycleErr.IDs)
	}
}

func TestResolve_ConflictSymmetric(t *testing.T) {
	a := comp("a")
	a.ConflictsWith = []string{"b"}
	b := comp("b")
	r := New(mustCatalog(t, a, b))

	for _, request := range [][]catalog.Component{{a, b}, {b, a}} {
		_, err := r.Resolve(request)
		if err == nil {
			t.Fatalf("Expected conflict error for request %v", ids(request))
		}
		if !errors.Is(err, ErrConflict) {
			t.Errorf("Expected errors.Is(err, ErrConflict), got: %v", err)
		}
	}
}

func TestResolve_ConflictViaAutoInclusion(t *testing.T) {
	// The conflict is only reachable through a transitively included
	// dependency, and only declared on one side.
	app := comp("app", "lib")
	lib := comp("lib")
	lib.ConflictsWith = []string{"other"}
	other := comp("other")
	r := New(mustCatalog(t, app, lib, other))

	_, err := r.Resolve([]catalog.Component{other, app})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected conflict error, got: %v", err)
	}
}

func TestResolve_MissingDependency(t *testing.T) {
	a := comp("a", "ghost")
	r := New(mustCatalog(t, a))

	_, err := r.Resolve([]catalog.Component{a})
	if !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("Expected missing dependency error, got: %v", err)
	}

	var missing *MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected *MissingDependencyError, got %T", err)
	}
	if missing.Missing != "ghost" || missing.Component != "a" {
		t.Errorf("Expected error naming a -> ghost, got %+v", missing)
	}
}

func TestResolve_Empty(t *testing.T) {
	r := New(mustCatalog(t))
	order, err := r.Resolve(nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("Expected empty order, got %v", ids(order))
	}
}

func TestResolve_DiamondDependency(t *testing.T) {
	top := comp("top", "left", "right")
	left := comp("left", "base")
	right := comp("right", "base")
	base := comp("base")
	r := New(mustCatalog(t, top, left, right, base))

	order, err := r.Resolve([]catalog.Component{top})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	pos := make(map[string]int)
	for i, c := range order {
		pos[c.ID] = i
	}
	if pos["base"] > pos["left"] || pos["base"] > pos["right"] || pos["left"] > pos["top"] || pos["right"] > pos["top"] {
		t.Errorf("Dependency ordering violated: %v", ids(order))
	}
	if len(order) != 4 {
		t.Errorf("Expected 4 components, got %d", len(order))
	}
}
