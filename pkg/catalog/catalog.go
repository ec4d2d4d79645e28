package catalog

import (
	"fmt"
	"sort"
)

// Catalog is an indexed set of components. It is constructed once from
// static data and read-only afterwards.
type Catalog struct {
	components map[string]*Component
	order      []string
}

// New builds a catalog from a component list, validating each component's
// construction-time invariants and rejecting duplicate IDs.
func New(components []Component) (*Catalog, error) {
	c := &Catalog{
		components: make(map[string]*Component, len(components)),
		order:      make([]string, 0, len(components)),
	}
	for i := range components {
		comp := components[i]
		if err := comp.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.components[comp.ID]; exists {
			return nil, fmt.Errorf("duplicate component id: %s", comp.ID)
		}
		c.components[comp.ID] = &comp
		c.order = append(c.order, comp.ID)
	}
	return c, nil
}

// Get returns the component with the given id.
func (c *Catalog) Get(id string) (*Component, bool) {
	comp, ok := c.components[id]
	return comp, ok
}

// Len returns the number of components in the catalog.
func (c *Catalog) Len() int {
	return len(c.components)
}

// IDs returns all component IDs in declaration order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Select returns the components named by ids, in the given order.
func (c *Catalog) Select(ids []string) ([]Component, error) {
	out := make([]Component, 0, len(ids))
	for _, id := range ids {
		comp, ok := c.components[id]
		if !ok {
			return nil, fmt.Errorf("unknown component id: %s", id)
		}
		out = append(out, *comp)
	}
	return out, nil
}

// ByCategory returns all components in the given category, sorted by id.
func (c *Catalog) ByCategory(cat Category) []Component {
	var out []Component
	for _, comp := range c.components {
		if comp.Category == cat {
			out = append(out, *comp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
