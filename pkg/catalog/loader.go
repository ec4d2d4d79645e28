package catalog

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Profile names a component set for a workflow (e.g. "web-backend").
// Profiles are static authoring data; the engine only ever sees the
// component records they select.
type Profile struct {
	// Name is the profile identifier.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Description is shown in profile listings.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Components lists the component IDs this profile installs.
	Components []string `json:"components" yaml:"components" validate:"required,min=1"`
}

// File is the on-disk catalog document: a component list plus optional
// profiles selecting subsets of it.
type File struct {
	Components []Component `json:"components" yaml:"components" validate:"required,min=1,dive"`
	Profiles   []Profile   `json:"profiles,omitempty" yaml:"profiles,omitempty" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load parses a YAML catalog document and returns the indexed catalog and
// its profiles. Structural validation happens via struct tags; graph-level
// invariants are enforced by New.
func Load(r io.Reader) (*Catalog, []Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if err := validate.Struct(&file); err != nil {
		return nil, nil, fmt.Errorf("invalid catalog document: %w", err)
	}

	cat, err := New(file.Components)
	if err != nil {
		return nil, nil, err
	}

	// Profiles may only reference components the catalog defines.
	for _, p := range file.Profiles {
		for _, id := range p.Components {
			if _, ok := cat.Get(id); !ok {
				return nil, nil, fmt.Errorf("profile %s references unknown component %s", p.Name, id)
			}
		}
	}

	return cat, file.Profiles, nil
}

// LoadFile loads a catalog document from a path.
func LoadFile(path string) (*Catalog, []Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// FindProfile returns the named profile from a profile list.
func FindProfile(profiles []Profile, name string) (*Profile, bool) {
	for i := range profiles {
		if profiles[i].Name == name {
			return &profiles[i], true
		}
	}
	return nil, false
}
