// Package catalog defines the component model consumed by the resolver and
// the installation engine: installable components, their dependency and
// conflict declarations, ranked installation methods, and optional
// post-install verification steps.
package catalog

import (
	"fmt"
	"time"
)

// Category classifies a component by what it provides.
type Category string

const (
	CategoryLanguage      Category = "language"
	CategoryTool          Category = "tool"
	CategoryFramework     Category = "framework"
	CategoryPackage       Category = "package"
	CategoryDatabase      Category = "database"
	CategoryRuntime       Category = "runtime"
	CategoryOrchestration Category = "orchestration"
)

// Validate checks if the category is one of the known values.
func (c Category) Validate() error {
	switch c {
	case CategoryLanguage, CategoryTool, CategoryFramework, CategoryPackage,
		CategoryDatabase, CategoryRuntime, CategoryOrchestration:
		return nil
	default:
		return fmt.Errorf("invalid component category: %s", c)
	}
}

// MatchMode controls how a verification step's command output is checked.
type MatchMode string

const (
	// MatchExact requires the trimmed output to equal Expect exactly.
	MatchExact MatchMode = "exact"

	// MatchSubstring requires the output to contain Expect.
	MatchSubstring MatchMode = "substring"

	// MatchNone only requires the command to exit successfully.
	MatchNone MatchMode = "none"
)

// VerificationStep describes a post-install host command whose output
// confirms a component is actually usable.
type VerificationStep struct {
	// Command is the shell command to run.
	Command string `json:"command" yaml:"command" validate:"required"`

	// Timeout bounds the command's execution. Zero means the verifier default.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Expect is the expected output, interpreted according to Match.
	Expect string `json:"expect,omitempty" yaml:"expect,omitempty"`

	// Match selects exact, substring, or exit-status-only checking.
	Match MatchMode `json:"match,omitempty" yaml:"match,omitempty"`
}

// ResourceCost is advisory planning data for a component. It is used for
// reporting and download projections, never for correctness decisions.
type ResourceCost struct {
	// DownloadGB is the estimated download size in gigabytes.
	DownloadGB float64 `json:"download_gb,omitempty" yaml:"download_gb,omitempty"`

	// InstallMinutes is the estimated wall-clock install time.
	InstallMinutes int `json:"install_minutes,omitempty" yaml:"install_minutes,omitempty"`
}

// Component is a single installable unit.
type Component struct {
	// ID is the stable, globally unique key (e.g. "language.node.18").
	// Immutable once constructed.
	ID string `json:"id" yaml:"id" validate:"required"`

	// Name is the human-readable name shown in reports.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Category classifies the component.
	Category Category `json:"category" yaml:"category" validate:"required"`

	// DependsOn lists component IDs that must be installed first.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// ConflictsWith lists component IDs that must not coexist with this one.
	// Conflicts are symmetric even when declared on only one side.
	ConflictsWith []string `json:"conflicts_with,omitempty" yaml:"conflicts_with,omitempty"`

	// InstallMethods is the ranked method ladder, most-preferred first
	// (e.g. version-manager, then OS package manager, then vendor installer).
	InstallMethods []string `json:"install_methods" yaml:"install_methods" validate:"required,min=1"`

	// PackageName is the name the installation backend knows the component
	// by. Defaults to ID when empty.
	PackageName string `json:"package_name,omitempty" yaml:"package_name,omitempty"`

	// Optional marks components whose failure does not fail the overall run.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`

	// Verify is the optional post-install verification step.
	Verify *VerificationStep `json:"verify,omitempty" yaml:"verify,omitempty"`

	// Cost is advisory resource-cost data.
	Cost ResourceCost `json:"cost,omitempty" yaml:"cost,omitempty"`
}

// Target returns the name passed to installation backends.
func (c *Component) Target() string {
	if c.PackageName != "" {
		return c.PackageName
	}
	return c.ID
}

// Validate checks construction-time invariants: a non-empty id, a known
// category, at least one install method, and disjoint dependency/conflict
// sets.
func (c *Component) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("component has empty id")
	}
	if err := c.Category.Validate(); err != nil {
		return fmt.Errorf("component %s: %w", c.ID, err)
	}
	if len(c.InstallMethods) == 0 {
		return fmt.Errorf("component %s: no install methods declared", c.ID)
	}
	deps := make(map[string]struct{}, len(c.DependsOn))
	for _, d := range c.DependsOn {
		if d == c.ID {
			return fmt.Errorf("component %s: depends on itself", c.ID)
		}
		deps[d] = struct{}{}
	}
	for _, conflict := range c.ConflictsWith {
		if conflict == c.ID {
			return fmt.Errorf("component %s: conflicts with itself", c.ID)
		}
		if _, ok := deps[conflict]; ok {
			return fmt.Errorf("component %s: %s is declared both as dependency and conflict", c.ID, conflict)
		}
	}
	if c.Verify != nil && c.Verify.Command == "" {
		return fmt.Errorf("component %s: verification step has empty command", c.ID)
	}
	return nil
}
