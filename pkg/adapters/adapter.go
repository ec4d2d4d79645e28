// Package adapters provides a uniform capability interface over concrete
// installation backends: system package managers, language package
// managers, and release-artifact fetchers. The installation engine depends
// only on the Adapter interface, never on concrete backend types.
package adapters

import (
	"context"
	"time"
)

// DefaultInstallTimeout bounds a single install invocation when the
// caller does not supply one.
const DefaultInstallTimeout = 10 * time.Minute

// DefaultQueryTimeout bounds cheap query commands (installed? version?).
const DefaultQueryTimeout = 30 * time.Second

// InstallOptions carries per-invocation settings into an adapter.
type InstallOptions struct {
	// Timeout bounds the install command. Zero means DefaultInstallTimeout.
	Timeout time.Duration

	// Version pins a specific version when the backend supports it.
	// Empty installs the backend's current default.
	Version string

	// CacheDir is the per-component working directory for adapters that
	// download artifacts. Concurrent installs never share a CacheDir.
	CacheDir string
}

// Outcome is an adapter's self-reported install result. The engine
// re-queries Installed/Version afterwards rather than trusting it blindly.
type Outcome struct {
	// Version is the version the backend reports having installed.
	Version string

	// Upgraded is true when an existing installation was upgraded rather
	// than installed fresh.
	Upgraded bool

	// Warnings are non-fatal issues that did not block the install.
	Warnings []string
}

// Adapter wraps one installation backend. Implementations must return a
// definite success or failure from Install — never an indeterminate state —
// and must honor the context's deadline and cancellation on every call
// that spawns a host process.
type Adapter interface {
	// Name is the method name components reference in their ladders.
	Name() string

	// Available reports whether the backend can be used on this host.
	// It must be cheap and side-effect-free.
	Available() bool

	// Installed reports whether the named target is already installed.
	Installed(ctx context.Context, name string) bool

	// Version returns the installed version of the named target.
	Version(ctx context.Context, name string) (string, bool)

	// Install installs the named target. Errors are classified via the
	// BackendError taxonomy so the engine can decide on retries.
	Install(ctx context.Context, name string, opts InstallOptions) (Outcome, error)
}
