package adapters

import (
	"context"
	"errors"
	"strings"
)

// systemSpec describes one system package manager in table form: how to
// install a package and how to query its installed version.
type systemSpec struct {
	name    string
	binary  string
	install func(target string, opts InstallOptions) (string, []string)
	version func(ctx context.Context, r commandRunner, target string) (string, bool)
}

// systemAdapter adapts a system package manager (apt, dnf, brew, ...)
// to the Adapter interface.
type systemAdapter struct {
	spec   systemSpec
	runner commandRunner
}

func newSystemAdapter(spec systemSpec, runner commandRunner) *systemAdapter {
	return &systemAdapter{spec: spec, runner: runner}
}

func (a *systemAdapter) Name() string { return a.spec.name }

func (a *systemAdapter) Available() bool {
	_, err := a.runner.LookPath(a.spec.binary)
	return err == nil
}

func (a *systemAdapter) Installed(ctx context.Context, name string) bool {
	_, ok := a.spec.version(ctx, a.runner, name)
	return ok
}

func (a *systemAdapter) Version(ctx context.Context, name string) (string, bool) {
	return a.spec.version(ctx, a.runner, name)
}

func (a *systemAdapter) Install(ctx context.Context, name string, opts InstallOptions) (Outcome, error) {
	if !a.Available() {
		return Outcome{}, NewUnavailableError(a.spec.binary+" is not present on this host", nil).WithMethod(a.spec.name)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultInstallTimeout
	}

	bin, args := a.spec.install(name, opts)
	out, err := a.runner.Run(ctx, timeout, bin, args...)
	if err != nil {
		var be *BackendError
		if errors.As(err, &be) {
			return Outcome{}, be.WithMethod(a.spec.name)
		}
		return Outcome{}, NewPermanentError("install failed", err).WithMethod(a.spec.name)
	}

	outcome := Outcome{}
	if version, ok := a.spec.version(ctx, a.runner, name); ok {
		outcome.Version = version
	}
	if strings.Contains(strings.ToLower(out), "already the newest version") ||
		strings.Contains(strings.ToLower(out), "is already installed") {
		outcome.Warnings = append(outcome.Warnings, "backend reported the package was already present; it may have been upgraded rather than installed fresh")
		outcome.Upgraded = true
	}
	return outcome, nil
}

// rpmVersion queries an rpm-database manager (dnf, yum, zypper).
func rpmVersion(ctx context.Context, r commandRunner, target string) (string, bool) {
	out, err := r.Run(ctx, DefaultQueryTimeout, "rpm", "-q", "--queryformat", "%{VERSION}-%{RELEASE}", target)
	if err != nil || out == "" {
		return "", false
	}
	return out, true
}

// dpkgVersion queries the dpkg database (apt).
func dpkgVersion(ctx context.Context, r commandRunner, target string) (string, bool) {
	out, err := r.Run(ctx, DefaultQueryTimeout, "dpkg-query", "-W", "-f=${Version}", target)
	if err != nil || out == "" {
		return "", false
	}
	return out, true
}

// brewVersion parses `brew list --versions <target>` ("name 1.2.3").
func brewVersion(ctx context.Context, r commandRunner, target string) (string, bool) {
	out, err := r.Run(ctx, DefaultQueryTimeout, "brew", "list", "--versions", target)
	if err != nil || out == "" {
		return "", false
	}
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return "", false
	}
	return fields[len(fields)-1], true
}

// pacmanVersion parses `pacman -Q <target>` ("name 1.2.3-1").
func pacmanVersion(ctx context.Context, r commandRunner, target string) (string, bool) {
	out, err := r.Run(ctx, DefaultQueryTimeout, "pacman", "-Q", target)
	if err != nil {
		return "", false
	}
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return "", false
	}
	return fields[1], true
}

func pinned(target, version, sep string) string {
	if version == "" {
		return target
	}
	return target + sep + version
}

var systemSpecs = []systemSpec{
	{
		name:   "apt",
		binary: "apt-get",
		install: func(target string, opts InstallOptions) (string, []string) {
			return "apt-get", []string{"install", "-y", pinned(target, opts.Version, "=")}
		},
		version: dpkgVersion,
	},
	{
		name:   "dnf",
		binary: "dnf",
		install: func(target string, opts InstallOptions) (string, []string) {
			return "dnf", []string{"install", "-y", pinned(target, opts.Version, "-")}
		},
		version: rpmVersion,
	},
	{
		name:   "yum",
		binary: "yum",
		install: func(target string, opts InstallOptions) (string, []string) {
			return "yum", []string{"install", "-y", pinned(target, opts.Version, "-")}
		},
		version: rpmVersion,
	},
	{
		name:   "zypper",
		binary: "zypper",
		install: func(target string, opts InstallOptions) (string, []string) {
			return "zypper", []string{"--non-interactive", "install", pinned(target, opts.Version, "=")}
		},
		version: rpmVersion,
	},
	{
		name:   "pacman",
		binary: "pacman",
		install: func(target string, opts InstallOptions) (string, []string) {
			return "pacman", []string{"-S", "--noconfirm", target}
		},
		version: pacmanVersion,
	},
	{
		name:   "brew",
		binary: "brew",
		install: func(target string, opts InstallOptions) (string, []string) {
			return "brew", []string{"install", target}
		},
		version: brewVersion,
	},
}

// SystemAdapters returns adapters for every supported system package
// manager. Availability is probed lazily per call site, so returning
// managers absent from this host is fine.
func SystemAdapters() []Adapter {
	out := make([]Adapter, 0, len(systemSpecs))
	for _, spec := range systemSpecs {
		out = append(out, newSystemAdapter(spec, execRunner{}))
	}
	return out
}
