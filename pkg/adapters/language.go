package adapters

import (
	"context"
	"errors"
	"strings"
)

// npmAdapter installs global packages through npm.
type npmAdapter struct {
	runner commandRunner
}

// NewNpmAdapter creates an adapter for global npm installs.
func NewNpmAdapter() Adapter { return &npmAdapter{runner: execRunner{}} }

func (a *npmAdapter) Name() string { return "npm" }

func (a *npmAdapter) Available() bool {
	_, err := a.runner.LookPath("npm")
	return err == nil
}

func (a *npmAdapter) Installed(ctx context.Context, name string) bool {
	_, ok := a.Version(ctx, name)
	return ok
}

// Version parses `npm ls -g --depth=0 <name>`, whose tree output contains
// "<name>@<version>" when the package is present.
func (a *npmAdapter) Version(ctx context.Context, name string) (string, bool) {
	out, err := a.runner.Run(ctx, DefaultQueryTimeout, "npm", "ls", "-g", "--depth=0", name)
	if err != nil {
		return "", false
	}
	marker := name + "@"
	for _, line := range strings.Split(out, "\n") {
		if idx := strings.Index(line, marker); idx >= 0 {
			version := strings.Fields(line[idx+len(marker):])
			if len(version) > 0 {
				return version[0], true
			}
			return strings.TrimSpace(line[idx+len(marker):]), true
		}
	}
	return "", false
}

func (a *npmAdapter) Install(ctx context.Context, name string, opts InstallOptions) (Outcome, error) {
	if !a.Available() {
		return Outcome{}, NewUnavailableError("npm is not present on this host", nil).WithMethod("npm")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultInstallTimeout
	}

	spec := name
	if opts.Version != "" {
		spec = name + "@" + opts.Version
	}
	if _, err := a.runner.Run(ctx, timeout, "npm", "install", "-g", spec); err != nil {
		return Outcome{}, withMethod(err, "npm")
	}

	outcome := Outcome{}
	if version, ok := a.Version(ctx, name); ok {
		outcome.Version = version
	}
	return outcome, nil
}

// pipAdapter installs packages through pip3.
type pipAdapter struct {
	runner commandRunner
}

// NewPipAdapter creates an adapter for pip installs.
func NewPipAdapter() Adapter { return &pipAdapter{runner: execRunner{}} }

func (a *pipAdapter) Name() string { return "pip" }

func (a *pipAdapter) Available() bool {
	_, err := a.runner.LookPath("pip3")
	return err == nil
}

func (a *pipAdapter) Installed(ctx context.Context, name string) bool {
	_, ok := a.Version(ctx, name)
	return ok
}

// Version parses the "Version:" line from `pip3 show <name>`.
func (a *pipAdapter) Version(ctx context.Context, name string) (string, bool) {
	out, err := a.runner.Run(ctx, DefaultQueryTimeout, "pip3", "show", name)
	if err != nil || out == "" {
		return "", false
	}
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, "Version:"); ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func (a *pipAdapter) Install(ctx context.Context, name string, opts InstallOptions) (Outcome, error) {
	if !a.Available() {
		return Outcome{}, NewUnavailableError("pip3 is not present on this host", nil).WithMethod("pip")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultInstallTimeout
	}

	spec := name
	if opts.Version != "" {
		spec = name + "==" + opts.Version
	}
	if _, err := a.runner.Run(ctx, timeout, "pip3", "install", spec); err != nil {
		return Outcome{}, withMethod(err, "pip")
	}

	outcome := Outcome{}
	if version, ok := a.Version(ctx, name); ok {
		outcome.Version = version
	}
	return outcome, nil
}

func withMethod(err error, method string) error {
	var be *BackendError
	if errors.As(err, &be) {
		return be.WithMethod(method)
	}
	return NewPermanentError("install failed", err).WithMethod(method)
}
