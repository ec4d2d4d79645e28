package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	getter "github.com/hashicorp/go-getter"
)

// versionMarker records the installed artifact version inside its
// component directory, so idempotency checks survive process restarts.
const versionMarker = ".forge-version"

// ArtifactSource tells the artifact adapter where a component's release
// artifact lives and what it unpacks to.
type ArtifactSource struct {
	// URL is a go-getter source string (https tarball, git ref, s3, ...).
	URL string `json:"url" yaml:"url" validate:"required"`

	// Binary is the path of the entry binary inside the unpacked tree,
	// relative to the component directory.
	Binary string `json:"binary,omitempty" yaml:"binary,omitempty"`

	// Version labels what the URL resolves to.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// artifactAdapter installs components by fetching vendor release artifacts
// into per-component subdirectories of a shared cache root. Components
// never share a directory, so concurrent workers never touch the same path.
type artifactAdapter struct {
	root    string
	sources map[string]ArtifactSource
	fetch   func(ctx context.Context, src, dst string) error
}

// NewArtifactAdapter creates a release-artifact adapter rooted at dir.
// sources maps component target names to their artifact locations.
func NewArtifactAdapter(root string, sources map[string]ArtifactSource) Adapter {
	return &artifactAdapter{
		root:    root,
		sources: sources,
		fetch: func(ctx context.Context, src, dst string) error {
			client := &getter.Client{
				Ctx:  ctx,
				Src:  src,
				Dst:  dst,
				Mode: getter.ClientModeAny,
			}
			return client.Get()
		},
	}
}

func (a *artifactAdapter) Name() string { return "artifact" }

// Available only needs a usable cache root; downloads carry their own
// network failure handling.
func (a *artifactAdapter) Available() bool {
	if a.root == "" {
		return false
	}
	return os.MkdirAll(a.root, 0o755) == nil
}

func (a *artifactAdapter) componentDir(name string) string {
	safe := strings.NewReplacer("/", "_", ":", "_", " ", "_").Replace(name)
	return filepath.Join(a.root, safe)
}

func (a *artifactAdapter) Installed(ctx context.Context, name string) bool {
	_, ok := a.Version(ctx, name)
	return ok
}

func (a *artifactAdapter) Version(_ context.Context, name string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(a.componentDir(name), versionMarker))
	if err != nil {
		return "", false
	}
	version := strings.TrimSpace(string(data))
	if version == "" {
		return "", false
	}
	if src, ok := a.sources[name]; ok && src.Binary != "" {
		if _, err := os.Stat(filepath.Join(a.componentDir(name), src.Binary)); err != nil {
			return "", false
		}
	}
	return version, true
}

func (a *artifactAdapter) Install(ctx context.Context, name string, opts InstallOptions) (Outcome, error) {
	src, ok := a.sources[name]
	if !ok {
		return Outcome{}, NewUnavailableError("no artifact source configured for "+name, nil).WithMethod("artifact")
	}

	dir := opts.CacheDir
	if dir == "" {
		dir = a.componentDir(name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Outcome{}, NewPermanentError("failed to create component directory", err).WithMethod("artifact")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultInstallTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.fetch(fetchCtx, src.URL, dir); err != nil {
		return Outcome{}, classifyDownloadError(fetchCtx, ctx, err).WithMethod("artifact")
	}

	if src.Binary != "" {
		binPath := filepath.Join(dir, src.Binary)
		if _, err := os.Stat(binPath); err != nil {
			return Outcome{}, NewPermanentError(
				fmt.Sprintf("artifact for %s unpacked but expected binary %s is missing", name, src.Binary), err,
			).WithMethod("artifact")
		}
		// Unpacked archives do not always preserve the execute bit.
		_ = os.Chmod(binPath, 0o755)
	}

	version := src.Version
	if version == "" {
		version = time.Now().UTC().Format("20060102T150405Z")
	}
	if err := os.WriteFile(filepath.Join(dir, versionMarker), []byte(version+"\n"), 0o644); err != nil {
		return Outcome{}, NewPermanentError("failed to record installed version", err).WithMethod("artifact")
	}

	return Outcome{Version: version}, nil
}

func classifyDownloadError(fetchCtx, parent context.Context, err error) *BackendError {
	if fetchCtx.Err() != nil && parent.Err() == nil {
		return NewTransientError("artifact download timed out", err)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "timed out", "connection refused", "connection reset", "temporary failure", "no such host", "503", "429"} {
		if strings.Contains(msg, marker) {
			return NewTransientError("artifact download failed with a retryable network error", err)
		}
	}
	return NewPermanentError("artifact download failed", err)
}
