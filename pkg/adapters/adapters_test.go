package adapters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeRunner scripts command results keyed by the executable name.
type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	missing map[string]bool
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, _ time.Duration, name string, args ...string) (string, error) {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	if err, ok := f.errs[name]; ok {
		return "", err
	}
	return f.outputs[name], nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.missing[name] {
		return "", errors.New("not found")
	}
	return "/usr/bin/" + name, nil
}

func TestClassifyExecError_LockContentionIsTransient(t *testing.T) {
	stderrs := []string{
		"E: Could not get lock /var/lib/dpkg/lock-frontend",
		"Waiting for cache lock: another process is using it",
		"error: connection reset by peer",
	}
	for _, stderr := range stderrs {
		err := classifyExecError("apt-get", errors.New("exit status 100"), stderr)
		if !IsTransient(err) {
			t.Errorf("Expected transient classification for %q, got %v", stderr, err)
		}
	}
}

func TestClassifyExecError_DefaultIsPermanent(t *testing.T) {
	err := classifyExecError("apt-get", errors.New("exit status 100"), "E: Unable to locate package no-such-thing")
	if !IsPermanent(err) {
		t.Errorf("Expected permanent classification, got %v", err)
	}
}

func TestSystemAdapter_InstallQueriesVersionAfterwards(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string]string{
			"apt-get":    "Setting up git (2.43.0) ...",
			"dpkg-query": "2.43.0",
		},
	}
	apt := newSystemAdapter(systemSpecs[0], runner)

	outcome, err := apt.Install(context.Background(), "git", InstallOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if outcome.Version != "2.43.0" {
		t.Errorf("Expected version 2.43.0 from post-install query, got %q", outcome.Version)
	}

	wantInstall := "apt-get install -y git"
	found := false
	for _, call := range runner.calls {
		if call == wantInstall {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected call %q, got %v", wantInstall, runner.calls)
	}
}

func TestSystemAdapter_VersionPin(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"dpkg-query": "2.40.0"}}
	apt := newSystemAdapter(systemSpecs[0], runner)

	_, err := apt.Install(context.Background(), "git", InstallOptions{Version: "2.40.0"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if runner.calls[0] != "apt-get install -y git=2.40.0" {
		t.Errorf("Expected pinned install invocation, got %q", runner.calls[0])
	}
}

func TestSystemAdapter_UnavailableBinary(t *testing.T) {
	runner := &fakeRunner{missing: map[string]bool{"apt-get": true}}
	apt := newSystemAdapter(systemSpecs[0], runner)

	if apt.Available() {
		t.Fatal("Expected adapter to be unavailable")
	}
	_, err := apt.Install(context.Background(), "git", InstallOptions{})
	if !IsUnavailable(err) {
		t.Errorf("Expected unavailable classification, got %v", err)
	}
}

func TestSystemAdapter_InstallErrorKeepsClassification(t *testing.T) {
	runner := &fakeRunner{
		errs: map[string]error{"apt-get": NewTransientError("lock held", nil)},
	}
	apt := newSystemAdapter(systemSpecs[0], runner)

	_, err := apt.Install(context.Background(), "git", InstallOptions{})
	if !IsTransient(err) {
		t.Fatalf("Expected transient error to pass through, got %v", err)
	}
	var be *BackendError
	if !errors.As(err, &be) || be.Method != "apt" {
		t.Errorf("Expected error tagged with method apt, got %+v", be)
	}
}

func TestNpmAdapter_VersionParsing(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"npm": "/usr/lib\n`-- typescript@5.4.5\n",
	}}
	npm := &npmAdapter{runner: runner}

	version, ok := npm.Version(context.Background(), "typescript")
	if !ok || version != "5.4.5" {
		t.Errorf("Expected version 5.4.5, got %q (ok=%v)", version, ok)
	}
}

func TestPipAdapter_VersionParsing(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"pip3": "Name: requests\nVersion: 2.31.0\nSummary: HTTP for Humans.",
	}}
	pip := &pipAdapter{runner: runner}

	version, ok := pip.Version(context.Background(), "requests")
	if !ok || version != "2.31.0" {
		t.Errorf("Expected version 2.31.0, got %q (ok=%v)", version, ok)
	}

	runner.errs = map[string]error{"pip3": NewPermanentError("not found", nil)}
	if pip.Installed(context.Background(), "requests") {
		t.Error("Expected Installed=false when pip show fails")
	}
}

func TestArtifactAdapter_InstallAndIdempotency(t *testing.T) {
	root := t.TempDir()
	a := &artifactAdapter{
		root: root,
		sources: map[string]ArtifactSource{
			"terraform": {URL: "https://example.com/terraform.zip", Binary: "terraform", Version: "1.8.0"},
		},
		fetch: func(_ context.Context, _ string, dst string) error {
			return os.WriteFile(filepath.Join(dst, "terraform"), []byte("#!/bin/sh\n"), 0o644)
		},
	}

	if a.Installed(context.Background(), "terraform") {
		t.Fatal("Expected not installed before first fetch")
	}

	outcome, err := a.Install(context.Background(), "terraform", InstallOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if outcome.Version != "1.8.0" {
		t.Errorf("Expected version 1.8.0, got %q", outcome.Version)
	}

	version, ok := a.Version(context.Background(), "terraform")
	if !ok || version != "1.8.0" {
		t.Errorf("Expected recorded version 1.8.0, got %q (ok=%v)", version, ok)
	}
	if !a.Installed(context.Background(), "terraform") {
		t.Error("Expected installed after fetch")
	}
}

func TestArtifactAdapter_MissingBinaryIsPermanent(t *testing.T) {
	a := &artifactAdapter{
		root: t.TempDir(),
		sources: map[string]ArtifactSource{
			"tool": {URL: "https://example.com/tool.zip", Binary: "bin/tool"},
		},
		fetch: func(_ context.Context, _ string, _ string) error { return nil },
	}

	_, err := a.Install(context.Background(), "tool", InstallOptions{})
	if !IsPermanent(err) {
		t.Fatalf("Expected permanent error for missing unpacked binary, got %v", err)
	}
}

func TestArtifactAdapter_UnknownSource(t *testing.T) {
	a := &artifactAdapter{root: t.TempDir(), sources: map[string]ArtifactSource{}}
	_, err := a.Install(context.Background(), "nothing", InstallOptions{})
	if !IsUnavailable(err) {
		t.Fatalf("Expected unavailable error, got %v", err)
	}
}

func TestArtifactAdapter_NetworkErrorIsTransient(t *testing.T) {
	a := &artifactAdapter{
		root:    t.TempDir(),
		sources: map[string]ArtifactSource{"tool": {URL: "https://example.com/tool.zip"}},
		fetch: func(_ context.Context, _ string, _ string) error {
			return fmt.Errorf("dial tcp: connection refused")
		},
	}

	_, err := a.Install(context.Background(), "tool", InstallOptions{})
	if !IsTransient(err) {
		t.Fatalf("Expected transient error for network failure, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r, err := NewDefaultRegistry(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, name := range []string{"apt", "dnf", "yum", "zypper", "pacman", "brew", "npm", "pip", "artifact"} {
		if _, ok := r.Get(name); !ok {
			t.Errorf("Expected adapter %s to be registered", name)
		}
	}

	if _, ok := r.Get("chocolatey"); ok {
		t.Error("Expected unknown method to be absent")
	}

	if err := r.Register(NewNpmAdapter()); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}

func TestBackendErrorClassHelpers(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", NewTransientError("boom", nil))
	if !IsTransient(wrapped) {
		t.Error("Expected IsTransient to see through wrapping")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("Expected unclassified error not to be transient")
	}
	if IsPermanent(nil) {
		t.Error("Expected nil not to be permanent")
	}
}
