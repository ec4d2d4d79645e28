package adapters

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// commandRunner abstracts process execution so adapter logic stays
// testable without touching the host.
type commandRunner interface {
	// Run executes name with args under the given timeout, returning
	// trimmed stdout. Failures come back classified.
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error)

	// LookPath reports whether an executable can be located.
	LookPath(name string) (string, error)
}

// execRunner shells out via os/exec. Every invocation carries a bounded
// timeout on top of the caller's context.
type execRunner struct{}

func (execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (execRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := strings.TrimSpace(stdout.String())
	if err == nil {
		return out, nil
	}

	// Distinguish the deadline from the parent's cancellation: a timeout
	// is transient, a user interrupt is not a backend failure at all.
	if runCtx.Err() != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return out, NewTransientError("command timed out: "+name, runCtx.Err())
		}
		return out, NewPermanentError("command cancelled: "+name, runCtx.Err())
	}

	return out, classifyExecError(name, err, stderr.String())
}

// classifyExecError maps raw backend failures into the error taxonomy.
// Lock contention and network trouble are retryable; everything else is
// treated as permanent.
func classifyExecError(name string, err error, stderr string) error {
	msg := strings.ToLower(stderr)

	transientMarkers := []string{
		"could not get lock",
		"unable to acquire the dpkg frontend lock",
		"is locked by another process",
		"waiting for cache lock",
		"temporarily unavailable",
		"temporary failure",
		"resource busy",
		"timed out",
		"timeout",
		"connection reset",
		"network is unreachable",
		"service unavailable",
		"too many requests",
	}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return NewTransientError("backend reported a retryable failure: "+name, err)
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		detail := firstLine(stderr)
		if detail == "" {
			detail = exitErr.String()
		}
		return NewPermanentError(detail, err)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return NewUnavailableError("executable not found: "+name, err)
	}
	return NewPermanentError("failed to run "+name, err)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
