package engine

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/toolforge/toolforge/pkg/adapters"
	"github.com/toolforge/toolforge/pkg/catalog"
	"github.com/toolforge/toolforge/pkg/telemetry"
)

const (
	defaultRetries    = 1
	defaultRetryDelay = 2 * time.Second
	maxRetryDelay     = 30 * time.Second
)

// Config tunes the installation engine.
type Config struct {
	// MaxParallel bounds concurrent component installations. Zero or
	// negative means the number of CPUs.
	MaxParallel int `json:"max_parallel,omitempty" yaml:"max_parallel,omitempty"`

	// MaxRetries is the transient-failure retry budget per method. Zero
	// means the default of one retry; negative disables retries.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`

	// MethodTimeout bounds a single install invocation. Zero falls back
	// to the adapter default.
	MethodTimeout time.Duration `json:"method_timeout,omitempty" yaml:"method_timeout,omitempty"`

	// RetryDelay is the base backoff between transient retries. Zero
	// means two seconds. The delay doubles per retry, capped at 30s.
	RetryDelay time.Duration `json:"retry_delay,omitempty" yaml:"retry_delay,omitempty"`

	// CacheRoot is where downloading adapters keep per-component working
	// directories. Empty lets each adapter pick its own location.
	CacheRoot string `json:"cache_root,omitempty" yaml:"cache_root,omitempty"`
}

// Engine installs resolver-ordered component plans.
type Engine struct {
	registry *adapters.Registry
	cfg      Config
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
}

// New creates an installation engine. metrics may be nil.
func New(registry *adapters.Registry, cfg Config, logger zerolog.Logger, metrics *telemetry.Metrics) *Engine {
	return &Engine{registry: registry, cfg: cfg, logger: logger, metrics: metrics}
}

// InstallAll installs every component in the plan and returns one result
// per component, in plan order. components must already be in dependency
// order and conflict-free, as produced by the resolver; the engine still
// refuses to run declared conflicts concurrently.
//
// Dependencies gate scheduling: a component starts only after every
// dependency in the plan reached a terminal state, and is skipped when any
// of them did not succeed. Cancelling ctx lets in-flight installations
// finish classifying their outcome and marks everything not yet started
// as skipped.
func (e *Engine) InstallAll(ctx context.Context, components []catalog.Component) []InstallationResult {
	if len(components) == 0 {
		return nil
	}

	runID := uuid.New().String()
	log := e.logger.With().Str("run_id", runID).Logger()

	workers := e.parallelism(len(components))
	log.Info().
		Int("components", len(components)).
		Int("workers", workers).
		Msg("Starting installation run")

	r := newRun(components)

	// Wake waiting workers on cancellation so they can drain the plan
	// with skipped results instead of blocking forever.
	stop := context.AfterFunc(ctx, func() {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	defer stop()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, r, log)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, res := range r.results {
		if res.Success {
			succeeded++
		}
	}
	log.Info().
		Int("succeeded", succeeded).
		Int("total", len(components)).
		Msg("Installation run finished")

	return r.results
}

func (e *Engine) parallelism(n int) int {
	workers := e.cfg.MaxParallel
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	return workers
}

// run is the shared scheduling state of one InstallAll call. All fields
// are guarded by mu.
type run struct {
	mu   sync.Mutex
	cond *sync.Cond

	order      []catalog.Component
	index      map[string]int
	remaining  []int   // unfinished in-plan dependencies per component
	dependents [][]int // components waiting on this one
	conflicts  [][]int // components that may not run concurrently with this one

	ready   []int // schedulable component indices, ascending
	active  map[int]bool
	results []InstallationResult
	pending int
}

func newRun(components []catalog.Component) *run {
	n := len(components)
	r := &run{
		order:      components,
		index:      make(map[string]int, n),
		remaining:  make([]int, n),
		dependents: make([][]int, n),
		conflicts:  make([][]int, n),
		active:     make(map[int]bool),
		results:    make([]InstallationResult, n),
		pending:    n,
	}
	r.cond = sync.NewCond(&r.mu)

	for i, c := range components {
		r.index[c.ID] = i
	}
	for i, c := range components {
		for _, dep := range c.DependsOn {
			if j, ok := r.index[dep]; ok {
				r.remaining[i]++
				r.dependents[j] = append(r.dependents[j], i)
			}
		}
		for _, other := range c.ConflictsWith {
			if j, ok := r.index[other]; ok {
				r.conflicts[i] = append(r.conflicts[i], j)
				r.conflicts[j] = append(r.conflicts[j], i)
			}
		}
	}
	for i := range components {
		if r.remaining[i] == 0 {
			r.ready = append(r.ready, i)
		}
	}
	return r
}

// takeEligible pops the lowest-index ready component that does not
// conflict with anything in flight. Once the context is cancelled the
// conflict gate no longer matters, since nothing will actually install.
func (r *run) takeEligible(cancelled bool) (int, bool) {
	for pos, i := range r.ready {
		if !cancelled && r.conflictsWithActive(i) {
			continue
		}
		r.ready = append(r.ready[:pos], r.ready[pos+1:]...)
		return i, true
	}
	return 0, false
}

func (r *run) conflictsWithActive(i int) bool {
	for _, j := range r.conflicts[i] {
		if r.active[j] {
			return true
		}
	}
	return false
}

func (r *run) insertReady(j int) {
	pos := sort.SearchInts(r.ready, j)
	r.ready = append(r.ready, 0)
	copy(r.ready[pos+1:], r.ready[pos:])
	r.ready[pos] = j
}

// blockedDependency returns the first in-plan dependency of component i
// that reached a terminal state without success. Callers hold r.mu and
// only ask once every dependency is terminal.
func (r *run) blockedDependency(i int) string {
	for _, dep := range r.order[i].DependsOn {
		j, ok := r.index[dep]
		if !ok {
			continue
		}
		if !r.results[j].Success {
			return dep
		}
	}
	return ""
}

func (e *Engine) worker(ctx context.Context, r *run, log zerolog.Logger) {
	for {
		r.mu.Lock()
		var i int
		for {
			if r.pending == 0 {
				r.mu.Unlock()
				return
			}
			var ok bool
			if i, ok = r.takeEligible(ctx.Err() != nil); ok {
				break
			}
			r.cond.Wait()
		}
		comp := &r.order[i]
		blockedBy := r.blockedDependency(i)
		r.active[i] = true
		r.mu.Unlock()

		res := e.installComponent(ctx, comp, blockedBy, log)

		r.mu.Lock()
		r.results[i] = res
		delete(r.active, i)
		r.pending--
		for _, j := range r.dependents[i] {
			r.remaining[j]--
			if r.remaining[j] == 0 {
				r.insertReady(j)
			}
		}
		r.cond.Broadcast()
		r.mu.Unlock()
	}
}

// installComponent drives one component to a terminal result: skip checks,
// then the method ladder with retries, then a post-install re-query.
func (e *Engine) installComponent(ctx context.Context, comp *catalog.Component, blockedBy string, log zerolog.Logger) InstallationResult {
	started := time.Now()
	clog := telemetry.ComponentLogger(log, comp.ID)

	finish := func(res InstallationResult) InstallationResult {
		res.ComponentID = comp.ID
		res.Duration = time.Since(started)
		e.metrics.ObserveInstall(string(res.Status), res.Method, res.Duration)
		return res
	}
	cancelledResult := func(warnings []string, attempts int) InstallationResult {
		return InstallationResult{
			Status:   StatusSkippedCancelled,
			Warnings: warnings,
			Attempts: attempts,
			Error:    &ErrorDetail{Kind: ErrKindCancelled, Message: "installation run cancelled"},
		}
	}

	if ctx.Err() != nil {
		clog.Info().Msg("Skipping component: run cancelled")
		return finish(cancelledResult(nil, 0))
	}
	if blockedBy != "" {
		clog.Warn().Str("dependency", blockedBy).Msg("Skipping component: dependency did not succeed")
		return finish(InstallationResult{
			Status: StatusSkippedBlocked,
			Error: &ErrorDetail{
				Kind:    ErrKindDependencyFailed,
				Message: "dependency " + blockedBy + " did not succeed",
			},
		})
	}

	e.metrics.InstallStarted()
	defer e.metrics.InstallFinished()

	target := comp.Target()

	// Idempotency check before anything mutating: any available backend
	// that already has the target short-circuits the whole ladder.
	for _, method := range comp.InstallMethods {
		a, ok := e.registry.Get(method)
		if !ok || !a.Available() {
			continue
		}
		if a.Installed(ctx, target) {
			version, _ := a.Version(ctx, target)
			clog.Info().
				Str("method", method).
				Str("version", version).
				Msg("Component already installed")
			return finish(InstallationResult{
				Success: true,
				Status:  StatusSkippedExisting,
				Method:  MethodExisting,
				Version: version,
			})
		}
	}

	var (
		warnings   []string
		attempts   int
		lastErr    error
		lastMethod string
	)
	for _, method := range comp.InstallMethods {
		a, ok := e.registry.Get(method)
		if !ok {
			warnings = append(warnings, "no adapter registered for method "+method)
			continue
		}
		if !a.Available() {
			clog.Debug().Str("method", method).Msg("Method unavailable on this host")
			e.metrics.ObserveAttempt(method, "unavailable")
			continue
		}
		if ctx.Err() != nil {
			break
		}

		clog.Info().Str("method", method).Msg("Attempting installation")
		outcome, err := e.runMethod(ctx, a, comp, clog)
		warnings = append(warnings, outcome.Warnings...)
		if err != nil {
			if adapters.IsUnavailable(err) {
				// The backend turned out unusable mid-flight. Advance the
				// ladder without counting an attempt.
				clog.Debug().Err(err).Str("method", method).Msg("Method reported itself unavailable")
				e.metrics.ObserveAttempt(method, "unavailable")
				continue
			}
			attempts++
			lastErr = err
			lastMethod = method
			e.metrics.ObserveAttempt(method, "failed")
			clog.Warn().Err(err).Str("method", method).Msg("Installation method failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		attempts++
		lastMethod = method

		// Never trust the backend's word alone.
		if !a.Installed(ctx, target) {
			lastErr = adapters.NewPermanentError(
				"backend reported success but "+target+" is not installed", nil,
			).WithMethod(method)
			e.metrics.ObserveAttempt(method, "failed")
			clog.Warn().Str("method", method).Msg("Post-install check found target missing")
			continue
		}
		version := outcome.Version
		if v, ok := a.Version(ctx, target); ok && v != "" {
			version = v
		}
		e.metrics.ObserveAttempt(method, "succeeded")
		clog.Info().
			Str("method", method).
			Str("version", version).
			Int("attempts", attempts).
			Msg("Component installed")
		return finish(InstallationResult{
			Success:  true,
			Status:   StatusSucceeded,
			Method:   method,
			Version:  version,
			Warnings: warnings,
			Attempts: attempts,
		})
	}

	if attempts == 0 {
		if ctx.Err() != nil {
			clog.Info().Msg("Skipping component: run cancelled")
			return finish(cancelledResult(warnings, 0))
		}
		clog.Error().Strs("methods", comp.InstallMethods).Msg("No installation method available")
		return finish(InstallationResult{
			Status:   StatusFailed,
			Warnings: warnings,
			Error: &ErrorDetail{
				Kind:    ErrKindMethodUnavailable,
				Message: "no installation method is available on this host",
			},
		})
	}

	detail := &ErrorDetail{Kind: ErrKindPermanent, Message: lastErr.Error()}
	if adapters.IsTransient(lastErr) {
		detail.Message = "retries exhausted: " + lastErr.Error()
	}
	clog.Error().Err(lastErr).Int("attempts", attempts).Msg("All installation methods exhausted")
	return finish(InstallationResult{
		Status:   StatusFailed,
		Method:   lastMethod,
		Warnings: warnings,
		Attempts: attempts,
		Error:    detail,
	})
}

// runMethod invokes one adapter, retrying transient failures within the
// configured budget.
func (e *Engine) runMethod(ctx context.Context, a adapters.Adapter, comp *catalog.Component, log zerolog.Logger) (adapters.Outcome, error) {
	opts := adapters.InstallOptions{
		Timeout:  e.cfg.MethodTimeout,
		CacheDir: e.cacheDir(comp.ID),
	}
	retries := e.retryBudget()
	for attempt := 0; ; attempt++ {
		outcome, err := a.Install(ctx, comp.Target(), opts)
		if err == nil || !adapters.IsTransient(err) || attempt >= retries || ctx.Err() != nil {
			return outcome, err
		}

		e.metrics.ObserveRetry()
		delay := e.retryDelay(attempt)
		log.Warn().
			Err(err).
			Str("method", a.Name()).
			Dur("delay", delay).
			Msg("Transient failure, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return outcome, err
		}
	}
}

func (e *Engine) retryBudget() int {
	switch {
	case e.cfg.MaxRetries < 0:
		return 0
	case e.cfg.MaxRetries == 0:
		return defaultRetries
	default:
		return e.cfg.MaxRetries
	}
}

func (e *Engine) retryDelay(attempt int) time.Duration {
	base := e.cfg.RetryDelay
	if base <= 0 {
		base = defaultRetryDelay
	}
	delay := base << uint(attempt)
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func (e *Engine) cacheDir(componentID string) string {
	if e.cfg.CacheRoot == "" {
		return ""
	}
	safe := strings.NewReplacer("/", "_", ":", "_", " ", "_").Replace(componentID)
	return filepath.Join(e.cfg.CacheRoot, safe)
}
