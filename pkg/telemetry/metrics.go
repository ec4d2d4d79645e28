package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	// Enabled turns collection on. A disabled Metrics is a no-op.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Namespace prefixes all metric names. Defaults to "forge".
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// Metrics collects installation pipeline metrics. All methods are safe on
// a nil or disabled receiver.
type Metrics struct {
	installsTotal   *prometheus.CounterVec
	installDuration *prometheus.HistogramVec
	methodAttempts  *prometheus.CounterVec
	retriesTotal    prometheus.Counter
	verifications   *prometheus.CounterVec
	activeInstalls  prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector. When cfg.Enabled is false the
// returned value records nothing.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "forge"
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.installsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "installs_total",
		Help:      "Component installation outcomes by status and method.",
	}, []string{"status", "method"})

	m.installDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "install_duration_seconds",
		Help:      "Wall-clock duration of component installations.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"method"})

	m.methodAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "method_attempts_total",
		Help:      "Installation method attempts by method and result.",
	}, []string{"method", "result"})

	m.retriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retries_total",
		Help:      "Retries of transient installation failures.",
	})

	m.verifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verifications_total",
		Help:      "Verification step outcomes by kind.",
	}, []string{"outcome"})

	m.activeInstalls = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_installs",
		Help:      "Number of installations currently in flight.",
	})

	m.registry.MustRegister(
		m.installsTotal, m.installDuration, m.methodAttempts,
		m.retriesTotal, m.verifications, m.activeInstalls,
	)
	return m
}

// ObserveInstall records one component's terminal outcome.
func (m *Metrics) ObserveInstall(status, method string, duration time.Duration) {
	if m == nil {
		return
	}
	m.installsTotal.WithLabelValues(status, method).Inc()
	if method != "" {
		m.installDuration.WithLabelValues(method).Observe(duration.Seconds())
	}
}

// ObserveAttempt records one method attempt.
func (m *Metrics) ObserveAttempt(method, result string) {
	if m == nil {
		return
	}
	m.methodAttempts.WithLabelValues(method, result).Inc()
}

// ObserveRetry records one transient-failure retry.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.retriesTotal.Inc()
}

// ObserveVerification records a verification outcome.
func (m *Metrics) ObserveVerification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

// InstallStarted marks an installation as in flight.
func (m *Metrics) InstallStarted() {
	if m == nil {
		return
	}
	m.activeInstalls.Inc()
}

// InstallFinished marks an installation as done.
func (m *Metrics) InstallFinished() {
	if m == nil {
		return
	}
	m.activeInstalls.Dec()
}

// Handler exposes the metrics over HTTP. Returns nil when disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
