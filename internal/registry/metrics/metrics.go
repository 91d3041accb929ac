// Package metrics holds the Prometheus collectors of the registry service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hivecert"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics is a private registry plus the collectors registered on it.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	Registrations       *prometheus.CounterVec
	ProvisioningStep    *prometheus.HistogramVec
	RollbackActions     *prometheus.CounterVec
	ConfirmationEmails  *prometheus.CounterVec
	ReconcileMismatches *prometheus.CounterVec
	HousekeepingDeleted *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Tenant registrations by confirmation method and outcome.",
		}, []string{"method", "outcome"}),
		ProvisioningStep: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provisioning_step_seconds",
			Help:      "Duration of each provisioning step.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 45, 60},
		}, []string{"step"}),
		RollbackActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollback_actions_total",
			Help:      "Compensating actions run after a failed provisioning.",
		}, []string{"action", "outcome"}),
		ConfirmationEmails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmation_emails_total",
			Help:      "Confirmation emails by delivery outcome.",
		}, []string{"outcome"}),
		ReconcileMismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_mismatches_total",
			Help:      "Cross-namespace inconsistencies found by reconciliation.",
		}, []string{"kind"}),
		HousekeepingDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "housekeeping_deleted_total",
			Help:      "Expired records removed by housekeeping.",
		}, []string{"table"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Registrations,
		m.ProvisioningStep,
		m.RollbackActions,
		m.ConfirmationEmails,
		m.ReconcileMismatches,
		m.HousekeepingDeleted,
		m.RequestDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveRegistration(method, outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProvisioningStep.WithLabelValues(step).Observe(d.Seconds())
}

func (m *Metrics) ObserveRollback(action string, err error) {
	if m == nil {
		return
	}
	m.RollbackActions.WithLabelValues(action, outcome(err)).Inc()
}

func (m *Metrics) ObserveConfirmationEmail(outcome string) {
	if m == nil {
		return
	}
	m.ConfirmationEmails.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveMismatch(kind string) {
	if m == nil {
		return
	}
	m.ReconcileMismatches.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveDeleted(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.HousekeepingDeleted.WithLabelValues(table).Add(float64(n))
}

// Middleware records request latency under a fixed route label so path
// parameters do not blow up cardinality.
func (m *Metrics) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.RequestDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
