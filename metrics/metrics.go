// Package metrics exposes Prometheus collectors for the engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	holidayLoads     *prometheus.CounterVec
	holidaysLoaded   prometheus.Gauge
	stateMutations   *prometheus.CounterVec
	persistFailures  prometheus.Counter
	remainingCurrent prometheus.Gauge
}

// New registers all collectors under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		holidayLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holiday_loads_total",
			Help:      "Holiday source fetch attempts by result.",
		}, []string{"result"}),
		holidaysLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "holidays_loaded",
			Help:      "Holidays held by the index after the last successful load.",
		}),
		stateMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_mutations_total",
			Help:      "Attendance state mutations by field.",
		}, []string{"field"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed writes to the key/value store.",
		}),
		remainingCurrent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remaining_safe_occurrences",
			Help:      "Remaining safe occurrences after the last state change.",
		}),
	}
	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.holidayLoads,
		m.holidaysLoaded,
		m.stateMutations,
		m.persistFailures,
		m.remainingCurrent,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveHolidayLoad implements holiday.LoadObserver.
func (m *Metrics) ObserveHolidayLoad(count int, err error) {
	if err != nil {
		m.holidayLoads.WithLabelValues("failure").Inc()
		return
	}
	m.holidayLoads.WithLabelValues("success").Inc()
	m.holidaysLoaded.Set(float64(count))
}

// ObserveMutation records a state change and the persist outcome.
func (m *Metrics) ObserveMutation(field string, remaining int, persistErr error) {
	m.stateMutations.WithLabelValues(field).Inc()
	m.remainingCurrent.Set(float64(remaining))
	if persistErr != nil {
		m.persistFailures.Inc()
	}
}

// Middleware records request counts and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
