package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	fetchDuration     *prometheus.HistogramVec
	fetchErrors       *prometheus.CounterVec
	utilization       *prometheus.GaugeVec
	cacheLookups      *prometheus.CounterVec
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subscriptions_fetch_duration_seconds",
			Help:    "Duration of report and capacity fetches by product.",
			Buckets: prometheus.DefBuckets,
		}, []string{"product", "kind"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subscriptions_fetch_errors_total",
			Help: "Failed report and capacity fetches by product.",
		}, []string{"product", "kind"}),
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "subscriptions_utilization_percent",
			Help: "Most recent derived utilization percentage by product.",
		}, []string{"product"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subscriptions_cache_lookups_total",
			Help: "Series cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.fetchDuration,
		m.fetchErrors,
		m.utilization,
		m.cacheLookups,
		m.httpRequestsTotal,
		m.httpDuration,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FetchDone records one report or capacity fetch
func (m *Metrics) FetchDone(product, kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(product, kind).Observe(d.Seconds())
	if err != nil {
		m.fetchErrors.WithLabelValues(product, kind).Inc()
	}
}

// SetUtilization publishes a derived percentage. ok=false clears the series
// so unavailable values are not reported as zero.
func (m *Metrics) SetUtilization(product string, pct float64, ok bool) {
	if m == nil {
		return
	}
	if !ok {
		m.utilization.DeleteLabelValues(product)
		return
	}
	m.utilization.WithLabelValues(product).Set(pct)
}

func (m *Metrics) CacheHit(name string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(name, "hit").Inc()
}

func (m *Metrics) CacheMiss(name string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(name, "miss").Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}
