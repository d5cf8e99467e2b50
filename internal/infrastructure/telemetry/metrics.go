// Package telemetry exposes Prometheus collectors for order synchronization.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ordersync"

// Refresh cycle results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds every collector and the registry they are registered in.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Metrics struct {
	registry *prometheus.Registry

	refreshTotal    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	mergedTotal     *prometheus.CounterVec
	storeOrders     prometheus.Gauge
	lastSuccess     prometheus.Gauge
	upstreamFaults  *prometheus.CounterVec
	fallbackTotal   prometheus.Counter
	skippedTotal    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// New creates the collectors in a private registry. The registry also
// carries the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Refresh cycles by trigger and result.",
		}, []string{"trigger", "result"}),
		refreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of refresh cycles in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"trigger"}),
		mergedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_merged_total",
			Help:      "Orders classified during merges by outcome.",
		}, []string{"outcome"}),
		storeOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_orders",
			Help:      "Number of orders held in the store.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh cycle.",
		}),
		upstreamFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_faults_total",
			Help:      "Failed upstream searches by fault kind.",
		}, []string{"kind"}),
		fallbackTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_fallback_total",
			Help:      "Times the fallback search was used.",
		}),
		skippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_records_skipped_total",
			Help:      "Upstream records dropped during normalization by reason.",
		}, []string{"reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.refreshTotal,
		m.refreshDuration,
		m.mergedTotal,
		m.storeOrders,
		m.lastSuccess,
		m.upstreamFaults,
		m.fallbackTotal,
		m.skippedTotal,
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
	)
	return m
}

// Registry returns the registry backing the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape handler for the private registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRefresh records one refresh cycle
func (m *Metrics) ObserveRefresh(trigger string, duration time.Duration, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	} else {
		m.lastSuccess.SetToCurrentTime()
	}
	m.refreshTotal.WithLabelValues(trigger, result).Inc()
	m.refreshDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// ObserveMerge records merge outcome counts
func (m *Metrics) ObserveMerge(added, updated, unchanged int) {
	m.mergedTotal.WithLabelValues("added").Add(float64(added))
	m.mergedTotal.WithLabelValues("updated").Add(float64(updated))
	m.mergedTotal.WithLabelValues("unchanged").Add(float64(unchanged))
}

// SetStoreSize records the current number of stored orders
func (m *Metrics) SetStoreSize(n int) {
	m.storeOrders.Set(float64(n))
}

// UpstreamFault implements idosell.Observer
func (m *Metrics) UpstreamFault(kind string) {
	m.upstreamFaults.WithLabelValues(kind).Inc()
}

// FallbackUsed implements idosell.Observer
func (m *Metrics) FallbackUsed() {
	m.fallbackTotal.Inc()
}

// RecordSkipped implements idosell.Observer
func (m *Metrics) RecordSkipped(reason string) {
	m.skippedTotal.WithLabelValues(reason).Inc()
}

// HTTPStarted marks a request as in flight
func (m *Metrics) HTTPStarted() {
	m.httpInFlight.Inc()
}

// ObserveHTTP records a finished request. route is the matched pattern,
// never the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.httpInFlight.Dec()
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
