package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics wraps prometheus collectors for songcache
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Counters
	lookupsTotal      *prometheus.CounterVec
	lookupErrorsTotal *prometheus.CounterVec
	savesTotal        *prometheus.CounterVec

	// Histograms
	lookupDuration *prometheus.HistogramVec
	saveDuration   prometheus.Histogram

	// Gauges
	uptime         prometheus.GaugeFunc
	activeRequests prometheus.Gauge
}

// Default histogram buckets for request duration (in milliseconds)
var defaultBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000}

var promMetrics *PrometheusMetrics

// InitPrometheus initializes the Prometheus metrics subsystem
func InitPrometheus(namespace string, buckets []float64) {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	startTime := time.Now()

	pm := &PrometheusMetrics{
		registry: registry,

		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Total song lookups by the layer that served them",
			},
			[]string{"source"},
		),

		lookupErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookup_errors_total",
				Help:      "Lookup failures by stage (cache, store, populate)",
			},
			[]string{"stage"},
		),

		savesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saves_total",
				Help:      "Total song saves",
			},
			[]string{"status"},
		),

		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lookup_duration_milliseconds",
				Help:      "Duration of song lookups in milliseconds",
				Buckets:   buckets,
			},
			[]string{"source"},
		),

		saveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "save_duration_milliseconds",
				Help:      "Duration of song saves in milliseconds",
				Buckets:   buckets,
			},
		),

		uptime: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "uptime_seconds",
				Help:      "Seconds since the process started",
			},
			func() float64 { return time.Since(startTime).Seconds() },
		),

		activeRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_requests",
				Help:      "Number of requests currently being served",
			},
		),
	}

	registry.MustRegister(
		pm.lookupsTotal,
		pm.lookupErrorsTotal,
		pm.savesTotal,
		pm.lookupDuration,
		pm.saveDuration,
		pm.uptime,
		pm.activeRequests,
	)

	promMetrics = pm
}

func recordPrometheusLookup(o LookupOutcome) {
	if promMetrics == nil {
		return
	}
	source := o.Source
	if source == "" {
		source = "none"
	}
	promMetrics.lookupsTotal.WithLabelValues(source).Inc()
	promMetrics.lookupDuration.WithLabelValues(source).Observe(float64(o.DurationMs))
	if o.CacheErr {
		promMetrics.lookupErrorsTotal.WithLabelValues("cache").Inc()
	}
	if o.StoreErr {
		promMetrics.lookupErrorsTotal.WithLabelValues("store").Inc()
	}
	if o.PopulateErr {
		promMetrics.lookupErrorsTotal.WithLabelValues("populate").Inc()
	}
}

func recordPrometheusSave(durationMs int64, success bool) {
	if promMetrics == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	promMetrics.savesTotal.WithLabelValues(status).Inc()
	promMetrics.saveDuration.Observe(float64(durationMs))
}

// IncActiveRequests increments the in-flight request gauge
func IncActiveRequests() {
	if promMetrics == nil {
		return
	}
	promMetrics.activeRequests.Inc()
}

// DecActiveRequests decrements the in-flight request gauge
func DecActiveRequests() {
	if promMetrics == nil {
		return
	}
	promMetrics.activeRequests.Dec()
}

// PrometheusHandler returns an HTTP handler for the Prometheus metrics endpoint
func PrometheusHandler() http.Handler {
	if promMetrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "prometheus metrics not enabled", http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(promMetrics.registry, promhttp.HandlerOpts{})
}

// PrometheusRegistry returns the registry, or nil when metrics are disabled
func PrometheusRegistry() *prometheus.Registry {
	if promMetrics == nil {
		return nil
	}
	return promMetrics.registry
}
