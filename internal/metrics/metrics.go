package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics. A nil *Registry is valid and records nothing.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	tierResults        *prometheus.CounterVec
	providerFailures   *prometheus.CounterVec
	valuationsTotal    *prometheus.CounterVec
	valuationDuration  prometheus.Histogram
	quoteFallbacks     *prometheus.CounterVec
	shareCountSources  *prometheus.CounterVec
	reportsArchived    *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.tierResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intrinsic_tier_results_total",
			Help: "Financial data tier attempts by outcome",
		},
		[]string{"tier", "outcome"},
	)
	r.providerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intrinsic_provider_failures_total",
			Help: "External provider calls that failed",
		},
		[]string{"provider", "op"},
	)
	r.valuationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intrinsic_valuations_total",
			Help: "Total number of valuations",
		},
		[]string{"provenance", "status"},
	)
	r.valuationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intrinsic_valuation_duration_seconds",
			Help:    "Valuation pipeline duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	r.quoteFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intrinsic_quote_fallbacks_total",
			Help: "Valuations that used the placeholder market price",
		},
		[]string{"reason"},
	)
	r.shareCountSources = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intrinsic_share_count_source_total",
			Help: "Share counts resolved by source",
		},
		[]string{"source"},
	)
	r.reportsArchived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intrinsic_reports_archived_total",
			Help: "Valuation reports written to the archive",
		},
		[]string{"status"},
	)

	reg.MustRegister(r.tierResults)
	reg.MustRegister(r.providerFailures)
	reg.MustRegister(r.valuationsTotal)
	reg.MustRegister(r.valuationDuration)
	reg.MustRegister(r.quoteFallbacks)
	reg.MustRegister(r.shareCountSources)
	reg.MustRegister(r.reportsArchived)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	if r == nil {
		return
	}
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Dec()
}

// RecordTier records one tier attempt; outcome is "found", "empty" or "error".
func (r *Registry) RecordTier(tier, outcome string) {
	if r == nil {
		return
	}
	r.tierResults.WithLabelValues(tier, outcome).Inc()
}

// RecordProviderFailure records a failed external call.
func (r *Registry) RecordProviderFailure(provider, op string) {
	if r == nil {
		return
	}
	r.providerFailures.WithLabelValues(provider, op).Inc()
}

// RecordValuation records a finished valuation.
func (r *Registry) RecordValuation(provenance, status string, duration float64) {
	if r == nil {
		return
	}
	r.valuationsTotal.WithLabelValues(provenance, status).Inc()
	r.valuationDuration.Observe(duration)
}

// RecordQuoteFallback records a placeholder market price.
func (r *Registry) RecordQuoteFallback(reason string) {
	if r == nil {
		return
	}
	r.quoteFallbacks.WithLabelValues(reason).Inc()
}

// RecordShareCountSource records which lookup tier produced a share count.
func (r *Registry) RecordShareCountSource(source string) {
	if r == nil {
		return
	}
	r.shareCountSources.WithLabelValues(source).Inc()
}

// RecordArchive records an archive write.
func (r *Registry) RecordArchive(status string) {
	if r == nil {
		return
	}
	r.reportsArchived.WithLabelValues(status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
