package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "inflated_puts"

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Scan metrics
	ScanRequestsTotal       *prometheus.CounterVec
	ScanDuration            *prometheus.HistogramVec
	ScanSymbolFailuresTotal *prometheus.CounterVec
	ScanRowsMatched         *prometheus.HistogramVec
	QuoteSourcesTotal       *prometheus.CounterVec

	// Earnings, optionability and volatility metrics
	EarningsSourceRowsTotal   *prometheus.CounterVec
	EarningsSourceErrorsTotal *prometheus.CounterVec
	OptionabilityChecksTotal  *prometheus.CounterVec
	VolatilityEstimatesTotal  *prometheus.CounterVec

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300}

// rowBuckets are histogram buckets for matched row counts
var rowBuckets = []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		// Scan metrics
		ScanRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scan",
				Name:      "requests_total",
				Help:      "Total number of option scans",
			},
			[]string{"provider"},
		),
		ScanDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scan",
				Name:      "duration_seconds",
				Help:      "Duration of option scans in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"provider", "status"},
		),
		ScanSymbolFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scan",
				Name:      "symbol_failures_total",
				Help:      "Total number of symbols that produced no quotes",
			},
			[]string{"provider"},
		),
		ScanRowsMatched: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scan",
				Name:      "rows_matched",
				Help:      "Distribution of rows surviving the filter per scan",
				Buckets:   rowBuckets,
			},
			[]string{"provider"},
		),
		QuoteSourcesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scan",
				Name:      "quote_sources_total",
				Help:      "Quotes by the upstream call that priced them (nbbo, snapshot, last_trade, ...)",
			},
			[]string{"provider", "source"},
		),

		// Earnings metrics
		EarningsSourceRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "earnings",
				Name:      "source_rows_total",
				Help:      "Total number of earnings rows returned per source",
			},
			[]string{"source"},
		),
		EarningsSourceErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "earnings",
				Name:      "source_errors_total",
				Help:      "Total number of failed earnings source lookups",
			},
			[]string{"source"},
		),
		OptionabilityChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "optionability",
				Name:      "checks_total",
				Help:      "Total number of optionability probes by outcome",
			},
			[]string{"provider", "status"},
		),
		VolatilityEstimatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "volatility",
				Name:      "estimates_total",
				Help:      "Total number of IV estimates by source (none when no estimate)",
			},
			[]string{"source"},
		),

		// External API metrics
		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		// Circuit breaker metrics
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// SetMetrics replaces the global metrics instance (useful for testing)
func SetMetrics(m *Metrics) {
	globalMetrics = m
}

// RecordScan records a completed or failed scan
func (m *Metrics) RecordScan(provider, status string, duration time.Duration, failures, matched int) {
	m.ScanRequestsTotal.WithLabelValues(provider).Inc()
	m.ScanDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
	m.ScanSymbolFailuresTotal.WithLabelValues(provider).Add(float64(failures))
	m.ScanRowsMatched.WithLabelValues(provider).Observe(float64(matched))
}

// RecordQuoteSource records which upstream call priced a quote
func (m *Metrics) RecordQuoteSource(provider, source string) {
	m.QuoteSourcesTotal.WithLabelValues(provider, source).Inc()
}

// RecordEarningsSource records the outcome of one earnings source lookup
func (m *Metrics) RecordEarningsSource(source string, rows int, err error) {
	if err != nil {
		m.EarningsSourceErrorsTotal.WithLabelValues(source).Inc()
		return
	}
	m.EarningsSourceRowsTotal.WithLabelValues(source).Add(float64(rows))
}

// RecordOptionabilityCheck records a tri-state optionability outcome
func (m *Metrics) RecordOptionabilityCheck(provider, status string) {
	m.OptionabilityChecksTotal.WithLabelValues(provider, status).Inc()
}

// RecordVolatilityEstimate records which source produced an IV estimate
func (m *Metrics) RecordVolatilityEstimate(source string) {
	if source == "" {
		source = "none"
	}
	m.VolatilityEstimatesTotal.WithLabelValues(source).Inc()
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(service, operation string) {
	m.ExternalAPIRequestsTotal.WithLabelValues(service, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(service, operation, errorType string) {
	m.ExternalAPIErrorsTotal.WithLabelValues(service, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(service, operation string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
