package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	// Verify all metrics are initialized
	if m.ScanRequestsTotal == nil {
		t.Error("ScanRequestsTotal is nil")
	}
	if m.ScanDuration == nil {
		t.Error("ScanDuration is nil")
	}
	if m.ScanSymbolFailuresTotal == nil {
		t.Error("ScanSymbolFailuresTotal is nil")
	}
	if m.QuoteSourcesTotal == nil {
		t.Error("QuoteSourcesTotal is nil")
	}
	if m.EarningsSourceRowsTotal == nil {
		t.Error("EarningsSourceRowsTotal is nil")
	}
	if m.OptionabilityChecksTotal == nil {
		t.Error("OptionabilityChecksTotal is nil")
	}
	if m.VolatilityEstimatesTotal == nil {
		t.Error("VolatilityEstimatesTotal is nil")
	}
	if m.ExternalAPIRequestsTotal == nil {
		t.Error("ExternalAPIRequestsTotal is nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.CircuitBreakerState == nil {
		t.Error("CircuitBreakerState is nil")
	}
	if m.CircuitBreakerTrips == nil {
		t.Error("CircuitBreakerTrips is nil")
	}
}

func TestRecordScan(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordScan("tradier", "completed", 2*time.Second, 3, 12)
	m.RecordScan("tradier", "completed", time.Second, 1, 0)
	m.RecordScan("polygon", "failed", 10*time.Millisecond, 0, 0)

	if got := testutil.ToFloat64(m.ScanRequestsTotal.WithLabelValues("tradier")); got != 2 {
		t.Errorf("tradier scan count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ScanSymbolFailuresTotal.WithLabelValues("tradier")); got != 4 {
		t.Errorf("tradier symbol failures = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.ScanRequestsTotal.WithLabelValues("polygon")); got != 1 {
		t.Errorf("polygon scan count = %v, want 1", got)
	}
}

func TestRecordQuoteSource(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordQuoteSource("polygon", "nbbo")
	m.RecordQuoteSource("polygon", "nbbo")
	m.RecordQuoteSource("polygon", "snapshot")

	if got := testutil.ToFloat64(m.QuoteSourcesTotal.WithLabelValues("polygon", "nbbo")); got != 2 {
		t.Errorf("nbbo count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.QuoteSourcesTotal.WithLabelValues("polygon", "snapshot")); got != 1 {
		t.Errorf("snapshot count = %v, want 1", got)
	}
}

func TestRecordEarningsSource(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordEarningsSource("nasdaq", 25, nil)
	m.RecordEarningsSource("nasdaq", 5, nil)
	m.RecordEarningsSource("yahoo_calendar", 0, errors.New("layout changed"))

	if got := testutil.ToFloat64(m.EarningsSourceRowsTotal.WithLabelValues("nasdaq")); got != 30 {
		t.Errorf("nasdaq rows = %v, want 30", got)
	}
	if got := testutil.ToFloat64(m.EarningsSourceErrorsTotal.WithLabelValues("yahoo_calendar")); got != 1 {
		t.Errorf("yahoo_calendar errors = %v, want 1", got)
	}
}

func TestRecordOptionabilityAndVolatility(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordOptionabilityCheck("tradier", "yes")
	m.RecordOptionabilityCheck("tradier", "unknown")
	m.RecordVolatilityEstimate("tradier_chain")
	m.RecordVolatilityEstimate("")

	if got := testutil.ToFloat64(m.OptionabilityChecksTotal.WithLabelValues("tradier", "unknown")); got != 1 {
		t.Errorf("unknown checks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.VolatilityEstimatesTotal.WithLabelValues("none")); got != 1 {
		t.Errorf("empty source should be recorded as none, got %v", got)
	}
}

func TestRecordExternalAPIRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordExternalAPIRequest("tradier", "chains")
	m.RecordExternalAPIRequest("tradier", "chains")
	m.RecordExternalAPIRequest("fmp", "earning_calendar")

	tradierChains := testutil.ToFloat64(m.ExternalAPIRequestsTotal.WithLabelValues("tradier", "chains"))
	if tradierChains != 2 {
		t.Errorf("tradier chains count = %v, want 2", tradierChains)
	}

	fmpCalendar := testutil.ToFloat64(m.ExternalAPIRequestsTotal.WithLabelValues("fmp", "earning_calendar"))
	if fmpCalendar != 1 {
		t.Errorf("fmp calendar count = %v, want 1", fmpCalendar)
	}
}

func TestRecordExternalAPIError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordExternalAPIError("tradier", "expirations", "status_429")

	got := testutil.ToFloat64(m.ExternalAPIErrorsTotal.WithLabelValues("tradier", "expirations", "status_429"))
	if got != 1 {
		t.Errorf("tradier error count = %v, want 1", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordHTTPRequest("GET", "/api/health", "200", 10*time.Millisecond, 256)
	m.RecordHTTPRequest("POST", "/api/scan", "200", 2*time.Second, 4096)
	m.RecordHTTPRequest("POST", "/api/scan", "400", 5*time.Millisecond, 64)

	healthOK := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/health", "200"))
	if healthOK != 1 {
		t.Errorf("health OK count = %v, want 1", healthOK)
	}

	scanBad := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/scan", "400"))
	if scanBad != 1 {
		t.Errorf("scan 400 count = %v, want 1", scanBad)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetCircuitBreakerState("tradier", 2)
	m.RecordCircuitBreakerTrip("tradier")
	m.RecordCircuitBreakerTrip("tradier")

	if got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("tradier")); got != 2 {
		t.Errorf("tradier state = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("tradier")); got != 2 {
		t.Errorf("tradier trips = %v, want 2", got)
	}
}

func TestTimer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	timer := m.NewTimer()
	time.Sleep(5 * time.Millisecond)

	if timer.Duration() < 5*time.Millisecond {
		t.Errorf("Duration() = %v, want >= 5ms", timer.Duration())
	}

	timer.ObserveExternalAPI("yahoo", "quote_summary")
	if testutil.CollectAndCount(m.ExternalAPIDuration) != 1 {
		t.Error("expected one external API duration series")
	}
}

func TestGetMetrics_Singleton(t *testing.T) {
	reg := prometheus.NewRegistry()
	custom := NewMetrics(reg)
	previous := globalMetrics
	SetMetrics(custom)
	defer SetMetrics(previous)

	if GetMetrics() != custom {
		t.Error("GetMetrics should return the instance set by SetMetrics")
	}
}
