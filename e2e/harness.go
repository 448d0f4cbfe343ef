// Package e2e provides end-to-end testing infrastructure for the put scanner:
// the real services, aggregators and HTTP router wired against a mock
// upstream server.
package e2e

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"inflated-puts/config"
	"inflated-puts/e2e/mocks"
	"inflated-puts/internal/api"
	"inflated-puts/internal/app"
	"inflated-puts/marketclock"
	"inflated-puts/observability"
	"inflated-puts/services"
)

// InSession is the fixed time harness apps run at: Wednesday 2024-06-05,
// 11:00 in New York.
var InSession = time.Date(2024, 6, 5, 15, 0, 0, 0, time.UTC)

// TestHarness provides the infrastructure for running E2E tests.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	app        *app.App
	router     http.Handler
	config     *config.Config
	now        time.Time
	configure  func(*config.Config)
}

// Option adjusts the harness before Setup
type Option func(*TestHarness)

// WithNow runs the app at a different fixed time.
func WithNow(t time.Time) Option {
	return func(h *TestHarness) { h.now = t }
}

// WithConfig lets a test change the configuration before the app is built.
func WithConfig(fn func(*config.Config)) Option {
	return func(h *TestHarness) {
		prev := h.configure
		h.configure = func(cfg *config.Config) {
			if prev != nil {
				prev(cfg)
			}
			fn(cfg)
		}
	}
}

// NewTestHarness creates a new test harness. Call Setup before use.
func NewTestHarness(t *testing.T, opts ...Option) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)

	h := &TestHarness{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
		now:    InSession,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Setup starts the mock upstream server and builds the app and router.
func (h *TestHarness) Setup() error {
	// Start mock server for external APIs
	h.mockServer = mocks.NewMockServer()

	// Fresh breakers and metrics so tests do not see each other's failures
	prevRegistry := services.GetGlobalRegistry()
	services.SetGlobalRegistry(services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig))
	prevMetrics := observability.GetMetrics()
	observability.SetMetrics(observability.NewMetrics(prometheus.NewRegistry()))
	h.t.Cleanup(func() {
		services.SetGlobalRegistry(prevRegistry)
		observability.SetMetrics(prevMetrics)
	})

	h.config = MockConfig(h.mockServer.URL())
	if h.configure != nil {
		h.configure(h.config)
	}

	h.app = app.New(h.config, app.NewServices(h.config), marketclock.FixedClock{T: h.now})

	handler := api.NewHandler(h.app, h.config)
	h.router = api.NewRouter(handler, h.config)

	return nil
}

// Teardown cleans up all test resources.
func (h *TestHarness) Teardown() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.mockServer != nil {
		h.mockServer.Close()
	}
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock server for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// App returns the application instance.
func (h *TestHarness) App() *app.App {
	return h.app
}

// Router returns the HTTP router for making requests.
func (h *TestHarness) Router() http.Handler {
	return h.router
}

// Config returns the test configuration.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// DoRequest performs an HTTP request and returns the response.
func (h *TestHarness) DoRequest(method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req = req.WithContext(h.ctx)

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// DoUpload posts a CSV file as the multipart "file" field.
func (h *TestHarness) DoUpload(path, filename, content string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		h.t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := io.Copy(part, strings.NewReader(content)); err != nil {
		h.t.Fatalf("failed to write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(h.ctx)

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// MockConfig returns a test configuration with every upstream pointed at
// the mock server at url. Polygon and Alpaca are SDK clients and stay
// unconfigured.
func MockConfig(url string) *config.Config {
	cfg := config.NewTestConfig()

	cfg.Tradier.Token = "test-token"
	cfg.Tradier.BaseURL = url
	cfg.FMP.APIKey = "test-key"
	cfg.FMP.BaseURL = url + mocks.FMPPrefix
	cfg.AlphaVantage.APIKey = "test-key"
	cfg.AlphaVantage.BaseURL = url
	cfg.Yahoo.BaseURL = url
	cfg.Yahoo.CalendarURL = url
	cfg.Scrape.Enabled = true
	cfg.Scrape.NasdaqURL = url
	cfg.Scrape.MarketBeatURL = url
	cfg.HTTP.MaxRetries = 0

	return cfg
}
