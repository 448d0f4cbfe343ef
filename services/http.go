package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"inflated-puts/observability"
)

const (
	// DefaultTimeout is the default upstream HTTP timeout
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default request rate per upstream (requests per second)
	DefaultRateLimit = 5

	maxBodyBytes = 16 << 20
)

// ClientOption configures an upstream client
type ClientOption func(*httpClient)

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *httpClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *httpClient) {
		c.client = client
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *httpClient) {
		if timeout > 0 {
			c.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithRateLimit sets a custom rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *httpClient) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithRetryConfig sets the retry policy
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithUserAgent sets the User-Agent header sent on every request
func WithUserAgent(userAgent string) ClientOption {
	return func(c *httpClient) {
		if userAgent != "" {
			c.headers.Set("User-Agent", userAgent)
		}
	}
}

// httpClient is the shared GET plumbing for every REST and HTML upstream:
// rate limiting, circuit breaking, optional retries and request metrics.
type httpClient struct {
	service string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	retry   RetryConfig
	headers http.Header
}

func newHTTPClient(service, baseURL string, opts ...ClientOption) *httpClient {
	c := &httpClient{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		retry:   DefaultRetryConfig,
		headers: http.Header{},
	}
	c.headers.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a GET against path (relative to baseURL) and returns the body
func (c *httpClient) get(ctx context.Context, operation, path string, params url.Values, headers map[string]string) ([]byte, error) {
	return WithCircuitBreaker(ctx, c.service, func() ([]byte, error) {
		var body []byte

		err := WithRetry(ctx, c.retry, func() error {
			b, err := c.do(ctx, operation, path, params, headers)
			if err != nil {
				return err
			}
			body = b
			return nil
		})

		return body, err
	})
}

func (c *httpClient) do(ctx context.Context, operation, path string, params url.Values, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for key, v := range headers {
		req.Header.Set(key, v)
	}

	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(c.service, operation)
	timer := metrics.NewTimer()
	defer timer.ObserveExternalAPI(c.service, operation)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordExternalAPIError(c.service, operation, "network")
		return nil, fmt.Errorf("%s %s request failed: %w", c.service, operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordExternalAPIError(c.service, operation, "read")
		return nil, fmt.Errorf("failed to read %s %s response: %w", c.service, operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordExternalAPIError(c.service, operation, fmt.Sprintf("status_%d", resp.StatusCode))
		return nil, &APIError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Endpoint:   path,
			Message:    truncate(strings.TrimSpace(string(body)), 200),
		}
	}

	return body, nil
}

// getJSON performs a GET and decodes the JSON body into result
func (c *httpClient) getJSON(ctx context.Context, operation, path string, params url.Values, result any) error {
	body, err := c.get(ctx, operation, path, params, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		observability.GetMetrics().RecordExternalAPIError(c.service, operation, "decode")
		return fmt.Errorf("failed to decode %s %s response: %w", c.service, operation, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsMissingCredential reports whether err stems from an unconfigured client
func IsMissingCredential(err error) bool {
	return errors.Is(err, ErrMissingCredential)
}
