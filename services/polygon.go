package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"golang.org/x/time/rate"

	"inflated-puts/observability"
)

const polygonContractsPageSize = 1000

// PolygonService wraps the Polygon.io REST SDK for option reference data,
// NBBO quotes and snapshots
type PolygonService struct {
	apiKey  string
	client  *polygon.Client
	limiter *rate.Limiter
}

// PolygonContract is one listed option contract
type PolygonContract struct {
	Ticker     string
	Underlying string
	Strike     float64
	Expiration time.Time
	Exchange   string
}

// PolygonQuote is the most recent NBBO for a contract
type PolygonQuote struct {
	Bid       float64
	Ask       float64
	Timestamp time.Time
}

// PolygonSnapshot is the subset of an option contract snapshot the scanner uses
type PolygonSnapshot struct {
	Bid               float64
	Ask               float64
	LastPrice         float64
	DayClose          float64
	Volume            int64
	OpenInterest      int64
	ImpliedVolatility float64
	UnderlyingPrice   float64
}

// NewPolygonService creates a Polygon client. baseURL overrides the API host
// (used against mock upstreams); requestsPerSecond <= 0 keeps the default pacing.
func NewPolygonService(apiKey, baseURL string, requestsPerSecond int, timeout time.Duration) *PolygonService {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRateLimit
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc := &http.Client{Timeout: timeout}
	if baseURL != "" {
		if target, err := url.Parse(strings.TrimRight(baseURL, "/")); err == nil && target.Host != "" {
			hc.Transport = &hostRewriter{target: target, next: http.DefaultTransport}
		}
	}

	return &PolygonService{
		apiKey:  apiKey,
		client:  polygon.NewWithClient(apiKey, hc),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// hostRewriter sends SDK requests to a different scheme and host
type hostRewriter struct {
	target *url.URL
	next   http.RoundTripper
}

func (h *hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = h.target.Scheme
	clone.URL.Host = h.target.Host
	clone.Host = h.target.Host
	return h.next.RoundTrip(clone)
}

// Configured reports whether an API key is present
func (s *PolygonService) Configured() bool {
	return s.apiKey != ""
}

// polygonCall runs one SDK request under the polygon breaker, limiter and metrics
func polygonCall[T any](ctx context.Context, s *PolygonService, operation string, fn func() (T, error)) (T, error) {
	var zero T
	if s.apiKey == "" {
		return zero, MissingCredential("polygon")
	}

	return WithCircuitBreaker(ctx, BreakerPolygon, func() (T, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("rate limiter: %w", err)
		}

		metrics := observability.GetMetrics()
		metrics.RecordExternalAPIRequest(BreakerPolygon, operation)
		timer := metrics.NewTimer()
		defer timer.ObserveExternalAPI(BreakerPolygon, operation)

		result, err := fn()
		if err != nil {
			metrics.RecordExternalAPIError(BreakerPolygon, operation, "request")
			return zero, fmt.Errorf("polygon %s: %w", operation, err)
		}
		return result, nil
	})
}

// ListPutContracts lists unexpired put contracts on underlying. limit caps the
// number of contracts returned; 0 means every page. When a later page fails
// the contracts from earlier pages are returned along with the error.
func (s *PolygonService) ListPutContracts(ctx context.Context, underlying string, limit int) ([]PolygonContract, error) {
	var contracts []PolygonContract
	_, err := polygonCall(ctx, s, "options_contracts", func() (int, error) {
		pageSize := polygonContractsPageSize
		if limit > 0 && limit < pageSize {
			pageSize = limit
		}

		params := models.ListOptionsContractsParams{}.
			WithUnderlyingTicker(models.EQ, underlying).
			WithContractType("put").
			WithLimit(pageSize)

		iter := s.client.ListOptionsContracts(ctx, params)
		for iter.Next() {
			c := iter.Item()
			contracts = append(contracts, PolygonContract{
				Ticker:     c.Ticker,
				Underlying: c.UnderlyingTicker,
				Strike:     c.StrikePrice,
				Expiration: time.Time(c.ExpirationDate),
				Exchange:   c.PrimaryExchange,
			})
			if limit > 0 && len(contracts) >= limit {
				break
			}
		}
		return len(contracts), iter.Err()
	})
	return contracts, err
}

// LatestQuote returns the most recent NBBO for an option ticker, or nil when
// the quotes endpoint has none
func (s *PolygonService) LatestQuote(ctx context.Context, optionTicker string) (*PolygonQuote, error) {
	return polygonCall(ctx, s, "quotes", func() (*PolygonQuote, error) {
		params := models.ListQuotesParams{Ticker: optionTicker}.
			WithOrder(models.Desc).
			WithLimit(1)

		iter := s.client.ListQuotes(ctx, params)
		if iter.Next() {
			q := iter.Item()
			return &PolygonQuote{
				Bid:       q.BidPrice,
				Ask:       q.AskPrice,
				Timestamp: time.Time(q.SipTimestamp),
			}, nil
		}
		return nil, iter.Err()
	})
}

// ContractSnapshot returns the option contract snapshot
func (s *PolygonService) ContractSnapshot(ctx context.Context, underlying, optionTicker string) (*PolygonSnapshot, error) {
	return polygonCall(ctx, s, "option_snapshot", func() (*PolygonSnapshot, error) {
		resp, err := s.client.GetOptionContractSnapshot(ctx, &models.GetOptionContractSnapshotParams{
			UnderlyingAsset: underlying,
			OptionContract:  optionTicker,
		})
		if err != nil {
			return nil, err
		}

		r := resp.Results
		return &PolygonSnapshot{
			Bid:               r.LastQuote.Bid,
			Ask:               r.LastQuote.Ask,
			LastPrice:         r.LastTrade.Price,
			DayClose:          r.Day.Close,
			Volume:            int64(r.Day.Volume),
			OpenInterest:      int64(r.OpenInterest),
			ImpliedVolatility: r.ImpliedVolatility,
			UnderlyingPrice:   r.UnderlyingAsset.Price,
		}, nil
	})
}

// LastTrade returns the most recent trade price for a ticker
func (s *PolygonService) LastTrade(ctx context.Context, ticker string) (float64, error) {
	return polygonCall(ctx, s, "last_trade", func() (float64, error) {
		resp, err := s.client.GetLastTrade(ctx, &models.GetLastTradeParams{Ticker: ticker})
		if err != nil {
			return 0, err
		}
		return resp.Results.Price, nil
	})
}

// PreviousClose returns the previous session's closing price for a ticker
func (s *PolygonService) PreviousClose(ctx context.Context, ticker string) (float64, error) {
	return polygonCall(ctx, s, "previous_close", func() (float64, error) {
		resp, err := s.client.GetPreviousCloseAgg(ctx, &models.GetPreviousCloseAggParams{Ticker: ticker})
		if err != nil {
			return 0, err
		}
		if len(resp.Results) == 0 {
			return 0, nil
		}
		return resp.Results[0].Close, nil
	})
}
