package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/time/rate"

	"inflated-puts/observability"
)

// AlpacaService handles communication with Alpaca for option and stock market data
type AlpacaService struct {
	apiKey     string
	apiSecret  string
	dataClient *marketdata.Client
	limiter    *rate.Limiter
}

// AlpacaOptionSnapshot is one contract from an Alpaca option chain snapshot
type AlpacaOptionSnapshot struct {
	Symbol            string
	Bid               float64
	Ask               float64
	QuoteTime         time.Time
	LastPrice         float64
	ImpliedVolatility float64
}

// NewAlpacaService creates a new AlpacaService instance. dataURL may be empty
// to use the SDK default.
func NewAlpacaService(apiKey, apiSecret, dataURL string) *AlpacaService {
	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   dataURL,
	})

	return &AlpacaService{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		dataClient: dataClient,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
}

// Configured reports whether both key and secret are present
func (s *AlpacaService) Configured() bool {
	return s.apiKey != "" && s.apiSecret != ""
}

func alpacaCall[T any](ctx context.Context, s *AlpacaService, operation string, fn func() (T, error)) (T, error) {
	var zero T
	if !s.Configured() {
		return zero, MissingCredential("alpaca")
	}

	return WithCircuitBreaker(ctx, BreakerAlpaca, func() (T, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("rate limiter: %w", err)
		}

		metrics := observability.GetMetrics()
		metrics.RecordExternalAPIRequest(BreakerAlpaca, operation)
		timer := metrics.NewTimer()
		defer timer.ObserveExternalAPI(BreakerAlpaca, operation)

		result, err := fn()
		if err != nil {
			metrics.RecordExternalAPIError(BreakerAlpaca, operation, "request")
			return zero, err
		}
		return result, nil
	})
}

// GetOptionChain returns every contract snapshot on underlying, sorted by symbol
func (s *AlpacaService) GetOptionChain(ctx context.Context, underlying string) ([]AlpacaOptionSnapshot, error) {
	return alpacaCall(ctx, s, "option_chain", func() ([]AlpacaOptionSnapshot, error) {
		chain, err := s.dataClient.GetOptionChain(underlying, marketdata.GetOptionChainRequest{})
		if err != nil {
			return nil, fmt.Errorf("failed to get option chain for %s: %w", underlying, err)
		}

		result := make([]AlpacaOptionSnapshot, 0, len(chain))
		for symbol, snap := range chain {
			row := AlpacaOptionSnapshot{
				Symbol:            symbol,
				ImpliedVolatility: snap.ImpliedVolatility,
			}
			if snap.LatestQuote != nil {
				row.Bid = snap.LatestQuote.BidPrice
				row.Ask = snap.LatestQuote.AskPrice
				row.QuoteTime = snap.LatestQuote.Timestamp
			}
			if snap.LatestTrade != nil {
				row.LastPrice = snap.LatestTrade.Price
			}
			result = append(result, row)
		}

		sort.Slice(result, func(i, j int) bool {
			return result[i].Symbol < result[j].Symbol
		})

		return result, nil
	})
}

// GetLatestPrice returns the latest trade price for a stock
func (s *AlpacaService) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	return alpacaCall(ctx, s, "latest_trade", func() (float64, error) {
		trade, err := s.dataClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		if err != nil {
			return 0, fmt.Errorf("failed to get trade for %s: %w", symbol, err)
		}
		if trade == nil {
			return 0, nil
		}
		return trade.Price, nil
	})
}
