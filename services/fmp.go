package services

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// FMPService handles communication with Financial Modeling Prep API
type FMPService struct {
	apiKey string
	http   *httpClient
}

// NewFMPService creates a new FMPService instance
func NewFMPService(apiKey, baseURL string, opts ...ClientOption) *FMPService {
	if baseURL == "" {
		baseURL = "https://financialmodelingprep.com/api/v3"
	}
	return &FMPService{
		apiKey: apiKey,
		http:   newHTTPClient(BreakerFMP, baseURL, opts...),
	}
}

// FMPEarning is one row of the FMP earnings calendar endpoints
type FMPEarning struct {
	Date             string   `json:"date"`
	Symbol           string   `json:"symbol"`
	EPS              *float64 `json:"eps"`
	EPSEstimated     *float64 `json:"epsEstimated"`
	Time             string   `json:"time"`
	FiscalDateEnding string   `json:"fiscalDateEnding"`
}

// Configured reports whether an API key is present
func (s *FMPService) Configured() bool {
	return s.apiKey != ""
}

// GetEarningsCalendar returns every scheduled report between from and to inclusive
func (s *FMPService) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]FMPEarning, error) {
	if s.apiKey == "" {
		return nil, MissingCredential("fmp")
	}

	params := url.Values{}
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))
	params.Set("apikey", s.apiKey)

	var rows []FMPEarning
	if err := s.http.getJSON(ctx, "earning_calendar", "/earning_calendar", params, &rows); err != nil {
		return nil, fmt.Errorf("failed to get earnings calendar: %w", err)
	}
	return rows, nil
}

// GetSymbolEarnings returns past and scheduled earnings dates for symbol
func (s *FMPService) GetSymbolEarnings(ctx context.Context, symbol string) ([]FMPEarning, error) {
	if s.apiKey == "" {
		return nil, MissingCredential("fmp")
	}

	params := url.Values{}
	params.Set("apikey", s.apiKey)

	var rows []FMPEarning
	path := "/historical/earning_calendar/" + url.PathEscape(symbol)
	if err := s.http.getJSON(ctx, "historical_earning_calendar", path, params, &rows); err != nil {
		return nil, fmt.Errorf("failed to get earnings for %s: %w", symbol, err)
	}
	return rows, nil
}
