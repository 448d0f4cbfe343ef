package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gocarina/gocsv"
)

// AlphaVantageService handles communication with Alpha Vantage API
type AlphaVantageService struct {
	apiKey string
	http   *httpClient
}

// NewAlphaVantageService creates a new AlphaVantageService instance
func NewAlphaVantageService(apiKey, baseURL string, opts ...ClientOption) *AlphaVantageService {
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}
	return &AlphaVantageService{
		apiKey: apiKey,
		http:   newHTTPClient(BreakerAlphaVantage, baseURL, opts...),
	}
}

// AlphaVantageEarning is one row of the EARNINGS_CALENDAR CSV
type AlphaVantageEarning struct {
	Symbol           string `csv:"symbol"`
	Name             string `csv:"name"`
	ReportDate       string `csv:"reportDate"`
	FiscalDateEnding string `csv:"fiscalDateEnding"`
	Estimate         string `csv:"estimate"`
	Currency         string `csv:"currency"`
	TimeOfTheDay     string `csv:"timeOfTheDay"`
}

// Configured reports whether an API key is present
func (s *AlphaVantageService) Configured() bool {
	return s.apiKey != ""
}

// GetEarningsCalendar returns the next three months of scheduled reports.
// Alpha Vantage answers throttled or invalid calls with a JSON note instead
// of CSV; that is surfaced as an error.
func (s *AlphaVantageService) GetEarningsCalendar(ctx context.Context) ([]AlphaVantageEarning, error) {
	if s.apiKey == "" {
		return nil, MissingCredential("alphavantage")
	}

	params := url.Values{}
	params.Set("function", "EARNINGS_CALENDAR")
	params.Set("horizon", "3month")
	params.Set("apikey", s.apiKey)

	body, err := s.http.get(ctx, "earnings_calendar", "/query", params, map[string]string{"Accept": "text/csv"})
	if err != nil {
		return nil, fmt.Errorf("failed to get earnings calendar: %w", err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var note map[string]string
		_ = json.Unmarshal(trimmed, &note)
		for _, key := range []string{"Error Message", "Information", "Note"} {
			if msg := note[key]; msg != "" {
				return nil, fmt.Errorf("alphavantage: %s", msg)
			}
		}
		return nil, fmt.Errorf("alphavantage: unexpected JSON response")
	}

	var rows []AlphaVantageEarning
	if err := gocsv.UnmarshalBytes(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse earnings calendar CSV: %w", err)
	}
	return rows, nil
}
