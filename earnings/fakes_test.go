package earnings

import (
	"context"
	"errors"
	"time"

	"inflated-puts/marketclock"
	"inflated-puts/services"
)

var errBlocked = errors.New("blocked")

func day(s string) time.Time {
	t, err := marketclock.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// MockYahoo implements services.YahooServiceInterface
type MockYahoo struct {
	Summary    *services.YahooSummary
	SummaryErr error
	Quote      *services.YahooQuote
	QuoteErr   error
}

func (m *MockYahoo) GetQuote(ctx context.Context, symbol string) (*services.YahooQuote, error) {
	if m.QuoteErr != nil {
		return nil, m.QuoteErr
	}
	if m.Quote == nil {
		return &services.YahooQuote{Symbol: symbol}, nil
	}
	return m.Quote, nil
}

func (m *MockYahoo) GetSummary(ctx context.Context, symbol string) (*services.YahooSummary, error) {
	if m.SummaryErr != nil {
		return nil, m.SummaryErr
	}
	if m.Summary == nil {
		return &services.YahooSummary{}, nil
	}
	return m.Summary, nil
}

func (m *MockYahoo) GetOptions(ctx context.Context, symbol string) (*services.YahooOptionChain, error) {
	return nil, services.ErrNotFound
}

// MockFMP implements services.FMPServiceInterface
type MockFMP struct {
	Key      bool
	Calendar []services.FMPEarning
	Symbol   []services.FMPEarning
	Err      error
}

func (m *MockFMP) Configured() bool { return m.Key }

func (m *MockFMP) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]services.FMPEarning, error) {
	return m.Calendar, m.Err
}

func (m *MockFMP) GetSymbolEarnings(ctx context.Context, symbol string) ([]services.FMPEarning, error) {
	return m.Symbol, m.Err
}

// MockAlphaVantage implements services.AlphaVantageServiceInterface
type MockAlphaVantage struct {
	Key  bool
	Rows []services.AlphaVantageEarning
}

func (m *MockAlphaVantage) Configured() bool { return m.Key }

func (m *MockAlphaVantage) GetEarningsCalendar(ctx context.Context) ([]services.AlphaVantageEarning, error) {
	return m.Rows, nil
}

// MockNasdaq implements services.NasdaqServiceInterface
type MockNasdaq struct {
	Days    map[string][]services.NasdaqEarning
	Date    time.Time
	DateErr error
	Calls   int
}

func (m *MockNasdaq) GetEarningsCalendar(ctx context.Context, d time.Time) ([]services.NasdaqEarning, error) {
	m.Calls++
	return m.Days[marketclock.FormatDate(d)], nil
}

func (m *MockNasdaq) GetEarningsDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	return m.Date, !m.Date.IsZero(), m.DateErr
}

// MockScrape implements services.ScrapeServiceInterface
type MockScrape struct {
	Days       map[string][]services.CalendarRow
	DayErr     error
	MarketBeat []string
}

func (m *MockScrape) GetYahooCalendar(ctx context.Context, d time.Time) ([]services.CalendarRow, error) {
	if m.DayErr != nil {
		return nil, m.DayErr
	}
	return m.Days[marketclock.FormatDate(d)], nil
}

func (m *MockScrape) GetMarketBeatDates(ctx context.Context, symbol string) ([]string, error) {
	return m.MarketBeat, nil
}
