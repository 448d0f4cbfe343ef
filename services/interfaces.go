package services

import (
	"context"
	"time"
)

// TradierServiceInterface defines the Tradier market-data operations
type TradierServiceInterface interface {
	Configured() bool
	GetExpirations(ctx context.Context, symbol string) ([]string, error)
	GetChain(ctx context.Context, symbol, expiration string, greeks bool) ([]TradierOption, error)
	GetQuotes(ctx context.Context, symbols ...string) ([]TradierQuote, error)
}

// PolygonServiceInterface defines the Polygon option reference and quote operations
type PolygonServiceInterface interface {
	Configured() bool
	ListPutContracts(ctx context.Context, underlying string, limit int) ([]PolygonContract, error)
	LatestQuote(ctx context.Context, optionTicker string) (*PolygonQuote, error)
	ContractSnapshot(ctx context.Context, underlying, optionTicker string) (*PolygonSnapshot, error)
	LastTrade(ctx context.Context, ticker string) (float64, error)
	PreviousClose(ctx context.Context, ticker string) (float64, error)
}

// AlpacaServiceInterface defines the Alpaca market data operations
type AlpacaServiceInterface interface {
	Configured() bool
	GetOptionChain(ctx context.Context, underlying string) ([]AlpacaOptionSnapshot, error)
	GetLatestPrice(ctx context.Context, symbol string) (float64, error)
}

// YahooServiceInterface defines the Yahoo Finance JSON operations
type YahooServiceInterface interface {
	GetQuote(ctx context.Context, symbol string) (*YahooQuote, error)
	GetSummary(ctx context.Context, symbol string) (*YahooSummary, error)
	GetOptions(ctx context.Context, symbol string) (*YahooOptionChain, error)
}

// FMPServiceInterface defines the Financial Modeling Prep earnings operations
type FMPServiceInterface interface {
	Configured() bool
	GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]FMPEarning, error)
	GetSymbolEarnings(ctx context.Context, symbol string) ([]FMPEarning, error)
}

// AlphaVantageServiceInterface defines the Alpha Vantage earnings operations
type AlphaVantageServiceInterface interface {
	Configured() bool
	GetEarningsCalendar(ctx context.Context) ([]AlphaVantageEarning, error)
}

// NasdaqServiceInterface defines the Nasdaq earnings operations
type NasdaqServiceInterface interface {
	GetEarningsCalendar(ctx context.Context, day time.Time) ([]NasdaqEarning, error)
	GetEarningsDate(ctx context.Context, symbol string) (time.Time, bool, error)
}

// ScrapeServiceInterface defines the HTML page scrapers
type ScrapeServiceInterface interface {
	GetYahooCalendar(ctx context.Context, day time.Time) ([]CalendarRow, error)
	GetMarketBeatDates(ctx context.Context, symbol string) ([]string, error)
}

// Compile-time interface verification
var _ TradierServiceInterface = (*TradierService)(nil)
var _ PolygonServiceInterface = (*PolygonService)(nil)
var _ AlpacaServiceInterface = (*AlpacaService)(nil)
var _ YahooServiceInterface = (*YahooService)(nil)
var _ FMPServiceInterface = (*FMPService)(nil)
var _ AlphaVantageServiceInterface = (*AlphaVantageService)(nil)
var _ NasdaqServiceInterface = (*NasdaqService)(nil)
var _ ScrapeServiceInterface = (*ScrapeService)(nil)
