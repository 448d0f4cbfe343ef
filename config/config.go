package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	// Option quote providers
	Tradier TradierConfig
	Polygon PolygonConfig
	Alpaca  AlpacaConfig

	// Earnings and volatility sources
	FMP          FMPConfig
	AlphaVantage AlphaVantageConfig
	Yahoo        YahooConfig
	Scrape       ScrapeConfig

	// Scan defaults
	Scan ScanConfig

	// HTTP configuration
	HTTP HTTPConfig

	// Logging configuration
	Log LogConfig
}

// TradierConfig holds Tradier brokerage API configuration
type TradierConfig struct {
	Token     string
	BaseURL   string
	RateLimit int // requests per second
}

// PolygonConfig holds Polygon reference/market data API configuration
type PolygonConfig struct {
	APIKey    string
	BaseURL   string
	RateLimit int
}

// AlpacaConfig holds Alpaca market data API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	DataURL   string
}

// FMPConfig holds Financial Modeling Prep API configuration
type FMPConfig struct {
	APIKey  string
	BaseURL string
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	APIKey  string
	BaseURL string
}

// YahooConfig holds the unauthenticated Yahoo Finance endpoints
type YahooConfig struct {
	BaseURL     string // JSON API host (query1/query2)
	CalendarURL string // HTML earnings calendar host
	RateLimit   int
}

// ScrapeConfig holds the scraped fallback sources
type ScrapeConfig struct {
	Enabled       bool
	NasdaqURL     string
	MarketBeatURL string
	UserAgent     string
	RateLimit     int
}

// ScanConfig holds default filter settings and scan limits
type ScanConfig struct {
	Provider        string  // tradier, polygon or alpaca
	TargetPct       float64 // minimum bid/strike percentage (default: 10)
	MinDTE          int     // default: 7
	MaxDTE          int     // default: 45
	MinBid          float64 // default: 0.10
	MinOpenInterest int     // default: 50
	MinVolume       int     // default: 0
	Moneyness       string  // any, otm or itm
	UseMid          bool    // fall back to mid when bid is zero (default: true)
	MaxRows         int     // 0 means unlimited (default: 1000)
	SymbolLimit     int     // 0 means unlimited
	MaxCalendarDays int     // longest accepted earnings calendar range (default: 31)
	Concurrency     int     // scans allowed to run at once (default: 2)
}

// HTTPConfig holds HTTP client and server configuration
type HTTPConfig struct {
	Port               int
	TimeoutSeconds     int // upstream request timeout
	RequestTimeoutSec  int // inbound API request timeout
	MaxRetries         int // 0 disables retries
	CORSAllowedOrigins string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Production bool
	Level      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Tradier: TradierConfig{
			Token:     os.Getenv("TRADIER_TOKEN"),
			BaseURL:   getEnvString("TRADIER_BASE_URL", "https://api.tradier.com"),
			RateLimit: getEnvInt("RATE_LIMIT_TRADIER", 2),
		},
		Polygon: PolygonConfig{
			APIKey:    firstEnv("POLYGON_API_KEY", "POLYGON_KEY"),
			BaseURL:   getEnvString("POLYGON_BASE_URL", "https://api.polygon.io"),
			RateLimit: getEnvInt("RATE_LIMIT_POLYGON", 5),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			DataURL:   getEnvString("ALPACA_DATA_URL", "https://data.alpaca.markets"),
		},
		FMP: FMPConfig{
			APIKey:  os.Getenv("FMP_API_KEY"),
			BaseURL: getEnvString("FMP_BASE_URL", "https://financialmodelingprep.com/api/v3"),
		},
		AlphaVantage: AlphaVantageConfig{
			APIKey:  os.Getenv("ALPHA_VANTAGE_API_KEY"),
			BaseURL: getEnvString("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co"),
		},
		Yahoo: YahooConfig{
			BaseURL:     getEnvString("YAHOO_BASE_URL", "https://query2.finance.yahoo.com"),
			CalendarURL: getEnvString("YAHOO_CALENDAR_URL", "https://finance.yahoo.com"),
			RateLimit:   getEnvInt("RATE_LIMIT_YAHOO", 2),
		},
		Scrape: ScrapeConfig{
			Enabled:       getEnvBool("SCRAPE_ENABLED", true),
			NasdaqURL:     getEnvString("NASDAQ_BASE_URL", "https://api.nasdaq.com"),
			MarketBeatURL: getEnvString("MARKETBEAT_BASE_URL", "https://www.marketbeat.com"),
			UserAgent:     getEnvString("SCRAPE_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"),
			RateLimit:     getEnvInt("RATE_LIMIT_SCRAPE", 1),
		},
		Scan: ScanConfig{
			Provider:        strings.ToLower(getEnvString("SCAN_PROVIDER", "tradier")),
			TargetPct:       getEnvFloatRange("SCAN_TARGET_PCT", 10, 0, 100),
			MinDTE:          getEnvIntMin("SCAN_MIN_DTE", 7, 0),
			MaxDTE:          getEnvInt("SCAN_MAX_DTE", 45),
			MinBid:          getEnvFloatRange("SCAN_MIN_BID", 0.10, 0, 1_000_000),
			MinOpenInterest: getEnvIntMin("SCAN_MIN_OI", 50, 0),
			MinVolume:       getEnvIntMin("SCAN_MIN_VOLUME", 0, 0),
			Moneyness:       strings.ToLower(getEnvString("SCAN_MONEYNESS", "any")),
			UseMid:          getEnvBool("SCAN_USE_MID", true),
			MaxRows:         getEnvIntMin("SCAN_MAX_ROWS", 1000, 0),
			SymbolLimit:     getEnvIntMin("SCAN_SYMBOL_LIMIT", 0, 0),
			MaxCalendarDays: getEnvInt("EARNINGS_MAX_CALENDAR_DAYS", 31),
			Concurrency:     getEnvInt("SCAN_CONCURRENCY", 2),
		},
		HTTP: HTTPConfig{
			Port:               getEnvInt("HTTP_PORT", 8080),
			TimeoutSeconds:     getEnvInt("HTTP_TIMEOUT_SECONDS", 30),
			RequestTimeoutSec:  getEnvInt("HTTP_REQUEST_TIMEOUT_SECONDS", 300),
			MaxRetries:         getEnvIntMin("HTTP_MAX_RETRIES", 0, 0),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
		},
		Log: LogConfig{
			Production: getEnvString("APP_ENV", "development") == "production",
			Level:      strings.ToLower(getEnvString("LOG_LEVEL", "info")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Scan.Provider {
	case ProviderTradier, ProviderPolygon, ProviderAlpaca:
	default:
		return fmt.Errorf("SCAN_PROVIDER must be one of tradier, polygon, alpaca, got %q", c.Scan.Provider)
	}

	switch c.Scan.Moneyness {
	case "any", "otm", "itm":
	default:
		return fmt.Errorf("SCAN_MONEYNESS must be one of any, otm, itm, got %q", c.Scan.Moneyness)
	}

	if c.Scan.MaxDTE < c.Scan.MinDTE {
		return fmt.Errorf("SCAN_MAX_DTE (%d) must be >= SCAN_MIN_DTE (%d)", c.Scan.MaxDTE, c.Scan.MinDTE)
	}

	if c.Scan.MaxCalendarDays <= 0 {
		return fmt.Errorf("EARNINGS_MAX_CALENDAR_DAYS must be positive, got %d", c.Scan.MaxCalendarDays)
	}

	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive, got %d", c.HTTP.TimeoutSeconds)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be a valid port, got %d", c.HTTP.Port)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}

// Provider names accepted by SCAN_PROVIDER
const (
	ProviderTradier = "tradier"
	ProviderPolygon = "polygon"
	ProviderAlpaca  = "alpaca"
)

// HasTradier returns true if a Tradier token is configured
func (c *Config) HasTradier() bool {
	return c.Tradier.Token != ""
}

// HasPolygon returns true if a Polygon API key is configured
func (c *Config) HasPolygon() bool {
	return c.Polygon.APIKey != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// HasFMP returns true if Financial Modeling Prep configuration is available
func (c *Config) HasFMP() bool {
	return c.FMP.APIKey != ""
}

// HasAlphaVantage returns true if Alpha Vantage configuration is available
func (c *Config) HasAlphaVantage() bool {
	return c.AlphaVantage.APIKey != ""
}

// HasProvider reports whether credentials exist for the named quote provider
func (c *Config) HasProvider(name string) bool {
	switch name {
	case ProviderTradier:
		return c.HasTradier()
	case ProviderPolygon:
		return c.HasPolygon()
	case ProviderAlpaca:
		return c.HasAlpaca()
	}
	return false
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvIntMin(key string, defaultValue, minVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= minVal {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatRange(key string, defaultValue, minVal, maxVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= minVal && parsed <= maxVal {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Tradier: TradierConfig{
			BaseURL:   "https://api.tradier.com",
			RateLimit: 100,
		},
		Polygon: PolygonConfig{
			BaseURL:   "https://api.polygon.io",
			RateLimit: 100,
		},
		Alpaca: AlpacaConfig{
			DataURL: "https://data.alpaca.markets",
		},
		FMP: FMPConfig{
			BaseURL: "https://financialmodelingprep.com/api/v3",
		},
		AlphaVantage: AlphaVantageConfig{
			BaseURL: "https://www.alphavantage.co",
		},
		Yahoo: YahooConfig{
			BaseURL:     "https://query2.finance.yahoo.com",
			CalendarURL: "https://finance.yahoo.com",
			RateLimit:   100,
		},
		Scrape: ScrapeConfig{
			Enabled:       true,
			NasdaqURL:     "https://api.nasdaq.com",
			MarketBeatURL: "https://www.marketbeat.com",
			UserAgent:     "inflated-puts-test",
			RateLimit:     100,
		},
		Scan: ScanConfig{
			Provider:        ProviderTradier,
			TargetPct:       10,
			MinDTE:          7,
			MaxDTE:          45,
			MinBid:          0.10,
			MinOpenInterest: 50,
			MinVolume:       0,
			Moneyness:       "any",
			UseMid:          true,
			MaxRows:         1000,
			SymbolLimit:     0,
			MaxCalendarDays: 31,
			Concurrency:     2,
		},
		HTTP: HTTPConfig{
			Port:               8080,
			TimeoutSeconds:     5,
			RequestTimeoutSec:  30,
			MaxRetries:         0,
			CORSAllowedOrigins: "*",
		},
		Log: LogConfig{
			Production: false,
			Level:      "info",
		},
	}
}
