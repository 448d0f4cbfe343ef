package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inflated-puts/config"
	"inflated-puts/earnings"
	"inflated-puts/marketclock"
	"inflated-puts/models"
	"inflated-puts/optionability"
	"inflated-puts/quotes"
	"inflated-puts/screener"
	"inflated-puts/services"
	"inflated-puts/volatility"

	"github.com/shopspring/decimal"
)

// ErrBusy is returned when every scan slot is taken
var ErrBusy = errors.New("scan queue full, too many concurrent requests - try again later")

// ErrUnknownProvider is returned for provider names other than tradier, polygon or alpaca
var ErrUnknownProvider = errors.New("unknown provider")

// Services holds the upstream clients. Nil fields disable the corresponding source.
type Services struct {
	Tradier      services.TradierServiceInterface
	Polygon      services.PolygonServiceInterface
	Alpaca       services.AlpacaServiceInterface
	Yahoo        services.YahooServiceInterface
	FMP          services.FMPServiceInterface
	AlphaVantage services.AlphaVantageServiceInterface
	Nasdaq       services.NasdaqServiceInterface
	Scrape       services.ScrapeServiceInterface
}

// NewServices builds every upstream client from cfg
func NewServices(cfg *config.Config) Services {
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	retry := services.WithRetryConfig(services.RetryConfigWithMax(cfg.HTTP.MaxRetries))

	svc := Services{
		Tradier: services.NewTradierService(cfg.Tradier.Token, cfg.Tradier.BaseURL,
			services.WithTimeout(timeout), services.WithRateLimit(cfg.Tradier.RateLimit), retry),
		Polygon: services.NewPolygonService(cfg.Polygon.APIKey, cfg.Polygon.BaseURL, cfg.Polygon.RateLimit, timeout),
		Alpaca:  services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL),
		Yahoo: services.NewYahooService(cfg.Yahoo.BaseURL,
			services.WithTimeout(timeout), services.WithRateLimit(cfg.Yahoo.RateLimit), retry),
		FMP:          services.NewFMPService(cfg.FMP.APIKey, cfg.FMP.BaseURL, services.WithTimeout(timeout), retry),
		AlphaVantage: services.NewAlphaVantageService(cfg.AlphaVantage.APIKey, cfg.AlphaVantage.BaseURL, services.WithTimeout(timeout), retry),
	}

	if cfg.Scrape.Enabled {
		scrapeOpts := []services.ClientOption{
			services.WithTimeout(timeout),
			services.WithRateLimit(cfg.Scrape.RateLimit),
			services.WithUserAgent(cfg.Scrape.UserAgent),
			retry,
		}
		svc.Nasdaq = services.NewNasdaqService(cfg.Scrape.NasdaqURL, scrapeOpts...)
		svc.Scrape = services.NewScrapeService(cfg.Yahoo.CalendarURL, cfg.Scrape.MarketBeatURL, scrapeOpts...)
	}
	return svc
}

// App wires configuration and upstream clients into the scanner operations.
// Quote providers are built per scan so their snapshot caches never outlive it.
type App struct {
	cfg       *config.Config
	clock     marketclock.Clock
	svc       Services
	providers map[string]func() quotes.Provider
	checkers  map[string]*optionability.Checker
	earnings  *earnings.Aggregator
	iv        *volatility.Estimator
	scanSem   chan struct{}
}

// New creates an App. A nil clock uses the system clock.
func New(cfg *config.Config, svc Services, clock marketclock.Clock) *App {
	if clock == nil {
		clock = marketclock.SystemClock{}
	}
	limit := cfg.Scan.Concurrency
	if limit <= 0 {
		limit = 1
	}

	a := &App{
		cfg:       cfg,
		clock:     clock,
		svc:       svc,
		providers: make(map[string]func() quotes.Provider),
		checkers:  make(map[string]*optionability.Checker),
		scanSem:   make(chan struct{}, limit),
	}

	if svc.Tradier != nil {
		a.providers[config.ProviderTradier] = func() quotes.Provider { return quotes.NewTradierProvider(svc.Tradier, clock) }
		a.checkers[config.ProviderTradier] = optionability.NewTradierChecker(svc.Tradier)
	}
	if svc.Polygon != nil {
		a.providers[config.ProviderPolygon] = func() quotes.Provider { return quotes.NewPolygonProvider(svc.Polygon, clock) }
		a.checkers[config.ProviderPolygon] = optionability.NewPolygonChecker(svc.Polygon)
	}
	if svc.Alpaca != nil {
		a.providers[config.ProviderAlpaca] = func() quotes.Provider { return quotes.NewAlpacaProvider(svc.Alpaca, clock) }
		a.checkers[config.ProviderAlpaca] = optionability.NewAlpacaChecker(svc.Alpaca)
	}

	a.earnings = earnings.NewAggregator(earnings.Sources{
		Yahoo:        svc.Yahoo,
		FMP:          svc.FMP,
		AlphaVantage: svc.AlphaVantage,
		Nasdaq:       svc.Nasdaq,
		Scrape:       svc.Scrape,
	}, clock)
	a.iv = volatility.NewEstimator(svc.Tradier, svc.Alpaca, svc.Yahoo, clock)
	return a
}

// Config returns the configuration the App was built with
func (a *App) Config() *config.Config {
	return a.cfg
}

// Now returns the current time on the App's clock
func (a *App) Now() time.Time {
	return a.clock.Now()
}

// DefaultFilter returns the filter settings from configuration
func (a *App) DefaultFilter() models.FilterConfig {
	s := a.cfg.Scan
	moneyness, err := models.ParseMoneyness(s.Moneyness)
	if err != nil {
		moneyness = models.MoneynessAny
	}
	return models.FilterConfig{
		TargetPct:       decimal.NewFromFloat(s.TargetPct),
		MinDTE:          s.MinDTE,
		MaxDTE:          s.MaxDTE,
		MinBid:          decimal.NewFromFloat(s.MinBid),
		MinOpenInterest: int64(s.MinOpenInterest),
		MinVolume:       int64(s.MinVolume),
		Moneyness:       moneyness,
		UseMid:          s.UseMid,
		MaxRows:         s.MaxRows,
	}
}

func (a *App) providerName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return a.cfg.Scan.Provider
	}
	return name
}

// Provider builds a new quote provider for name; empty selects the
// configured default
func (a *App) Provider(name string) (quotes.Provider, error) {
	name = a.providerName(name)
	build, ok := a.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return build(), nil
}

// Checker returns the optionability checker for the named provider
func (a *App) Checker(name string) (*optionability.Checker, error) {
	name = a.providerName(name)
	c, ok := a.checkers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return c, nil
}

func (a *App) acquire() (func(), error) {
	select {
	case a.scanSem <- struct{}{}:
		return func() { <-a.scanSem }, nil
	default:
		return nil, ErrBusy
	}
}

// Scan fetches live puts for symbols from the named provider and filters them
func (a *App) Scan(ctx context.Context, provider string, symbols []string, filter models.FilterConfig) (*models.ScanResult, error) {
	p, err := a.Provider(provider)
	if err != nil {
		return nil, err
	}

	release, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return screener.NewPutScreener(p, a.cfg.Scan.SymbolLimit, a.clock).RunScan(ctx, symbols, filter)
}

// ScanQuotes filters quotes that were loaded offline, e.g. from CSV
func (a *App) ScanQuotes(in []models.OptionQuote, filter models.FilterConfig) (*models.ScanResult, error) {
	return screener.NewPutScreener(nil, 0, a.clock).FilterQuotes(in, filter)
}

// Earnings merges every source's earnings dates for symbol
func (a *App) Earnings(ctx context.Context, symbol string) (*models.EarningsLookup, error) {
	return a.earnings.Lookup(ctx, symbol)
}

// Calendar returns the merged earnings calendar for [start, end]
func (a *App) Calendar(ctx context.Context, start, end time.Time) (*models.EarningsCalendar, error) {
	if days := marketclock.DaysBetween(start, end) + 1; days > a.cfg.Scan.MaxCalendarDays {
		return nil, fmt.Errorf("%w: %d days exceeds the %d day limit", earnings.ErrInvalidRange, days, a.cfg.Scan.MaxCalendarDays)
	}
	return a.earnings.Calendar(ctx, start, end)
}

// CalendarWithOptions returns the calendar with each symbol's optionability
// at the named provider
func (a *App) CalendarWithOptions(ctx context.Context, start, end time.Time, provider string) (*models.EarningsCalendar, []models.CalendarOptionRow, error) {
	checker, err := a.Checker(provider)
	if err != nil {
		return nil, nil, err
	}
	cal, err := a.Calendar(ctx, start, end)
	if err != nil {
		return nil, nil, err
	}
	return cal, earnings.WithOptions(ctx, cal.Events, checker), nil
}

// Optionable probes whether options are listed for each symbol
func (a *App) Optionable(ctx context.Context, provider string, symbols []string) ([]models.OptionabilityResult, error) {
	checker, err := a.Checker(provider)
	if err != nil {
		return nil, err
	}
	return checker.CheckAll(ctx, symbols), nil
}

// ImpliedVolatility estimates IV for each symbol. Symbols without an
// estimate come back with Found == false.
func (a *App) ImpliedVolatility(ctx context.Context, symbols []string) []models.VolatilityEstimate {
	return a.iv.EstimateAll(ctx, symbols)
}

// ScanSemCapacity returns the number of scan slots (for testing)
func (a *App) ScanSemCapacity() int {
	return cap(a.scanSem)
}
