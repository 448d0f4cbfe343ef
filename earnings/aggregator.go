// Package earnings merges earnings dates from several public sources, for a
// single symbol or as a calendar over a date range.
package earnings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"inflated-puts/marketclock"
	"inflated-puts/models"
	"inflated-puts/observability"
	"inflated-puts/services"
)

// Source labels, as they appear on events and in diagnostics
const (
	SourceYahooSummary  = "yahoo_summary"
	SourceYahooQuote    = "yahoo_quote"
	SourceFMP           = "fmp"
	SourceNasdaq        = "nasdaq"
	SourceMarketBeat    = "marketbeat"
	SourceAlphaVantage  = "alpha_vantage"
	SourceYahooCalendar = "yahoo_calendar"
)

// MaxRangeDays is the longest calendar range accepted, inclusive of both ends
const MaxRangeDays = 31

// ErrInvalidRange is returned for calendar ranges that end before they start
// or span more than MaxRangeDays
var ErrInvalidRange = errors.New("invalid date range")

// Sources are the upstream clients the aggregator reads. Nil entries are skipped.
type Sources struct {
	Yahoo        services.YahooServiceInterface
	FMP          services.FMPServiceInterface
	AlphaVantage services.AlphaVantageServiceInterface
	Nasdaq       services.NasdaqServiceInterface
	Scrape       services.ScrapeServiceInterface
}

// Aggregator queries every configured source and merges the results
type Aggregator struct {
	src   Sources
	clock marketclock.Clock
}

// NewAggregator creates an Aggregator. A nil clock uses the system clock.
func NewAggregator(src Sources, clock marketclock.Clock) *Aggregator {
	if clock == nil {
		clock = marketclock.SystemClock{}
	}
	return &Aggregator{src: src, clock: clock}
}

// rawEvent is a date exactly as a source reported it
type rawEvent struct {
	date    string
	session string
}

type symbolSource struct {
	name  string
	fetch func(ctx context.Context, symbol string) ([]rawEvent, error)
}

// symbolSources lists the single-symbol sources in query order: structured
// JSON endpoints first, scraped pages last
func (a *Aggregator) symbolSources() []symbolSource {
	var out []symbolSource
	if a.src.Yahoo != nil {
		out = append(out,
			symbolSource{SourceYahooSummary, a.yahooSummary},
			symbolSource{SourceYahooQuote, a.yahooQuote},
		)
	}
	if a.src.FMP != nil && a.src.FMP.Configured() {
		out = append(out, symbolSource{SourceFMP, a.fmpSymbol})
	}
	if a.src.Nasdaq != nil {
		out = append(out, symbolSource{SourceNasdaq, a.nasdaqSymbol})
	}
	if a.src.Scrape != nil {
		out = append(out, symbolSource{SourceMarketBeat, a.marketBeat})
	}
	return out
}

// Lookup collects every earnings date any source reports for symbol. A source
// that fails is recorded in the diagnostics and does not affect the others.
func (a *Aggregator) Lookup(ctx context.Context, symbol string) (*models.EarningsLookup, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	metrics := observability.GetMetrics()
	result := &models.EarningsLookup{
		Symbol:  symbol,
		Raw:     []models.EarningsEvent{},
		Events:  []models.EarningsEvent{},
		Sources: []models.SourceReport{},
	}

	var events []models.EarningsEvent
	for _, src := range a.symbolSources() {
		raw, err := src.fetch(ctx, symbol)
		metrics.RecordEarningsSource(src.name, len(raw), err)

		report := models.SourceReport{Source: src.name}
		if err != nil {
			observability.WithSource(src.name).Warn("earnings source failed", "symbol", symbol, "error", err)
			report.Error = err.Error()
			result.Sources = append(result.Sources, report)
			continue
		}

		for _, r := range raw {
			date, ok := ParseDate(r.date)
			if !ok {
				observability.WithSource(src.name).Debug("dropping unparseable date", "symbol", symbol, "date", r.date)
				continue
			}
			events = append(events, models.EarningsEvent{
				Symbol:  symbol,
				Date:    date,
				Source:  src.name,
				Session: NormalizeSession(r.session),
			})
			report.Count++
		}
		result.Sources = append(result.Sources, report)
	}

	result.Raw = dedupeBySource(events)
	result.Events = dedupeByDate(result.Raw)
	return result, nil
}

// dedupeBySource keeps one event per (symbol, date, source), sorted by (date, source)
func dedupeBySource(events []models.EarningsEvent) []models.EarningsEvent {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Source < events[j].Source
	})

	type key struct {
		symbol, source string
		date           time.Time
	}
	seen := make(map[key]bool, len(events))
	out := make([]models.EarningsEvent, 0, len(events))
	for _, e := range events {
		k := key{e.Symbol, e.Source, e.Date}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

// dedupeByDate keeps the first event for each (symbol, date) of sorted input
func dedupeByDate(sorted []models.EarningsEvent) []models.EarningsEvent {
	type key struct {
		symbol string
		date   time.Time
	}
	seen := make(map[key]bool, len(sorted))
	out := make([]models.EarningsEvent, 0, len(sorted))
	for _, e := range sorted {
		k := key{e.Symbol, e.Date}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

func (a *Aggregator) yahooSummary(ctx context.Context, symbol string) ([]rawEvent, error) {
	summary, err := a.src.Yahoo.GetSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return timesToEvents(summary.EarningsDates), nil
}

func (a *Aggregator) yahooQuote(ctx context.Context, symbol string) ([]rawEvent, error) {
	quote, err := a.src.Yahoo.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return timesToEvents(quote.EarningsTimes()), nil
}

func (a *Aggregator) fmpSymbol(ctx context.Context, symbol string) ([]rawEvent, error) {
	rows, err := a.src.FMP.GetSymbolEarnings(ctx, symbol)
	if err != nil {
		return nil, err
	}
	out := make([]rawEvent, 0, len(rows))
	for _, r := range rows {
		if !strings.EqualFold(r.Symbol, symbol) && r.Symbol != "" {
			continue
		}
		out = append(out, rawEvent{date: r.Date, session: r.Time})
	}
	return out, nil
}

func (a *Aggregator) nasdaqSymbol(ctx context.Context, symbol string) ([]rawEvent, error) {
	date, ok, err := a.src.Nasdaq.GetEarningsDate(ctx, symbol)
	if err != nil || !ok {
		return nil, err
	}
	return []rawEvent{{date: marketclock.FormatDate(date)}}, nil
}

func (a *Aggregator) marketBeat(ctx context.Context, symbol string) ([]rawEvent, error) {
	dates, err := a.src.Scrape.GetMarketBeatDates(ctx, symbol)
	if err != nil {
		return nil, err
	}
	out := make([]rawEvent, 0, len(dates))
	for _, d := range dates {
		out = append(out, rawEvent{date: d})
	}
	return out, nil
}

// timesToEvents converts upstream timestamps to exchange calendar dates
func timesToEvents(times []time.Time) []rawEvent {
	out := make([]rawEvent, 0, len(times))
	for _, t := range times {
		out = append(out, rawEvent{date: marketclock.FormatDate(marketclock.Today(t))})
	}
	return out
}
