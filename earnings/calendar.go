package earnings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"inflated-puts/marketclock"
	"inflated-puts/models"
	"inflated-puts/observability"
)

// calendarRow is one calendar entry before date parsing and session tagging
type calendarRow struct {
	symbol  string
	date    string
	session string
}

// ValidateRange checks a calendar range and returns it as calendar dates
func ValidateRange(start, end time.Time) (time.Time, time.Time, error) {
	start, end = marketclock.Date(start), marketclock.Date(end)
	if end.Before(start) {
		return start, end, fmt.Errorf("%w: end %s is before start %s",
			ErrInvalidRange, marketclock.FormatDate(end), marketclock.FormatDate(start))
	}
	if days := marketclock.DaysBetween(start, end) + 1; days > MaxRangeDays {
		return start, end, fmt.Errorf("%w: %d days exceeds the %d day maximum", ErrInvalidRange, days, MaxRangeDays)
	}
	return start, end, nil
}

// Calendar lists every symbol reporting between start and end inclusive.
// Day sources are queried once per calendar day; range sources once for the
// whole range and clipped to it. Rows are de-duplicated on
// (symbol, date, session) and sorted by (date, symbol).
func (a *Aggregator) Calendar(ctx context.Context, start, end time.Time) (*models.EarningsCalendar, error) {
	start, end, err := ValidateRange(start, end)
	if err != nil {
		return nil, err
	}

	reports := newReportSet()
	var rows []models.EarningsEvent

	collect := func(source string, raw []calendarRow, err error) {
		observability.GetMetrics().RecordEarningsSource(source, len(raw), err)
		if err != nil {
			observability.WithSource(source).Warn("calendar source failed", "error", err)
			reports.fail(source, err)
			return
		}
		n := 0
		for _, r := range raw {
			date, ok := ParseDate(r.date)
			symbol := strings.ToUpper(strings.TrimSpace(r.symbol))
			if !ok || symbol == "" || date.Before(start) || date.After(end) {
				continue
			}
			rows = append(rows, models.EarningsEvent{
				Symbol:  symbol,
				Date:    date,
				Source:  source,
				Session: NormalizeSession(r.session),
			})
			n++
		}
		reports.add(source, n)
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			break
		}
		if a.src.Nasdaq != nil {
			raw, err := a.nasdaqDay(ctx, day)
			collect(SourceNasdaq, raw, err)
		}
		if a.src.Scrape != nil {
			raw, err := a.yahooCalendarDay(ctx, day)
			collect(SourceYahooCalendar, raw, err)
		}
	}

	if a.src.FMP != nil && a.src.FMP.Configured() {
		raw, err := a.fmpRange(ctx, start, end)
		collect(SourceFMP, raw, err)
	}
	if a.src.AlphaVantage != nil && a.src.AlphaVantage.Configured() {
		raw, err := a.alphaVantageRange(ctx)
		collect(SourceAlphaVantage, raw, err)
	}

	events := dedupeBySession(rows)
	observability.Info("earnings calendar built",
		"start", marketclock.FormatDate(start),
		"end", marketclock.FormatDate(end),
		"events", len(events))

	return &models.EarningsCalendar{
		Start:   start,
		End:     end,
		Events:  events,
		Sources: reports.list(),
	}, nil
}

// dedupeBySession keeps one event per (symbol, date, session), sorted by
// (date, symbol). Among duplicates the alphabetically first source is kept.
func dedupeBySession(events []models.EarningsEvent) []models.EarningsEvent {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.Session != b.Session {
			return a.Session < b.Session
		}
		return a.Source < b.Source
	})

	type key struct {
		symbol  string
		date    time.Time
		session models.Session
	}
	seen := make(map[key]bool, len(events))
	out := make([]models.EarningsEvent, 0, len(events))
	for _, e := range events {
		k := key{e.Symbol, e.Date, e.Session}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

func (a *Aggregator) nasdaqDay(ctx context.Context, day time.Time) ([]calendarRow, error) {
	rows, err := a.src.Nasdaq.GetEarningsCalendar(ctx, day)
	if err != nil {
		return nil, err
	}
	out := make([]calendarRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, calendarRow{symbol: r.Symbol, date: marketclock.FormatDate(day), session: r.Time})
	}
	return out, nil
}

func (a *Aggregator) yahooCalendarDay(ctx context.Context, day time.Time) ([]calendarRow, error) {
	rows, err := a.src.Scrape.GetYahooCalendar(ctx, day)
	if err != nil {
		return nil, err
	}
	out := make([]calendarRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, calendarRow{symbol: r.Symbol, date: marketclock.FormatDate(day), session: r.CallTime})
	}
	return out, nil
}

func (a *Aggregator) fmpRange(ctx context.Context, start, end time.Time) ([]calendarRow, error) {
	rows, err := a.src.FMP.GetEarningsCalendar(ctx, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]calendarRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, calendarRow{symbol: r.Symbol, date: r.Date, session: r.Time})
	}
	return out, nil
}

func (a *Aggregator) alphaVantageRange(ctx context.Context) ([]calendarRow, error) {
	rows, err := a.src.AlphaVantage.GetEarningsCalendar(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]calendarRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, calendarRow{symbol: r.Symbol, date: r.ReportDate, session: r.TimeOfTheDay})
	}
	return out, nil
}

// reportSet accumulates per-source counts across days in first-seen order
type reportSet struct {
	order []string
	byKey map[string]*models.SourceReport
}

func newReportSet() *reportSet {
	return &reportSet{byKey: make(map[string]*models.SourceReport)}
}

func (r *reportSet) get(source string) *models.SourceReport {
	rep, ok := r.byKey[source]
	if !ok {
		rep = &models.SourceReport{Source: source}
		r.byKey[source] = rep
		r.order = append(r.order, source)
	}
	return rep
}

func (r *reportSet) add(source string, n int) {
	r.get(source).Count += n
}

func (r *reportSet) fail(source string, err error) {
	r.get(source).Error = err.Error()
}

func (r *reportSet) list() []models.SourceReport {
	out := make([]models.SourceReport, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, *r.byKey[s])
	}
	return out
}
