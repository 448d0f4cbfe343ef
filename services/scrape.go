package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ScrapeService reads earnings tables from public HTML pages. Page layouts
// change without notice, so a page without the expected table yields no rows
// rather than an error.
type ScrapeService struct {
	yahoo      *httpClient
	marketBeat *httpClient
}

// NewScrapeService creates a scraper for the Yahoo earnings calendar page
// and MarketBeat's per-symbol earnings page
func NewScrapeService(yahooCalendarURL, marketBeatURL string, opts ...ClientOption) *ScrapeService {
	if yahooCalendarURL == "" {
		yahooCalendarURL = "https://finance.yahoo.com"
	}
	if marketBeatURL == "" {
		marketBeatURL = "https://www.marketbeat.com"
	}
	opts = append([]ClientOption{WithUserAgent(DefaultUserAgent)}, opts...)

	s := &ScrapeService{
		yahoo:      newHTTPClient(BreakerYahoo, yahooCalendarURL, opts...),
		marketBeat: newHTTPClient(BreakerMarketBeat, marketBeatURL, opts...),
	}
	s.yahoo.headers.Set("Accept", "text/html")
	s.marketBeat.headers.Set("Accept", "text/html")
	return s
}

// CalendarRow is one company from the Yahoo earnings calendar page
type CalendarRow struct {
	Symbol   string
	Company  string
	CallTime string
}

// GetYahooCalendar scrapes the companies reporting on day
func (s *ScrapeService) GetYahooCalendar(ctx context.Context, day time.Time) ([]CalendarRow, error) {
	params := url.Values{}
	params.Set("day", day.Format("2006-01-02"))

	body, err := s.yahoo.get(ctx, "calendar_page", "/calendar/earnings", params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch yahoo calendar page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse yahoo calendar page: %w", err)
	}

	var rows []CalendarRow
	for _, record := range tableRecords(doc.Selection) {
		symbol := strings.ToUpper(record["symbol"])
		if symbol == "" {
			continue
		}
		callTime := record["earnings call time"]
		if callTime == "" {
			callTime = record["call time"]
		}
		rows = append(rows, CalendarRow{
			Symbol:   symbol,
			Company:  record["company"],
			CallTime: callTime,
		})
	}
	return rows, nil
}

// GetMarketBeatDates scrapes the raw date cells of a symbol's MarketBeat
// earnings history table. The NASDAQ listing page is tried first, then NYSE.
func (s *ScrapeService) GetMarketBeatDates(ctx context.Context, symbol string) ([]string, error) {
	symbol = strings.ToUpper(symbol)

	var lastErr error
	for _, exchange := range []string{"NASDAQ", "NYSE"} {
		path := fmt.Sprintf("/stocks/%s/%s/earnings/", exchange, url.PathEscape(symbol))
		body, err := s.marketBeat.get(ctx, "earnings_page", path, nil, nil)
		if err != nil {
			lastErr = err
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to fetch marketbeat page for %s: %w", symbol, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to parse marketbeat page for %s: %w", symbol, err)
		}

		var dates []string
		for _, record := range tableRecords(doc.Selection) {
			for _, key := range []string{"date", "earnings date", "report date"} {
				if v := record[key]; v != "" {
					dates = append(dates, v)
					break
				}
			}
		}
		return dates, nil
	}

	if errors.Is(lastErr, ErrNotFound) {
		return nil, nil
	}
	return nil, lastErr
}

// tableRecords flattens every table in sel into header -> cell maps, with
// headers lower-cased and trimmed
func tableRecords(sel *goquery.Selection) []map[string]string {
	var records []map[string]string

	sel.Find("table").Each(func(_ int, table *goquery.Selection) {
		var headers []string
		table.Find("thead th").Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, strings.ToLower(cleanText(th.Text())))
		})
		if len(headers) == 0 {
			return
		}

		table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
			record := make(map[string]string, len(headers))
			row.Find("td").Each(func(i int, cell *goquery.Selection) {
				if i < len(headers) {
					record[headers[i]] = cleanText(cell.Text())
				}
			})
			if len(record) > 0 {
				records = append(records, record)
			}
		})
	})

	return records
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
