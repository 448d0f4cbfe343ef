package services

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// NasdaqService reads the JSON endpoints behind nasdaq.com's earnings pages
type NasdaqService struct {
	http *httpClient
}

// NewNasdaqService creates a new Nasdaq client
func NewNasdaqService(baseURL string, opts ...ClientOption) *NasdaqService {
	if baseURL == "" {
		baseURL = "https://api.nasdaq.com"
	}
	opts = append([]ClientOption{WithUserAgent(DefaultUserAgent)}, opts...)
	return &NasdaqService{
		http: newHTTPClient(BreakerNasdaq, baseURL, opts...),
	}
}

// NasdaqEarning is one row of the Nasdaq earnings calendar
type NasdaqEarning struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Time   string `json:"time"`
}

// GetEarningsCalendar returns the companies reporting on day
func (s *NasdaqService) GetEarningsCalendar(ctx context.Context, day time.Time) ([]NasdaqEarning, error) {
	params := url.Values{}
	params.Set("date", day.Format("2006-01-02"))

	var resp struct {
		Data *struct {
			Rows []NasdaqEarning `json:"rows"`
		} `json:"data"`
	}
	if err := s.http.getJSON(ctx, "earnings_calendar", "/api/calendar/earnings", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to get nasdaq calendar for %s: %w", day.Format("2006-01-02"), err)
	}
	if resp.Data == nil {
		return nil, nil
	}
	return resp.Data.Rows, nil
}

var announcementDate = regexp.MustCompile(`([A-Z][a-z]{2,8})\.? (\d{1,2}), (\d{4})`)

// GetEarningsDate returns the announced next earnings date for symbol, or
// ok=false when the page carries no date
func (s *NasdaqService) GetEarningsDate(ctx context.Context, symbol string) (date time.Time, ok bool, err error) {
	var resp struct {
		Data *struct {
			Announcement string `json:"announcement"`
			ReportText   string `json:"reportText"`
		} `json:"data"`
	}
	path := "/api/analyst/" + url.PathEscape(strings.ToLower(symbol)) + "/earnings-date"
	if err := s.http.getJSON(ctx, "earnings_date", path, nil, &resp); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get nasdaq earnings date for %s: %w", symbol, err)
	}
	if resp.Data == nil {
		return time.Time{}, false, nil
	}

	for _, text := range []string{resp.Data.Announcement, resp.Data.ReportText} {
		if d, found := parseAnnouncementDate(text); found {
			return d, true, nil
		}
	}
	return time.Time{}, false, nil
}

func parseAnnouncementDate(text string) (time.Time, bool) {
	m := announcementDate.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	month := m[1]
	if len(month) > 3 {
		month = month[:3]
	}
	d, err := time.Parse("Jan 2 2006", month+" "+m[2]+" "+m[3])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
