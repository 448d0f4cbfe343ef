package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewAlphaVantageService(t *testing.T) {
	service := NewAlphaVantageService("test-api-key", "")
	if service == nil {
		t.Fatal("NewAlphaVantageService should not return nil")
	}
	if service.apiKey != "test-api-key" {
		t.Errorf("apiKey = %v, want 'test-api-key'", service.apiKey)
	}
	if service.http.baseURL != "https://www.alphavantage.co" {
		t.Errorf("baseURL = %v, want 'https://www.alphavantage.co'", service.http.baseURL)
	}
}

func TestAlphaVantageService_GetEarningsCalendar(t *testing.T) {
	freshBreakers(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("function") != "EARNINGS_CALENDAR" || q.Get("horizon") != "3month" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("symbol,name,reportDate,fiscalDateEnding,estimate,currency\r\n" +
			"ABC,ABC Corp,2024-04-30,2024-03-31,1.2,USD\r\n" +
			"XYZ,XYZ Inc,2024-05-01,2024-03-31,,USD\r\n"))
	}))
	defer server.Close()

	service := NewAlphaVantageService("k", server.URL, WithRateLimit(100))
	rows, err := service.GetEarningsCalendar(context.Background())
	if err != nil {
		t.Fatalf("GetEarningsCalendar() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].Symbol != "ABC" || rows[0].ReportDate != "2024-04-30" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Estimate != "" {
		t.Errorf("rows[1].Estimate = %q, want empty", rows[1].Estimate)
	}
}

func TestAlphaVantageService_RateLimitNote(t *testing.T) {
	freshBreakers(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Information": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	}))
	defer server.Close()

	service := NewAlphaVantageService("k", server.URL, WithRateLimit(100))
	_, err := service.GetEarningsCalendar(context.Background())
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("err = %v, want rate limit note", err)
	}
}

func TestAlphaVantageService_MissingKey(t *testing.T) {
	service := NewAlphaVantageService("", "http://127.0.0.1:1")
	if _, err := service.GetEarningsCalendar(context.Background()); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("err = %v, want ErrMissingCredential", err)
	}
}
