package earnings

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"inflated-puts/models"
	"inflated-puts/observability"
	"inflated-puts/services"
)

func useTestMetrics(t *testing.T) {
	t.Helper()
	prev := observability.GetMetrics()
	observability.SetMetrics(observability.NewMetrics(prometheus.NewRegistry()))
	t.Cleanup(func() { observability.SetMetrics(prev) })
}

func TestLookup_SameDateTwoSources(t *testing.T) {
	useTestMetrics(t)

	agg := NewAggregator(Sources{
		FMP:    &MockFMP{Key: true, Symbol: []services.FMPEarning{{Symbol: "ABC", Date: "2024-05-01", Time: "amc"}}},
		Nasdaq: &MockNasdaq{Date: day("2024-05-01")},
	}, nil)

	got, err := agg.Lookup(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.Symbol != "ABC" {
		t.Errorf("Symbol = %s, want ABC", got.Symbol)
	}
	if len(got.Raw) != 2 {
		t.Fatalf("len(Raw) = %d, want 2: %+v", len(got.Raw), got.Raw)
	}
	if got.Raw[0].Source != SourceFMP || got.Raw[1].Source != SourceNasdaq {
		t.Errorf("Raw sources = %s, %s; want fmp, nasdaq", got.Raw[0].Source, got.Raw[1].Source)
	}
	if len(got.Events) != 1 {
		t.Fatalf("len(Events) = %d, want 1", len(got.Events))
	}
	if got.Events[0].Source != SourceFMP || got.Events[0].Session != models.SessionAfterClose {
		t.Errorf("Events[0] = %+v, want fmp after-close", got.Events[0])
	}
}

func TestLookup_IsolatesFailures(t *testing.T) {
	useTestMetrics(t)

	agg := NewAggregator(Sources{
		Yahoo: &MockYahoo{
			SummaryErr: errBlocked,
			Quote:      &services.YahooQuote{Symbol: "ABC", EarningsTimestamp: time.Date(2024, 7, 25, 20, 0, 0, 0, time.UTC).Unix()},
		},
		Nasdaq: &MockNasdaq{DateErr: errBlocked},
		Scrape: &MockScrape{MarketBeat: []string{"7/25/2024", "garbage", "4/25/2024", "7/25/2024"}},
	}, nil)

	got, err := agg.Lookup(context.Background(), "ABC")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	wantRaw := []struct {
		date, source string
	}{
		{"2024-04-25", SourceMarketBeat},
		{"2024-07-25", SourceMarketBeat},
		{"2024-07-25", SourceYahooQuote},
	}
	if len(got.Raw) != len(wantRaw) {
		t.Fatalf("len(Raw) = %d, want %d: %+v", len(got.Raw), len(wantRaw), got.Raw)
	}
	for i, w := range wantRaw {
		if got.Raw[i].Date.Format("2006-01-02") != w.date || got.Raw[i].Source != w.source {
			t.Errorf("Raw[%d] = %s %s, want %s %s", i, got.Raw[i].Date.Format("2006-01-02"), got.Raw[i].Source, w.date, w.source)
		}
	}
	if len(got.Events) != 2 {
		t.Errorf("len(Events) = %d, want 2", len(got.Events))
	}

	reports := map[string]models.SourceReport{}
	for _, r := range got.Sources {
		reports[r.Source] = r
	}
	if reports[SourceYahooSummary].Error == "" || reports[SourceNasdaq].Error == "" {
		t.Errorf("failed sources not reported: %+v", got.Sources)
	}
	if reports[SourceMarketBeat].Count != 3 {
		t.Errorf("marketbeat count = %d, want 3 parsed dates", reports[SourceMarketBeat].Count)
	}

	next, ok := got.Next(day("2024-06-01"))
	if !ok || next.Date.Format("2006-01-02") != "2024-07-25" {
		t.Errorf("Next() = %+v, %v; want 2024-07-25", next, ok)
	}
}

func TestLookup_NothingFound(t *testing.T) {
	useTestMetrics(t)

	agg := NewAggregator(Sources{Yahoo: &MockYahoo{}, FMP: &MockFMP{}}, nil)
	got, err := agg.Lookup(context.Background(), "ZZZ")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(got.Raw) != 0 || len(got.Events) != 0 {
		t.Errorf("got %d raw, %d events; want none", len(got.Raw), len(got.Events))
	}
	for _, r := range got.Sources {
		if r.Source == SourceFMP {
			t.Error("unconfigured FMP should not be queried")
		}
	}
}

func TestLookup_RequiresSymbol(t *testing.T) {
	agg := NewAggregator(Sources{}, nil)
	if _, err := agg.Lookup(context.Background(), "  "); err == nil {
		t.Error("expected error for blank symbol")
	}
}
