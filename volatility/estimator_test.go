package volatility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"inflated-puts/marketclock"
	"inflated-puts/observability"
	"inflated-puts/services"
)

var now = time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

func useTestMetrics(t *testing.T) {
	t.Helper()
	prev := observability.GetMetrics()
	observability.SetMetrics(observability.NewMetrics(prometheus.NewRegistry()))
	t.Cleanup(func() { observability.SetMetrics(prev) })
}

func f64(v float64) *float64 { return &v }

// MockTradier implements services.TradierServiceInterface
type MockTradier struct {
	Token       string
	Expirations []string
	Chain       []services.TradierOption
	Err         error
	Requested   string
}

func (m *MockTradier) Configured() bool { return m.Token != "" }

func (m *MockTradier) GetExpirations(ctx context.Context, symbol string) ([]string, error) {
	return m.Expirations, m.Err
}

func (m *MockTradier) GetChain(ctx context.Context, symbol, expiration string, greeks bool) ([]services.TradierOption, error) {
	m.Requested = expiration
	return m.Chain, nil
}

func (m *MockTradier) GetQuotes(ctx context.Context, symbols ...string) ([]services.TradierQuote, error) {
	return []services.TradierQuote{{Symbol: symbols[0], Last: f64(100)}}, nil
}

// MockAlpaca implements services.AlpacaServiceInterface
type MockAlpaca struct {
	Chain []services.AlpacaOptionSnapshot
	Price float64
}

func (m *MockAlpaca) Configured() bool { return true }

func (m *MockAlpaca) GetOptionChain(ctx context.Context, underlying string) ([]services.AlpacaOptionSnapshot, error) {
	return m.Chain, nil
}

func (m *MockAlpaca) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	return m.Price, nil
}

// MockYahoo implements services.YahooServiceInterface
type MockYahoo struct {
	Summary    *services.YahooSummary
	SummaryErr error
	Options    *services.YahooOptionChain
}

func (m *MockYahoo) GetQuote(ctx context.Context, symbol string) (*services.YahooQuote, error) {
	return nil, services.ErrNotFound
}

func (m *MockYahoo) GetSummary(ctx context.Context, symbol string) (*services.YahooSummary, error) {
	if m.SummaryErr != nil {
		return nil, m.SummaryErr
	}
	return m.Summary, nil
}

func (m *MockYahoo) GetOptions(ctx context.Context, symbol string) (*services.YahooOptionChain, error) {
	if m.Options == nil {
		return nil, services.ErrNotFound
	}
	return m.Options, nil
}

func dates(ss ...string) []time.Time {
	out := make([]time.Time, 0, len(ss))
	for _, s := range ss {
		t, _ := marketclock.ParseDate(s)
		out = append(out, t)
	}
	return out
}

func TestClosestExpiration(t *testing.T) {
	tests := []struct {
		name string
		exps []time.Time
		want string
	}{
		{"exact", dates("2024-06-21", "2024-07-03", "2024-07-19"), "2024-07-03"},
		{"nearest", dates("2024-06-07", "2024-06-28", "2024-08-16"), "2024-06-28"},
		// 2024-06-30 is 27 DTE and 2024-07-06 is 33 DTE
		{"tie goes to earlier", dates("2024-07-06", "2024-06-30"), "2024-06-30"},
		{"single", dates("2025-01-17"), "2025-01-17"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClosestExpiration(tt.exps, now)
			if !ok || marketclock.FormatDate(got) != tt.want {
				t.Errorf("ClosestExpiration() = %s, want %s", marketclock.FormatDate(got), tt.want)
			}
		})
	}

	if _, ok := ClosestExpiration(nil, now); ok {
		t.Error("empty list should not pick an expiration")
	}
}

func TestMedianIV(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
		ok     bool
	}{
		{"odd", []float64{0.3, 0.1, 0.2}, 0.2, true},
		{"even", []float64{0.2, 0.4}, 0.3, true},
		{"zeros ignored", []float64{0, 0.25, 0}, 0.25, true},
		{"all zero", []float64{0, 0}, 0, false},
		{"empty", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := medianIV(tt.values)
			if ok != tt.ok || (ok && decimal.NewFromFloat(got).Round(6).String() != decimal.NewFromFloat(tt.want).Round(6).String()) {
				t.Errorf("medianIV() = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestEstimate_TradierChain(t *testing.T) {
	useTestMetrics(t)

	tradier := &MockTradier{
		Token:       "t",
		Expirations: []string{"2024-06-07", "2024-07-05", "2024-08-16"},
		Chain: []services.TradierOption{
			{Strike: 99, Greeks: &services.TradierGreeks{MidIV: 0.30}},
			{Strike: 100, Greeks: &services.TradierGreeks{MidIV: 0, SmvVol: 0.34}},
			{Strike: 101, Greeks: &services.TradierGreeks{MidIV: 0.32}},
			{Strike: 102, Greeks: &services.TradierGreeks{}},
			{Strike: 110, Greeks: &services.TradierGreeks{MidIV: 0.90}},
			{Strike: 100},
		},
	}
	e := NewEstimator(tradier, nil, &MockYahoo{SummaryErr: errors.New("unused")}, marketclock.FixedClock{T: now})

	got := e.Estimate(context.Background(), "abc")
	if !got.Found {
		t.Fatal("expected an estimate")
	}
	if got.Source != SourceTradierChain || got.Symbol != "ABC" {
		t.Errorf("Source/Symbol = %s/%s", got.Source, got.Symbol)
	}
	if !got.Value.Equal(decimal.NewFromFloat(0.32)) {
		t.Errorf("Value = %s, want 0.32", got.Value)
	}
	if got.Contracts != 3 {
		t.Errorf("Contracts = %d, want 3", got.Contracts)
	}
	if tradier.Requested != "2024-07-05" {
		t.Errorf("chain requested for %s, want 2024-07-05", tradier.Requested)
	}
}

func TestEstimate_AlpacaChain(t *testing.T) {
	useTestMetrics(t)

	alpaca := &MockAlpaca{
		Price: 50,
		Chain: []services.AlpacaOptionSnapshot{
			{Symbol: "ABC240705P00050000", ImpliedVolatility: 0.25},
			{Symbol: "ABC240705C00050000", ImpliedVolatility: 0.75},
			{Symbol: "ABC240705P00060000", ImpliedVolatility: 0.80},
			{Symbol: "ABC240607P00050000", ImpliedVolatility: 0.10},
		},
	}
	e := NewEstimator(nil, alpaca, nil, marketclock.FixedClock{T: now})

	got := e.Estimate(context.Background(), "ABC")
	if !got.Found || got.Source != SourceAlpacaChain {
		t.Fatalf("got %+v, want alpaca estimate", got)
	}
	if !got.Value.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("Value = %s, want 0.5", got.Value)
	}
}

func TestEstimate_YahooFallbacks(t *testing.T) {
	useTestMetrics(t)

	t.Run("summary", func(t *testing.T) {
		e := NewEstimator(&MockTradier{}, nil, &MockYahoo{Summary: &services.YahooSummary{ImpliedVolatility: 0.27}}, nil)
		got := e.Estimate(context.Background(), "ABC")
		if !got.Found || got.Source != SourceYahooSummary || !got.Value.Equal(decimal.NewFromFloat(0.27)) {
			t.Errorf("got %+v, want yahoo_summary 0.27", got)
		}
	})

	t.Run("options", func(t *testing.T) {
		yahoo := &MockYahoo{
			Summary: &services.YahooSummary{},
			Options: &services.YahooOptionChain{
				UnderlyingPrice: 48,
				Puts: []services.YahooOptionContract{
					{Strike: 45, ImpliedVolatility: 0.50},
					{Strike: 47.5, ImpliedVolatility: 0.44},
					{Strike: 48, ImpliedVolatility: 0},
					{Strike: 50, ImpliedVolatility: 0.40},
				},
			},
		}
		got := NewEstimator(nil, nil, yahoo, nil).Estimate(context.Background(), "ABC")
		if !got.Found || got.Source != SourceYahooOptions || !got.Value.Equal(decimal.NewFromFloat(0.44)) {
			t.Errorf("got %+v, want yahoo_options 0.44", got)
		}
	})
}

func TestEstimate_NoEstimate(t *testing.T) {
	useTestMetrics(t)

	e := NewEstimator(nil, nil, &MockYahoo{SummaryErr: services.ErrNotFound}, nil)
	got := e.Estimate(context.Background(), "ZZZ")
	if got.Found {
		t.Errorf("got %+v, want no estimate", got)
	}
	if got.Symbol != "ZZZ" {
		t.Errorf("Symbol = %s, want ZZZ", got.Symbol)
	}

	results := NewEstimator(nil, nil, nil, nil).EstimateAll(context.Background(), []string{"A", "B"})
	if len(results) != 2 || results[0].Found || results[1].Found {
		t.Errorf("results = %+v, want two empty estimates", results)
	}
}
