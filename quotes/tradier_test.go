package quotes

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"inflated-puts/marketclock"
	"inflated-puts/models"
	"inflated-puts/services"
)

func tradierChainFake() *fakeTradier {
	return &fakeTradier{
		configured:  true,
		expirations: []string{"2024-06-28", "2024-06-07", "2024-06-21", "not-a-date"},
		chains: map[string][]services.TradierOption{
			"2024-06-21": {
				{Symbol: "ABC240621P00050000", OptionType: "put", Strike: 50, Bid: f64(6), Ask: f64(6.4), Last: f64(6.1),
					Volume: i64(12), OpenInterest: i64(300), RootSymbol: "ABC", BidDate: 1717790400000},
				{Symbol: "ABC240621P00045000", OptionType: "put", Strike: 45, Bid: f64(0), Ask: f64(0)},
				{Symbol: "ABC240621P00000000", OptionType: "put", Strike: 0, Bid: f64(1), Ask: f64(1)},
				{Symbol: "ABC240621C00050000", OptionType: "call", Strike: 50, Bid: f64(2), Ask: f64(2.2)},
			},
		},
		quotes: map[string]services.TradierQuote{
			"ABC":                {Symbol: "ABC", Last: f64(52.5)},
			"ABC240621P00045000": {Symbol: "ABC240621P00045000", Bid: f64(0), Ask: f64(0), PrevClose: f64(0.35)},
		},
	}
}

func TestTradierProvider_GetPutQuotes(t *testing.T) {
	svc := tradierChainFake()
	p := NewTradierProvider(svc, marketclock.FixedClock{T: afterHours})

	got, err := p.GetPutQuotes(context.Background(), "ABC", 7, 30)
	if err != nil {
		t.Fatalf("GetPutQuotes() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(quotes) = %d, want 2: %+v", len(got), got)
	}

	primary := got[0]
	if primary.OptionSymbol != "ABC240621P00050000" {
		t.Errorf("OptionSymbol = %s", primary.OptionSymbol)
	}
	if primary.QuoteSource != models.QuoteSourceChain {
		t.Errorf("QuoteSource = %s, want chain", primary.QuoteSource)
	}
	if !primary.Bid.Equal(decimal.NewFromInt(6)) {
		t.Errorf("Bid = %s, want 6", primary.Bid)
	}
	if primary.OpenInterestOrZero() != 300 || primary.VolumeOrZero() != 12 {
		t.Errorf("OI/volume = %d/%d, want 300/12", primary.OpenInterestOrZero(), primary.VolumeOrZero())
	}
	if !primary.UnderlyingPrice.Valid || !primary.UnderlyingPrice.Decimal.Equal(decimal.NewFromFloat(52.5)) {
		t.Errorf("UnderlyingPrice = %v, want 52.5", primary.UnderlyingPrice)
	}
	if primary.Exchange != "ABC" || primary.UpdatedAt == nil {
		t.Errorf("Exchange = %q UpdatedAt = %v", primary.Exchange, primary.UpdatedAt)
	}
	if primary.ContractType != models.ContractTypePut || primary.Provider != ProviderTradier {
		t.Errorf("type/provider = %s/%s", primary.ContractType, primary.Provider)
	}

	fallback := got[1]
	if fallback.QuoteSource != models.QuoteSourcePrevClose {
		t.Errorf("fallback QuoteSource = %s, want prev_close", fallback.QuoteSource)
	}
	want := decimal.NewFromFloat(0.35)
	if !fallback.Bid.Equal(want) || !fallback.Ask.Equal(want) {
		t.Errorf("fallback market = %s/%s, want %s", fallback.Bid, fallback.Ask, want)
	}

	for _, q := range got {
		if !q.Strike.IsPositive() {
			t.Errorf("strike %s leaked out of the adapter", q.Strike)
		}
	}
	if svc.quoteCalls["ABC"] != 1 {
		t.Errorf("underlying quoted %d times, want 1", svc.quoteCalls["ABC"])
	}
}

func TestTradierProvider_MissingCredential(t *testing.T) {
	p := NewTradierProvider(&fakeTradier{}, nil)

	_, err := p.GetPutQuotes(context.Background(), "ABC", 0, 60)
	if !errors.Is(err, services.ErrMissingCredential) {
		t.Errorf("error = %v, want ErrMissingCredential", err)
	}
}

func TestTradierProvider_ExpirationFailureIsSoft(t *testing.T) {
	p := NewTradierProvider(&fakeTradier{configured: true, expErr: errUpstream}, nil)

	got, err := p.GetPutQuotes(context.Background(), "ABC", 0, 60)
	if err != nil {
		t.Errorf("error = %v, want nil", err)
	}
	if len(got) != 0 {
		t.Errorf("len(quotes) = %d, want 0", len(got))
	}
}

func TestTradierProvider_WindowExcludesAll(t *testing.T) {
	p := NewTradierProvider(tradierChainFake(), marketclock.FixedClock{T: afterHours})

	got, err := p.GetPutQuotes(context.Background(), "ABC", 60, 90)
	if err != nil {
		t.Fatalf("GetPutQuotes() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(quotes) = %d, want 0", len(got))
	}
}

func TestTradierProvider_ChainLastAfterHours(t *testing.T) {
	svc := &fakeTradier{
		configured:  true,
		expirations: []string{"2024-06-21"},
		chains: map[string][]services.TradierOption{
			"2024-06-21": {
				{Symbol: "ABC240621P00050000", OptionType: "put", Strike: 50, Bid: f64(0), Ask: f64(0), Last: f64(6)},
			},
		},
		quotes: map[string]services.TradierQuote{"ABC": {Symbol: "ABC", Last: f64(52)}},
	}
	p := NewTradierProvider(svc, marketclock.FixedClock{T: afterHours})

	got, err := p.GetPutQuotes(context.Background(), "ABC", 0, 30)
	if err != nil {
		t.Fatalf("GetPutQuotes() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(quotes) = %d, want 1", len(got))
	}
	q := got[0]
	if q.QuoteSource != models.QuoteSourceLastTrade {
		t.Errorf("QuoteSource = %s, want last_trade", q.QuoteSource)
	}
	want := decimal.NewFromInt(6)
	if !q.Bid.Equal(want) || !q.Ask.Equal(want) {
		t.Errorf("market = %s/%s, want 6/6", q.Bid, q.Ask)
	}
	if svc.quoteCalls["ABC240621P00050000"] != 1 {
		t.Errorf("option quoted %d times, want 1", svc.quoteCalls["ABC240621P00050000"])
	}
}
