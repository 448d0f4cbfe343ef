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

func TestAlpacaProvider_GetPutQuotes(t *testing.T) {
	svc := &fakeAlpaca{
		configured: true,
		price:      51,
		chain: []services.AlpacaOptionSnapshot{
			{Symbol: "ABC240628P00050000", Bid: 5, Ask: 5.5},
			{Symbol: "ABC240621P00048000", LastPrice: 2.25},
			{Symbol: "ABC240621P00050000", Bid: 6, Ask: 6.4, LastPrice: 6.2},
			{Symbol: "ABC240621C00050000", Bid: 3, Ask: 3.2},
			{Symbol: "ABC240621P00000000", Bid: 1, Ask: 1},
			{Symbol: "ABC241220P00050000", Bid: 9, Ask: 9.5},
			{Symbol: "garbage", Bid: 1, Ask: 1},
		},
	}
	p := NewAlpacaProvider(svc, marketclock.FixedClock{T: afterHours})

	got, err := p.GetPutQuotes(context.Background(), "ABC", 7, 30)
	if err != nil {
		t.Fatalf("GetPutQuotes() error = %v", err)
	}

	wantOrder := []string{"ABC240621P00048000", "ABC240621P00050000", "ABC240628P00050000"}
	if len(got) != len(wantOrder) {
		t.Fatalf("len(quotes) = %d, want %d: %+v", len(got), len(wantOrder), got)
	}
	for i, sym := range wantOrder {
		if got[i].OptionSymbol != sym {
			t.Errorf("quotes[%d] = %s, want %s", i, got[i].OptionSymbol, sym)
		}
	}

	traded := got[0]
	if traded.QuoteSource != models.QuoteSourceLastTrade {
		t.Errorf("QuoteSource = %s, want last_trade", traded.QuoteSource)
	}
	if !traded.Bid.Equal(decimal.NewFromFloat(2.25)) {
		t.Errorf("Bid = %s, want 2.25", traded.Bid)
	}
	if !traded.Strike.Equal(decimal.NewFromInt(48)) {
		t.Errorf("Strike = %s, want 48", traded.Strike)
	}

	if got[1].QuoteSource != models.QuoteSourceNBBO {
		t.Errorf("QuoteSource = %s, want nbbo", got[1].QuoteSource)
	}
	if !got[1].UnderlyingPrice.Valid || !got[1].UnderlyingPrice.Decimal.Equal(decimal.NewFromInt(51)) {
		t.Errorf("UnderlyingPrice = %v, want 51", got[1].UnderlyingPrice)
	}
}

func TestAlpacaProvider_MissingCredential(t *testing.T) {
	p := NewAlpacaProvider(&fakeAlpaca{}, nil)

	_, err := p.GetPutQuotes(context.Background(), "ABC", 0, 60)
	if !errors.Is(err, services.ErrMissingCredential) {
		t.Errorf("error = %v, want ErrMissingCredential", err)
	}
}

func TestAlpacaProvider_ChainFailureIsSoft(t *testing.T) {
	p := NewAlpacaProvider(&fakeAlpaca{configured: true, chainErr: errUpstream}, nil)

	got, err := p.GetPutQuotes(context.Background(), "ABC", 0, 60)
	if err != nil || len(got) != 0 {
		t.Errorf("GetPutQuotes() = %d quotes, %v; want 0, nil", len(got), err)
	}
}
