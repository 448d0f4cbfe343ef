package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"inflated-puts/marketclock"
	"inflated-puts/models"
	"inflated-puts/services"
)

func polygonFake() *fakePolygon {
	exp := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	return &fakePolygon{
		configured: true,
		contracts: []services.PolygonContract{
			{Ticker: "O:ABC240621P00055000", Underlying: "ABC", Strike: 55, Expiration: exp},
			{Ticker: "O:ABC240621P00050000", Underlying: "ABC", Strike: 50, Expiration: exp},
			{Ticker: "O:ABC240621P00000000", Underlying: "ABC", Strike: 0, Expiration: exp},
			{Ticker: "O:ABC240607P00050000", Underlying: "ABC", Strike: 50, Expiration: exp.AddDate(0, 0, -14)},
		},
		nbbo: map[string]*services.PolygonQuote{
			"O:ABC240621P00050000": {Bid: 6, Ask: 6.4},
		},
		snapshots: map[string]*services.PolygonSnapshot{
			"O:ABC240621P00050000": {Volume: 20, OpenInterest: 400, UnderlyingPrice: 52},
			"O:ABC240621P00055000": {Volume: 1, OpenInterest: 10, UnderlyingPrice: 52},
		},
		trades: map[string]float64{"O:ABC240621P00055000": 4.2},
	}
}

func TestPolygonProvider_GetPutQuotes(t *testing.T) {
	svc := polygonFake()
	p := NewPolygonProvider(svc, marketclock.FixedClock{T: afterHours})

	got, err := p.GetPutQuotes(context.Background(), "ABC", 7, 30)
	if err != nil {
		t.Fatalf("GetPutQuotes() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(quotes) = %d, want 2: %+v", len(got), got)
	}

	if got[0].OptionSymbol != "O:ABC240621P00050000" || got[1].OptionSymbol != "O:ABC240621P00055000" {
		t.Errorf("order = %s, %s; want strikes ascending", got[0].OptionSymbol, got[1].OptionSymbol)
	}

	nbbo := got[0]
	if nbbo.QuoteSource != models.QuoteSourceNBBO {
		t.Errorf("QuoteSource = %s, want nbbo", nbbo.QuoteSource)
	}
	if nbbo.OpenInterestOrZero() != 400 || nbbo.VolumeOrZero() != 20 {
		t.Errorf("OI/volume = %d/%d, want 400/20", nbbo.OpenInterestOrZero(), nbbo.VolumeOrZero())
	}
	if !nbbo.UnderlyingPrice.Valid || !nbbo.UnderlyingPrice.Decimal.Equal(decimal.NewFromInt(52)) {
		t.Errorf("UnderlyingPrice = %v, want 52", nbbo.UnderlyingPrice)
	}

	traded := got[1]
	if traded.QuoteSource != models.QuoteSourceLastTrade {
		t.Errorf("QuoteSource = %s, want last_trade", traded.QuoteSource)
	}
	if !traded.Bid.Equal(decimal.NewFromFloat(4.2)) || !traded.Ask.Equal(decimal.NewFromFloat(4.2)) {
		t.Errorf("market = %s/%s, want 4.2/4.2", traded.Bid, traded.Ask)
	}

	if svc.snapCalls != 2 {
		t.Errorf("snapshots fetched %d times, want 2", svc.snapCalls)
	}
}

func TestPolygonProvider_MissingCredential(t *testing.T) {
	p := NewPolygonProvider(&fakePolygon{}, nil)

	_, err := p.GetPutQuotes(context.Background(), "ABC", 0, 60)
	if !errors.Is(err, services.ErrMissingCredential) {
		t.Errorf("error = %v, want ErrMissingCredential", err)
	}
}

func TestPolygonProvider_ListFailureIsSoft(t *testing.T) {
	p := NewPolygonProvider(&fakePolygon{configured: true, listErr: errUpstream}, nil)

	got, err := p.GetPutQuotes(context.Background(), "ABC", 0, 60)
	if err != nil || len(got) != 0 {
		t.Errorf("GetPutQuotes() = %d quotes, %v; want 0, nil", len(got), err)
	}
}

func TestPolygonProvider_PartialListKeepsContracts(t *testing.T) {
	svc := polygonFake()
	svc.listErr = errUpstream
	p := NewPolygonProvider(svc, marketclock.FixedClock{T: afterHours})

	got, err := p.GetPutQuotes(context.Background(), "ABC", 7, 30)
	if err != nil {
		t.Fatalf("GetPutQuotes() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(quotes) = %d, want the 2 contracts listed before the failure", len(got))
	}
}

func TestPolygonProvider_SnapshotCloseRung(t *testing.T) {
	exp := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	svc := &fakePolygon{
		configured: true,
		contracts: []services.PolygonContract{
			{Ticker: "O:ABC240621P00050000", Underlying: "ABC", Strike: 50, Expiration: exp},
		},
		snapshots: map[string]*services.PolygonSnapshot{
			"O:ABC240621P00050000": {DayClose: 0.9, OpenInterest: 100, UnderlyingPrice: 52},
		},
		closes: map[string]float64{"O:ABC240621P00050000": 5},
	}
	p := NewPolygonProvider(svc, marketclock.FixedClock{T: afterHours})

	got, err := p.GetPutQuotes(context.Background(), "ABC", 7, 30)
	if err != nil {
		t.Fatalf("GetPutQuotes() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(quotes) = %d, want 1", len(got))
	}
	q := got[0]
	if q.QuoteSource != models.QuoteSourcePrevClose {
		t.Errorf("QuoteSource = %s, want prev_close", q.QuoteSource)
	}
	if !q.Bid.Equal(decimal.NewFromFloat(0.9)) {
		t.Errorf("Bid = %s, want 0.9", q.Bid)
	}
	if svc.closeCalls != 0 {
		t.Errorf("PreviousClose called %d times, want 0", svc.closeCalls)
	}
}
