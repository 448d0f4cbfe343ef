package quotes

import (
	"context"
	"errors"
	"time"

	"inflated-puts/services"
)

var (
	// Wednesday 11:00 New York
	inSession = time.Date(2024, 6, 5, 15, 0, 0, 0, time.UTC)
	// Saturday noon New York
	afterHours = time.Date(2024, 6, 8, 16, 0, 0, 0, time.UTC)
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

var errUpstream = errors.New("upstream exploded")

type fakeTradier struct {
	configured  bool
	expirations []string
	expErr      error
	chains      map[string][]services.TradierOption
	quotes      map[string]services.TradierQuote
	quoteCalls  map[string]int
}

func (f *fakeTradier) Configured() bool { return f.configured }

func (f *fakeTradier) GetExpirations(ctx context.Context, symbol string) ([]string, error) {
	return f.expirations, f.expErr
}

func (f *fakeTradier) GetChain(ctx context.Context, symbol, expiration string, greeks bool) ([]services.TradierOption, error) {
	chain, ok := f.chains[expiration]
	if !ok {
		return nil, errUpstream
	}
	return chain, nil
}

func (f *fakeTradier) GetQuotes(ctx context.Context, symbols ...string) ([]services.TradierQuote, error) {
	if f.quoteCalls == nil {
		f.quoteCalls = make(map[string]int)
	}
	var out []services.TradierQuote
	for _, s := range symbols {
		f.quoteCalls[s]++
		if q, ok := f.quotes[s]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

type fakePolygon struct {
	configured bool
	contracts  []services.PolygonContract
	listErr    error
	nbbo       map[string]*services.PolygonQuote
	snapshots  map[string]*services.PolygonSnapshot
	trades     map[string]float64
	closes     map[string]float64
	snapCalls  int
	closeCalls int
}

func (f *fakePolygon) Configured() bool { return f.configured }

func (f *fakePolygon) ListPutContracts(ctx context.Context, underlying string, limit int) ([]services.PolygonContract, error) {
	return f.contracts, f.listErr
}

func (f *fakePolygon) LatestQuote(ctx context.Context, ticker string) (*services.PolygonQuote, error) {
	return f.nbbo[ticker], nil
}

func (f *fakePolygon) ContractSnapshot(ctx context.Context, underlying, ticker string) (*services.PolygonSnapshot, error) {
	f.snapCalls++
	snap, ok := f.snapshots[ticker]
	if !ok {
		return nil, services.ErrNotFound
	}
	return snap, nil
}

func (f *fakePolygon) LastTrade(ctx context.Context, ticker string) (float64, error) {
	p, ok := f.trades[ticker]
	if !ok {
		return 0, services.ErrNotFound
	}
	return p, nil
}

func (f *fakePolygon) PreviousClose(ctx context.Context, ticker string) (float64, error) {
	f.closeCalls++
	return f.closes[ticker], nil
}

type fakeAlpaca struct {
	configured bool
	chain      []services.AlpacaOptionSnapshot
	chainErr   error
	price      float64
}

func (f *fakeAlpaca) Configured() bool { return f.configured }

func (f *fakeAlpaca) GetOptionChain(ctx context.Context, underlying string) ([]services.AlpacaOptionSnapshot, error) {
	return f.chain, f.chainErr
}

func (f *fakeAlpaca) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	return f.price, nil
}
