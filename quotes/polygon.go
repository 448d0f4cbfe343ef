package quotes

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"inflated-puts/marketclock"
	"inflated-puts/models"
	"inflated-puts/observability"
	"inflated-puts/services"
)

// PolygonProvider prices puts from Polygon reference contracts and NBBO quotes
type PolygonProvider struct {
	svc services.PolygonServiceInterface
	ladder
}

// NewPolygonProvider creates a Polygon adapter. A nil clock uses the system clock.
func NewPolygonProvider(svc services.PolygonServiceInterface, clock marketclock.Clock) *PolygonProvider {
	return &PolygonProvider{
		svc:    svc,
		ladder: newLadder(ProviderPolygon, clock),
	}
}

// Name returns the provider name
func (p *PolygonProvider) Name() string {
	return ProviderPolygon
}

// GetPutQuotes returns put quotes for symbol with DTE in [minDTE, maxDTE].
// Every contract's snapshot is read once (through the cache) for open
// interest, volume and the underlying price; it doubles as the first
// fallback rung when the NBBO is empty.
func (p *PolygonProvider) GetPutQuotes(ctx context.Context, symbol string, minDTE, maxDTE int) ([]models.OptionQuote, error) {
	if !p.svc.Configured() {
		return nil, services.MissingCredential(ProviderPolygon)
	}

	log := observability.WithProvider(ProviderPolygon).With("symbol", symbol)
	now := p.clock.Now()

	contracts, err := p.svc.ListPutContracts(ctx, symbol, 0)
	if err != nil {
		log.Warn("failed to list contracts", "error", err)
		if len(contracts) == 0 {
			return nil, nil
		}
	}

	byExpiration := make(map[time.Time][]services.PolygonContract)
	for _, c := range contracts {
		exp := marketclock.Date(c.Expiration)
		if c.Strike <= 0 || !inWindow(exp, now, minDTE, maxDTE) {
			continue
		}
		byExpiration[exp] = append(byExpiration[exp], c)
	}

	expirations := make([]time.Time, 0, len(byExpiration))
	for exp := range byExpiration {
		expirations = append(expirations, exp)
	}
	sort.Slice(expirations, func(i, j int) bool { return expirations[i].Before(expirations[j]) })

	var out []models.OptionQuote
	for _, exp := range expirations {
		group := byExpiration[exp]
		sort.Slice(group, func(i, j int) bool { return group[i].Strike < group[j].Strike })

		for _, c := range group {
			if ctx.Err() != nil {
				return out, nil
			}
			out = append(out, p.quote(ctx, symbol, exp, c))
		}
	}

	return out, nil
}

func (p *PolygonProvider) quote(ctx context.Context, symbol string, exp time.Time, c services.PolygonContract) models.OptionQuote {
	q := models.OptionQuote{
		Provider:     ProviderPolygon,
		OptionSymbol: c.Ticker,
		Underlying:   symbol,
		ContractType: models.ContractTypePut,
		Strike:       decimal.NewFromFloat(c.Strike),
		Expiration:   exp,
		Exchange:     c.Exchange,
	}

	nbbo, err := p.svc.LatestQuote(ctx, c.Ticker)
	if err != nil {
		observability.Debug("nbbo unavailable", "provider", ProviderPolygon, "option", c.Ticker, "error", err)
	} else if nbbo != nil {
		q.Bid = nonNegativeDecimal(nbbo.Bid)
		q.Ask = nonNegativeDecimal(nbbo.Ask)
		q.UpdatedAt = timePtr(nbbo.Timestamp)
		q.QuoteSource = models.QuoteSourceNBBO
	}

	fb := p.fallbackFor(symbol, c.Ticker)
	if snap, ok := p.snapshot(ctx, c.Ticker, fb.snapshot); ok {
		q.Volume = snap.Volume
		q.OpenInterest = snap.OpenInterest
		q.UnderlyingPrice = models.PositiveNullDecimal(snap.UnderlyingPrice)
		if snap.Last > 0 {
			q.Last = models.NullDecimalFromFloat(snap.Last)
		}
	}

	p.resolve(ctx, &q, fb)
	return q
}

func (p *PolygonProvider) fallbackFor(underlying, optionTicker string) fallback {
	return fallback{
		snapshot: func(ctx context.Context) (Snapshot, error) {
			snap, err := p.svc.ContractSnapshot(ctx, underlying, optionTicker)
			if err != nil {
				return Snapshot{}, err
			}
			return Snapshot{
				Bid:             snap.Bid,
				Ask:             snap.Ask,
				Last:            snap.LastPrice,
				PrevClose:       snap.DayClose,
				Volume:          models.Int64Ptr(snap.Volume),
				OpenInterest:    models.Int64Ptr(snap.OpenInterest),
				UnderlyingPrice: snap.UnderlyingPrice,
			}, nil
		},
		lastTrade: func(ctx context.Context) (float64, error) {
			return p.svc.LastTrade(ctx, optionTicker)
		},
		prevClose: func(ctx context.Context) (float64, error) {
			return p.svc.PreviousClose(ctx, optionTicker)
		},
	}
}

func nonNegativeDecimal(f float64) decimal.Decimal {
	if f <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
