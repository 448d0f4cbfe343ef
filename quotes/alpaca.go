package quotes

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"inflated-puts/marketclock"
	"inflated-puts/models"
	"inflated-puts/observability"
	"inflated-puts/services"
)

// AlpacaProvider prices puts from Alpaca option chain snapshots
type AlpacaProvider struct {
	svc services.AlpacaServiceInterface
	ladder
}

// NewAlpacaProvider creates an Alpaca adapter. A nil clock uses the system clock.
func NewAlpacaProvider(svc services.AlpacaServiceInterface, clock marketclock.Clock) *AlpacaProvider {
	return &AlpacaProvider{
		svc:    svc,
		ladder: newLadder(ProviderAlpaca, clock),
	}
}

// Name returns the provider name
func (p *AlpacaProvider) Name() string {
	return ProviderAlpaca
}

// GetPutQuotes returns put quotes for symbol with DTE in [minDTE, maxDTE].
// The chain snapshot carries both the latest quote and the latest trade, so
// the trade is the only fallback rung.
func (p *AlpacaProvider) GetPutQuotes(ctx context.Context, symbol string, minDTE, maxDTE int) ([]models.OptionQuote, error) {
	if !p.svc.Configured() {
		return nil, services.MissingCredential(ProviderAlpaca)
	}

	log := observability.WithProvider(ProviderAlpaca).With("symbol", symbol)
	now := p.clock.Now()

	chain, err := p.svc.GetOptionChain(ctx, symbol)
	if err != nil {
		log.Warn("failed to fetch option chain", "error", err)
		return nil, nil
	}

	var underlyingPrice decimal.NullDecimal
	priced := false

	var out []models.OptionQuote
	for _, snap := range chain {
		occ, err := ParseOCC(snap.Symbol)
		if err != nil {
			log.Debug("skipping unparseable option symbol", "option", snap.Symbol, "error", err)
			continue
		}
		if !occ.Put || !occ.Strike.IsPositive() || !inWindow(occ.Expiration, now, minDTE, maxDTE) {
			continue
		}
		if !priced {
			underlyingPrice = p.underlyingPrice(ctx, symbol)
			priced = true
		}

		q := models.OptionQuote{
			Provider:        ProviderAlpaca,
			OptionSymbol:    snap.Symbol,
			Underlying:      symbol,
			ContractType:    models.ContractTypePut,
			Strike:          occ.Strike,
			Expiration:      occ.Expiration,
			Bid:             nonNegativeDecimal(snap.Bid),
			Ask:             nonNegativeDecimal(snap.Ask),
			Last:            models.PositiveNullDecimal(snap.LastPrice),
			UnderlyingPrice: underlyingPrice,
			Exchange:        occ.Root,
			UpdatedAt:       timePtr(snap.QuoteTime),
			QuoteSource:     models.QuoteSourceNBBO,
		}

		p.cache.Set(snap.Symbol, Snapshot{
			Bid:       snap.Bid,
			Ask:       snap.Ask,
			Last:      snap.LastPrice,
			UpdatedAt: snap.QuoteTime,
		})
		p.resolve(ctx, &q, fallback{})
		out = append(out, q)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Expiration.Equal(out[j].Expiration) {
			return out[i].Expiration.Before(out[j].Expiration)
		}
		return out[i].Strike.LessThan(out[j].Strike)
	})

	return out, nil
}

func (p *AlpacaProvider) underlyingPrice(ctx context.Context, symbol string) decimal.NullDecimal {
	price, err := p.svc.GetLatestPrice(ctx, symbol)
	if err != nil {
		observability.WithProvider(ProviderAlpaca).Debug("underlying trade unavailable", "symbol", symbol, "error", err)
		return decimal.NullDecimal{}
	}
	return models.PositiveNullDecimal(price)
}
